package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briany/genai-rag-chatbot/internal/answer"
)

func runPlain(t *testing.T, asker Asker, input string, opts ...ConfigOption) string {
	t.Helper()
	out := &bytes.Buffer{}
	chat := NewPlainChat(asker, NewConfig(strings.NewReader(input), out, opts...))
	require.NoError(t, chat.Run(context.Background()))
	return out.String()
}

// TS01: Each line is asked and the answer printed with its sources
func TestPlainChat_AsksEachLine(t *testing.T) {
	// Given: an asker with one source
	asker := &fakeAsker{answer: answer.Answer{
		Text:    "RAG retrieves then generates.",
		Sources: []answer.Source{{DocumentName: "rag.txt", ChunkText: "Retrieval  augmented\ngeneration", Score: 0.75}},
	}}

	// When: two questions and a blank line are entered
	out := runPlain(t, asker, "what is rag\n\nand why\n")

	// Then: both are asked and each answer is shown
	assert.Equal(t, []string{"what is rag", "and why"}, asker.questions)
	assert.Equal(t, 2, strings.Count(out, "  RAG retrieves then generates."))
	assert.Contains(t, out, "Sources:\n  [1] rag.txt (0.75): Retrieval augmented generation\n")
}

func TestPlainChat_QuitStopsReading(t *testing.T) {
	asker := &fakeAsker{}

	runPlain(t, asker, "/quit\nnever asked\n")

	assert.Empty(t, asker.questions)
}

func TestPlainChat_ErrorIsReportedAndLoopContinues(t *testing.T) {
	asker := &fakeAsker{err: errors.New("store unavailable")}

	out := runPlain(t, asker, "one\ntwo\n")

	assert.Len(t, asker.questions, 2)
	assert.Equal(t, 2, strings.Count(out, "❌ store unavailable"))
}

func TestPlainChat_MockNoticeAndHelp(t *testing.T) {
	out := runPlain(t, &fakeAsker{}, "/help\n", WithMockMode(true))

	assert.Contains(t, out, "mock mode")
	assert.Contains(t, out, "Commands: /clear, /help, /quit")
}

func TestPlainChat_CancelledContext(t *testing.T) {
	asker := &fakeAsker{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chat := NewPlainChat(asker, NewConfig(strings.NewReader("question\n"), &bytes.Buffer{}))

	assert.NoError(t, chat.Run(ctx))
	assert.Empty(t, asker.questions)
}
