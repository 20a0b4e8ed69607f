package answer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briany/genai-rag-chatbot/internal/llm"
)

type stubProvider struct {
	answer string
	err    error
	got    llm.Request
}

func (p *stubProvider) Complete(_ context.Context, req llm.Request) (string, error) {
	p.got = req
	return p.answer, p.err
}

func (p *stubProvider) Name() string { return "stub" }

var ragSources = []Source{
	{DocumentName: "rag.pdf", ChunkText: "RAG pairs retrieval with generation.", Score: 1},
	{DocumentName: "notes.txt", ChunkText: "Retrieval quality matters.", Score: 0.5},
}

// TS01: The provider sees the system prompt and grounded user prompt
func TestSynthesizer_Answer_UsesProvider(t *testing.T) {
	// Given: a provider that answers
	p := &stubProvider{answer: "## Answer\nRAG is retrieval plus generation."}
	s := NewSynthesizer(p)

	// When: answering a question
	out := s.Answer(context.Background(), "How does retrieval work?", ragSources)

	// Then: the answer is passed through and sources are highlighted
	assert.Equal(t, "## Answer\nRAG is retrieval plus generation.", out.Text)
	require.Len(t, out.Sources, 2)
	assert.Equal(t, "RAG pairs **retrieval** with generation.", out.Sources[0].ChunkText)
	assert.Equal(t, "**Retrieval** quality matters.", out.Sources[1].ChunkText)
	assert.Equal(t, "rag.pdf", out.Sources[0].DocumentName)

	assert.Equal(t, SystemPrompt, p.got.System)
	assert.Equal(t, DefaultTemperature, p.got.Temperature)
	assert.Equal(t, DefaultMaxTokens, p.got.MaxTokens)
	assert.Contains(t, p.got.Prompt, "Source: rag.pdf\nContent: RAG pairs retrieval with generation.\n\nSource: notes.txt")
	assert.Contains(t, p.got.Prompt, "Question: How does retrieval work?")
}

// TS02: Provider failures become answer text with no sources
func TestSynthesizer_Answer_FailureMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"status", &llm.StatusError{Status: 401, Body: `{"error":"bad key"}`}, `API Error (401): {"error":"bad key"}`},
		{"transport", &llm.TransportError{Err: errors.New("connection refused")}, "Sorry, I encountered an HTTP error: connection refused"},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), "Sorry, I encountered an HTTP error: call: context deadline exceeded"},
		{"other", errors.New("boom"), "Sorry, an unexpected error occurred: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSynthesizer(&stubProvider{err: tt.err})

			out := s.Answer(context.Background(), "q", ragSources)

			assert.Equal(t, tt.want, out.Text)
			assert.Empty(t, out.Sources)
			assert.NotNil(t, out.Sources)
		})
	}
}

func TestSynthesizer_MockMode(t *testing.T) {
	s := NewSynthesizer(nil)
	assert.True(t, s.MockMode())

	found := s.Answer(context.Background(), "what is retrieval", ragSources)
	assert.Contains(t, found.Text, "## 📚 **Information Found**")
	assert.Contains(t, found.Text, `**"what is retrieval"**`)
	assert.Contains(t, found.Text, "I found **2** relevant document(s)")
	assert.Equal(t, "**Retrieval** quality matters.", found.Sources[1].ChunkText)

	empty := s.Answer(context.Background(), "what is retrieval", nil)
	assert.Contains(t, empty.Text, "## ❌ **No Relevant Documents Found**")
	assert.Empty(t, empty.Sources)
}

func TestSynthesizer_Options(t *testing.T) {
	p := &stubProvider{answer: "ok"}
	s := NewSynthesizer(p, WithTemperature(0.2), WithMaxTokens(256), WithMaxTokens(0))

	s.Answer(context.Background(), "q", nil)

	assert.Equal(t, 0.2, p.got.Temperature)
	assert.Equal(t, 256, p.got.MaxTokens)
}

func TestBuildUserPrompt(t *testing.T) {
	prompt := BuildUserPrompt("Why?", []Source{{DocumentName: "a.txt", ChunkText: "Because."}})
	assert.Equal(t, "Context Documents:\nSource: a.txt\nContent: Because.\n\nQuestion: Why?\n\n"+
		"Please provide a comprehensive answer based on the context documents above. "+
		"If the context doesn't contain sufficient information to answer the question, please state that clearly.", prompt)
}
