package mcp

import (
	"fmt"
	"strings"

	"github.com/briany/genai-rag-chatbot/internal/answer"
	"github.com/briany/genai-rag-chatbot/internal/retrieval"
	"github.com/briany/genai-rag-chatbot/internal/store"
)

// FormatSearchResults formats retrieved passages as markdown.
func FormatSearchResults(query string, results []retrieval.Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for \"%s\"", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search Results for \"%s\"\n\n", query)
	fmt.Fprintf(&sb, "Found %d result", len(results))
	if len(results) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, r := range results {
		formatResult(&sb, i+1, r)
	}
	return sb.String()
}

func formatResult(sb *strings.Builder, num int, r retrieval.Result) {
	fmt.Fprintf(sb, "### %d. %s (chunk %d, score: %.2f)\n\n",
		num,
		r.DocumentName,
		r.Chunk.Metadata.ChunkIndex,
		r.Score,
	)
	fmt.Fprintf(sb, "```\n%s\n```\n\n", r.Chunk.Content)
}

// FormatAnswer renders an answer followed by its numbered sources.
func FormatAnswer(ans answer.Answer) string {
	var sb strings.Builder
	sb.WriteString(ans.Text)
	if len(ans.Sources) == 0 {
		return sb.String()
	}

	sb.WriteString("\n\n---\n\n**Sources:**\n\n")
	for i, src := range ans.Sources {
		fmt.Fprintf(&sb, "%d. %s (score: %.2f)\n", i+1, src.DocumentName, src.Score)
	}
	return sb.String()
}

// FormatDocuments renders the document list as a markdown table.
func FormatDocuments(docs []store.DocumentSummary) string {
	if len(docs) == 0 {
		return "No documents have been ingested."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Documents (%d)\n\n", len(docs))
	sb.WriteString("| ID | Filename | Chunks |\n|---|---|---|\n")
	for _, d := range docs {
		fmt.Fprintf(&sb, "| `%s` | %s | %d |\n", d.DocumentID, d.Filename, d.ChunkCount)
	}
	return sb.String()
}

// clampLimit ensures limit is within bounds.
func clampLimit(limit, defaultVal, min, max int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}

// ToSearchResultOutput converts a result to its structured tool output.
func ToSearchResultOutput(r retrieval.Result) SearchResultOutput {
	return SearchResultOutput{
		DocumentID:   r.DocumentID,
		DocumentName: r.DocumentName,
		ChunkIndex:   r.Chunk.Metadata.ChunkIndex,
		Content:      r.Chunk.Content,
		Score:        r.Score,
	}
}
