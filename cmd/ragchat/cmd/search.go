package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/briany/genai-rag-chatbot/internal/output"
	"github.com/briany/genai-rag-chatbot/internal/retrieval"
)

// searchPreviewChars bounds each passage in text output.
const searchPreviewChars = 300

type searchOptions struct {
	limit  int
	format string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Show the passages retrieved for a query",
		Long: `Search the configured store and print the retrieved passages without
generating an answer. The limit defaults to 5 and is capped at 50.`,
		Example: `  ragchat search "vector database"
  ragchat search embeddings -n 10 --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", retrieval.DefaultK, "Maximum number of results")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	if err := checkFormat(opts.format); err != nil {
		return err
	}

	svc, _, cleanup, err := openService(ctx, false)
	if err != nil {
		return err
	}
	defer cleanup()

	slog.Info("search_started", slog.String("query", query), slog.Int("limit", opts.limit))
	results, err := svc.Search(ctx, query, opts.limit)
	if err != nil {
		return err
	}

	if opts.format == "json" {
		if results == nil {
			results = []retrieval.Result{}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	out := output.New(cmd.OutOrStdout())
	if len(results) == 0 {
		out.Warningf("No results for %q", query)
		return nil
	}
	out.Statusf("🔍", "%d results for %q", len(results), query)
	for i, r := range results {
		out.Newline()
		out.Status("", fmt.Sprintf("%d. %s  chunk %d  score %.2f", i+1, r.DocumentName, r.Chunk.Metadata.ChunkIndex, r.Score))
		out.Block(r.Chunk.Preview(searchPreviewChars))
	}
	return nil
}
