package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/briany/genai-rag-chatbot/internal/output"
)

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <files...>",
		Short: "Extract, chunk and store documents",
		Long: `Extract text from PDF, DOCX or TXT files, split it into overlapping
chunks and register each file as a document in the configured store.

Files are processed in parallel (retrieval.ingest_workers). The first
failing file aborts the run.

In keyword mode chunk text lives in memory unless keyword.persist_chunks
is enabled, so later commands only see the document list.`,
		Example: `  ragchat ingest report.pdf notes.txt
  ragchat ingest docs/*.docx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), cmd, args)
		},
	}
}

func runIngest(ctx context.Context, cmd *cobra.Command, paths []string) error {
	out := output.New(cmd.OutOrStdout())

	svc, _, cleanup, err := openService(ctx, false)
	if err != nil {
		return err
	}
	defer cleanup()

	results, err := svc.IngestFiles(ctx, paths)
	if err != nil {
		return err
	}

	total := 0
	for _, res := range results {
		total += res.ChunksCount
		out.Successf("%s: %d chunks (id %s)", res.Filename, res.ChunksCount, res.DocumentID)
	}
	out.Status("", fmt.Sprintf("%d documents, %d chunks", len(results), total))
	return nil
}
