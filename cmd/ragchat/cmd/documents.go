package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	ragerrors "github.com/briany/genai-rag-chatbot/internal/errors"
	"github.com/briany/genai-rag-chatbot/internal/output"
	"github.com/briany/genai-rag-chatbot/internal/store"
)

func newDocumentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "documents",
		Aliases: []string{"docs"},
		Short:   "List or delete ingested documents",
	}
	cmd.AddCommand(newDocumentsListCmd())
	cmd.AddCommand(newDocumentsDeleteCmd())
	return cmd
}

func newDocumentsListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ingested documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, _, cleanup, err := openService(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()

			docs, err := svc.List(ctx)
			if err != nil {
				return err
			}
			if docs == nil {
				docs = []store.DocumentSummary{}
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(docs)
			}

			out := output.New(cmd.OutOrStdout())
			if len(docs) == 0 {
				out.Status("📭", "No documents ingested yet")
				return nil
			}
			rows := make([][]string, len(docs))
			for i, d := range docs {
				rows[i] = []string{d.DocumentID, d.Filename, strconv.Itoa(d.ChunkCount)}
			}
			out.Table([]string{"ID", "FILENAME", "CHUNKS"}, rows)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newDocumentsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document and its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, _, cleanup, err := openService(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()

			ok, err := svc.Delete(ctx, args[0])
			if err != nil {
				return err
			}
			if !ok {
				return ragerrors.New(ragerrors.ErrCodeDocumentNotFound,
					fmt.Sprintf("document %s not found", args[0]), nil).
					WithSuggestion("run 'ragchat documents list' to see document ids")
			}
			output.New(cmd.OutOrStdout()).Successf("Deleted document %s", args[0])
			return nil
		},
	}
}
