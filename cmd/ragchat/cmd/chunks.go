package cmd

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/briany/genai-rag-chatbot/internal/output"
)

const chunkPreviewChars = 60

func newChunksCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "chunks",
		Short: "List stored chunks (debug)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, _, cleanup, err := openService(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()

			chunks, err := svc.Chunks(ctx)
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			if len(chunks) == 0 {
				out.Status("📭", "No chunks stored")
				return nil
			}
			shown := chunks
			if limit > 0 && len(shown) > limit {
				shown = shown[:limit]
			}
			rows := make([][]string, len(shown))
			for i, c := range shown {
				rows[i] = []string{c.ID, c.Metadata.Source, strconv.Itoa(c.Metadata.ChunkIndex), strings.Join(strings.Fields(c.Preview(chunkPreviewChars)), " ")}
			}
			out.Table([]string{"ID", "SOURCE", "INDEX", "CONTENT"}, rows)
			if len(shown) < len(chunks) {
				out.Statusf("", "... %d more", len(chunks)-len(shown))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most n chunks (0 shows all)")
	return cmd
}
