package cmd

import (
	"github.com/spf13/cobra"

	"github.com/briany/genai-rag-chatbot/internal/ui"
)

func newChatCmd() *cobra.Command {
	var plain bool
	var noColor bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with your documents interactively",
		Long: `Open an interactive chat. Every message is answered from the ingested
documents and shown with its sources.

A full-screen terminal UI is used when stdin and stdout are terminals;
pipes, CI and --plain get a line-by-line prompt instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, _, cleanup, err := openService(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()

			cfg := ui.NewConfig(cmd.InOrStdin(), cmd.OutOrStdout(),
				ui.WithForcePlain(plain),
				ui.WithNoColor(noColor),
				ui.WithMockMode(svc.MockMode()),
			)
			return ui.NewSession(svc, cfg).Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Use the line-mode prompt even in a terminal")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colors")
	return cmd
}
