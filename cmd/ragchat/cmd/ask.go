package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/briany/genai-rag-chatbot/internal/answer"
	"github.com/briany/genai-rag-chatbot/internal/output"
)

func newAskCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the ingested documents",
		Example: `  ragchat ask "What is retrieval augmented generation?"
  ragchat ask what does the report conclude --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), cmd, strings.Join(args, " "), format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	return cmd
}

func runAsk(ctx context.Context, cmd *cobra.Command, question, format string) error {
	if err := checkFormat(format); err != nil {
		return err
	}

	svc, _, cleanup, err := openService(ctx, false)
	if err != nil {
		return err
	}
	defer cleanup()

	ans, err := svc.Ask(ctx, question)
	if err != nil {
		return err
	}

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(ans)
	}

	out := output.New(cmd.OutOrStdout())
	if svc.MockMode() {
		out.Warning("No LLM API key configured: mock answer")
	}
	out.Block(ans.Text)
	printSources(out, ans.Sources)
	return nil
}

func printSources(out *output.Writer, sources []answer.Source) {
	if len(sources) == 0 {
		return
	}
	out.Status("📚", "Sources:")
	for i, src := range sources {
		out.Status("", fmt.Sprintf("[%d] %s (score %.2f)", i+1, src.DocumentName, src.Score))
	}
}

func checkFormat(format string) error {
	switch format {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("invalid format %q (supported: text, json)", format)
	}
}
