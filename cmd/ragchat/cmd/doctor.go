package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/briany/genai-rag-chatbot/internal/config"
	ragerrors "github.com/briany/genai-rag-chatbot/internal/errors"
	"github.com/briany/genai-rag-chatbot/internal/preflight"
)

type doctorReport struct {
	Status string                  `json:"status"`
	Checks []preflight.CheckResult `json:"checks"`
}

func newDoctorCmd() *cobra.Command {
	var jsonOutput bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that ragchat can run with the current configuration",
		Long: `Run the system checks: configuration, data directory permissions and
free space, open file limit, the data directory lock and provider
credentials. Exits with an error when a required check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get current directory: %w", err)
			}
			// The config check reports validation errors itself.
			cfg, err := config.LoadUnvalidated(cwd)
			if err != nil {
				return err
			}

			checker := preflight.New(cfg, preflight.WithOutput(cmd.OutOrStdout()), preflight.WithVerbose(verbose))
			results := checker.RunAll(cmd.Context())

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(doctorReport{Status: checker.SummaryStatus(results), Checks: results}); err != nil {
					return err
				}
			} else {
				checker.PrintResults(results)
			}

			if checker.HasCriticalFailures(results) {
				return ragerrors.New(ragerrors.ErrCodeConfigInvalid, "system check failed", nil).
					WithSuggestion("fix the FAIL items above and run 'ragchat doctor' again")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show check details")
	return cmd
}
