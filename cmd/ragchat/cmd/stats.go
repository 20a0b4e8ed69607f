package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/briany/genai-rag-chatbot/internal/output"
	"github.com/briany/genai-rag-chatbot/internal/telemetry"
)

func newStatsCmd() *cobra.Command {
	var jsonOutput bool
	var top int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show search statistics",
		Long: `Show the search statistics kept in the data directory: searches per
retrieval mode, the latency histogram, the most searched terms and the
latest searches that found nothing.

Statistics are local only. Disable them with telemetry.enabled: false.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, _, cleanup, err := openService(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := svc.Stats(ctx, top)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}
			printStats(output.New(cmd.OutOrStdout()), stats)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().IntVarP(&top, "top", "n", 10, "Number of top terms to show")
	return cmd
}

func printStats(out *output.Writer, s telemetry.Snapshot) {
	if s.TotalQueries == 0 {
		out.Status("📭", "No searches recorded yet")
		return
	}

	out.Statusf("📊", "%d searches since %s, %.1f%% without results",
		s.TotalQueries, s.Since.Format("2006-01-02"), s.ZeroResultPercentage())

	modes := make([]string, 0, len(s.ModeCounts))
	for m := range s.ModeCounts {
		modes = append(modes, m)
	}
	sort.Strings(modes)
	rows := make([][]string, len(modes))
	for i, m := range modes {
		rows[i] = []string{m, strconv.FormatInt(s.ModeCounts[m], 10)}
	}
	out.Newline()
	out.Table([]string{"MODE", "SEARCHES"}, rows)

	rows = rows[:0]
	for _, b := range telemetry.Buckets {
		rows = append(rows, []string{string(b), strconv.FormatInt(s.LatencyDistribution[b], 10)})
	}
	out.Newline()
	out.Table([]string{"LATENCY", "SEARCHES"}, rows)

	if len(s.TopTerms) > 0 {
		rows = rows[:0]
		for _, tc := range s.TopTerms {
			rows = append(rows, []string{tc.Term, strconv.FormatInt(tc.Count, 10)})
		}
		out.Newline()
		out.Table([]string{"TERM", "COUNT"}, rows)
	}

	if len(s.ZeroResultQueries) > 0 {
		out.Newline()
		out.Status("🔍", "Recent searches without results:")
		for _, q := range s.ZeroResultQueries {
			out.Status("", fmt.Sprintf("  %s", q))
		}
	}
}
