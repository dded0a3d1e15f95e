package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/apiprobe/apiprobe/packages/history"
	"github.com/spf13/cobra"
)

var (
	historyDBPathFlag string
	historyLimitFlag  int
	historyRunFlag    string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs from the history database",
	Long: `List past runs recorded with --history-db.

Examples:
  apiprobe history --db apiprobe.db
  apiprobe history --db apiprobe.db --run 4f8b2c1e-...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyDBPathFlag == "" {
			fmt.Fprintln(os.Stderr, "Error: --db is required")
			os.Exit(ExitConfigError)
		}

		store, err := history.Open(historyDBPathFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(ExitConfigError)
		}
		defer store.Close()

		if historyRunFlag != "" {
			results, err := store.Results(cmd.Context(), historyRunFlag)
			if err != nil {
				return err
			}
			for _, r := range results {
				status := "PASS"
				if !r.Passed {
					status = "FAIL"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-4s %-40s %5dms", status, r.Name, r.ElapsedMs)
				if r.Error != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s", r.Error)
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		}

		runs, err := store.Recent(cmd.Context(), historyLimitFlag)
		if err != nil {
			return err
		}

		for _, run := range runs {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %d/%d passed  %dms\n",
				run.ID, run.StartedAt.Format(time.RFC3339),
				run.Passed, run.Total, run.DurationMs)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyDBPathFlag, "db", getEnvString("APIPROBE_HISTORY_DB", ""), "Path to the history database (env: APIPROBE_HISTORY_DB)")
	historyCmd.Flags().IntVar(&historyLimitFlag, "limit", 20, "Number of runs to list")
	historyCmd.Flags().StringVar(&historyRunFlag, "run", "", "Show per-scenario results for one run ID")
}
