package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"ui_harness/infrastructure/storage"
)

func newHistoryCommand(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the most recent scenario results",
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := storage.NewRunHistory(a.cfg.History.Dir)
			if err != nil {
				return err
			}
			results, err := history.Load()
			if err != nil {
				return err
			}
			if limit > 0 && len(results) > limit {
				results = results[len(results)-limit:]
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, res := range results {
				status := "PASS"
				detail := ""
				if !res.Passed() {
					status = "FAIL"
					if res.Failure != nil {
						detail = string(res.Failure.Kind)
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					res.StartedAt.Format(time.RFC3339), status, res.Scenario, res.RunID, detail)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of results to show, 0 for all")
	return cmd
}
