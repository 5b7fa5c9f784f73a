package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/edinet-screener/internal/model"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent screening runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("runs"); err != nil {
			return err
		}
		st, err := initStore(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runs, err := st.ListRuns(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}
		return printRuns(cmd.OutOrStdout(), runs)
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "number of runs to show")
	rootCmd.AddCommand(runsCmd)
}

func printRuns(out io.Writer, runs []model.Run) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tCREATED\tCOMPANIES\tSAVED\tSKIPPED\tFAILED\tERROR") //nolint:errcheck
	for _, r := range runs {
		var stats model.RunStats
		if r.Stats != nil {
			stats = *r.Stats
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n", //nolint:errcheck
			r.ID, r.Status, r.CreatedAt.Local().Format(time.DateTime),
			stats.Companies, stats.Saved, stats.Skipped, stats.Failed, stats.Error)
	}
	return w.Flush()
}
