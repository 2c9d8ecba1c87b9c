package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

const defaultHistoryLimit = 20

func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent fetches, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}

			hist, err := a.openHistory()
			if err != nil {
				return err
			}
			defer func() { _ = hist.Close() }()

			records, err := hist.ListFetches(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				_, err := fmt.Fprintln(out, "No fetches recorded.")
				return err
			}

			tw := tabwriter.NewWriter(out, 0, 0, tabPadding, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tQUERY\tOUTCOME\tROWS\tDURATION\tCACHE\tERROR")
			for _, rec := range records {
				name := rec.QueryName
				if name == "" && len(rec.QueryKey) >= 12 {
					name = rec.QueryKey[:12]
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
					rec.StartedAt.Local().Format(time.DateTime),
					name,
					rec.Outcome,
					rec.RowCount,
					time.Duration(rec.DurationMs)*time.Millisecond,
					rec.CachePath,
					rec.Error,
				)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", defaultHistoryLimit, "maximum number of fetches to list")
	return cmd
}
