package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCommand(root *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(root)
			if err != nil {
				return err
			}
			if cfg.Store.Path == "" {
				return errors.New("run history is disabled (store.path is empty)")
			}

			a, err := newApp(root, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			runs, err := a.repo.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tJOB\tOUTCOME\tATTEMPTS\tSTARTED\tDURATION\tREASON")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
					r.ID, r.JobID, r.Outcome, r.Attempts,
					r.StartedAt.Local().Format(time.DateTime),
					(time.Duration(r.DurationMs) * time.Millisecond).String(),
					r.Reason)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	return cmd
}
