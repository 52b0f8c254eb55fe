package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/petasbytes/calagent/calendar"
)

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect the local calendar",
	}
	cmd.AddCommand(eventsListCmd())
	return cmd
}

func eventsListCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events overlapping a time range (default: the next 7 days)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			now := time.Now()
			if from == "" {
				from = now.Format(time.RFC3339)
			}
			if to == "" {
				to = now.Add(7 * 24 * time.Hour).Format(time.RFC3339)
			}
			min, max, err := calendar.ParseRange(from, to)
			if err != nil {
				return err
			}
			events, err := a.calendar.ListEvents(ctx, min, max)
			if err != nil {
				return err
			}
			loc, err := a.cfg.Location()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTART\tEND\tSUMMARY\tATTENDEES")
			for _, e := range events {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					e.ID,
					e.Start.In(loc).Format("2006-01-02 15:04"),
					e.End.In(loc).Format("2006-01-02 15:04"),
					e.Summary,
					strings.Join(e.Attendees, ","),
				)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "range start (RFC3339)")
	cmd.Flags().StringVar(&to, "to", "", "range end (RFC3339)")
	return cmd
}
