package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd(g *globalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show schedule, known nodes and last sweep",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			st, err := c.Status(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}

			h := st.Hub
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Server:\t%s (up %s)\n", st.Server.Status, st.Server.Uptime)
			fmt.Fprintf(tw, "Hub time:\t%s\n", h.Time.Format(time.RFC3339))
			if h.Schedule.Set && h.Schedule.WindowStart != nil && h.Schedule.WindowEnd != nil {
				fmt.Fprintf(tw, "Window:\t%s .. %s\n", h.Schedule.WindowStart.Format(time.RFC3339), h.Schedule.WindowEnd.Format(time.RFC3339))
				fmt.Fprintf(tw, "Periods:\tactive %ds, inactive %ds\n", h.Schedule.ActivePeriod, h.Schedule.InactivePeriod)
			} else {
				fmt.Fprintf(tw, "Window:\tnot set\n")
			}
			fmt.Fprintf(tw, "Update interval:\t%ds\n", h.Schedule.UpdateInterval)
			fmt.Fprintf(tw, "Margin:\t%ds\n", h.Schedule.MarginBase)
			fmt.Fprintf(tw, "Cutoff:\t%s\n", h.Schedule.Cutoff.Format(time.RFC3339))
			fmt.Fprintf(tw, "Known nodes:\t%d\n", h.KnownNodes)
			if h.LastSweep != nil {
				fmt.Fprintf(tw, "Last sweep:\t%s\n", h.LastSweep.Format(time.RFC3339))
			} else {
				fmt.Fprintf(tw, "Last sweep:\tnever\n")
			}
			fmt.Fprintf(tw, "Commands:\t%s\n", strings.Join(h.Commands, ", "))
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw status document")
	return cmd
}

func newHealthCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the hub answers and its database is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			if err := c.Health(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "healthy")
			return nil
		},
	}
}
