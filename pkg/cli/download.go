package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/DeBrosOfficial/loghub/pkg/logstore"
	"github.com/spf13/cobra"
)

func newDownloadCmd(g *globalOptions) *cobra.Command {
	var (
		after    int64
		follow   bool
		interval time.Duration
		asJSON   bool
		maxPages int
	)
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download settled log lines",
		Long: `Download pages of log lines with id greater than --after. Without
--follow, paging stops at the first empty page. With --follow, hubctl keeps
polling every --interval until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if after < 0 {
				return fmt.Errorf("--after must be non-negative")
			}
			c, err := g.client()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			var tw *tabwriter.Writer
			if !asJSON {
				tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tTIMESTAMP\tNODE\tMESSAGE")
			}

			for page := 0; maxPages <= 0 || page < maxPages; page++ {
				logs, err := c.Download(ctx, after)
				if err != nil {
					return err
				}
				if err := printRecords(out, tw, logs, asJSON); err != nil {
					return err
				}
				if len(logs) > 0 {
					after = logs[len(logs)-1].ID
				}
				if len(logs) > 0 {
					continue
				}
				if !follow {
					break
				}
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(interval):
				}
			}
			if tw != nil {
				return tw.Flush()
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&after, "after", 0, "Return lines with id greater than this")
	cmd.Flags().BoolVar(&follow, "follow", false, "Keep polling for new lines")
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "Poll interval with --follow")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print one JSON object per line")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "Stop after this many requests (0 = no limit)")
	return cmd
}

func printRecords(out io.Writer, tw *tabwriter.Writer, logs []logstore.Record, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		for _, l := range logs {
			if err := enc.Encode(l); err != nil {
				return err
			}
		}
		return nil
	}
	for _, l := range logs {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", l.ID, l.Timestamp, l.NodeID, l.Message)
	}
	return tw.Flush()
}
