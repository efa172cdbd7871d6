package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/DeBrosOfficial/loghub/pkg/hub"
	"github.com/DeBrosOfficial/loghub/pkg/logstore"
	"github.com/DeBrosOfficial/loghub/pkg/timeutil"
	"github.com/spf13/cobra"
)

func newPushCmd(g *globalOptions) *cobra.Command {
	var (
		node  int64
		file  string
		batch int
	)
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Upload lines as a probe would",
		Long: `Read lines from --file or stdin and upload them for --node, stamping each
line with the current time. Commands returned by the hub are printed one per
line followed by the update interval.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if node < 0 || node > 4294967295 {
				return fmt.Errorf("--node must be between 0 and 4294967295")
			}
			if batch <= 0 || batch > logstore.MaxBatch {
				return fmt.Errorf("--batch must be between 1 and %d", logstore.MaxBatch)
			}

			in := cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			c, err := g.client()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			flush := func(lines []hub.LogLine) error {
				res, err := c.Upload(cmd.Context(), uint32(node), lines)
				if err != nil {
					return err
				}
				for _, p := range res.Commands {
					fmt.Fprintln(out, p.String())
				}
				fmt.Fprintf(out, "update_interval=%d\n", res.UpdateInterval)
				return nil
			}
			return pushLines(in, batch, flush)
		},
	}
	cmd.Flags().Int64Var(&node, "node", 0, "Node id to upload as")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read lines from this file instead of stdin")
	cmd.Flags().IntVar(&batch, "batch", 1000, "Lines per upload")
	_ = cmd.MarkFlagRequired("node")
	return cmd
}

// pushLines reads in line by line and calls flush once per full batch and
// once for the remainder. An empty input still produces one empty upload so
// the caller receives queued commands.
func pushLines(in io.Reader, batch int, flush func([]hub.LogLine) error) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	lines := make([]hub.LogLine, 0, batch)
	sent := false
	for sc.Scan() {
		lines = append(lines, hub.LogLine{
			Timestamp: timeutil.Format(time.Now()),
			Message:   sc.Text(),
		})
		if len(lines) == batch {
			if err := flush(lines); err != nil {
				return err
			}
			sent = true
			lines = make([]hub.LogLine, 0, batch)
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if len(lines) > 0 || !sent {
		return flush(lines)
	}
	return nil
}
