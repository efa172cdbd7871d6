package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newCommandCmd(g *globalOptions) *cobra.Command {
	var (
		node       int64
		params     []string
		paramsJSON string
	)
	cmd := &cobra.Command{
		Use:   "command <name>",
		Short: "Submit a command to one node or to every known node",
		Example: `  hubctl command restart --node 7
  hubctl command set_log_level --param level=debug
  hubctl command set_update_interval --param window_start=2024-06-01T08:00:00Z \
      --param window_end=2024-06-01T18:00:00Z --param active_period=60 --param inactive_period=600`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := buildParams(paramsJSON, params)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("node") {
				if node < 0 || node > 4294967295 {
					return fmt.Errorf("--node must be between 0 and 4294967295")
				}
				p["node_id"] = node
			}

			c, err := g.client()
			if err != nil {
				return err
			}
			if err := c.SubmitCommand(cmd.Context(), args[0], p); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
	cmd.Flags().Int64Var(&node, "node", 0, "Target node id (default: broadcast to known nodes)")
	cmd.Flags().StringArrayVar(&params, "param", nil, "Parameter as key=value; integers and booleans are sent as JSON values")
	cmd.Flags().StringVar(&paramsJSON, "params-json", "", "Parameters as a JSON object, merged before --param")
	return cmd
}

// buildParams merges a JSON object with key=value pairs. Values that parse as
// integers or booleans are sent typed.
func buildParams(raw string, pairs []string) (map[string]any, error) {
	out := map[string]any{}
	if strings.TrimSpace(raw) != "" {
		dec := json.NewDecoder(strings.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&out); err != nil {
			return nil, fmt.Errorf("--params-json: %w", err)
		}
	}
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("--param %q: expected key=value", pair)
		}
		out[k] = typedValue(v)
	}
	return out, nil
}

func typedValue(v string) any {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(v); err == nil && (v == "true" || v == "false") {
		return b
	}
	return v
}
