package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// version metadata populated via -ldflags at build time
var (
	version = "dev"
	commit  = ""
	date    = ""
)

func versionString() string {
	s := version
	if commit != "" {
		s += " (commit " + commit + ")"
	}
	if date != "" {
		s += " built " + date
	}
	return s
}

func newRootCmd(getenv func(string) string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "loghub",
		Short:         "Collect probe logs and hand out queued commands",
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig(cmd, getenv)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, path)
		},
	}
	registerFlags(cmd)
	cmd.AddCommand(newMigrateCmd(getenv))
	return cmd
}

func newMigrateCmd(getenv func(string) string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd, getenv)
			if err != nil {
				return err
			}
			return migrate(cmd.Context(), cfg)
		},
	}
	registerFlags(cmd)
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Getenv).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "loghub: %v\n", err)
		os.Exit(1)
	}
}
