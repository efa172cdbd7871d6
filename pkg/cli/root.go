// Package cli implements hubctl, the operator command line for the hub.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/DeBrosOfficial/loghub/pkg/client"
	"github.com/spf13/cobra"
)

// Environment variables consulted when the matching flag is not set.
const (
	EnvURL    = "LOGHUB_URL"
	EnvAPIKey = "LOGHUB_API_KEY"
)

type globalOptions struct {
	url     string
	apiKey  string
	timeout time.Duration
	getenv  func(string) string
}

// NewRootCmd builds the hubctl command tree.
func NewRootCmd(version string) *cobra.Command {
	return newRootCmd(version, os.Getenv)
}

func newRootCmd(version string, getenv func(string) string) *cobra.Command {
	opts := &globalOptions{getenv: getenv}

	root := &cobra.Command{
		Use:           "hubctl",
		Short:         "Operate a log hub",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.url, "url", "", "Hub base URL (env "+EnvURL+", default http://localhost:8080)")
	root.PersistentFlags().StringVar(&opts.apiKey, "api-key", "", "API key for the called route (env "+EnvAPIKey+")")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", client.DefaultTimeout, "Per-request timeout")

	root.AddCommand(
		newCommandCmd(opts),
		newDownloadCmd(opts),
		newPushCmd(opts),
		newStatusCmd(opts),
		newHealthCmd(opts),
	)
	return root
}

func (o *globalOptions) client() (*client.Client, error) {
	url := o.url
	if url == "" {
		url = o.getenv(EnvURL)
	}
	if url == "" {
		url = "http://localhost:8080"
	}
	key := o.apiKey
	if key == "" {
		key = o.getenv(EnvAPIKey)
	}
	c, err := client.New(client.Config{BaseURL: url, APIKey: key, Timeout: o.timeout})
	if err != nil {
		return nil, fmt.Errorf("invalid --url: %w", err)
	}
	return c, nil
}
