package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DeBrosOfficial/loghub/pkg/config"
	"github.com/DeBrosOfficial/loghub/pkg/gateway"
	"github.com/DeBrosOfficial/loghub/pkg/logging"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
server:
  listen_addr: ":9000"
auth:
  probe_api_key: p
  log_collector_api_key: c
  cli_api_key: o
database:
  dsn: %DB%
`

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultConfigName)
	yaml := strings.ReplaceAll(testYAML, "%DB%", filepath.Join(dir, "hub.db"))
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))
	return path
}

func TestLoadConfigPrecedence(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeConfig(t)

	tests := []struct {
		name string
		env  map[string]string
		args []string
		want string
	}{
		{name: "yaml", args: []string{"--config", path}, want: ":9000"},
		{name: "env over yaml", env: map[string]string{"LOGHUB_LISTEN_ADDR": ":9100"}, args: []string{"--config", path}, want: ":9100"},
		{name: "flag over env", env: map[string]string{"LOGHUB_LISTEN_ADDR": ":9100"}, args: []string{"--config", path, "--addr", ":9200"}, want: ":9200"},
		{name: "config path from env", env: map[string]string{"LOGHUB_CONFIG": path}, want: ":9000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			getenv := func(k string) string { return tt.env[k] }
			cmd := newRootCmd(getenv)
			require.NoError(t, cmd.ParseFlags(tt.args))

			cfg, used, err := loadConfig(cmd, getenv)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Server.ListenAddr)
			assert.Equal(t, path, used)
		})
	}
}

func TestLoadConfigWithoutFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	env := map[string]string{
		"LOGHUB_PROBE_API_KEY":         "p",
		"LOGHUB_LOG_COLLECTOR_API_KEY": "c",
		"LOGHUB_CLI_API_KEY":           "o",
	}
	getenv := func(k string) string { return env[k] }
	cmd := newRootCmd(getenv)
	require.NoError(t, cmd.ParseFlags([]string{"--db-dsn", filepath.Join(t.TempDir(), "x.db")}))

	cfg, used, err := loadConfig(cmd, getenv)
	require.NoError(t, err)
	assert.Empty(t, used)
	assert.Equal(t, config.DefaultConfig().Server.ListenAddr, cfg.Server.ListenAddr)
	assert.Equal(t, "p", cfg.Auth.ProbeAPIKey)
}

func TestLoadConfigRejectsMissingKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	getenv := func(string) string { return "" }
	cmd := newRootCmd(getenv)
	require.NoError(t, cmd.ParseFlags(nil))

	_, _, err := loadConfig(cmd, getenv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoadConfigRejectsBadEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeConfig(t)
	env := map[string]string{"LOGHUB_CLEANUP_INTERVAL": "soon"}
	getenv := func(k string) string { return env[k] }
	cmd := newRootCmd(getenv)
	require.NoError(t, cmd.ParseFlags([]string{"--config", path}))

	_, _, err := loadConfig(cmd, getenv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CLEANUP_INTERVAL")
}

func TestWiredHubServesUpdate(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()
	cfg.Auth = config.AuthConfig{ProbeAPIKey: "p", LogCollectorAPIKey: "c", CLIAPIKey: "o"}
	cfg.Database.DSN = filepath.Join(t.TempDir(), "hub.db")
	logger := logging.NewNopLogger()

	db, err := openDatabase(ctx, cfg, logger)
	require.NoError(t, err)
	defer db.Close()

	clk := clock.New()
	marker, err := openMarker(cfg, db, clk, logger)
	require.NoError(t, err)
	svc, err := buildService(cfg, db, marker, clk, logger)
	require.NoError(t, err)
	g, err := gateway.New(logger, gatewayConfig(cfg), svc, gateway.WithPinger(db))
	require.NoError(t, err)

	srv := httptest.NewServer(g.Handler())
	defer srv.Close()

	cmdReq, _ := http.NewRequest(http.MethodPost, srv.URL+"/command", strings.NewReader(`{"command":"restart","parameters":{"node_id":5}}`))
	cmdReq.Header.Set("X-Api-Key", "o")
	resp, err := http.DefaultClient.Do(cmdReq)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	upd, _ := http.NewRequest(http.MethodPost, srv.URL+"/update", strings.NewReader(`{"logs":[]}`))
	upd.Header.Set("X-Api-Key", "p")
	upd.Header.Set("X-Node-ID", "5")
	resp, err = http.DefaultClient.Do(upd)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Commands []struct {
			Command string `json:"command"`
		} `json:"commands"`
		UpdateInterval int64 `json:"update_interval"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Commands, 1)
	assert.Equal(t, "restart", body.Commands[0].Command)
	assert.Equal(t, int64(300), body.UpdateInterval)
}

func TestOpenMarkerRejectsUnknownBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Marker.Backend = "redis"
	_, err := openMarker(cfg, nil, clock.New(), logging.NewNopLogger())
	assert.Error(t, err)
}

func TestGatewayConfigRateLimit(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Zero(t, gatewayConfig(cfg).RateLimitPerMinute)
	cfg.RateLimit.Enabled = true
	gc := gatewayConfig(cfg)
	assert.Equal(t, 600, gc.RateLimitPerMinute)
	assert.Equal(t, 60, gc.RateLimitBurst)
	assert.False(t, gc.TrustProxyHeaders)

	cfg.RateLimit.TrustProxyHeaders = true
	assert.True(t, gatewayConfig(cfg).TrustProxyHeaders)
}
