//go:build e2e

package e2e

import (
	"context"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DeBrosOfficial/loghub/pkg/client"
	"github.com/DeBrosOfficial/loghub/pkg/config"
)

var (
	hubConfigOnce  sync.Once
	hubConfigCache *config.Config
)

// loadHubConfig loads ~/.loghub/loghub.yaml (or ./loghub.yaml) when present.
func loadHubConfig() *config.Config {
	hubConfigOnce.Do(func() {
		path, exists, err := config.DefaultPath("loghub.yaml")
		if err != nil || !exists {
			return
		}
		cfg, err := config.LoadFile(path)
		if err != nil {
			return
		}
		hubConfigCache = cfg
	})
	return hubConfigCache
}

// GetHubURL returns the hub base URL, preferring LOGHUB_E2E_URL.
func GetHubURL() string {
	if v := strings.TrimSpace(os.Getenv("LOGHUB_E2E_URL")); v != "" {
		return v
	}
	if cfg := loadHubConfig(); cfg != nil {
		addr := cfg.Server.ListenAddr
		if strings.HasPrefix(addr, ":") {
			addr = "localhost" + addr
		}
		return "http://" + addr
	}
	return "http://localhost:8080"
}

// Keys holds one API key per hub role.
type Keys struct {
	Probe     string
	Collector string
	CLI       string
}

// GetKeys reads role keys from the environment, then from the hub config.
func GetKeys() Keys {
	k := Keys{
		Probe:     os.Getenv("LOGHUB_PROBE_API_KEY"),
		Collector: os.Getenv("LOGHUB_LOG_COLLECTOR_API_KEY"),
		CLI:       os.Getenv("LOGHUB_CLI_API_KEY"),
	}
	if cfg := loadHubConfig(); cfg != nil {
		if k.Probe == "" {
			k.Probe = cfg.Auth.ProbeAPIKey
		}
		if k.Collector == "" {
			k.Collector = cfg.Auth.LogCollectorAPIKey
		}
		if k.CLI == "" {
			k.CLI = cfg.Auth.CLIAPIKey
		}
	}
	return k
}

// NewClient returns a hub client authenticated with key.
func NewClient(t *testing.T, key string) *client.Client {
	t.Helper()
	c, err := client.New(client.Config{BaseURL: GetHubURL(), APIKey: key, Timeout: 15 * time.Second})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return c
}

// SkipIfMissingHub skips the test if the hub is not reachable or a key is missing.
func SkipIfMissingHub(t *testing.T) Keys {
	t.Helper()
	keys := GetKeys()
	if keys.Probe == "" || keys.Collector == "" || keys.CLI == "" {
		t.Skip("hub API keys not available; hub tests skipped")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, GetHubURL()+"/health", nil)
	if err != nil {
		t.Skip("hub not accessible; tests skipped")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Skipf("hub not accessible at %s; tests skipped", GetHubURL())
	}
	resp.Body.Close()
	return keys
}

// GenerateNodeID returns a node id unlikely to collide with real probes.
func GenerateNodeID() uint32 {
	return 3000000000 + uint32(time.Now().UnixNano()%1000000000)
}
