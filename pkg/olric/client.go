package olric

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DeBrosOfficial/loghub/pkg/logging"
	olriclib "github.com/olric-data/olric"
	"go.uber.org/zap"
)

// Client wraps an Olric cluster client bound to one DMap.
type Client struct {
	client  olriclib.Client
	dm      olriclib.DMap
	timeout time.Duration
	logger  *logging.ColoredLogger
}

// Config holds configuration for the Olric client
type Config struct {
	// Servers is a list of Olric server addresses (e.g., ["localhost:3320"])
	// If empty, defaults to ["localhost:3320"]
	Servers []string

	// DMap is the distributed map every key lives in
	DMap string

	// Timeout bounds each Get/Put
	// If zero, defaults to 10 seconds
	Timeout time.Duration
}

// NewClient connects to the cluster and opens the configured DMap
func NewClient(cfg Config, logger *logging.ColoredLogger) (*Client, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	servers := cfg.Servers
	if len(servers) == 0 {
		servers = []string{"localhost:3320"}
	}
	if cfg.DMap == "" {
		return nil, fmt.Errorf("olric dmap name must not be empty")
	}

	client, err := olriclib.NewClusterClient(servers)
	if err != nil {
		return nil, fmt.Errorf("failed to create Olric cluster client: %w", err)
	}

	dm, err := client.NewDMap(cfg.DMap)
	if err != nil {
		_ = client.Close(context.Background())
		return nil, fmt.Errorf("failed to open DMap %s: %w", cfg.DMap, err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	logger.ComponentInfo(logging.ComponentCache, "Olric client ready",
		zap.Strings("servers", servers),
		zap.String("dmap", cfg.DMap),
	)

	return &Client{
		client:  client,
		dm:      dm,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Get returns the string stored under key. A missing key is reported with ok=false.
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	gr, err := c.dm.Get(ctx, key)
	if err != nil {
		if isKeyNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("olric get %s: %w", key, err)
	}

	val, err := gr.String()
	if err != nil {
		return "", false, fmt.Errorf("olric decode %s: %w", key, err)
	}
	return val, true, nil
}

// Put stores value under key without expiry.
func (c *Client) Put(ctx context.Context, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.dm.Put(ctx, key, value); err != nil {
		return fmt.Errorf("olric put %s: %w", key, err)
	}
	c.logger.ComponentDebug(logging.ComponentCache, "Stored key", zap.String("key", key))
	return nil
}

// Health checks if the Olric client is healthy
func (c *Client) Health(ctx context.Context) error {
	testKey := fmt.Sprintf("_health_%d", time.Now().UnixNano())
	if err := c.Put(ctx, testKey, "ok"); err != nil {
		return fmt.Errorf("health check put failed: %w", err)
	}

	val, ok, err := c.Get(ctx, testKey)
	if err != nil {
		return fmt.Errorf("health check get failed: %w", err)
	}
	if !ok || val != "ok" {
		return fmt.Errorf("health check value mismatch: expected %q, got %q", "ok", val)
	}

	// Clean up test key
	_, _ = c.dm.Delete(ctx, testKey)
	return nil
}

// Close closes the Olric client connection
func (c *Client) Close(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Close(ctx)
}

func isKeyNotFound(err error) bool {
	return errors.Is(err, olriclib.ErrKeyNotFound) || strings.Contains(err.Error(), "key not found")
}
