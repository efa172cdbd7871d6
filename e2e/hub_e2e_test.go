//go:build e2e

package e2e

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/DeBrosOfficial/loghub/pkg/client"
	"github.com/DeBrosOfficial/loghub/pkg/hub"
	"github.com/DeBrosOfficial/loghub/pkg/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_CommandRoundTrip(t *testing.T) {
	keys := SkipIfMissingHub(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	node := GenerateNodeID()
	cli := NewClient(t, keys.CLI)
	probe := NewClient(t, keys.Probe)

	require.NoError(t, cli.SubmitCommand(ctx, hub.CommandPing, map[string]any{"node_id": node}))
	require.NoError(t, cli.SubmitCommand(ctx, hub.CommandRestart, map[string]any{"node_id": node}))

	res, err := probe.Upload(ctx, node, nil)
	require.NoError(t, err)
	require.Len(t, res.Commands, 2)
	assert.Equal(t, hub.CommandPing, res.Commands[0].Command)
	assert.Equal(t, hub.CommandRestart, res.Commands[1].Command)
	assert.Positive(t, res.UpdateInterval)

	again, err := probe.Upload(ctx, node, nil)
	require.NoError(t, err)
	assert.Empty(t, again.Commands, "commands must be delivered once")
}

func TestHub_IngestedLineSettles(t *testing.T) {
	keys := SkipIfMissingHub(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	node := GenerateNodeID()
	probe := NewClient(t, keys.Probe)
	collector := NewClient(t, keys.Collector)

	// A line stamped well before the hub's safety cutoff is visible at once.
	old := timeutil.Format(time.Now().Add(-20 * time.Minute))
	msg := fmt.Sprintf("e2e settled line %d", node)
	_, err := probe.Upload(ctx, node, []hub.LogLine{{Timestamp: old, Message: msg}})
	require.NoError(t, err)

	var found bool
	var after int64
	for page := 0; page < 100 && !found; page++ {
		logs, err := collector.Download(ctx, after)
		require.NoError(t, err)
		if len(logs) == 0 {
			break
		}
		for _, l := range logs {
			if l.NodeID == node && l.Message == msg {
				found = true
			}
		}
		after = logs[len(logs)-1].ID
	}
	assert.True(t, found, "settled line not returned by download")
}

func TestHub_FreshLineIsHeldBack(t *testing.T) {
	keys := SkipIfMissingHub(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	node := GenerateNodeID()
	probe := NewClient(t, keys.Probe)
	collector := NewClient(t, keys.Collector)

	msg := fmt.Sprintf("e2e fresh line %d", node)
	_, err := probe.Upload(ctx, node, []hub.LogLine{{Timestamp: timeutil.Format(time.Now()), Message: msg}})
	require.NoError(t, err)

	var after int64
	for page := 0; page < 100; page++ {
		logs, err := collector.Download(ctx, after)
		require.NoError(t, err)
		if len(logs) == 0 {
			break
		}
		for _, l := range logs {
			assert.NotEqual(t, msg, l.Message, "line inside the safety margin was returned")
		}
		after = logs[len(logs)-1].ID
	}
}

func TestHub_WrongRoleIsRejected(t *testing.T) {
	keys := SkipIfMissingHub(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// The probe key must not open the collector route.
	_, err := NewClient(t, keys.Probe).Download(ctx, 0)
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}
