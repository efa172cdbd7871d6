//go:build e2e

package e2e

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/DeBrosOfficial/loghub/pkg/kv"
	"github.com/DeBrosOfficial/loghub/pkg/logging"
	"github.com/DeBrosOfficial/loghub/pkg/logstore"
	"github.com/DeBrosOfficial/loghub/pkg/olric"
	"github.com/DeBrosOfficial/loghub/pkg/retention"
	"github.com/DeBrosOfficial/loghub/pkg/rqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRQLite_LogStore runs the log store against a live rqlite node
// given by LOGHUB_E2E_RQLITE (e.g. http://localhost:4001).
func TestRQLite_LogStore(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("LOGHUB_E2E_RQLITE"))
	if dsn == "" {
		t.Skip("LOGHUB_E2E_RQLITE not set; rqlite tests skipped")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db, err := rqlite.OpenRQLite(ctx, dsn, 0)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, rqlite.Migrate(ctx, db, logging.NewNopLogger()))

	store := logstore.New(rqlite.NewClient(db), logging.NewNopLogger(), 0)
	node := GenerateNodeID()
	ts := time.Now().Add(-time.Hour).UTC()
	ids, err := store.Append(ctx, node, []logstore.Entry{
		{Timestamp: ts, Message: "rqlite one"},
		{Timestamp: ts, Message: "rqlite two"},
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, ids[0]+1, ids[1])

	recs, err := store.RangeAfter(ctx, ids[0]-1, time.Now(), 10)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(recs), 2)
	assert.Equal(t, "rqlite one", recs[0].Message)
}

// TestOlric_Marker checks the sweep marker round trip on a live Olric
// cluster given by LOGHUB_E2E_OLRIC (comma-separated host:port list).
func TestOlric_Marker(t *testing.T) {
	servers := strings.TrimSpace(os.Getenv("LOGHUB_E2E_OLRIC"))
	if servers == "" {
		t.Skip("LOGHUB_E2E_OLRIC not set; olric tests skipped")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c, err := olric.NewClient(olric.Config{
		Servers: strings.Split(servers, ","),
		DMap:    "loghub-e2e",
		Timeout: 5 * time.Second,
	}, logging.NewNopLogger())
	require.NoError(t, err)
	store := kv.NewOlricStore(c)
	defer store.Close()

	require.NoError(t, c.Health(ctx))

	key := retention.MarkerKey + "-e2e"
	_, ok, err := store.Get(ctx, key+"-missing")
	require.NoError(t, err)
	assert.False(t, ok)

	value := time.Now().UTC().Format(time.RFC3339Nano)
	require.NoError(t, store.Put(ctx, key, value))
	got, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, value, got)
}
