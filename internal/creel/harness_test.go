package creel

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/tarn/pkg/lake"
	"github.com/dyluth/tarn/pkg/lake/redisstore"
)

// setupLake creates a router over a miniredis-backed store with a
// deterministic clock advancing 10ms per insert.
func setupLake(t *testing.T) (*lake.Router, *redisstore.Store) {
	t.Helper()

	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store, err := redisstore.New(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	var ms atomic.Int64
	ms.Store(1700000000000)
	store.WithNow(func() time.Time {
		return time.UnixMilli(ms.Add(10))
	})

	router, err := lake.NewRouter(store, lake.InMemOpener())
	require.NoError(t, err)
	t.Cleanup(func() { router.CloseRegistries() })
	return router, store
}

// addDatum inserts one datum through the router and returns it.
func addDatum(t *testing.T, router *lake.Router, kind, derivedFrom string) *lake.Datum {
	t.Helper()
	d, err := router.Add(context.Background(), lake.AddRequest{
		Payload:     json.RawMessage(`{"kind": "` + kind + `"}`),
		Metadata:    lake.Metadata{"kind": kind},
		DerivedFrom: derivedFrom,
	})
	require.NoError(t, err)
	return d
}
