package lake_test

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/tarn/pkg/lake"
	"github.com/dyluth/tarn/pkg/lake/redisstore"
)

// setupStore creates a datum store backed by a miniredis instance, with a
// deterministic clock that advances 10ms per insert.
func setupStore(t *testing.T) *redisstore.Store {
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
	return store
}

func setupRouter(t *testing.T) (*lake.Router, *redisstore.Store) {
	t.Helper()
	store := setupStore(t)
	router, err := lake.NewRouter(store, lake.InMemOpener())
	require.NoError(t, err)
	return router, store
}

func TestRouterAddInline(t *testing.T) {
	router, _ := setupRouter(t)
	ctx := context.Background()

	payload := json.RawMessage(`{"pixels": [1, 2, 3]}`)
	d, err := router.Add(ctx, lake.AddRequest{
		Payload:  payload,
		Metadata: lake.Metadata{"kind": "image"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, d.ID)
	assert.Equal(t, lake.LocationInline, d.Location.Kind)
	assert.Positive(t, d.AddedAtMs)
	assert.Positive(t, d.Seq)
	assert.True(t, d.IsRoot())

	t.Run("round-trips the payload exactly", func(t *testing.T) {
		got, err := router.Get(ctx, d.ID)
		require.NoError(t, err)
		assert.JSONEq(t, string(payload), string(got.Data))
		assert.Equal(t, lake.Metadata{"kind": "image"}, got.Metadata)
	})

	t.Run("seq increases across inserts", func(t *testing.T) {
		d2, err := router.Add(ctx, lake.AddRequest{Payload: payload})
		require.NoError(t, err)
		assert.Greater(t, d2.Seq, d.Seq)
		assert.Greater(t, d2.AddedAtMs, d.AddedAtMs)
	})
}

func TestRouterAddExternal(t *testing.T) {
	router, store := setupRouter(t)
	ctx := context.Background()

	payload := json.RawMessage(`{"weights": "base64..."}`)
	d, err := router.Add(ctx, lake.AddRequest{
		Payload:     payload,
		Metadata:    lake.Metadata{"kind": "model"},
		ExternalURI: "mem://blobs",
	})
	require.NoError(t, err)

	assert.Equal(t, lake.LocationExternal, d.Location.Kind)
	assert.Equal(t, "mem://blobs", d.Location.URI)
	assert.NotEmpty(t, d.Location.Key)

	t.Run("record at rest holds no payload", func(t *testing.T) {
		raw, err := store.Get(ctx, d.ID)
		require.NoError(t, err)
		assert.Empty(t, raw.Data)
	})

	t.Run("get materializes the payload from the registry", func(t *testing.T) {
		got, err := router.Get(ctx, d.ID)
		require.NoError(t, err)
		assert.JSONEq(t, string(payload), string(got.Data))
	})

	t.Run("materialization is not written back", func(t *testing.T) {
		_, err := router.Get(ctx, d.ID)
		require.NoError(t, err)
		raw, err := store.Get(ctx, d.ID)
		require.NoError(t, err)
		assert.Empty(t, raw.Data)
	})

	t.Run("fresh key per datum", func(t *testing.T) {
		d2, err := router.Add(ctx, lake.AddRequest{Payload: payload, ExternalURI: "mem://blobs"})
		require.NoError(t, err)
		assert.NotEqual(t, d.Location.Key, d2.Location.Key)
	})
}

func TestRouterDerivedFrom(t *testing.T) {
	router, _ := setupRouter(t)
	ctx := context.Background()

	parent, err := router.Add(ctx, lake.AddRequest{Payload: json.RawMessage(`{}`)})
	require.NoError(t, err)

	t.Run("stores the lineage pointer verbatim", func(t *testing.T) {
		child, err := router.Add(ctx, lake.AddRequest{
			Payload:     json.RawMessage(`{}`),
			DerivedFrom: parent.ID,
		})
		require.NoError(t, err)
		assert.Equal(t, parent.ID, child.DerivedFrom)
	})

	t.Run("rejects an unknown parent", func(t *testing.T) {
		_, err := router.Add(ctx, lake.AddRequest{
			Payload:     json.RawMessage(`{}`),
			DerivedFrom: "b2f7f5c0-0000-4000-8000-000000000000",
		})
		require.Error(t, err)
		assert.True(t, lake.IsNotFound(err))
	})
}

func TestRouterGetNotFound(t *testing.T) {
	router, _ := setupRouter(t)

	_, err := router.Get(context.Background(), "b2f7f5c0-0000-4000-8000-000000000000")
	require.Error(t, err)
	assert.True(t, lake.IsNotFound(err))
}

func TestRouterGetMany(t *testing.T) {
	router, _ := setupRouter(t)
	ctx := context.Background()

	t.Run("empty id list returns empty without I/O", func(t *testing.T) {
		out, err := router.GetMany(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	var ids []string
	for i := 0; i < 3; i++ {
		d, err := router.Add(ctx, lake.AddRequest{Payload: json.RawMessage(`{"n": 1}`)})
		require.NoError(t, err)
		ids = append(ids, d.ID)
	}

	t.Run("preserves request order", func(t *testing.T) {
		out, err := router.GetMany(ctx, ids)
		require.NoError(t, err)
		require.Len(t, out, 3)
		for i, d := range out {
			assert.Equal(t, ids[i], d.ID)
		}
	})

	t.Run("one missing id aborts the whole batch", func(t *testing.T) {
		out, err := router.GetMany(ctx, []string{ids[0], "b2f7f5c0-0000-4000-8000-000000000000"})
		require.Error(t, err)
		assert.True(t, lake.IsNotFound(err))
		assert.Nil(t, out)
	})
}

func TestRouterRegistryHandleCache(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	var opens atomic.Int64
	inner := lake.InMemOpener()
	counting := func(uri string) (lake.Registry, error) {
		opens.Add(1)
		return inner(uri)
	}

	router, err := lake.NewRouter(store, counting)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := router.Add(ctx, lake.AddRequest{
			Payload:     json.RawMessage(`{}`),
			ExternalURI: "mem://blobs",
		})
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), opens.Load(), "one handle per distinct URI")

	_, err = router.Add(ctx, lake.AddRequest{Payload: json.RawMessage(`{}`), ExternalURI: "mem://other"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), opens.Load())

	t.Run("close empties the cache", func(t *testing.T) {
		require.NoError(t, router.CloseRegistries())
		_, err := router.Add(ctx, lake.AddRequest{Payload: json.RawMessage(`{}`), ExternalURI: "mem://blobs"})
		require.NoError(t, err)
		assert.Equal(t, int64(3), opens.Load(), "reopened after close")
	})
}

func TestRouterWithoutOpener(t *testing.T) {
	store := setupStore(t)
	router, err := lake.NewRouter(store, nil)
	require.NoError(t, err)

	t.Run("inline writes still work", func(t *testing.T) {
		_, err := router.Add(context.Background(), lake.AddRequest{Payload: json.RawMessage(`{}`)})
		assert.NoError(t, err)
	})

	t.Run("external writes fail with a clear error", func(t *testing.T) {
		_, err := router.Add(context.Background(), lake.AddRequest{
			Payload:     json.RawMessage(`{}`),
			ExternalURI: "mem://blobs",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no registry opener")
	})
}
