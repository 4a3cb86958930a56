package creel

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/tarn/pkg/lake"
)

func TestGetDatum(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects malformed IDs before any I/O", func(t *testing.T) {
		router, _ := setupLake(t)
		err := GetDatum(ctx, router, "not-a-uuid", &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid datum ID format")
	})

	t.Run("returns a not-found error for unknown IDs", func(t *testing.T) {
		router, _ := setupLake(t)
		err := GetDatum(ctx, router, uuid.New().String(), &bytes.Buffer{})
		require.Error(t, err)
		assert.True(t, lake.IsNotFound(err))
	})

	t.Run("prints the datum as pretty JSON", func(t *testing.T) {
		router, _ := setupLake(t)
		d := addDatum(t, router, "image", "")
		var buf bytes.Buffer

		err := GetDatum(ctx, router, d.ID, &buf)
		require.NoError(t, err)

		var got lake.Datum
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, d.ID, got.ID)
		assert.Contains(t, buf.String(), "\n  ")
	})

	t.Run("materializes external payloads", func(t *testing.T) {
		router, _ := setupLake(t)
		d, err := router.Add(ctx, lake.AddRequest{
			Payload:     json.RawMessage(`{"boxes": [[0, 0, 10, 10]]}`),
			Metadata:    lake.Metadata{"kind": "bbox"},
			ExternalURI: "mem://blobs",
		})
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, GetDatum(ctx, router, d.ID, &buf))

		var got lake.Datum
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, lake.LocationExternal, got.Location.Kind)
		assert.JSONEq(t, `{"boxes": [[0, 0, 10, 10]]}`, string(got.Data))
	})
}
