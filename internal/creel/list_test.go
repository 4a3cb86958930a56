package creel

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListDatums(t *testing.T) {
	ctx := context.Background()

	t.Run("empty lake prints a friendly message", func(t *testing.T) {
		_, store := setupLake(t)
		var buf bytes.Buffer

		err := ListDatums(ctx, store, "test-instance", OutputFormatDefault, nil, &buf)
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "No datums found for instance 'test-instance'")
	})

	t.Run("table output lists datums in insert order", func(t *testing.T) {
		router, store := setupLake(t)
		a := addDatum(t, router, "image", "")
		b := addDatum(t, router, "classification", a.ID)
		var buf bytes.Buffer

		err := ListDatums(ctx, store, "test-instance", OutputFormatDefault, nil, &buf)
		require.NoError(t, err)

		out := buf.String()
		assert.Contains(t, out, a.ID[:8])
		assert.Contains(t, out, b.ID[:8])
		assert.Less(t, strings.Index(out, a.ID[:8]), strings.Index(out, b.ID[:8]))
		assert.Contains(t, out, "classification")
		assert.Contains(t, out, "2 datums found")
	})

	t.Run("jsonl output round-trips complete datums", func(t *testing.T) {
		router, store := setupLake(t)
		a := addDatum(t, router, "image", "")
		var buf bytes.Buffer

		err := ListDatums(ctx, store, "test-instance", OutputFormatJSONL, nil, &buf)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 1)
		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
		assert.Equal(t, a.ID, got["id"])
	})

	t.Run("kind filter narrows the listing", func(t *testing.T) {
		router, store := setupLake(t)
		a := addDatum(t, router, "image", "")
		addDatum(t, router, "classification", a.ID)
		var buf bytes.Buffer

		err := ListDatums(ctx, store, "test-instance", OutputFormatDefault, &FilterCriteria{Kind: "image"}, &buf)
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "1 datum found")
	})

	t.Run("since and until bound by added_at", func(t *testing.T) {
		router, store := setupLake(t)
		a := addDatum(t, router, "image", "")
		b := addDatum(t, router, "image", "")
		c := addDatum(t, router, "image", "")

		var buf bytes.Buffer
		err := ListDatums(ctx, store, "test-instance", OutputFormatDefault, &FilterCriteria{
			SinceTimestampMs: a.AddedAtMs + 1,
			UntilTimestampMs: c.AddedAtMs - 1,
		}, &buf)
		require.NoError(t, err)

		out := buf.String()
		assert.NotContains(t, out, a.ID[:8])
		assert.Contains(t, out, b.ID[:8])
		assert.NotContains(t, out, c.ID[:8])
	})

	t.Run("roots-only drops derived datums", func(t *testing.T) {
		router, store := setupLake(t)
		a := addDatum(t, router, "image", "")
		b := addDatum(t, router, "classification", a.ID)
		var buf bytes.Buffer

		err := ListDatums(ctx, store, "test-instance", OutputFormatDefault, &FilterCriteria{RootsOnly: true}, &buf)
		require.NoError(t, err)

		out := buf.String()
		assert.Contains(t, out, a.ID[:8])
		assert.NotContains(t, out, b.ID[:8])
	})

	t.Run("unknown output format is rejected", func(t *testing.T) {
		_, store := setupLake(t)
		err := ListDatums(ctx, store, "test-instance", OutputFormat("xml"), nil, &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown output format")
	})
}
