package creel

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/tarn/pkg/lake"
)

func TestRenderLineage(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects malformed IDs", func(t *testing.T) {
		_, store := setupLake(t)
		graph := lake.NewDerivationGraph(store)
		err := RenderLineage(ctx, graph, store, "not-a-uuid", &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid datum ID format")
	})

	t.Run("unknown root is a not-found error", func(t *testing.T) {
		_, store := setupLake(t)
		graph := lake.NewDerivationGraph(store)
		err := RenderLineage(ctx, graph, store, uuid.New().String(), &bytes.Buffer{})
		require.Error(t, err)
		assert.True(t, lake.IsNotFound(err))
	})

	t.Run("a childless root renders one line", func(t *testing.T) {
		router, store := setupLake(t)
		graph := lake.NewDerivationGraph(store)
		root := addDatum(t, router, "image", "")

		var buf bytes.Buffer
		require.NoError(t, RenderLineage(ctx, graph, store, root.ID, &buf))

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		require.Len(t, lines, 1)
		assert.Contains(t, lines[0], root.ID[:8])
		assert.Contains(t, lines[0], "(image)")
	})

	t.Run("renders a branching tree with connectors", func(t *testing.T) {
		router, store := setupLake(t)
		graph := lake.NewDerivationGraph(store)

		root := addDatum(t, router, "image", "")
		cls := addDatum(t, router, "classification", root.ID)
		bbox := addDatum(t, router, "bbox", root.ID)
		crop := addDatum(t, router, "crop", bbox.ID)

		var buf bytes.Buffer
		require.NoError(t, RenderLineage(ctx, graph, store, root.ID, &buf))

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		require.Len(t, lines, 4)

		assert.Equal(t, root.ID[:8]+" (image)", lines[0][:len(root.ID[:8]+" (image)")])
		assert.True(t, strings.HasPrefix(lines[1], "├─ "))
		assert.Contains(t, lines[1], cls.ID[:8])
		assert.True(t, strings.HasPrefix(lines[2], "└─ "))
		assert.Contains(t, lines[2], bbox.ID[:8])
		// The grandchild indents under the last branch, not a continued one.
		assert.True(t, strings.HasPrefix(lines[3], "   └─ "))
		assert.Contains(t, lines[3], crop.ID[:8])
	})

	t.Run("a self-referencing datum is marked as a cycle", func(t *testing.T) {
		_, store := setupLake(t)
		graph := lake.NewDerivationGraph(store)

		// Inserted directly so the router's parent-exists check cannot
		// reject the self-reference.
		selfID := uuid.New().String()
		_, err := store.Insert(ctx, &lake.Datum{
			ID:          selfID,
			Location:    lake.InlineLocation(),
			DerivedFrom: selfID,
			Metadata:    lake.Metadata{"kind": "loop"},
		})
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, RenderLineage(ctx, graph, store, selfID, &buf))

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[1], "(cycle)")
	})
}
