package creel

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/dyluth/tarn/pkg/lake"
)

// RenderLineage writes the derivation tree rooted at rootID to the writer,
// one datum per line with box-drawing connectors:
//
//	a1b2c3d4 (image) 2m ago
//	├─ e5f6a7b8 (classification) 1m ago
//	└─ c9d0e1f2 (bbox) 1m ago
//	   └─ 12345678 (crop) 30s ago
//
// Children render in insert order. A datum already printed on another
// branch is shown once more with a cycle marker and not descended into.
func RenderLineage(ctx context.Context, graph *lake.DerivationGraph, store lake.DatumStore, rootID string, w io.Writer) error {
	if _, err := uuid.Parse(rootID); err != nil {
		return fmt.Errorf("invalid datum ID format: must be a valid UUID")
	}

	root, err := store.Get(ctx, rootID)
	if err != nil {
		if lake.IsNotFound(err) {
			return err
		}
		return fmt.Errorf("failed to fetch datum: %w", err)
	}

	fmt.Fprintf(w, "%s\n", lineageLabel(root))
	visited := map[string]bool{rootID: true}
	return renderChildren(ctx, graph, store, rootID, "", visited, w)
}

// renderChildren recursively prints the subtree under parentID. The prefix
// accumulates the indentation of ancestor branches.
func renderChildren(ctx context.Context, graph *lake.DerivationGraph, store lake.DatumStore, parentID, prefix string, visited map[string]bool, w io.Writer) error {
	children, err := graph.DirectChildren(ctx, parentID)
	if err != nil {
		return err
	}

	for i, childID := range children {
		connector, childPrefix := "├─ ", prefix+"│  "
		if i == len(children)-1 {
			connector, childPrefix = "└─ ", prefix+"   "
		}

		if visited[childID] {
			fmt.Fprintf(w, "%s%s%s (cycle)\n", prefix, connector, formatID(childID))
			continue
		}
		visited[childID] = true

		child, err := store.Get(ctx, childID)
		if err != nil {
			return fmt.Errorf("failed to fetch datum %s: %w", childID, err)
		}
		fmt.Fprintf(w, "%s%s%s\n", prefix, connector, lineageLabel(child))

		if err := renderChildren(ctx, graph, store, childID, childPrefix, visited, w); err != nil {
			return err
		}
	}

	return nil
}

// lineageLabel is the one-line summary of a datum in the lineage tree.
func lineageLabel(d *lake.Datum) string {
	return fmt.Sprintf("%s (%s) %s", formatID(d.ID), formatKind(d.Metadata), formatAge(d.AddedAtMs))
}
