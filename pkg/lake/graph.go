package lake

import (
	"context"
	"fmt"
)

// DerivationGraph answers lineage lookups over the derived_from relation.
type DerivationGraph struct {
	store DatumStore
}

// NewDerivationGraph creates a lineage reader over the given store.
func NewDerivationGraph(store DatumStore) *DerivationGraph {
	return &DerivationGraph{store: store}
}

// DirectChildren returns the IDs of every datum derived directly from
// parentID, in insert order. Empty if none.
func (g *DerivationGraph) DirectChildren(ctx context.Context, parentID string) ([]string, error) {
	matches, err := g.store.Find(ctx, Where("derived_from", OpEq, parentID))
	if err != nil {
		return nil, fmt.Errorf("failed to find children of %s: %w", parentID, err)
	}
	ids := make([]string, 0, len(matches))
	for _, d := range matches {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

// AllDescendants returns rootID plus every datum transitively derived from
// it, in breadth-first order: the root, then its direct children in
// discovery order, then their children, and so on. The traversal uses an
// explicit worklist and a visited set, so diamond shapes and accidental
// self-references are each reported exactly once and deep chains cannot
// exhaust the stack.
//
// Breadth-first order is part of the contract; callers rely on it for
// stable diagnostics output.
func (g *DerivationGraph) AllDescendants(ctx context.Context, rootID string) ([]string, error) {
	visited := map[string]bool{rootID: true}
	order := []string{rootID}
	queue := []string{rootID}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		children, err := g.DirectChildren(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			if visited[child] {
				continue
			}
			visited[child] = true
			order = append(order, child)
			queue = append(queue, child)
		}
	}

	return order, nil
}
