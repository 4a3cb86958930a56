package creel

import (
	"context"
	"fmt"
	"io"

	"github.com/dyluth/tarn/pkg/lake"
)

// OutputFormat specifies how to format the datum list output.
type OutputFormat string

const (
	// OutputFormatDefault uses a table format with truncated payloads
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs complete datums as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// FilterCriteria defines filtering options for the datum list command.
// All filters are ANDed together.
type FilterCriteria struct {
	SinceTimestampMs int64  // Unix timestamp in milliseconds, 0 = no filter
	UntilTimestampMs int64  // Unix timestamp in milliseconds, 0 = no filter
	Kind             string // Exact match for metadata.kind, empty = no filter
	RootsOnly        bool   // Only datums with no derived_from parent
}

// predicate compiles the criteria into the filter the store evaluates.
// An empty criteria set compiles to nil, which matches everything.
func (fc *FilterCriteria) predicate() *lake.Predicate {
	if fc == nil {
		return nil
	}

	p := lake.NewPredicate()
	if fc.SinceTimestampMs > 0 {
		p.Gte("added_at_ms", fc.SinceTimestampMs)
	}
	if fc.UntilTimestampMs > 0 {
		p.Lte("added_at_ms", fc.UntilTimestampMs)
	}
	if fc.Kind != "" {
		p.Eq("metadata.kind", fc.Kind)
	}
	if len(p.Conds()) == 0 && !fc.RootsOnly {
		return nil
	}
	return p
}

// ListDatums retrieves datums for an instance and writes them to the
// provided writer in insert order. Filter criteria compile into a store
// predicate; the roots-only filter is applied client-side because absence
// of a field is not expressible as a predicate condition.
func ListDatums(ctx context.Context, store lake.DatumStore, instanceName string, format OutputFormat, filters *FilterCriteria, w io.Writer) error {
	datums, err := store.Find(ctx, filters.predicate())
	if err != nil {
		return fmt.Errorf("failed to list datums: %w", err)
	}

	if filters != nil && filters.RootsOnly {
		roots := datums[:0]
		for _, d := range datums {
			if d.IsRoot() {
				roots = append(roots, d)
			}
		}
		datums = roots
	}

	switch format {
	case OutputFormatDefault:
		FormatTable(w, datums, instanceName)
	case OutputFormatJSONL:
		if err := FormatJSONL(w, datums); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}

	return nil
}
