package lake

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
)

// Strategy is the rule for picking one result among several candidates at a
// query stage.
type Strategy string

const (
	// StrategyLatest picks the candidate with the largest added_at.
	StrategyLatest Strategy = "latest"

	// StrategyEarliest picks the candidate with the smallest added_at.
	StrategyEarliest Strategy = "earliest"

	// StrategyRandom picks one candidate uniformly at random.
	StrategyRandom Strategy = "random"

	// StrategyQuickest takes the first match with no sorting.
	StrategyQuickest Strategy = "quickest"

	// StrategyMissing inverts the stage: a row survives only when the stage
	// finds no candidates, and no column value is assigned. Not valid on
	// the base stage.
	StrategyMissing Strategy = "missing"
)

// ParseStrategy converts a strategy token into a Strategy. An empty token
// defaults to latest; anything unrecognized is an error naming the value.
func ParseStrategy(s string) (Strategy, error) {
	if s == "" {
		return StrategyLatest, nil
	}
	strat := Strategy(s)
	if err := strat.Validate(); err != nil {
		return "", err
	}
	return strat, nil
}

// Validate checks if the Strategy is a valid enum value.
func (s Strategy) Validate() error {
	switch s {
	case StrategyLatest, StrategyEarliest, StrategyRandom, StrategyQuickest, StrategyMissing:
		return nil
	default:
		return fmt.Errorf("unknown strategy: %q (valid: latest, earliest, random, quickest, missing)", s)
	}
}

// StageSpec is one step of a derivation query: a filter, the column the
// stage's chosen ID is reported under, a selection strategy, and, for
// stages after the first, the earlier column whose ID becomes this stage's
// derived_from constraint.
type StageSpec struct {
	// Filter narrows this stage's candidates, on top of any derivation
	// constraint. Nil matches everything.
	Filter *Predicate

	// Column names this stage's entry in each result row. Required.
	Column string

	// Strategy selects among multiple candidates. Empty defaults to latest.
	Strategy Strategy

	// DerivedFrom names the column of an earlier stage whose chosen ID
	// constrains this stage's candidates. Required after the base stage,
	// forbidden on it.
	DerivedFrom string
}

// Row is one completed derivation query result: column name to datum ID.
type Row map[string]string

// QueryEngine runs multi-stage derivation queries against a datum store.
type QueryEngine struct {
	store DatumStore
}

// NewQueryEngine creates a query engine over the given store.
func NewQueryEngine(store DatumStore) *QueryEngine {
	return &QueryEngine{store: store}
}

// QueryRoots is the single-filter query form: it returns the IDs of every
// datum matching the filter, with no derivation walk. A nil filter matches
// everything.
func (e *QueryEngine) QueryRoots(ctx context.Context, filter *Predicate) ([]string, error) {
	if filter != nil {
		if err := filter.Validate(); err != nil {
			return nil, fmt.Errorf("invalid filter: %w", err)
		}
	}
	matches, err := e.store.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("base query failed: %w", err)
	}
	ids := make([]string, 0, len(matches))
	for _, d := range matches {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

// QueryData runs an ordered chain of stages and returns one row per base
// candidate that survives every stage. Configuration problems (a missing
// column, an unknown strategy, missing on the base stage, a dangling
// derived_from reference) fail here before any I/O.
//
// When limit > 0, base candidates are walked in the order the base stage's
// strategy implies (latest/earliest by added_at, random shuffled, quickest
// natural) and the walk stops as soon as limit rows have completed; the
// remainder of the base set is not scanned. No surviving rows is an empty
// result, not an error.
func (e *QueryEngine) QueryData(ctx context.Context, stages []StageSpec, limit int) ([]Row, error) {
	normalized, err := normalizeStages(stages)
	if err != nil {
		return nil, err
	}

	base, err := e.store.Find(ctx, normalized[0].Filter)
	if err != nil {
		return nil, fmt.Errorf("base query failed: %w", err)
	}
	if limit > 0 {
		orderCandidates(base, normalized[0].Strategy)
	}

	rows := make([]Row, 0)
	for _, candidate := range base {
		if limit > 0 && len(rows) >= limit {
			break
		}

		row := Row{normalized[0].Column: candidate.ID}
		complete := true

		for _, stage := range normalized[1:] {
			parentID := row[stage.DerivedFrom]
			filter := stage.Filter.Clone().Eq("derived_from", parentID)

			matches, err := e.store.Find(ctx, filter)
			if err != nil {
				return nil, fmt.Errorf("stage %q query failed: %w", stage.Column, err)
			}

			if stage.Strategy == StrategyMissing {
				// The row survives only if nothing was derived here; the
				// column stays unassigned.
				if len(matches) > 0 {
					complete = false
					break
				}
				continue
			}

			if len(matches) == 0 {
				complete = false
				break
			}
			row[stage.Column] = pickCandidate(matches, stage.Strategy).ID
		}

		if complete {
			rows = append(rows, row)
		}
	}

	return rows, nil
}

// Transpose pivots a row set into a map from column name to the ordered
// list of IDs across all rows. Every list has the same length, equal to the
// row count. Columns of missing stages never hold values and are omitted.
func Transpose(stages []StageSpec, rows []Row) map[string][]string {
	out := make(map[string][]string)
	for _, stage := range stages {
		if stage.Strategy == StrategyMissing {
			continue
		}
		ids := make([]string, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row[stage.Column])
		}
		out[stage.Column] = ids
	}
	return out
}

// normalizeStages validates the whole stage chain up front and returns a
// copy with default strategies applied, so execution never has to
// re-check configuration mid-scan.
func normalizeStages(stages []StageSpec) ([]StageSpec, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("derivation query requires at least one stage")
	}

	out := make([]StageSpec, len(stages))
	strategyByColumn := make(map[string]Strategy, len(stages))

	for i, stage := range stages {
		if stage.Column == "" {
			return nil, fmt.Errorf("stage %d: column is required", i)
		}
		if _, dup := strategyByColumn[stage.Column]; dup {
			return nil, fmt.Errorf("stage %d: duplicate column %q", i, stage.Column)
		}

		strat := stage.Strategy
		if strat == "" {
			strat = StrategyLatest
		}
		if err := strat.Validate(); err != nil {
			return nil, fmt.Errorf("stage %d (%s): %w", i, stage.Column, err)
		}

		if i == 0 {
			if strat == StrategyMissing {
				return nil, fmt.Errorf("stage 0 (%s): strategy %q is not valid on the base stage", stage.Column, StrategyMissing)
			}
			if stage.DerivedFrom != "" {
				return nil, fmt.Errorf("stage 0 (%s): the base stage cannot have derived_from", stage.Column)
			}
		} else {
			if stage.DerivedFrom == "" {
				return nil, fmt.Errorf("stage %d (%s): derived_from is required after the base stage", i, stage.Column)
			}
			parentStrategy, ok := strategyByColumn[stage.DerivedFrom]
			if !ok {
				return nil, fmt.Errorf("stage %d (%s): derived_from references unknown column %q", i, stage.Column, stage.DerivedFrom)
			}
			if parentStrategy == StrategyMissing {
				return nil, fmt.Errorf("stage %d (%s): derived_from references column %q of a %q stage, which never assigns an ID", i, stage.Column, stage.DerivedFrom, StrategyMissing)
			}
		}

		if stage.Filter != nil {
			if err := stage.Filter.Validate(); err != nil {
				return nil, fmt.Errorf("stage %d (%s): invalid filter: %w", i, stage.Column, err)
			}
		}

		out[i] = stage
		out[i].Strategy = strat
		strategyByColumn[stage.Column] = strat
	}

	return out, nil
}

// orderCandidates sorts the base candidates in place according to the base
// stage's strategy, so that "the first limit complete rows" is meaningful
// under that ordering. Quickest keeps the natural order.
func orderCandidates(ds []*Datum, strategy Strategy) {
	switch strategy {
	case StrategyLatest:
		sort.SliceStable(ds, func(i, j int) bool { return addedAfter(ds[i], ds[j]) })
	case StrategyEarliest:
		sort.SliceStable(ds, func(i, j int) bool { return addedAfter(ds[j], ds[i]) })
	case StrategyRandom:
		rand.Shuffle(len(ds), func(i, j int) { ds[i], ds[j] = ds[j], ds[i] })
	}
}

// pickCandidate selects one datum from a non-empty candidate set.
func pickCandidate(ds []*Datum, strategy Strategy) *Datum {
	switch strategy {
	case StrategyLatest:
		best := ds[0]
		for _, d := range ds[1:] {
			if addedAfter(d, best) {
				best = d
			}
		}
		return best
	case StrategyEarliest:
		best := ds[0]
		for _, d := range ds[1:] {
			if addedAfter(best, d) {
				best = d
			}
		}
		return best
	case StrategyRandom:
		return ds[rand.Intn(len(ds))]
	default: // quickest: first match, no sorting
		return ds[0]
	}
}

// addedAfter reports whether a was inserted after b. The insert sequence
// breaks added_at ties, so insert order is total.
func addedAfter(a, b *Datum) bool {
	if a.AddedAtMs != b.AddedAtMs {
		return a.AddedAtMs > b.AddedAtMs
	}
	return a.Seq > b.Seq
}
