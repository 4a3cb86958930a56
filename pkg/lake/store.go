package lake

import "context"

// DatumStore is the persistence contract the lake requires of its backing
// document store. The Redis implementation lives in the redisstore
// subpackage; any backend that can satisfy these three operations (and the
// predicate operator set) can back a lake.
//
// All implementations must be safe for concurrent use from multiple
// goroutines.
type DatumStore interface {
	// Insert persists a new datum, assigning its ID, Seq and AddedAtMs, and
	// returns the stored record. It never fails except on validation or
	// connectivity errors.
	Insert(ctx context.Context, d *Datum) (*Datum, error)

	// Get loads a datum by ID. Returns a NotFoundError (checkable with
	// IsNotFound) when no record matches.
	Get(ctx context.Context, id string) (*Datum, error)

	// Find returns every datum matching the predicate, in natural (insert)
	// order. A nil predicate matches everything. No match is an empty
	// slice, not an error.
	Find(ctx context.Context, p *Predicate) ([]*Datum, error)
}
