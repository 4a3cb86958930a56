package lake

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Metadata is the open key-value map attached to every datum. Values may
// nest arbitrarily (maps, lists, scalars) and are queryable through dotted
// predicate paths such as "metadata.camera.id".
type Metadata map[string]any

// LocationKind discriminates the two storage placements a datum can have.
type LocationKind string

const (
	// LocationInline means the payload is stored in the datum record itself.
	LocationInline LocationKind = "inline"

	// LocationExternal means the payload lives in a blob registry, addressed
	// by the location's URI and key.
	LocationExternal LocationKind = "external"
)

// StorageLocation is a tagged union: exactly one of inline or external holds
// at a time. External locations carry the registry URI and the unique key
// the payload was saved under.
type StorageLocation struct {
	Kind LocationKind `json:"kind"`
	URI  string       `json:"uri,omitempty"`
	Key  string       `json:"key,omitempty"`
}

// InlineLocation returns the storage location for a payload stored in the
// datum record itself.
func InlineLocation() StorageLocation {
	return StorageLocation{Kind: LocationInline}
}

// ExternalLocation returns the storage location for a payload held in the
// blob registry at uri under key.
func ExternalLocation(uri, key string) StorageLocation {
	return StorageLocation{Kind: LocationExternal, URI: uri, Key: key}
}

// Validate checks that the location is a well-formed member of the union.
func (l StorageLocation) Validate() error {
	switch l.Kind {
	case LocationInline:
		if l.URI != "" || l.Key != "" {
			return fmt.Errorf("inline location must not carry a registry URI or key")
		}
	case LocationExternal:
		if l.URI == "" {
			return fmt.Errorf("external location requires a registry URI")
		}
		if l.Key == "" {
			return fmt.Errorf("external location requires a registry key")
		}
	default:
		return fmt.Errorf("unknown location kind: %q", l.Kind)
	}
	return nil
}

// Datum is the only persisted entity: one stored artifact record plus its
// metadata and lineage pointer. Datums are immutable after insert; the only
// exception is the transient in-memory population of Data when an external
// payload is materialized on read (never written back).
type Datum struct {
	ID          string          `json:"id"`                     // UUID, assigned on insert
	Data        json.RawMessage `json:"data,omitempty"`         // payload; persisted only for inline locations
	Location    StorageLocation `json:"location"`               // inline-vs-external placement
	DerivedFrom string          `json:"derived_from,omitempty"` // parent datum ID; empty marks a root
	Metadata    Metadata        `json:"metadata,omitempty"`     // open key-value map
	AddedAtMs   int64           `json:"added_at_ms"`            // Unix ms, assigned on insert
	Seq         int64           `json:"seq"`                    // store-assigned insert sequence, strictly increasing
}

// IsRoot reports whether the datum is a base artifact with no parent.
func (d *Datum) IsRoot() bool {
	return d.DerivedFrom == ""
}

// Validate checks the at-rest invariants of a stored datum.
func (d *Datum) Validate() error {
	if !isValidUUID(d.ID) {
		return fmt.Errorf("invalid datum ID: not a valid UUID")
	}

	if err := d.Location.Validate(); err != nil {
		return fmt.Errorf("invalid storage location: %w", err)
	}

	// External payloads live in the registry; the record itself stays empty.
	if d.Location.Kind == LocationExternal && len(d.Data) > 0 {
		return fmt.Errorf("external datum must not persist inline data")
	}

	if d.DerivedFrom != "" && !isValidUUID(d.DerivedFrom) {
		return fmt.Errorf("invalid derived_from: not a valid UUID")
	}

	return nil
}

// Document flattens the datum into the nested map form predicates evaluate
// against. Dotted paths resolve into it: "id", "derived_from",
// "added_at_ms", "metadata.*" and, for inline JSON payloads, "data.*".
func (d *Datum) Document() map[string]any {
	doc := map[string]any{
		"id":          d.ID,
		"added_at_ms": d.AddedAtMs,
		"seq":         d.Seq,
	}
	if d.DerivedFrom != "" {
		doc["derived_from"] = d.DerivedFrom
	}
	if d.Metadata != nil {
		doc["metadata"] = map[string]any(d.Metadata)
	}
	if len(d.Data) > 0 {
		var decoded any
		if err := json.Unmarshal(d.Data, &decoded); err == nil {
			doc["data"] = decoded
		} else {
			doc["data"] = string(d.Data)
		}
	}
	return doc
}

// isValidUUID checks if a string is a valid UUID format.
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
