package redisstore

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dyluth/tarn/pkg/lake"
)

// Serialization helpers for converting between datums and Redis hashes
//
// Redis stores data as string-to-string maps (hashes). The metadata map is
// JSON-encoded into a single hash field; the payload is stored raw.

// DatumToHash converts a Datum to its Redis hash form.
func DatumToHash(d *lake.Datum) (map[string]interface{}, error) {
	metadataJSON, err := json.Marshal(d.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	hash := map[string]interface{}{
		"id":            d.ID,
		"data":          string(d.Data),
		"location_kind": string(d.Location.Kind),
		"registry_uri":  d.Location.URI,
		"registry_key":  d.Location.Key,
		"derived_from":  d.DerivedFrom,
		"metadata":      string(metadataJSON),
		"added_at_ms":   d.AddedAtMs,
		"seq":           d.Seq,
	}

	return hash, nil
}

// HashToDatum converts a Redis hash back to a Datum.
func HashToDatum(hash map[string]string) (*lake.Datum, error) {
	addedAtMs, err := strconv.ParseInt(hash["added_at_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid added_at_ms field: %w", err)
	}
	seq, err := strconv.ParseInt(hash["seq"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid seq field: %w", err)
	}

	var metadata lake.Metadata
	if metadataJSON := hash["metadata"]; metadataJSON != "" && metadataJSON != "null" {
		if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	d := &lake.Datum{
		ID: hash["id"],
		Location: lake.StorageLocation{
			Kind: lake.LocationKind(hash["location_kind"]),
			URI:  hash["registry_uri"],
			Key:  hash["registry_key"],
		},
		DerivedFrom: hash["derived_from"],
		Metadata:    metadata,
		AddedAtMs:   addedAtMs,
		Seq:         seq,
	}
	if data := hash["data"]; data != "" {
		d.Data = json.RawMessage(data)
	}

	return d, nil
}
