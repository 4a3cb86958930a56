// Package redisstore implements the lake's DatumStore and Registry
// contracts on Redis. Datums are stored as hashes with a seq-ordered ZSET
// index for natural-order scans and a per-parent SET index that serves
// derived_from equality lookups without a full scan.
package redisstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dyluth/tarn/pkg/lake"
)

// Store is a Redis-backed lake.DatumStore. All keys are namespaced with the
// instance name. The store is safe for concurrent use.
type Store struct {
	rdb          *redis.Client
	instanceName string
	now          func() time.Time
}

// New creates a datum store for the specified instance.
// Returns an error if instanceName is empty.
func New(redisOpts *redis.Options, instanceName string) (*Store, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}

	return &Store{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
		now:          time.Now,
	}, nil
}

// WithNow overrides the store's clock. Tests use it to pin added_at values.
func (s *Store) WithNow(now func() time.Time) *Store {
	s.now = now
	return s
}

// Close closes the Redis connection. Implements io.Closer.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Insert persists a new datum. It assigns the ID (a fresh UUID unless the
// caller provided one), the added_at timestamp, and a strictly increasing
// insert sequence, then writes the hash and both indexes.
func (s *Store) Insert(ctx context.Context, d *lake.Datum) (*lake.Datum, error) {
	stored := *d
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}

	seq, err := s.rdb.Incr(ctx, DatumSeqKey(s.instanceName)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to assign insert sequence: %w", err)
	}
	stored.Seq = seq
	stored.AddedAtMs = s.now().UnixMilli()

	if err := stored.Validate(); err != nil {
		return nil, fmt.Errorf("invalid datum: %w", err)
	}

	hash, err := DatumToHash(&stored)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize datum: %w", err)
	}

	key := DatumKey(s.instanceName, stored.ID)
	if err := s.rdb.HSet(ctx, key, hash).Err(); err != nil {
		return nil, fmt.Errorf("failed to write datum to Redis: %w", err)
	}

	indexKey := DatumIndexKey(s.instanceName)
	member := redis.Z{Score: float64(seq), Member: stored.ID}
	if err := s.rdb.ZAdd(ctx, indexKey, member).Err(); err != nil {
		return nil, fmt.Errorf("failed to index datum: %w", err)
	}

	if stored.DerivedFrom != "" {
		childrenKey := ChildrenKey(s.instanceName, stored.DerivedFrom)
		if err := s.rdb.SAdd(ctx, childrenKey, stored.ID).Err(); err != nil {
			return nil, fmt.Errorf("failed to index derived_from edge: %w", err)
		}
	}

	return &stored, nil
}

// Get retrieves a datum by ID. Returns a lake.NotFoundError when no record
// matches; use lake.IsNotFound to check for it.
func (s *Store) Get(ctx context.Context, id string) (*lake.Datum, error) {
	key := DatumKey(s.instanceName, id)

	hashData, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read datum from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys.
	if len(hashData) == 0 {
		return nil, &lake.NotFoundError{ID: id}
	}

	d, err := HashToDatum(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize datum: %w", err)
	}

	return d, nil
}

// Exists reports whether a datum with the given ID is stored, without
// fetching or deserializing the record. The router uses this for its
// derived_from referential check.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.rdb.Exists(ctx, DatumKey(s.instanceName, id)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check datum existence: %w", err)
	}
	return n > 0, nil
}

// Find returns every datum matching the predicate, in insert order. A
// derived_from equality condition is served from the children index;
// anything else walks the seq-ordered index and matches client-side.
func (s *Store) Find(ctx context.Context, p *lake.Predicate) ([]*lake.Datum, error) {
	if parentID, ok := derivedFromEquality(p); ok {
		return s.findChildren(ctx, parentID, p)
	}

	ids, err := s.rdb.ZRange(ctx, DatumIndexKey(s.instanceName), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to scan datum index: %w", err)
	}
	return s.fetchMatching(ctx, ids, p, false)
}

// findChildren serves a find whose predicate pins derived_from to one
// parent. The candidate set comes from the children SET; the full predicate
// is still applied to every candidate.
func (s *Store) findChildren(ctx context.Context, parentID string, p *lake.Predicate) ([]*lake.Datum, error) {
	ids, err := s.rdb.SMembers(ctx, ChildrenKey(s.instanceName, parentID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read children index: %w", err)
	}
	// SMEMBERS order is unspecified; restore insert order after the fetch.
	return s.fetchMatching(ctx, ids, p, true)
}

func (s *Store) fetchMatching(ctx context.Context, ids []string, p *lake.Predicate, sortBySeq bool) ([]*lake.Datum, error) {
	matches := make([]*lake.Datum, 0, len(ids))
	for _, id := range ids {
		d, err := s.Get(ctx, id)
		if err != nil {
			// An index entry may outlive its record (out-of-band deletion).
			if lake.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		if p.Matches(d.Document()) {
			matches = append(matches, d)
		}
	}
	if sortBySeq {
		sort.Slice(matches, func(i, j int) bool { return matches[i].Seq < matches[j].Seq })
	}
	return matches, nil
}

// derivedFromEquality reports whether the predicate pins derived_from to a
// single ID, which is the one lookup shape the store plans for.
func derivedFromEquality(p *lake.Predicate) (string, bool) {
	if p == nil {
		return "", false
	}
	for _, c := range p.Conds() {
		if c.Path != "derived_from" || c.Op != lake.OpEq {
			continue
		}
		if id, ok := c.Value.(string); ok {
			return id, true
		}
	}
	return "", false
}
