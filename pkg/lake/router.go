package lake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// AddRequest describes one datum to add through the router.
type AddRequest struct {
	// Payload is the artifact content. Stored inline unless ExternalURI is
	// set, in which case it is saved to that registry instead.
	Payload json.RawMessage

	// Metadata is stored verbatim on the datum (and passed to the registry
	// for external payloads).
	Metadata Metadata

	// ExternalURI, when non-empty, routes the payload to the blob registry
	// at that URI under a fresh unique key.
	ExternalURI string

	// DerivedFrom, when non-empty, records the parent datum this one was
	// computed from. The parent must exist at insert time.
	DerivedFrom string
}

// Router hides the inline-vs-external storage decision from callers. Writes
// go through Add; reads through Get/GetMany, which materialize external
// payloads transparently.
//
// The router keeps one registry handle per distinct URI, created lazily on
// first use and kept for the process lifetime. Call CloseRegistries on
// shutdown to release them.
type Router struct {
	store      DatumStore
	open       RegistryOpener
	registries sync.Map // uri -> Registry
}

// NewRouter creates a storage router over the given store. The opener is
// consulted for external payloads; it may be nil for lakes that only store
// inline data.
func NewRouter(store DatumStore, open RegistryOpener) (*Router, error) {
	if store == nil {
		return nil, fmt.Errorf("datum store cannot be nil")
	}
	return &Router{store: store, open: open}, nil
}

// Add persists one datum. With an ExternalURI the payload is saved to that
// registry under a fresh key and the datum records only the (uri, key)
// location; otherwise the payload is stored inline.
func (r *Router) Add(ctx context.Context, req AddRequest) (*Datum, error) {
	if req.DerivedFrom != "" {
		if err := r.parentExists(ctx, req.DerivedFrom); err != nil {
			return nil, err
		}
	}

	d := &Datum{
		DerivedFrom: req.DerivedFrom,
		Metadata:    req.Metadata,
	}

	if req.ExternalURI == "" {
		d.Data = req.Payload
		d.Location = InlineLocation()
	} else {
		reg, err := r.registry(req.ExternalURI)
		if err != nil {
			return nil, err
		}
		key := uuid.New().String()
		if err := reg.Save(ctx, key, req.Payload, req.Metadata); err != nil {
			return nil, fmt.Errorf("failed to save payload to registry %s: %w", req.ExternalURI, err)
		}
		d.Location = ExternalLocation(req.ExternalURI, key)
	}

	stored, err := r.store.Insert(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("failed to insert datum: %w", err)
	}
	return stored, nil
}

// Get loads a datum by ID. External payloads are loaded from the registry
// and returned in the datum's Data field; this is a read-time
// materialization, never written back to the store.
func (r *Router) Get(ctx context.Context, id string) (*Datum, error) {
	d, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Location.Kind != LocationExternal {
		return d, nil
	}

	reg, err := r.registry(d.Location.URI)
	if err != nil {
		return nil, err
	}
	payload, err := reg.Load(ctx, d.Location.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to load payload for datum %s: %w", id, err)
	}

	materialized := *d
	materialized.Data = payload
	return &materialized, nil
}

// GetMany fans Get out concurrently over the given IDs, preserving order in
// the result. The batch is all-or-nothing: the first failure cancels the
// remaining loads and nothing is returned. An empty ID list returns an
// empty slice without any I/O.
func (r *Router) GetMany(ctx context.Context, ids []string) ([]*Datum, error) {
	if len(ids) == 0 {
		return []*Datum{}, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	out := make([]*Datum, len(ids))
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			d, err := r.Get(ctx, id)
			if err != nil {
				return err
			}
			out[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ExistsChecker is an optional store fast path for existence checks. When
// the store provides it, the router's derived_from referential check avoids
// fetching and deserializing the parent record.
type ExistsChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// parentExists verifies the derived_from parent is stored. Best-effort: the
// parent may still be deleted out-of-band later.
func (r *Router) parentExists(ctx context.Context, id string) error {
	if ec, ok := r.store.(ExistsChecker); ok {
		found, err := ec.Exists(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to check derived_from parent: %w", err)
		}
		if !found {
			return fmt.Errorf("derived_from references unknown datum: %w", &NotFoundError{ID: id})
		}
		return nil
	}
	if _, err := r.store.Get(ctx, id); err != nil {
		if IsNotFound(err) {
			return fmt.Errorf("derived_from references unknown datum: %w", err)
		}
		return fmt.Errorf("failed to check derived_from parent: %w", err)
	}
	return nil
}

// registry returns the cached handle for a URI, opening one on first use.
// Racing first uses may open twice; LoadOrStore converges them on a single
// cached handle.
func (r *Router) registry(uri string) (Registry, error) {
	if reg, ok := r.registries.Load(uri); ok {
		return reg.(Registry), nil
	}
	if r.open == nil {
		return nil, fmt.Errorf("no registry opener configured for external URI %q", uri)
	}
	reg, err := r.open(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry %s: %w", uri, err)
	}
	actual, _ := r.registries.LoadOrStore(uri, reg)
	return actual.(Registry), nil
}

// CloseRegistries releases every cached registry handle that is closeable
// and empties the cache. Safe to call more than once.
func (r *Router) CloseRegistries() error {
	var errs []error
	r.registries.Range(func(uri, reg any) bool {
		if closer, ok := reg.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close registry %s: %w", uri, err))
			}
		}
		r.registries.Delete(uri)
		return true
	})
	return errors.Join(errs...)
}
