package lake

import (
	"context"
	"fmt"
	"net/url"
	"sync"
)

// Registry is the contract for an external blob store scoped by a single
// URI. The lake treats it as an opaque key-value store: versioning, caching
// and hash verification are the registry backend's business.
//
// Implementations must be safe for concurrent use.
type Registry interface {
	// Save persists a payload and its metadata under key. Keys are unique
	// per datum; the router never reuses one.
	Save(ctx context.Context, key string, payload []byte, metadata Metadata) error

	// Load returns the payload stored under key. Returns an error wrapping
	// ErrRegistryKeyNotFound when nothing is stored there.
	Load(ctx context.Context, key string) ([]byte, error)
}

// RegistryOpener obtains a registry handle for a URI. The router calls it
// lazily, once per distinct URI (racing first uses may call it twice; the
// handles must then be interchangeable).
type RegistryOpener func(uri string) (Registry, error)

// SchemeOpener builds an opener that dispatches on the URI scheme, e.g.
// "redis" to redisstore.OpenRegistry and "mem" to an InMemOpener.
func SchemeOpener(byScheme map[string]RegistryOpener) RegistryOpener {
	return func(uri string) (Registry, error) {
		u, err := url.Parse(uri)
		if err != nil {
			return nil, fmt.Errorf("invalid registry URI %q: %w", uri, err)
		}
		open, ok := byScheme[u.Scheme]
		if !ok {
			return nil, fmt.Errorf("no registry opener registered for scheme %q", u.Scheme)
		}
		return open(uri)
	}
}

// InMemRegistry is a process-local Registry for tests and development, in
// the same spirit as backing unit tests with miniredis.
type InMemRegistry struct {
	mu       sync.RWMutex
	payloads map[string][]byte
	metadata map[string]Metadata
}

// NewInMemRegistry returns an empty in-memory registry.
func NewInMemRegistry() *InMemRegistry {
	return &InMemRegistry{
		payloads: make(map[string][]byte),
		metadata: make(map[string]Metadata),
	}
}

// Save stores a copy of the payload under key.
func (r *InMemRegistry) Save(_ context.Context, key string, payload []byte, metadata Metadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	buf := make([]byte, len(payload))
	copy(buf, payload)
	r.payloads[key] = buf
	r.metadata[key] = metadata
	return nil
}

// Load returns the payload stored under key.
func (r *InMemRegistry) Load(_ context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	payload, ok := r.payloads[key]
	if !ok {
		return nil, fmt.Errorf("no payload under key %q: %w", key, ErrRegistryKeyNotFound)
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	return buf, nil
}

// InMemOpener returns a RegistryOpener whose handles share state per URI, so
// that two racing opens of the same "mem://" URI converge on one backing
// store, the way two handles to the same remote registry would.
func InMemOpener() RegistryOpener {
	var stores sync.Map // uri -> *InMemRegistry
	return func(uri string) (Registry, error) {
		if r, ok := stores.Load(uri); ok {
			return r.(*InMemRegistry), nil
		}
		actual, _ := stores.LoadOrStore(uri, NewInMemRegistry())
		return actual.(*InMemRegistry), nil
	}
}
