package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/dyluth/tarn/pkg/lake"
)

// Registry is a Redis-backed lake.Registry. Payloads and their metadata are
// stored as plain values under namespaced keys; the namespace comes from
// the URI path, so distinct registry URIs on one server stay disjoint.
type Registry struct {
	rdb       *redis.Client
	namespace string
}

// OpenRegistry opens a Redis registry from a URI of the form
//
//	redis://host:port/namespace
//
// The namespace defaults to "blobs" when the path is empty. The returned
// registry owns its connection; the router closes it via CloseRegistries.
func OpenRegistry(uri string) (lake.Registry, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid registry URI %q: %w", uri, err)
	}
	if u.Scheme != "redis" {
		return nil, fmt.Errorf("registry URI %q: expected redis scheme, got %q", uri, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("registry URI %q: missing host", uri)
	}

	namespace := strings.Trim(u.Path, "/")
	if namespace == "" {
		namespace = "blobs"
	}

	return &Registry{
		rdb:       redis.NewClient(&redis.Options{Addr: u.Host}),
		namespace: namespace,
	}, nil
}

// Save persists a payload and its metadata under key.
func (r *Registry) Save(ctx context.Context, key string, payload []byte, metadata lake.Metadata) error {
	if err := r.rdb.Set(ctx, RegistryPayloadKey(r.namespace, key), payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to write payload to Redis: %w", err)
	}

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal payload metadata: %w", err)
	}
	if err := r.rdb.Set(ctx, RegistryMetaKey(r.namespace, key), metadataJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to write payload metadata to Redis: %w", err)
	}

	return nil
}

// Load returns the payload stored under key.
func (r *Registry) Load(ctx context.Context, key string) ([]byte, error) {
	payload, err := r.rdb.Get(ctx, RegistryPayloadKey(r.namespace, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("no payload under key %q: %w", key, lake.ErrRegistryKeyNotFound)
		}
		return nil, fmt.Errorf("failed to read payload from Redis: %w", err)
	}
	return payload, nil
}

// Close closes the registry's Redis connection. Implements io.Closer.
func (r *Registry) Close() error {
	return r.rdb.Close()
}
