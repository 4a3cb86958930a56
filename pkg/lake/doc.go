// Package lake provides the core types and engines for the Tarn data lake:
// a content-addressable store for ML pipeline artifacts (images, labels,
// detections) that records which artifact was derived from which, and can
// answer multi-hop lineage queries over that derivation graph.
//
// The package is a library, not a service. It defines:
//
//   - Datum: the single persisted record type, with an inline-or-external
//     storage location, an open metadata map, and an optional derived_from
//     lineage pointer.
//   - DatumStore: the persistence contract a backing document store must
//     satisfy (insert, get, find-by-predicate). The Redis implementation
//     lives in the redisstore subpackage.
//   - Predicate: a small typed filter language over dotted field paths
//     (equality, ordering, membership, implicit AND), built and validated
//     before any I/O happens.
//   - Registry: the contract for external blob registries that hold large
//     payloads, addressed by (uri, key).
//   - Router: the storage router that decides inline-vs-external placement
//     per datum and materializes external payloads on read.
//   - DerivationGraph: direct and transitive lineage lookups.
//   - QueryEngine: the multi-stage derivation query, which threads a chain
//     of filters through the lineage graph with per-stage selection
//     strategies and early termination.
//
// All operations take a context.Context; timeouts and cancellation are
// owned by callers and the underlying store clients, not by this layer.
package lake
