package redisstore

import "fmt"

// Redis key pattern helpers
//
// All keys are namespaced by instance name so that multiple lakes can
// safely coexist on a single Redis server.
//
// Key pattern: tarn:{instance_name}:{entity}:{id}

// DatumKey returns the Redis key for a datum hash.
// Pattern: tarn:{instance_name}:datum:{datum_id}
func DatumKey(instanceName, datumID string) string {
	return fmt.Sprintf("tarn:%s:datum:%s", instanceName, datumID)
}

// DatumIndexKey returns the Redis key for the ZSET indexing all datums of an
// instance by insert sequence. Scanning it yields natural (insert) order.
// Pattern: tarn:{instance_name}:datums
func DatumIndexKey(instanceName string) string {
	return fmt.Sprintf("tarn:%s:datums", instanceName)
}

// DatumSeqKey returns the Redis key for the instance's insert sequence
// counter (INCR on every insert).
// Pattern: tarn:{instance_name}:datum_seq
func DatumSeqKey(instanceName string) string {
	return fmt.Sprintf("tarn:%s:datum_seq", instanceName)
}

// ChildrenKey returns the Redis key for the parent->children index SET.
// This is the fast path for derived_from equality lookups.
// Pattern: tarn:{instance_name}:children:{parent_id}
func ChildrenKey(instanceName, parentID string) string {
	return fmt.Sprintf("tarn:%s:children:%s", instanceName, parentID)
}

// RegistryPayloadKey returns the Redis key holding a registry payload.
// Pattern: tarn:registry:{namespace}:payload:{key}
func RegistryPayloadKey(namespace, key string) string {
	return fmt.Sprintf("tarn:registry:%s:payload:%s", namespace, key)
}

// RegistryMetaKey returns the Redis key holding a registry payload's
// metadata document.
// Pattern: tarn:registry:{namespace}:meta:{key}
func RegistryMetaKey(namespace, key string) string {
	return fmt.Sprintf("tarn:registry:%s:meta:%s", namespace, key)
}
