// Package storage defines the persistence boundary for session material.
//
// A Store is a flat string key/value namespace. The client persists exactly
// two keys (the serialized token and the serialized user); everything else
// about layout, durability, and sharing is the store's business. Absent keys
// are normal, not errors: Get returns an empty value so that a wiped store
// reads as "no session".
//
// Three implementations ship with the module: MemoryStore for tests and
// ephemeral processes, FileStore for single-user desktop/CLI persistence,
// and RedisStore for service agents that share a session across replicas.
package storage
