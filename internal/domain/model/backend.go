package model

// Data is the constraint for the opaque reference type a storage backend
// attaches to every entity it persists (row ids, foreign keys, document
// references). The contract is deliberately thin: values must support
// equality (==), copy by value, and nothing else. Domain logic never looks
// inside a Data value, so swapping backends only means choosing a new
// reference type and providing the repository implementations; the entities
// and the flows built on them stay untouched.
//
// The memory backend uses uuid.UUID, the Postgres backend uses int64. A
// backend picks one reference type and uses it for all entity kinds.
type Data interface {
	comparable
}
