// Package ringcache provides a fixed-capacity, generic, thread-safe cache
// with FIFO (ring-buffer) replacement.
//
// # Architecture
//
// The cache owns a fixed array of slots, each holding one key/value pair
// behind its own mutex, plus a shared write cursor. Writers claim slots by
// atomically decrementing the cursor, so the common write path takes no
// global lock; a dedicated wrap lock is taken only when the cursor exhausts
// the ring, at most once per full lap. Readers scan slots newest to oldest,
// filtering on an atomically published key digest before paying for a slot
// lock.
//
// This layout targets workloads where many goroutines read and write mostly
// disjoint keys. Update-heavy workloads are a poor fit: Put never checks for
// an existing occurrence of the key, so duplicates coexist until the ring
// laps them, and Get returns the most recently written one.
//
// # Eviction
//
// Entries are only ever evicted by being overwritten when the ring wraps
// (FIFO). There is no time-based expiration and no explicit delete; writing
// the configured absent sentinel over a key logically removes it.
//
// # Persistence
//
// The cache can be [Cache.SaveToFile] and [LoadFromFile] using gob encoding
// with MinLZ compression and a rapidhash payload checksum.
//
// # Thread Safety
//
// All [Cache] methods are safe for concurrent use by multiple goroutines,
// provided the capacity strictly exceeds the number of goroutines calling
// [Cache.Put] concurrently. See [New].
package ringcache
