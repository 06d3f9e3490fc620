package ringcache

import (
	"fmt"
	"hash/maphash"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// slot is one fixed ring position. key and val are consistent only while mu
// is held; tag mirrors hashKey(key) and is published atomically so readers
// can filter slots without locking them.
type slot[K comparable, V comparable] struct {
	mu  sync.Mutex
	tag atomic.Uint64
	key K
	val V
}

// Cache is a fast thread-safe in-memory cache with FIFO eviction.
//
// Writers claim slots from a shared cursor that counts down; when it
// underflows, the ring wraps and the oldest entries start being overwritten.
// A miss is reported by returning the absent sentinel supplied to [New].
type Cache[K comparable, V comparable] struct {
	slots  []slot[K, V]
	absent V

	cursor  atomic.Int64
	wrapMu  sync.Mutex
	wrapped atomic.Bool

	sf singleflight.Group

	// stats (hits computed as getCalls - misses)
	getCalls uint64
	putCalls uint64
	misses   uint64
	wraps    uint64
}

// New returns a new cache with the given capacity and absent sentinel.
//
// absent is returned by [Cache.Get] on a miss and can be stored with
// [Cache.Put] to logically delete a key.
//
// capacity must strictly exceed the number of goroutines that call
// [Cache.Put] concurrently; otherwise two in-flight writers can claim the
// same slot on one lap. This precondition is not checked at runtime.
func New[K comparable, V comparable](capacity int, absent V) *Cache[K, V] {
	if capacity <= 0 {
		panic(fmt.Errorf("capacity must be greater than 0; got %d", capacity))
	}

	c := &Cache[K, V]{
		slots:  make([]slot[K, V], capacity),
		absent: absent,
	}
	for i := range c.slots {
		c.slots[i].val = absent
	}

	// One past the last valid index; the first Put decrements into range.
	c.cursor.Store(int64(capacity))

	return c
}

// Put stores (k, v) in the cache.
//
// The pair lands in exactly one slot, overwriting whatever occupied it.
// No existing occurrence of k is updated or removed: duplicates coexist
// until the ring laps them, and [Cache.Get] returns the newest one.
func (c *Cache[K, V]) Put(k K, v V) {
	atomic.AddUint64(&c.putCalls, 1)

	pos := c.cursor.Add(-1)
	if pos < 0 {
		pos = c.claimWrapped()
	}

	s := &c.slots[pos]
	s.mu.Lock()
	s.key = k
	s.val = v
	s.tag.Store(hashKey(k))
	s.mu.Unlock()
}

// claimWrapped resolves a cursor underflow. Only one reset may happen per
// lap, so the decrement is retried under wrapMu: a caller that lost the
// race to reset observes a non-negative position from the retry and uses it
// directly, while the winner takes the top slot and rearms the cursor.
func (c *Cache[K, V]) claimWrapped() int64 {
	c.wrapMu.Lock()
	defer c.wrapMu.Unlock()

	pos := c.cursor.Add(-1)
	if pos < 0 {
		pos = int64(len(c.slots) - 1)
		c.cursor.Store(pos)
		c.wrapped.Store(true)
		atomic.AddUint64(&c.wraps, 1)
	}

	return pos
}

// Get returns the value most recently written for k, or the absent sentinel
// if no live occurrence is found.
//
// The scan is relative to a cursor snapshot taken on entry; a Put that
// claims a slot after the snapshot may be missed by this call, which is
// indistinguishable from the Put not having happened yet.
func (c *Cache[K, V]) Get(k K) V {
	atomic.AddUint64(&c.getCalls, 1)

	tag := hashKey(k)
	n := int64(len(c.slots))

	// The raw cursor can read below zero while a wrap is being resolved
	// (scan everything) or above the slot range before the first Put has
	// landed (nothing fresh to scan).
	head := c.cursor.Load()
	if head < 0 {
		head = 0
	}
	if head > n {
		head = n
	}

	// Slots [head, n) hold the current lap, newest first.
	if v, ok, done := c.scan(head, n, k, tag); done {
		// A tombstoned entry settles the lookup but is still a miss.
		if ok && v != c.absent {
			return v
		}

		return c.miss()
	}

	// Slots [0, head) hold the previous lap, again newest first. They carry
	// no data until the ring has wrapped at least once. A stale false here
	// is harmless: the range being skipped could not have held meaningful
	// data at the time of the snapshot.
	if c.wrapped.Load() {
		if v, ok, done := c.scan(0, head, k, tag); done {
			if ok && v != c.absent {
				return v
			}

			return c.miss()
		}
	}

	return c.miss()
}

// scan probes slots [lo, hi) in increasing index order. done reports that
// the lookup is settled: either the value was found (ok), or a slot that
// matched optimistically held another key once locked, meaning the matched
// entry was overwritten mid-probe and the lookup must report a miss rather
// than surface an older duplicate.
func (c *Cache[K, V]) scan(lo, hi int64, k K, tag uint64) (v V, ok, done bool) {
	for i := lo; i < hi; i++ {
		s := &c.slots[i]

		// Cheap unlocked filter. It may yield false negatives or false
		// positives against concurrent overwrites; the locked re-check
		// below is authoritative.
		if s.tag.Load() != tag {
			continue
		}

		s.mu.Lock()
		if s.key == k {
			v = s.val
			s.mu.Unlock()

			return v, true, true
		}
		s.mu.Unlock()

		return v, false, true
	}

	return v, false, false
}

func (c *Cache[K, V]) miss() V {
	atomic.AddUint64(&c.misses, 1)

	return c.absent
}

// Has returns true if a live entry for k exists in the cache.
func (c *Cache[K, V]) Has(k K) bool {
	return c.Get(k) != c.absent
}

// Absent returns the configured absent sentinel.
func (c *Cache[K, V]) Absent() V {
	return c.absent
}

// Capacity returns the fixed number of slots in the ring.
func (c *Cache[K, V]) Capacity() int {
	return len(c.slots)
}

// hashSeed is the seed used for hashing keys.
var hashSeed = maphash.MakeSeed()

// hashKey returns a hash for the given key.
func hashKey[K comparable](k K) uint64 {
	return maphash.Comparable(hashSeed, k)
}
