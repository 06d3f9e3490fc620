package ringcache

import "sync/atomic"

// Stats represents cache stats.
//
// Use [Cache.UpdateStats] for obtaining fresh stats from the cache.
type Stats struct {
	// GetCalls is the number of Get calls.
	GetCalls uint64

	// PutCalls is the number of Put calls.
	PutCalls uint64

	// Misses is the number of cache misses.
	Misses uint64

	// Hits is the number of cache hits.
	Hits uint64

	// Wraps is the number of times the ring exhausted its slots and the
	// write cursor was reset to the top.
	Wraps uint64

	// Capacity is the fixed number of slots in the ring.
	Capacity uint64
}

// UpdateStats adds cache stats to s.
//
// Call [Stats.Reset] before calling UpdateStats if s is re-used.
func (c *Cache[K, V]) UpdateStats(s *Stats) {
	s.GetCalls += atomic.LoadUint64(&c.getCalls)
	s.PutCalls += atomic.LoadUint64(&c.putCalls)
	s.Misses += atomic.LoadUint64(&c.misses)
	s.Wraps += atomic.LoadUint64(&c.wraps)

	s.Hits = s.GetCalls - s.Misses
	s.Capacity += uint64(len(c.slots))
}

// Reset resets s, so it may be re-used again in [Cache.UpdateStats].
func (s *Stats) Reset() {
	*s = Stats{}
}
