package ringcache

import "fmt"

// Sharded distributes keys across independent rings to reduce scan lengths
// and cursor contention on multi-core CPUs. Each ring keeps the full slot
// protocol of [Cache]; keys are routed by digest.
type Sharded[K comparable, V comparable] struct {
	rings []*Cache[K, V]
}

// NewSharded returns a sharded cache of shards rings with capacityPerShard
// slots each, all sharing the given absent sentinel.
//
// The per-writer capacity precondition of [New] applies per ring: in the
// worst case every concurrent writer lands on one ring, so capacityPerShard
// must still exceed the number of goroutines calling Put concurrently.
func NewSharded[K comparable, V comparable](shards, capacityPerShard int, absent V) *Sharded[K, V] {
	if shards <= 0 {
		panic(fmt.Errorf("shards must be greater than 0; got %d", shards))
	}

	rings := make([]*Cache[K, V], shards)
	for i := range rings {
		rings[i] = New[K, V](capacityPerShard, absent)
	}

	return &Sharded[K, V]{rings: rings}
}

func (s *Sharded[K, V]) ring(k K) *Cache[K, V] {
	return s.rings[hashKey(k)%uint64(len(s.rings))]
}

// Put stores (k, v) in the ring owning k. See [Cache.Put].
func (s *Sharded[K, V]) Put(k K, v V) {
	s.ring(k).Put(k, v)
}

// Get returns the value most recently written for k, or the absent sentinel
// on a miss. See [Cache.Get].
func (s *Sharded[K, V]) Get(k K) V {
	return s.ring(k).Get(k)
}

// Has returns true if a live entry for k exists.
func (s *Sharded[K, V]) Has(k K) bool {
	return s.ring(k).Has(k)
}

// Absent returns the configured absent sentinel.
func (s *Sharded[K, V]) Absent() V {
	return s.rings[0].Absent()
}

// Capacity returns the total number of slots across all rings.
func (s *Sharded[K, V]) Capacity() int {
	return len(s.rings) * s.rings[0].Capacity()
}

// UpdateStats adds stats aggregated over all rings to st.
func (s *Sharded[K, V]) UpdateStats(st *Stats) {
	for _, r := range s.rings {
		r.UpdateStats(st)
	}
}
