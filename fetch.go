package ringcache

import (
	"context"
	"strconv"
)

// LoadFunc loads the value for a key from a backing store.
type LoadFunc[K comparable, V comparable] func(ctx context.Context, k K) (V, error)

// Fetch returns the cached value for k, loading it through load on a miss.
//
// Concurrent Fetch calls for the same missing key issue a single load; the
// other callers wait for and share its result. A successful non-sentinel
// result is stored in the cache before being returned. On error the absent
// sentinel is returned alongside the loader's error and nothing is stored.
func (c *Cache[K, V]) Fetch(ctx context.Context, k K, load LoadFunc[K, V]) (V, error) {
	if v := c.Get(k); v != c.absent {
		return v, nil
	}

	// Flights are keyed by the key digest rather than the key itself, which
	// has no generic string form. A digest collision merges two unrelated
	// flights; the odds match the slot filter's and are accepted the same
	// way.
	flight := strconv.FormatUint(hashKey(k), 16)

	v, err, _ := c.sf.Do(flight, func() (any, error) {
		// A racing Fetch may have populated the key while this call waited
		// for the flight slot.
		if v := c.Get(k); v != c.absent {
			return v, nil
		}

		v, err := load(ctx, k)
		if err != nil {
			return nil, err
		}

		if v != c.absent {
			c.Put(k, v)
		}

		return v, nil
	})
	if err != nil {
		return c.absent, err
	}

	return v.(V), nil
}
