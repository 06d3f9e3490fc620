package ringcache

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/minio/minlz"
	"go.dw1.io/rapidhash"
)

// SaveToFile atomically saves cache data to the given filePath.
//
// The data is serialized using [gob] and compressed with MinLZ.
// SaveToFile may be called concurrently with other ops on the cache; the
// snapshot is per-slot consistent, not globally atomic.
//
// The saved data may be loaded with [LoadFromFile].
func (c *Cache[K, V]) SaveToFile(filePath string) error {
	dir := filepath.Dir(filePath)
	if _, err := os.Stat(dir); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("cannot stat %q: %s", dir, err)
		}

		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot create dir %q: %s", dir, err)
		}
	}

	// Save cache data into a temporary file.
	tmpFile, err := os.CreateTemp(dir, "ringcache.tmp.*")
	if err != nil {
		return fmt.Errorf("cannot create temporary file in %q: %s", dir, err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if err := c.SaveTo(tmpFile); err != nil {
		_ = tmpFile.Close()

		return fmt.Errorf("cannot save cache data to %q: %s", tmpPath, err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("cannot close temporary file %q: %s", tmpPath, err)
	}

	if err := os.Rename(tmpPath, filePath); err != nil {
		return fmt.Errorf("cannot rename %q to %q: %s", tmpPath, filePath, err)
	}

	return nil
}

// entry is used for serializing key-value pairs.
type entry[K comparable, V comparable] struct {
	Key   K
	Value V
}

// header precedes the entry payload in a snapshot stream.
type header[V comparable] struct {
	Capacity int
	Absent   V
	Entries  int
	Checksum uint64
}

// SaveTo saves cache data to the given writer.
//
// The data is serialized using [gob] and compressed with MinLZ.
// SaveTo may be called concurrently with other ops on the cache.
//
// The saved data may be loaded with [LoadFrom].
func (c *Cache[K, V]) SaveTo(w io.Writer) error {
	entries := c.snapshot()

	var payload bytes.Buffer
	penc := gob.NewEncoder(&payload)
	for _, e := range entries {
		if err := penc.Encode(e); err != nil {
			return fmt.Errorf("cannot encode entry: %s", err)
		}
	}

	zw := minlz.NewWriter(w)
	enc := gob.NewEncoder(zw)

	hdr := header[V]{
		Capacity: len(c.slots),
		Absent:   c.absent,
		Entries:  len(entries),
		Checksum: rapidhash.Hash(payload.Bytes()),
	}
	if err := enc.Encode(hdr); err != nil {
		return fmt.Errorf("cannot encode header: %s", err)
	}
	if err := enc.Encode(payload.Bytes()); err != nil {
		return fmt.Errorf("cannot encode entry payload: %s", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("cannot close minlz writer: %s", err)
	}

	return nil
}

// snapshot collects live entries oldest to newest, so replaying them through
// Put reproduces the ring's recency order. Slots holding the absent sentinel
// (never written, or tombstoned) are skipped.
func (c *Cache[K, V]) snapshot() []entry[K, V] {
	n := int64(len(c.slots))

	head := c.cursor.Load()
	if head < 0 {
		head = 0
	}
	if head > n {
		head = n
	}

	entries := make([]entry[K, V], 0, n)
	collect := func(i int64) {
		s := &c.slots[i]
		s.mu.Lock()
		k, v := s.key, s.val
		s.mu.Unlock()
		if v != c.absent {
			entries = append(entries, entry[K, V]{Key: k, Value: v})
		}
	}

	// Previous lap first, its oldest slot being the highest surviving index.
	if c.wrapped.Load() {
		for i := head - 1; i >= 0; i-- {
			collect(i)
		}
	}
	for i := n - 1; i >= head; i-- {
		collect(i)
	}

	return entries
}

// LoadFromFile loads cache data from the given filePath.
//
// Returns an error if the file does not exist or is corrupted.
//
// See [Cache.SaveToFile] for saving cache data to file.
func LoadFromFile[K comparable, V comparable](filePath string) (*Cache[K, V], error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	return LoadFrom[K, V](f)
}

// LoadFromFileOrNew tries loading cache data from the given filePath.
//
// The function falls back to creating a new cache with the given capacity
// and absent sentinel if an error occurs during loading.
func LoadFromFileOrNew[K comparable, V comparable](filePath string, capacity int, absent V) *Cache[K, V] {
	c, err := LoadFromFile[K, V](filePath)
	if err == nil {
		return c
	}

	return New[K, V](capacity, absent)
}

// LoadFrom loads cache data from the given reader.
//
// Returns an error if the data is corrupted.
//
// See [Cache.SaveTo] for saving cache data to a writer.
func LoadFrom[K comparable, V comparable](r io.Reader) (*Cache[K, V], error) {
	zr := minlz.NewReader(r)
	dec := gob.NewDecoder(zr)

	var hdr header[V]
	if err := dec.Decode(&hdr); err != nil {
		return nil, fmt.Errorf("cannot decode header: %s", err)
	}
	if hdr.Capacity <= 0 {
		return nil, fmt.Errorf("invalid capacity in header; got %d", hdr.Capacity)
	}

	var payload []byte
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("cannot decode entry payload: %s", err)
	}
	if sum := rapidhash.Hash(payload); sum != hdr.Checksum {
		return nil, fmt.Errorf("entry payload checksum mismatch; got %#x; want %#x", sum, hdr.Checksum)
	}

	c := New[K, V](hdr.Capacity, hdr.Absent)

	pdec := gob.NewDecoder(bytes.NewReader(payload))
	for i := 0; i < hdr.Entries; i++ {
		var e entry[K, V]
		if err := pdec.Decode(&e); err != nil {
			return nil, fmt.Errorf("cannot decode entry %d: %s", i, err)
		}
		c.Put(e.Key, e.Value)
	}

	return c, nil
}
