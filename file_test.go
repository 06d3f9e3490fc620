package ringcache

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestSaveLoadSmall(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "test")
	if err != nil {
		t.Fatal(err)
	}
	filePath := filepath.Join(tmpDir, "TestSaveLoadSmall.ringcache")
	defer func() {
		_ = os.RemoveAll(tmpDir)
	}()

	c := New[string, string](100, "")

	key := "foobar"
	value := "abcdef"
	c.Put(key, value)
	if err := c.SaveToFile(filePath); err != nil {
		t.Fatalf("SaveToFile error: %s", err)
	}

	c1, err := LoadFromFile[string, string](filePath)
	if err != nil {
		t.Fatalf("LoadFromFile error: %s", err)
	}
	if c1.Capacity() != 100 {
		t.Fatalf("unexpected capacity after load; got %d; want %d", c1.Capacity(), 100)
	}
	if c1.Absent() != "" {
		t.Fatalf("unexpected sentinel after load; got %q; want %q", c1.Absent(), "")
	}
	if v := c1.Get(key); v != value {
		t.Fatalf("unexpected value obtained from cache; got %q; want %q", v, value)
	}

	// Verify that key can be overwritten.
	newValue := "234fdfd"
	c1.Put(key, newValue)
	if v := c1.Get(key); v != newValue {
		t.Fatalf("unexpected new value obtained from cache; got %q; want %q", v, newValue)
	}
}

func TestLoadFileNotExist(t *testing.T) {
	c, err := LoadFromFile[string, string](`non-existing-file`)
	if err == nil {
		t.Fatalf("LoadFromFile must return error; got nil")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("LoadFromFile must return os.ErrNotExist; got: %s", err)
	}
	if c != nil {
		t.Fatalf("LoadFromFile must return nil cache")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	const itemsCount = 1000

	c := New[string, string](itemsCount*2, "")
	for i := 0; i < itemsCount; i++ {
		k := fmt.Sprintf("key %d", i)
		v := fmt.Sprintf("value %d", i)
		c.Put(k, v)
	}

	var buf bytes.Buffer
	if err := c.SaveTo(&buf); err != nil {
		t.Fatalf("SaveTo error: %s", err)
	}

	c1, err := LoadFrom[string, string](&buf)
	if err != nil {
		t.Fatalf("LoadFrom error: %s", err)
	}
	for i := 0; i < itemsCount; i++ {
		k := fmt.Sprintf("key %d", i)
		v := fmt.Sprintf("value %d", i)
		if vv := c1.Get(k); vv != v {
			t.Fatalf("unexpected cache value for k=%q; got %q; want %q", k, vv, v)
		}
	}
}

func TestSaveLoadRetainsRecency(t *testing.T) {
	const capacity = 8

	// Wrap the ring so only the last lap survives, then make sure the
	// snapshot preserves both survivorship and newest-wins order.
	c := New[int, int](capacity, -1)
	for i := 0; i < capacity*3; i++ {
		c.Put(i, i*10)
	}

	var buf bytes.Buffer
	if err := c.SaveTo(&buf); err != nil {
		t.Fatalf("SaveTo error: %s", err)
	}

	c1, err := LoadFrom[int, int](&buf)
	if err != nil {
		t.Fatalf("LoadFrom error: %s", err)
	}
	for i := 0; i < capacity*2; i++ {
		if v := c1.Get(i); v != -1 {
			t.Fatalf("evicted key %d present after load; got %d", i, v)
		}
	}
	for i := capacity * 2; i < capacity*3; i++ {
		if v := c1.Get(i); v != i*10 {
			t.Fatalf("unexpected value for key %d after load; got %d; want %d", i, v, i*10)
		}
	}

	// The loaded ring starts a fresh lap: one more put must evict the
	// oldest surviving key, not a newer one.
	c1.Put(1000, 1)
	if v := c1.Get(capacity * 2); v != -1 {
		t.Fatalf("oldest key survived post-load eviction; got %d", v)
	}
	if v := c1.Get(capacity*3 - 1); v != (capacity*3-1)*10 {
		t.Fatalf("newest key lost after post-load eviction; got %d", v)
	}
}

func TestSaveSkipsTombstones(t *testing.T) {
	c := New[string, int](16, -1)

	c.Put("live", 1)
	c.Put("dead", 2)
	c.Put("dead", -1)

	var buf bytes.Buffer
	if err := c.SaveTo(&buf); err != nil {
		t.Fatalf("SaveTo error: %s", err)
	}

	c1, err := LoadFrom[string, int](&buf)
	if err != nil {
		t.Fatalf("LoadFrom error: %s", err)
	}
	if v := c1.Get("live"); v != 1 {
		t.Fatalf("unexpected value for live key; got %d; want 1", v)
	}
	if v := c1.Get("dead"); v != -1 {
		t.Fatalf("tombstoned key resurrected by load; got %d", v)
	}

	// Only the live entry is replayed into the loaded cache.
	var s Stats
	c1.UpdateStats(&s)
	if s.PutCalls != 1 {
		t.Fatalf("unexpected replayed entries; got %d; want 1", s.PutCalls)
	}
}

func TestSaveLoadStruct(t *testing.T) {
	type User struct {
		ID   int
		Name string
	}

	tmpDir, err := os.MkdirTemp("", "test")
	if err != nil {
		t.Fatal(err)
	}
	filePath := filepath.Join(tmpDir, "TestSaveLoadStruct.ringcache")
	defer func() {
		_ = os.RemoveAll(tmpDir)
	}()

	c := New[int, User](100, User{})

	users := []User{
		{ID: 1, Name: "Alice"},
		{ID: 2, Name: "Bob"},
		{ID: 3, Name: "Charlie"},
	}
	for _, u := range users {
		c.Put(u.ID, u)
	}

	if err := c.SaveToFile(filePath); err != nil {
		t.Fatalf("SaveToFile error: %s", err)
	}

	c2, err := LoadFromFile[int, User](filePath)
	if err != nil {
		t.Fatalf("LoadFromFile error: %s", err)
	}
	for _, u := range users {
		got := c2.Get(u.ID)
		if got != u {
			t.Fatalf("unexpected user; got %+v; want %+v", got, u)
		}
	}
}

func TestLoadCorrupted(t *testing.T) {
	c := New[string, string](10, "")
	c.Put("key", "value")

	var buf bytes.Buffer
	if err := c.SaveTo(&buf); err != nil {
		t.Fatalf("SaveTo error: %s", err)
	}

	// Truncating the stream must fail loading, never return a bad cache.
	data := buf.Bytes()
	for _, cut := range []int{0, 1, len(data) / 2, len(data) - 1} {
		if _, err := LoadFrom[string, string](bytes.NewReader(data[:cut])); err == nil {
			t.Fatalf("LoadFrom must return error for stream truncated at %d bytes", cut)
		}
	}

	if _, err := LoadFrom[string, string](bytes.NewReader([]byte("garbage"))); err == nil {
		t.Fatalf("LoadFrom must return error for garbage input")
	}
}

func TestLoadFromFileOrNew_NonExistent(t *testing.T) {
	c := LoadFromFileOrNew[string, string]("non-existing-file", 100, "")
	if c == nil {
		t.Fatal("LoadFromFileOrNew returned nil")
	}
	if c.Capacity() != 100 {
		t.Fatalf("unexpected capacity; got %d; want 100", c.Capacity())
	}

	// Should be usable
	c.Put("key", "value")
	if v := c.Get("key"); v != "value" {
		t.Fatalf("unexpected value; got %q; want %q", v, "value")
	}
}
