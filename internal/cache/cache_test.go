package cache

import (
	"errors"
	"testing"
)

func TestCacheGetSet(t *testing.T) {
	c := New[string, int](0)
	if _, ok := c.Get("a"); ok {
		t.Fatal("Get on empty cache returned ok")
	}
	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %d, %v; want 1, true", v, ok)
	}
	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.Len != 1 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestCacheGetOrCreate(t *testing.T) {
	c := New[int, string](0)
	calls := 0
	create := func() (string, error) {
		calls++
		return "v", nil
	}
	for range 3 {
		v, err := c.GetOrCreate(1, create)
		if err != nil || v != "v" {
			t.Fatalf("GetOrCreate = %q, %v", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("create called %d times, want 1", calls)
	}
}

func TestCacheGetOrCreateError(t *testing.T) {
	c := New[int, string](0)
	boom := errors.New("boom")
	if _, err := c.GetOrCreate(1, func() (string, error) { return "", boom }); !errors.Is(err, boom) {
		t.Fatalf("GetOrCreate error = %v, want boom", err)
	}
	if c.Len() != 0 {
		t.Errorf("failed create must not be cached, Len = %d", c.Len())
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[int, int](4)
	var evicted []int
	c.OnEvict(func(k, _ int) { evicted = append(evicted, k) })

	for i := range 4 {
		c.Set(i, i)
	}
	// Touch 0 so that 1 becomes the oldest entry.
	c.Get(0)
	c.Set(4, 4)

	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}
	if len(evicted) != 2 || evicted[0] != 1 || evicted[1] != 2 {
		t.Errorf("evicted = %v, want [1 2]", evicted)
	}
	if _, ok := c.Get(0); !ok {
		t.Error("recently used entry was evicted")
	}
}

func TestCacheReplaceEvictsOldValue(t *testing.T) {
	c := New[string, int](0)
	var got []int
	c.OnEvict(func(_ string, v int) { got = append(got, v) })
	c.Set("k", 1)
	c.Set("k", 2)
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("evicted = %v, want [1]", got)
	}
}

func TestCachePurgeAndDelete(t *testing.T) {
	c := New[int, int](0)
	n := 0
	c.OnEvict(func(int, int) { n++ })
	c.Set(1, 1)
	c.Set(2, 2)
	c.Set(3, 3)
	if !c.Delete(1) || c.Delete(1) {
		t.Error("Delete must report presence exactly once")
	}
	c.Purge()
	if c.Len() != 0 || n != 3 {
		t.Errorf("after Purge Len = %d, evictions = %d", c.Len(), n)
	}
}
