package cache

import (
	"testing"
	"time"
)

func TestLRUCacheTTL(t *testing.T) {
	c := NewLRUCache[int](4, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected hit, got %v %v", v, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected expired entry to miss")
	}
	if c.Size() != 0 {
		t.Fatalf("expired entry should be removed on read, size=%d", c.Size())
	}
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[string](2, time.Hour)
	c.Set("a", "A")
	c.Set("b", "B")
	c.Get("a") // a is now most recently used
	c.Set("c", "C")

	if _, ok := c.Get("b"); ok {
		t.Fatalf("least recently used entry should be evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Fatalf("expected %s to survive", k)
		}
	}
}

func TestLRUCachePurgeAndClean(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }
	c.Set("a", 1)
	c.Set("b", 2)
	c.Purge()
	if c.Size() != 0 {
		t.Fatalf("purge left %d entries", c.Size())
	}

	c.Set("x", 1)
	now = now.Add(time.Hour)
	c.Set("y", 2)
	if removed := c.CleanExpired(); removed != 1 {
		t.Fatalf("expected 1 expired entry, got %d", removed)
	}
}

func TestManagerStopIsIdempotent(t *testing.T) {
	m := NewManager()
	m.Register(NewLRUCache[int](1, time.Second))
	m.StartCleanup(10 * time.Millisecond)
	m.Stop()
	m.Stop()

	idle := NewManager()
	idle.Stop()
}
