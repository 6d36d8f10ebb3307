package cache

import (
	"sync"
	"testing"
)

func TestCacheGetSet(t *testing.T) {
	c := New[string, int](10)

	if _, ok := c.Get("missing"); ok {
		t.Error("Get on empty cache returned ok")
	}

	c.Set("a", 1)
	c.Set("b", 2)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = (%d, %v), want (1, true)", v, ok)
	}
	if got := c.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}

	// Overwriting an existing key keeps a single entry.
	c.Set("a", 10)
	if v, _ := c.Get("a"); v != 10 {
		t.Errorf("Get(a) after overwrite = %d, want 10", v)
	}
	if got := c.Len(); got != 2 {
		t.Errorf("Len() after overwrite = %d, want 2", got)
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[string, int](3)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	// Touch "a" so "b" becomes the eviction candidate.
	c.Get("a")
	c.Set("d", 4)

	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry survived eviction")
	}
	for _, key := range []string{"a", "c", "d"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("entry %q evicted unexpectedly", key)
		}
	}
	if got := c.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
}

func TestCacheSetRefreshesRecency(t *testing.T) {
	c := New[string, int](2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 11) // refresh
	c.Set("c", 3)  // evicts "b"

	if _, ok := c.Get("b"); ok {
		t.Error("refreshed entry was not moved to front")
	}
	if v, ok := c.Get("a"); !ok || v != 11 {
		t.Errorf("Get(a) = (%d, %v), want (11, true)", v, ok)
	}
}

func TestCacheUnlimited(t *testing.T) {
	c := New[int, int](0)
	for i := 0; i < 1000; i++ {
		c.Set(i, i)
	}
	if got := c.Len(); got != 1000 {
		t.Errorf("Len() = %d, want 1000 (limit 0 means unlimited)", got)
	}
	if got := c.Capacity(); got != 0 {
		t.Errorf("Capacity() = %d, want 0", got)
	}
}

func TestCacheDelete(t *testing.T) {
	c := New[string, int](10)
	c.Set("a", 1)

	if !c.Delete("a") {
		t.Error("Delete(a) = false, want true")
	}
	if c.Delete("a") {
		t.Error("second Delete(a) = true, want false")
	}
	if _, ok := c.Get("a"); ok {
		t.Error("deleted entry still retrievable")
	}

	// The list node must be gone too: filling past the limit after a
	// delete must not evict based on the stale node.
	c.Set("b", 2)
	if got := c.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
}

func TestCacheClear(t *testing.T) {
	c := New[string, int](10)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	if got := c.Len(); got != 0 {
		t.Errorf("Len() after Clear = %d, want 0", got)
	}
	c.Set("c", 3)
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Errorf("Get(c) after Clear = (%d, %v), want (3, true)", v, ok)
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := New[int, int](64)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				c.Set(g*1000+i, i)
				c.Get(g * 1000)
				c.Delete(g*1000 + i/2)
			}
		}(g)
	}
	wg.Wait()

	if got := c.Len(); got > 64 {
		t.Errorf("Len() = %d, exceeds limit 64", got)
	}
}

func TestLRUListOps(t *testing.T) {
	var l lruList[string]

	a := l.PushFront("a")
	b := l.PushFront("b")
	l.PushFront("c")

	if got := l.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}

	// Order is now c, b, a; "a" is the LRU.
	if node := l.PopBack(); node != a {
		t.Errorf("PopBack() = %v, want node a", node)
	}

	l.MoveToFront(b) // already at back, moves ahead of c
	if l.head != b {
		t.Error("MoveToFront did not make the node head")
	}

	l.Remove(b)
	if got := l.Len(); got != 1 {
		t.Errorf("Len() after removals = %d, want 1", got)
	}
	if l.head == nil || l.head.key != "c" {
		t.Error("remaining node should be c")
	}
}
