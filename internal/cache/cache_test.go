// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cache

import (
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// event records a strategy hook invocation.
type event struct {
	Key            int
	HasOld         bool
	HasReplacement bool
}

// recorder is a Strategy that records evictions and answers misses from a
// fixed map.
type recorder struct {
	events []event
	misses map[int]*image.RGBA
}

func (r *recorder) OnEvicted(key int, old, replacement *image.RGBA) {
	r.events = append(r.events, event{Key: key, HasOld: old != nil, HasReplacement: replacement != nil})
}

func (r *recorder) OnMiss(key int) (*image.RGBA, bool) {
	v, ok := r.misses[key]
	return v, ok
}

func buf() *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, 2, 2))
}

func TestCapacityInvariant(t *testing.T) {
	c := New(3, nil)
	for i := 0; i < 20; i++ {
		c.Put(i%7, buf())
		if c.Len() > 3 {
			t.Fatalf("capacity invariant violated after put %d: len=%d", i, c.Len())
		}
	}
	c.Resize(2)
	if c.Len() > 2 {
		t.Errorf("capacity invariant violated after resize: len=%d", c.Len())
	}
}

func TestEvictionOrderIsOldestFirst(t *testing.T) {
	rec := &recorder{}
	c := New(2, rec)
	c.Put(1, buf())
	c.Put(2, buf())
	// Access must not promote: key 1 stays the eviction victim.
	if _, ok := c.Get(1); !ok {
		t.Fatal("missing key 1")
	}
	c.Put(3, buf())
	c.Put(4, buf())

	want := []event{
		{Key: 1, HasOld: true},
		{Key: 2, HasOld: true},
	}
	if !cmp.Equal(rec.events, want) {
		t.Errorf("unexpected eviction order:\n%s", cmp.Diff(want, rec.events))
	}
	if c.Len() != 2 {
		t.Errorf("unexpected cache size: got=%d want=2", c.Len())
	}
}

func TestMinCapacityClamp(t *testing.T) {
	for _, capacity := range []int{-1, 0, 1} {
		c := New(capacity, nil)
		if got := c.Cap(); got != MinCapacity {
			t.Errorf("capacity %d not clamped: got=%d want=%d", capacity, got, MinCapacity)
		}
	}
	c := New(4, nil)
	c.Resize(0)
	if got := c.Cap(); got != MinCapacity {
		t.Errorf("resize to 0 not clamped: got=%d want=%d", got, MinCapacity)
	}
}

func TestNthFromNewest(t *testing.T) {
	c := New(4, nil)
	c.Put(10, buf())
	c.Put(20, buf())
	c.Put(30, buf())

	tests := []struct {
		n    int
		key  int
		ok   bool
	}{
		{n: 1, key: 30, ok: true},
		{n: 2, key: 20, ok: true},
		{n: 3, key: 10, ok: true},
		{n: 4, ok: false},
		{n: 0, ok: false},
	}
	for _, test := range tests {
		key, ok := c.NthFromNewest(test.n)
		if ok != test.ok || (ok && key != test.key) {
			t.Errorf("NthFromNewest(%d): got=%d,%t want=%d,%t", test.n, key, ok, test.key, test.ok)
		}
	}

	// Re-insertion of an existing key makes it newest.
	c.Put(10, buf())
	if key, _ := c.NthFromNewest(1); key != 10 {
		t.Errorf("re-put key is not newest: got=%d want=10", key)
	}
}

func TestRemoveBypassesStrategy(t *testing.T) {
	rec := &recorder{}
	c := New(2, rec)
	v := buf()
	c.Put(1, v)
	got, ok := c.Remove(1)
	if !ok || got != v {
		t.Fatalf("remove did not return stored value: got=%p want=%p", got, v)
	}
	if len(rec.events) != 0 {
		t.Errorf("remove notified strategy: %v", rec.events)
	}
	if _, ok := c.Remove(1); ok {
		t.Error("second remove unexpectedly succeeded")
	}
}

func TestOverwriteNotifiesWithReplacement(t *testing.T) {
	rec := &recorder{}
	c := New(2, rec)
	c.Put(1, buf())
	c.Put(1, buf())

	want := []event{{Key: 1, HasOld: true, HasReplacement: true}}
	if !cmp.Equal(rec.events, want) {
		t.Errorf("unexpected overwrite events:\n%s", cmp.Diff(want, rec.events))
	}
	if c.Len() != 1 {
		t.Errorf("unexpected cache size after overwrite: got=%d want=1", c.Len())
	}
}

func TestEvictAllObservesEveryEviction(t *testing.T) {
	rec := &recorder{}
	c := New(3, rec)
	c.Put(1, buf())
	c.Put(2, buf())
	c.Put(3, buf())
	c.EvictAll()

	want := []event{
		{Key: 1, HasOld: true},
		{Key: 2, HasOld: true},
		{Key: 3, HasOld: true},
	}
	if !cmp.Equal(rec.events, want) {
		t.Errorf("unexpected evict-all events:\n%s", cmp.Diff(want, rec.events))
	}
	if c.Len() != 0 {
		t.Errorf("cache not empty after evict all: len=%d", c.Len())
	}
}

func TestGetOrCreate(t *testing.T) {
	v := buf()
	rec := &recorder{misses: map[int]*image.RGBA{5: v}}
	c := New(2, rec)

	if got, ok := c.GetOrCreate(1); ok {
		t.Errorf("unexpected value for unmissable key: %p", got)
	}
	got, ok := c.GetOrCreate(5)
	if !ok || got != v {
		t.Fatalf("miss hook value not returned: got=%p want=%p", got, v)
	}
	// The created value is inserted.
	if got, ok := c.Get(5); !ok || got != v {
		t.Errorf("miss hook value not inserted: got=%p,%t", got, ok)
	}
}

func TestResizeGrowKeepsEntries(t *testing.T) {
	rec := &recorder{}
	c := New(2, rec)
	c.Put(1, buf())
	c.Put(2, buf())
	c.Resize(4)
	if len(rec.events) != 0 {
		t.Errorf("grow evicted entries: %v", rec.events)
	}
	c.Put(3, buf())
	c.Put(4, buf())
	if c.Len() != 4 {
		t.Errorf("unexpected size after grow: got=%d want=4", c.Len())
	}
}
