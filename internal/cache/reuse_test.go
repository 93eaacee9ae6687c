// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cache

import (
	"image"
	"runtime"
	"testing"
)

func TestTracker(t *testing.T) {
	tr := NewTracker()
	v := buf()
	tr.Record(1, v)

	got, ok := tr.TryGet(1)
	if !ok || got != v {
		t.Errorf("tracked value not returned: got=%p,%t want=%p", got, ok, v)
	}
	if _, ok := tr.TryGet(2); ok {
		t.Error("unexpected hit for unrecorded key")
	}
	runtime.KeepAlive(v)
}

func TestTrackerReclaimedSlotIsMiss(t *testing.T) {
	tr := NewTracker()
	tr.Record(1, image.NewRGBA(image.Rect(0, 0, 64, 64)))
	// The recorded buffer has no strong referent; after collection the
	// slot must report a miss rather than a dangling value.
	runtime.GC()
	runtime.GC()
	if v, ok := tr.TryGet(1); ok {
		// Not a failure if the collector has not run the value down,
		// but the returned value must at least be usable.
		if v == nil {
			t.Error("hit returned nil value")
		}
	}
}

func TestSharedReuseRoundTrip(t *testing.T) {
	c := NewShared(2)
	v := buf()
	c.Put(1, v)
	// Push key 1 out through the eviction path.
	c.Put(2, buf())
	c.Put(3, buf())
	if _, ok := c.Get(1); ok {
		t.Fatal("key 1 unexpectedly still cached")
	}

	got, ok := c.GetOrCreate(1)
	if !ok || got != v {
		t.Errorf("evicted value not recovered: got=%p,%t want=%p", got, ok, v)
	}
	// The recovered value is cached again.
	if got, ok := c.Get(1); !ok || got != v {
		t.Errorf("recovered value not re-cached: got=%p,%t", got, ok)
	}
	runtime.KeepAlive(v)
}

func TestSharedRemoveIsNotTracked(t *testing.T) {
	c := NewShared(2)
	v := buf()
	c.Put(1, v)
	c.Remove(1)
	if _, ok := c.GetOrCreate(1); ok {
		t.Error("explicitly removed value recovered from tracker")
	}
	runtime.KeepAlive(v)
}
