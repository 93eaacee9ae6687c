// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cache

import (
	"image"
	"sync"
	"weak"
)

// Tracker holds weak references to evicted frame buffers so that a later
// decode for the same key can reuse the buffer's backing memory instead of
// allocating fresh. A Tracker never extends a buffer's lifetime; the garbage
// collector may reclaim a tracked buffer at any time and a reclaimed slot is
// reported as a miss.
//
// The slot map is unbounded. Slots hold only weak pointers, so the map's
// growth is limited to bookkeeping and the values themselves are pruned by
// the collector.
type Tracker struct {
	mu    sync.Mutex
	slots map[int]weak.Pointer[image.RGBA]
}

// NewTracker returns a new Tracker.
func NewTracker() *Tracker {
	return &Tracker{slots: make(map[int]weak.Pointer[image.RGBA])}
}

// Record stores a weak trace of value for key, replacing any previous trace.
func (t *Tracker) Record(key int, value *image.RGBA) {
	if value == nil {
		return
	}
	t.mu.Lock()
	t.slots[key] = weak.Make(value)
	t.mu.Unlock()
}

// TryGet returns the tracked value for key if it has not been reclaimed.
// A false result is a normal miss, not an error.
func (t *Tracker) TryGet(key int) (*image.RGBA, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.slots[key]
	if !ok {
		return nil, false
	}
	v := p.Value()
	if v == nil {
		delete(t.slots, key)
		return nil, false
	}
	return v, true
}
