// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cache

import "image"

// Shared is a LifoCache whose evictions are recorded in a Tracker so evicted
// buffers remain available for reuse until the collector reclaims them. A
// single Shared is intended to be constructed at process start and handed to
// every animation so total decode memory is capped across all concurrently
// animating surfaces.
type Shared struct {
	*LifoCache
	tracker *Tracker
}

// NewShared returns a Shared cache with the given capacity. Capacities below
// MinCapacity are clamped to MinCapacity.
func NewShared(capacity int) *Shared {
	t := NewTracker()
	return &Shared{
		LifoCache: New(capacity, reuseStrategy{t}),
		tracker:   t,
	}
}

// Tracker returns the cache's reuse tracker.
func (s *Shared) Tracker() *Tracker {
	return s.tracker
}

// reuseStrategy connects a LifoCache to a Tracker: every removed value is
// weakly recorded, and misses are answered from still-live traces.
type reuseStrategy struct {
	tracker *Tracker
}

func (s reuseStrategy) OnEvicted(key int, old, replacement *image.RGBA) {
	s.tracker.Record(key, old)
}

func (s reuseStrategy) OnMiss(key int) (*image.RGBA, bool) {
	return s.tracker.TryGet(key)
}
