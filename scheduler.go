// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package optanim

import (
	"context"
	"image"
	"log/slog"
)

// dispatch obtains the decoded image for frame, off-loop when a pool is
// configured, and applies it to s. The next tick is not scheduled until
// dispatch returns, so each animation has at most one decode in flight.
// Surface writes happen here, on the loop goroutine, never on a pool worker.
func (a *Animation) dispatch(ctx context.Context, s Surface, frame Frame) {
	width, height := s.Size()
	decode := func() *image.RGBA {
		return a.decodeFrame(ctx, frame.ID, width, height)
	}
	var img *image.RGBA
	if pool := a.decodePool(); pool != nil {
		img = pool.do(ctx, decode)
	} else {
		img = decode()
	}
	if img == nil {
		// Failed or cancelled decode; skip this tick.
		return
	}
	if !a.shouldRun.Load() {
		// Stopped while decoding.
		return
	}
	if a.boundSurface() != s {
		// The surface was reassigned while decoding.
		a.log.LogAttrs(ctx, slog.LevelDebug, "discard decode for stale surface", slog.Int("id", frame.ID))
		return
	}
	err := s.Apply(img)
	if err != nil {
		a.log.LogAttrs(ctx, slog.LevelError, "apply image", slog.Int("id", frame.ID), slog.Any("error", err))
	}
}

// decodeFrame returns the image for id, from the shared cache where
// possible. On a cache miss the image is decoded, downsampled to
// approximately the surface's width and height when both are positive, and
// stored in the cache. When the cache is full, the second-newest entry
// donates its buffer to the decode; the newest entry is preserved since it
// is the frame most recently shown. A nil return means this tick shows no
// image.
func (a *Animation) decodeFrame(ctx context.Context, id, width, height int) *image.RGBA {
	if img, ok := a.cache.GetOrCreate(id); ok {
		return img
	}
	sample := 1
	if width > 0 && height > 0 {
		w, h, err := a.dec.ProbeBounds(ctx, id)
		if err != nil {
			a.log.LogAttrs(ctx, slog.LevelWarn, "probe bounds", slog.Int("id", id), slog.Any("error", err))
			a.EvictAllCache()
			return nil
		}
		sample = max(1, w/width, h/height)
		a.log.LogAttrs(ctx, slog.LevelDebug, "sample size",
			slog.Int("id", id), slog.Int("sample_size", sample),
			slog.Int("width", width), slog.Int("height", height),
			slog.Int("raw_width", w), slog.Int("raw_height", h))
	}
	var donor *image.RGBA
	if a.cache.Len() >= a.cache.Cap() {
		if key, ok := a.cache.NthFromNewest(2); ok {
			donor, _ = a.cache.Get(key)
			// The donor's buffer is consumed by the decode, so remove
			// it directly rather than evicting; eviction would record
			// the buffer for reuse while it is being overwritten.
			a.cache.Remove(key)
		}
	}
	img, err := a.dec.Decode(ctx, id, sample, donor)
	if err != nil {
		a.log.LogAttrs(ctx, slog.LevelWarn, "decode failed, maybe too large", slog.Int("id", id), slog.Any("error", err))
		a.EvictAllCache()
		return nil
	}
	a.cache.Put(id, img)
	if !a.shouldRun.Load() {
		// Stop may have evicted the cache between the decode and the
		// put; do not leave an entry behind it.
		a.cache.EvictAll()
		return nil
	}
	return img
}

// Pool bounds the number of concurrently running decodes. A single Pool is
// intended to be shared by all animations in a process; each animation still
// has at most one decode in flight at a time.
type Pool struct {
	sem chan struct{}
}

// NewPool returns a Pool running at most n decodes concurrently. Values
// below one are clamped to one.
func NewPool(n int) *Pool {
	if n < 1 {
		n = 1
	}
	return &Pool{sem: make(chan struct{}, n)}
}

// do runs fn on a background goroutine, waiting for a worker slot, and
// returns its result. It returns nil without waiting for fn if ctx is
// cancelled first; a decode abandoned this way runs to completion on its
// goroutine and only touches state through the serialized cache.
func (p *Pool) do(ctx context.Context, fn func() *image.RGBA) *image.RGBA {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil
	}
	res := make(chan *image.RGBA, 1)
	go func() {
		defer func() { <-p.sem }()
		res <- fn()
	}()
	select {
	case img := <-res:
		return img
	case <-ctx.Done():
		return nil
	}
}
