// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package optanim drives frame-by-frame image animation on a visual surface
// while keeping decoded image memory bounded.
//
// An Animation cycles through a sequence of frames, decoding each frame's
// image off the animation loop and applying the result to a Surface. Decoded
// buffers are held in a fixed-capacity cache that is shared across all
// animations constructed with it, capping total decode memory for the
// process. Evicted buffers are weakly tracked so a later decode for the same
// frame can reuse the buffer's backing memory instead of allocating fresh.
//
// Surfaces that are not visible pause frame advancement and release the
// shared cache; the loop keeps re-checking visibility cheaply and resumes
// with the frame it paused on, so no frame is skipped or repeated across a
// pause.
package optanim

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hacktons/optanim/internal/cache"
	"github.com/hacktons/optanim/internal/sequence"
)

// Frame is a single animation frame.
type Frame = sequence.Frame

// ErrNoFrames is returned by Start when the animation has no frames.
var ErrNoFrames = sequence.ErrNoFrames

// Cache is the process-wide decode cache shared between animations.
// Construct one Cache at application start and pass it to every New call.
type Cache = cache.Shared

// NewCache returns a shared decode cache holding at most capacity decoded
// frames. Capacities below two are clamped to two; at least two slots are
// needed so a reuse buffer donor can be distinct from the slot being filled.
func NewCache(capacity int) *Cache {
	return cache.NewShared(capacity)
}

// Surface is a drawing target for an animation. Implementations must be
// comparable; in practice this means using pointer receivers.
type Surface interface {
	// IsVisible reports whether the surface is currently shown.
	// Invisible surfaces pause frame advancement.
	IsVisible() bool

	// Size returns the surface's layout dimensions. Both dimensions are
	// zero before the surface has been laid out, in which case frames are
	// decoded at their intrinsic size.
	Size() (width, height int)

	// Apply shows the image on the surface. Apply is only called from the
	// animation loop goroutine.
	Apply(img image.Image) error
}

// Liveness is implemented by surfaces that can be invalidated, for example
// when their backing device has been closed. An animation whose surface
// reports not alive terminates its loop.
type Liveness interface {
	Alive() bool
}

// Decoder provides image decoding for frame identifiers.
type Decoder interface {
	// ProbeBounds returns the intrinsic dimensions of the image for id
	// without fully decoding it.
	ProbeBounds(ctx context.Context, id int) (width, height int, err error)

	// Decode decodes the image for id, downsampled by sampleSize. If reuse
	// is non-nil the decoder may write into its backing storage instead of
	// allocating a new buffer.
	Decode(ctx context.Context, id, sampleSize int, reuse *image.RGBA) (*image.RGBA, error)
}

// Animation is a frame animation controller. Animations sharing a Cache are
// otherwise independent; each owns its frame sequence and surface binding.
type Animation struct {
	cache *cache.Shared
	dec   Decoder
	log   *slog.Logger

	mu      sync.Mutex
	frames  *sequence.Sequencer
	surface Surface
	pool    *Pool
	cancel  context.CancelFunc

	shouldRun atomic.Bool
	running   atomic.Bool
}

// New returns an Animation using the provided shared cache and decoder.
// The shared cache is resized to maxCached, clamped to a minimum of two;
// since the cache is shared, the most recently constructed animation's
// maxCached wins for all animations using the cache.
func New(shared *Cache, dec Decoder, maxCached int, log *slog.Logger) *Animation {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	log.LogAttrs(context.Background(), slog.LevelDebug, "new animation", slog.Int("max_cached", maxCached))
	shared.Resize(maxCached)
	return &Animation{
		cache:  shared,
		dec:    dec,
		log:    log,
		frames: sequence.NewSequencer(),
	}
}

// Into binds the animation to a surface and returns the animation. A surface
// change takes effect on the next tick; a decode already in flight for the
// previous surface is discarded rather than applied.
func (a *Animation) Into(s Surface) *Animation {
	a.mu.Lock()
	a.surface = s
	a.mu.Unlock()
	return a
}

// Using sets the pool decode work is submitted to and returns the animation.
// With a nil pool, decoding runs on the animation loop goroutine.
func (a *Animation) Using(pool *Pool) *Animation {
	a.mu.Lock()
	a.pool = pool
	a.mu.Unlock()
	return a
}

// AddFrame appends a frame showing the image for id for duration d.
func (a *Animation) AddFrame(id int, d time.Duration) {
	a.mu.Lock()
	a.frames.Add(Frame{ID: id, Duration: d})
	a.mu.Unlock()
}

// With replaces all frames with one frame per id, each shown for duration d,
// and returns the animation.
func (a *Animation) With(ids []int, d time.Duration) *Animation {
	frames := make([]Frame, len(ids))
	for i, id := range ids {
		frames[i] = Frame{ID: id, Duration: d}
	}
	a.Set(frames)
	return a
}

// Set replaces all frames. A running animation picks up the new sequence
// from its start on the next advancing tick.
func (a *Animation) Set(frames []Frame) {
	a.mu.Lock()
	a.frames.SetAll(frames)
	a.mu.Unlock()
}

// RemoveAllFrames clears the frame sequence.
func (a *Animation) RemoveAllFrames() {
	a.mu.Lock()
	a.frames.Clear()
	a.mu.Unlock()
}

// Start starts the animation loop, cancelling any previously running loop
// for this animation and ticking immediately. It returns ErrNoFrames if no
// frames have been added, or an error if no surface is bound.
func (a *Animation) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.surface == nil {
		return errors.New("optanim: no surface")
	}
	if a.frames.Len() == 0 {
		return ErrNoFrames
	}
	if a.cancel != nil {
		a.cancel()
	}
	ctx, a.cancel = context.WithCancel(ctx)
	a.shouldRun.Store(true)
	a.running.Store(true)
	go a.run(ctx)
	return nil
}

// Stop stops the animation and evicts the shared cache, immediately freeing
// decode memory for a stopped animation. Stop is idempotent. A decode in
// flight when Stop is called completes but its result is not applied to the
// surface.
func (a *Animation) Stop() {
	a.shouldRun.Store(false)
	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.mu.Unlock()
	a.cache.EvictAll()
}

// Running reports whether the animation loop is currently active.
func (a *Animation) Running() bool {
	return a.running.Load()
}

// EvictAllCache evicts the shared cache and hints the memory manager to
// collect the freed buffers.
func (a *Animation) EvictAllCache() {
	a.cache.EvictAll()
	runtime.GC()
}

// run is the animation tick loop. Each tick re-reads the bound surface and
// re-evaluates its liveness and visibility, so surface reassignment, pausing
// and resuming need no separate event plumbing.
func (a *Animation) run(ctx context.Context) {
	defer a.running.Store(false)
	var paused *Frame
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if !a.shouldRun.Load() {
			return
		}
		s := a.boundSurface()
		if l, ok := s.(Liveness); ok && !l.Alive() {
			a.log.LogAttrs(ctx, slog.LevelInfo, "surface gone, stopping")
			a.shouldRun.Store(false)
			return
		}
		if s.IsVisible() {
			var frame Frame
			if paused != nil {
				frame, paused = *paused, nil
			} else {
				var err error
				frame, err = a.next()
				if err != nil {
					a.log.LogAttrs(ctx, slog.LevelWarn, "no frames, stopping", slog.Any("error", err))
					a.shouldRun.Store(false)
					return
				}
			}
			a.dispatch(ctx, s, frame)
			timer.Reset(frame.Duration)
		} else {
			if paused == nil {
				frame, err := a.next()
				if err != nil {
					a.log.LogAttrs(ctx, slog.LevelWarn, "no frames, stopping", slog.Any("error", err))
					a.shouldRun.Store(false)
					return
				}
				paused = &frame
				// An invisible surface needs no decoded frames;
				// release the shared cache while we wait.
				a.cache.EvictAll()
			}
			timer.Reset(paused.Duration)
		}
	}
}

// next advances the frame sequence.
func (a *Animation) next() (Frame, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.frames.Next()
}

// boundSurface returns the currently bound surface.
func (a *Animation) boundSurface() Surface {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.surface
}

// decodePool returns the currently configured pool.
func (a *Animation) decodePool() *Pool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pool
}
