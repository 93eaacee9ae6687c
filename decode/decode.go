// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package decode provides an image decoder backed by registered image files
// and in-memory images.
package decode

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"golang.org/x/image/draw"

	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrUnknownID is returned for identifiers with no registered image.
	ErrUnknownID = errors.New("decode: unknown image id")

	// ErrTooLarge is returned when a decode would exceed the library's
	// pixel budget. It is the analogue of an out of memory failure and
	// callers are expected to recover by shedding cached buffers.
	ErrTooLarge = errors.New("decode: image too large")
)

// DefaultMaxPixels is the default bound on decoded image area, 16M pixels
// (64MiB of RGBA).
const DefaultMaxPixels = 1 << 24

// probeCacheSize is the number of bounds-probe results retained.
const probeCacheSize = 64

// Library maps frame identifiers to images and decodes them on request,
// satisfying the optanim Decoder interface. Images are registered either as
// file paths, decoded lazily on each request, or as in-memory images.
//
// Bounds probes are cached in a small LRU so repeated sample size
// computation for a cycling animation does not reopen files.
type Library struct {
	log       *slog.Logger
	maxPixels int

	mu     sync.Mutex
	paths  map[int]string
	images map[int]image.Image
	bounds *lru.Cache[int, image.Point]
}

// NewLibrary returns an empty Library.
func NewLibrary(log *slog.Logger) *Library {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	bounds, err := lru.New[int, image.Point](probeCacheSize)
	if err != nil {
		panic(err) // Cannot happen: probeCacheSize is positive.
	}
	return &Library{
		log:       log,
		maxPixels: DefaultMaxPixels,
		paths:     make(map[int]string),
		images:    make(map[int]image.Image),
		bounds:    bounds,
	}
}

// SetMaxPixels sets the decoded area budget in pixels. Values below one
// restore DefaultMaxPixels.
func (l *Library) SetMaxPixels(n int) {
	l.mu.Lock()
	if n < 1 {
		n = DefaultMaxPixels
	}
	l.maxPixels = n
	l.mu.Unlock()
}

// Register associates id with an image file path. The file is not opened
// until the image is probed or decoded.
func (l *Library) Register(id int, path string) {
	l.mu.Lock()
	l.paths[id] = path
	delete(l.images, id)
	l.bounds.Remove(id)
	l.mu.Unlock()
}

// RegisterImage associates id with an already decoded image.
func (l *Library) RegisterImage(id int, img image.Image) {
	l.mu.Lock()
	l.images[id] = img
	delete(l.paths, id)
	l.bounds.Remove(id)
	l.mu.Unlock()
}

// ProbeBounds returns the intrinsic dimensions of the image for id without
// fully decoding it.
func (l *Library) ProbeBounds(ctx context.Context, id int) (width, height int, err error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	l.mu.Lock()
	if p, ok := l.bounds.Get(id); ok {
		l.mu.Unlock()
		return p.X, p.Y, nil
	}
	img, okImg := l.images[id]
	path, okPath := l.paths[id]
	l.mu.Unlock()
	switch {
	case okImg:
		b := img.Bounds()
		width, height = b.Dx(), b.Dy()
	case okPath:
		f, err := os.Open(path)
		if err != nil {
			return 0, 0, err
		}
		defer f.Close()
		cfg, _, err := image.DecodeConfig(f)
		if err != nil {
			return 0, 0, fmt.Errorf("decode: probe %s: %w", path, err)
		}
		width, height = cfg.Width, cfg.Height
	default:
		return 0, 0, fmt.Errorf("%w: %d", ErrUnknownID, id)
	}
	l.mu.Lock()
	l.bounds.Add(id, image.Point{X: width, Y: height})
	l.mu.Unlock()
	return width, height, nil
}

// Decode decodes the image for id, downsampled by sampleSize. If reuse is
// non-nil and its backing storage is large enough, the result is written
// into that storage instead of a new allocation.
func (l *Library) Decode(ctx context.Context, id, sampleSize int, reuse *image.RGBA) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, err := l.source(id)
	if err != nil {
		return nil, err
	}
	if sampleSize < 1 {
		sampleSize = 1
	}
	b := src.Bounds()
	width := max(1, b.Dx()/sampleSize)
	height := max(1, b.Dy()/sampleSize)
	l.mu.Lock()
	budget := l.maxPixels
	l.mu.Unlock()
	if width*height > budget {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixel budget", ErrTooLarge, width, height, budget)
	}
	dst := reuseBuffer(reuse, width, height)
	if dst == nil {
		dst = image.NewRGBA(image.Rect(0, 0, width, height))
	} else {
		l.log.LogAttrs(ctx, slog.LevelDebug, "reusing buffer", slog.Int("id", id), slog.Int("width", width), slog.Int("height", height))
	}
	if sampleSize == 1 && b.Dx() == width && b.Dy() == height {
		draw.Copy(dst, image.Point{}, src, b, draw.Src, nil)
	} else {
		draw.BiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	}
	return dst, nil
}

// source returns the full image for id, decoding from file if necessary.
func (l *Library) source(id int) (image.Image, error) {
	l.mu.Lock()
	img, okImg := l.images[id]
	path, okPath := l.paths[id]
	l.mu.Unlock()
	switch {
	case okImg:
		return img, nil
	case okPath:
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		img, _, err := image.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("decode: %s: %w", path, err)
		}
		return img, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownID, id)
	}
}

// reuseBuffer returns an RGBA image sized width×height backed by reuse's
// pixel storage, or nil if the storage is too small. The returned image
// aliases reuse.
func reuseBuffer(reuse *image.RGBA, width, height int) *image.RGBA {
	if reuse == nil {
		return nil
	}
	n := 4 * width * height
	if cap(reuse.Pix) < n {
		return nil
	}
	return &image.RGBA{
		Pix:    reuse.Pix[:n],
		Stride: 4 * width,
		Rect:   image.Rect(0, 0, width, height),
	}
}
