// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package deck adapts El Gato Stream Deck buttons to optanim surfaces.
package deck

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/kortschak/ardilla"

	"github.com/hacktons/optanim/internal/slogext"
)

// Deck is a Stream Deck whose buttons can be used as animation surfaces.
// A sleeping deck reports its buttons as not visible, pausing any animations
// running on them; a closed deck reports them as not alive, terminating the
// animations permanently.
type Deck struct {
	mu   sync.Mutex
	deck *ardilla.Deck
	log  *slog.Logger

	sleeping atomic.Bool
	closed   atomic.Bool

	model  ardilla.PID
	serial string
}

// Open opens the physical device specified by pid and serial, interpreted
// according to the documentation for [ardilla.NewDeck].
func Open(ctx context.Context, pid ardilla.PID, serial string, log *slog.Logger) (*Deck, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	deck, err := ardilla.NewDeck(pid, serial)
	if err != nil {
		return nil, err
	}
	if serial == "" {
		serial, err = deck.Serial()
		if err != nil {
			return nil, err
		}
	}
	d := &Deck{
		deck:   deck,
		log:    log,
		model:  deck.PID(),
		serial: serial,
	}
	log.LogAttrs(ctx, slog.LevelInfo, "opened deck", slog.String("pid", fmt.Sprintf("0x%04x", uint16(d.model))), slog.Any("model", slogext.Stringer{Stringer: d.model}), slog.String("serial", serial))
	return d, nil
}

// Serial returns the serial number of the device.
func (d *Deck) Serial() string {
	return d.serial
}

// Layout returns the number of rows and columns of buttons on the device.
func (d *Deck) Layout() (rows, cols int) {
	return d.deck.Layout()
}

// Sleeping reports whether the deck is asleep.
func (d *Deck) Sleeping() bool {
	return d.sleeping.Load()
}

// Sleep marks the deck asleep and blanks all buttons. Animations running on
// the deck's buttons see their surfaces become invisible on their next tick.
func (d *Deck) Sleep() error {
	if !d.sleeping.CompareAndSwap(false, true) {
		return nil
	}
	d.log.LogAttrs(context.Background(), slog.LevelDebug, "sleep", slog.String("serial", d.serial))
	return d.blank()
}

// Wake marks the deck awake. Paused animations resume with the frame they
// paused on.
func (d *Deck) Wake(ctx context.Context) {
	d.log.LogAttrs(ctx, slog.LevelDebug, "wake", slog.Bool("sleeping", d.sleeping.Load()))
	d.sleeping.Store(false)
}

// blank draws a black image on every button.
func (d *Deck) blank() error {
	bounds, err := d.deck.Bounds()
	if err != nil {
		return err
	}
	img, err := d.rawImage(swatch{Uniform: &image.Uniform{C: color.Black}, bounds: bounds})
	if err != nil {
		return err
	}
	rows, cols := d.deck.Layout()
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			err := d.setImage(row, col, img)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// Close resets and closes the device. Surfaces obtained from the deck report
// not alive after Close.
func (d *Deck) Close() error {
	d.closed.Store(true)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deck.Reset()
	return d.deck.Close()
}

// rawImage converts img to the device's internal representation.
func (d *Deck) rawImage(img image.Image) (*ardilla.RawImage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.deck.RawImage(img)
}

// setImage renders img on the button at the given row and column.
func (d *Deck) setImage(row, col int, img image.Image) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.deck.SetImage(row, col, img)
}

// bounds returns the image bounds for the device's buttons.
func (d *Deck) bounds() (image.Rectangle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.deck.Bounds()
}

// swatch is a subimage of a uniform color.
type swatch struct {
	*image.Uniform
	bounds image.Rectangle
}

func (i swatch) Bounds() image.Rectangle { return i.bounds }

// Button returns the surface for the button at the provided position.
// Positions are not bounds checked until the surface is drawn to.
func (d *Deck) Button(row, col int) *Surface {
	return &Surface{deck: d, row: row, col: col}
}

// Surface is a single Stream Deck button usable as an animation surface.
// It implements the optanim Surface and Liveness interfaces.
type Surface struct {
	deck     *Deck
	row, col int
}

// IsVisible reports whether the button is shown, which is whether the deck
// is awake and open.
func (s *Surface) IsVisible() bool {
	return !s.deck.sleeping.Load() && !s.deck.closed.Load()
}

// Alive reports whether the backing deck is still open.
func (s *Surface) Alive() bool {
	return !s.deck.closed.Load()
}

// Size returns the button's image dimensions, or zeros if the device is not
// visual.
func (s *Surface) Size() (width, height int) {
	bounds, err := s.deck.bounds()
	if err != nil {
		return 0, 0
	}
	return bounds.Dx(), bounds.Dy()
}

// Apply renders img on the button, pre-computing the device's internal
// representation.
func (s *Surface) Apply(img image.Image) error {
	raw, err := s.deck.rawImage(img)
	if err != nil {
		return err
	}
	return s.deck.setImage(s.row, s.col, raw)
}
