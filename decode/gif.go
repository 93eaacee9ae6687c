// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package decode

import (
	"errors"
	"image"
	"image/gif"
	"io"
	"time"

	"golang.org/x/image/draw"

	"github.com/hacktons/optanim/internal/sequence"
)

// defaultGIFDelay is the frame duration used when a GIF carries no delay
// information.
const defaultGIFDelay = 100 * time.Millisecond

// ExpandGIF decodes an animated GIF from r, registers each composited frame
// in the library under consecutive identifiers starting at firstID, and
// returns the corresponding frame sequence with the GIF's per-frame delays.
// Frames are composited over the running canvas; background and
// previous-frame disposal are approximated by the composite.
func (l *Library) ExpandGIF(r io.Reader, firstID int) ([]sequence.Frame, error) {
	g, err := gif.DecodeAll(r)
	if err != nil {
		return nil, err
	}
	if len(g.Image) == 0 {
		return nil, errors.New("decode: gif has no frames")
	}
	if len(g.Image) != len(g.Delay) && g.Delay != nil {
		return nil, errors.New("decode: mismatched gif image and delay counts")
	}
	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		bounds = g.Image[0].Bounds()
	}
	canvas := image.NewRGBA(bounds)
	frames := make([]sequence.Frame, 0, len(g.Image))
	for i, pm := range g.Image {
		draw.Copy(canvas, pm.Bounds().Min, pm, pm.Bounds(), draw.Over, nil)
		frame := image.NewRGBA(bounds)
		draw.Copy(frame, bounds.Min, canvas, bounds, draw.Src, nil)
		id := firstID + i
		l.RegisterImage(id, frame)
		d := defaultGIFDelay
		if g.Delay != nil {
			d = 10 * time.Duration(g.Delay[i]) * time.Millisecond
		}
		frames = append(frames, sequence.Frame{ID: id, Duration: d})
	}
	return frames, nil
}
