// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sequence provides an ordered cyclic frame sequence.
package sequence

import (
	"errors"
	"time"
)

// ErrNoFrames is returned by Next when the sequence holds no frames.
var ErrNoFrames = errors.New("sequence: no frames")

// Frame is a single animation frame: the identifier of the image to show and
// how long to show it.
type Frame struct {
	ID       int
	Duration time.Duration
}

// Sequencer is an ordered, cyclic list of frames with a cursor. Use
// NewSequencer to construct one. Sequencer is not safe for concurrent use;
// callers serialize access.
type Sequencer struct {
	frames []Frame
	cursor int
}

// NewSequencer returns an empty Sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{cursor: -1}
}

// Add appends a frame to the sequence.
func (s *Sequencer) Add(f Frame) {
	s.frames = append(s.frames, f)
}

// SetAll replaces the sequence's frames, resetting the cursor.
func (s *Sequencer) SetAll(frames []Frame) {
	s.frames = append(s.frames[:0:0], frames...)
	s.cursor = -1
}

// Clear removes all frames and resets the cursor.
func (s *Sequencer) Clear() {
	s.frames = nil
	s.cursor = -1
}

// Len returns the number of frames in the sequence.
func (s *Sequencer) Len() int {
	return len(s.frames)
}

// Next advances the cursor and returns the frame under it, wrapping to the
// first frame after the last. It returns ErrNoFrames if the sequence is
// empty.
func (s *Sequencer) Next() (Frame, error) {
	if len(s.frames) == 0 {
		return Frame{}, ErrNoFrames
	}
	s.cursor++
	if s.cursor >= len(s.frames) {
		s.cursor = 0
	}
	return s.frames[s.cursor], nil
}

// Current returns the frame most recently returned by Next. It returns false
// before the first call to Next and after Clear or SetAll.
func (s *Sequencer) Current() (Frame, bool) {
	if s.cursor < 0 || s.cursor >= len(s.frames) {
		return Frame{}, false
	}
	return s.frames[s.cursor], true
}
