// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sequence

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestNextWrapsAround(t *testing.T) {
	s := NewSequencer()
	s.Add(Frame{ID: 1, Duration: 10 * time.Millisecond})
	s.Add(Frame{ID: 2, Duration: 20 * time.Millisecond})

	var got []int
	for i := 0; i < 6; i++ {
		f, err := s.Next()
		if err != nil {
			t.Fatalf("unexpected error at %d: %v", i, err)
		}
		got = append(got, f.ID)
	}
	want := []int{1, 2, 1, 2, 1, 2}
	if !cmp.Equal(got, want) {
		t.Errorf("unexpected frame order:\n%s", cmp.Diff(want, got))
	}
}

func TestNextEmpty(t *testing.T) {
	s := NewSequencer()
	_, err := s.Next()
	if !errors.Is(err, ErrNoFrames) {
		t.Errorf("unexpected error: got=%v want=%v", err, ErrNoFrames)
	}
	s.Add(Frame{ID: 1})
	s.Clear()
	_, err = s.Next()
	if !errors.Is(err, ErrNoFrames) {
		t.Errorf("unexpected error after clear: got=%v want=%v", err, ErrNoFrames)
	}
}

func TestCurrent(t *testing.T) {
	s := NewSequencer()
	s.Add(Frame{ID: 1})
	s.Add(Frame{ID: 2})

	if _, ok := s.Current(); ok {
		t.Error("unexpected current before first next")
	}
	f, err := s.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cur, ok := s.Current()
	if !ok || cur != f {
		t.Errorf("current does not match last next: got=%+v,%t want=%+v", cur, ok, f)
	}
}

func TestSetAllReplacesAndResets(t *testing.T) {
	s := NewSequencer()
	s.Add(Frame{ID: 1})
	s.Add(Frame{ID: 2})
	_, err := s.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.SetAll([]Frame{{ID: 10}, {ID: 20}})
	if _, ok := s.Current(); ok {
		t.Error("unexpected current after set all")
	}
	f, err := s.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.ID != 10 {
		t.Errorf("sequence did not restart: got=%d want=10", f.ID)
	}
}
