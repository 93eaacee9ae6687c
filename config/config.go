// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config provides animation manifest loading and live reloading.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	optanim "github.com/hacktons/optanim"
	"github.com/hacktons/optanim/decode"
)

// Manifest describes an animation: the shared cache size and the ordered
// frame list. Frames reference image files by path; relative paths are
// resolved against the manifest file's directory.
//
//	max_cached = 4
//
//	[[frame]]
//	id = 1
//	image = "loading_01.png"
//	duration_ms = 100
type Manifest struct {
	MaxCached int         `toml:"max_cached"`
	Frames    []FrameSpec `toml:"frame"`

	dir string
}

// FrameSpec is a single frame entry in a manifest.
type FrameSpec struct {
	ID         int    `toml:"id"`
	Image      string `toml:"image"`
	DurationMS int64  `toml:"duration_ms"`
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	var m Manifest
	_, err := toml.DecodeFile(path, &m)
	if err != nil {
		return nil, err
	}
	m.dir = filepath.Dir(path)
	err = m.validate()
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// parse unmarshals a manifest from raw data, resolving relative image paths
// against dir.
func parse(b []byte, dir string) (*Manifest, error) {
	var m Manifest
	err := toml.Unmarshal(b, &m)
	if err != nil {
		return nil, err
	}
	m.dir = dir
	err = m.validate()
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	if len(m.Frames) == 0 {
		return fmt.Errorf("config: manifest has no frames")
	}
	seen := make(map[int]bool, len(m.Frames))
	for i, f := range m.Frames {
		if f.Image == "" {
			return fmt.Errorf("config: frame %d has no image", i)
		}
		if f.DurationMS < 0 {
			return fmt.Errorf("config: frame %d has negative duration", i)
		}
		if seen[f.ID] {
			return fmt.Errorf("config: duplicate frame id %d", f.ID)
		}
		seen[f.ID] = true
	}
	return nil
}

// Register adds the manifest's images to lib and returns the frame sequence
// ready to hand to an animation's Set.
func (m *Manifest) Register(lib *decode.Library) []optanim.Frame {
	frames := make([]optanim.Frame, 0, len(m.Frames))
	for _, f := range m.Frames {
		path := f.Image
		if m.dir != "" && !filepath.IsAbs(path) {
			path = filepath.Join(m.dir, path)
		}
		lib.Register(f.ID, path)
		frames = append(frames, optanim.Frame{
			ID:       f.ID,
			Duration: time.Duration(f.DurationMS) * time.Millisecond,
		})
	}
	return frames
}
