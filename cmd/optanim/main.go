// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The optanim command runs a frame animation on a Stream Deck button. Frames
// are taken from a TOML manifest or an animated GIF. When running from a
// manifest, edits to the manifest are applied to the running animation.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kortschak/ardilla"

	optanim "github.com/hacktons/optanim"
	"github.com/hacktons/optanim/config"
	"github.com/hacktons/optanim/deck"
	"github.com/hacktons/optanim/decode"
	"github.com/hacktons/optanim/internal/slogext"
	"github.com/hacktons/optanim/internal/version"
)

func main() {
	os.Exit(Main())
}

func Main() int {
	pids := []ardilla.PID{
		ardilla.StreamDeckMini,
		ardilla.StreamDeckMiniV2,
		ardilla.StreamDeckOriginal,
		ardilla.StreamDeckOriginalV2,
		ardilla.StreamDeckMK2,
		ardilla.StreamDeckXL,
		ardilla.StreamDeckPedal,
	}

	manifest := flag.String("manifest", "", "path to an animation manifest")
	gifPath := flag.String("gif", "", "path to an animated gif, used when no manifest is given")
	model := flag.String("model", "", "Stream Deck model name (empty matches the first found device)")
	serial := flag.String("serial", "", "device serial number (empty matches any)")
	row := flag.Int("row", 0, "button row to animate")
	col := flag.Int("col", 0, "button column to animate")
	maxCached := flag.Int("max-cached", 2, "frame cache capacity, overridden by the manifest's max_cached")
	decoders := flag.Int("decoders", 1, "maximum concurrently running decodes")
	logging := flag.String("log", "info", "logging level (debug, info, warn or error)")
	lines := flag.Bool("lines", false, "display source line details in logs")
	v := flag.Bool("version", false, "print version and exit")
	flag.Parse()
	if *v {
		s, err := version.String()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println(s)
		return 0
	}
	if *manifest == "" && *gifPath == "" {
		fmt.Fprintln(os.Stderr, "missing animation source: provide -manifest or -gif")
		flag.Usage()
		return 2
	}

	var level slog.LevelVar
	err := level.UnmarshalText([]byte(*logging))
	if err != nil {
		flag.Usage()
		return 2
	}
	addSource := slogext.NewAtomicBool(*lines)
	log := slog.New(slogext.GoID{Handler: slogext.NewJSONHandler(os.Stderr, &slogext.HandlerOptions{
		Level:     &level,
		AddSource: addSource,
	})})

	var pid ardilla.PID
	if *model != "" {
		for _, id := range pids {
			if id.String() == *model {
				pid = id
				break
			}
		}
		if pid == 0 {
			fmt.Fprintf(os.Stderr, "unknown device model: %s\n", *model)
			return 2
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	d, err := deck.Open(ctx, pid, *serial, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open device: %v\n", err)
		return 1
	}
	defer d.Close()

	lib := decode.NewLibrary(log)
	var frames []optanim.Frame
	capacity := *maxCached
	switch {
	case *manifest != "":
		m, err := config.Load(*manifest)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load manifest: %v\n", err)
			return 1
		}
		if m.MaxCached > 0 {
			capacity = m.MaxCached
		}
		frames = m.Register(lib)
	default:
		f, err := os.Open(*gifPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open gif: %v\n", err)
			return 1
		}
		frames, err = lib.ExpandGIF(f, 0)
		f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to expand gif: %v\n", err)
			return 1
		}
	}

	shared := optanim.NewCache(capacity)
	a := optanim.New(shared, lib, capacity, log).
		Into(d.Button(*row, *col)).
		Using(optanim.NewPool(*decoders))
	a.Set(frames)
	err = a.Start(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start animation: %v\n", err)
		return 1
	}
	defer a.Stop()

	if *manifest == "" {
		<-ctx.Done()
		return 0
	}

	changes := make(chan config.Change)
	w, err := config.NewWatcher(*manifest, changes, -1, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to watch manifest: %v\n", err)
		return 1
	}
	go w.Watch(ctx)
	for {
		select {
		case <-ctx.Done():
			return 0
		case c := <-changes:
			if c.Err != nil {
				log.LogAttrs(ctx, slog.LevelWarn, "manifest change", slog.Any("error", c.Err))
				continue
			}
			if c.Manifest == nil {
				continue
			}
			a.Set(c.Manifest.Register(lib))
			log.LogAttrs(ctx, slog.LevelInfo, "manifest reloaded", slog.Int("frames", len(c.Manifest.Frames)))
		}
	}
}
