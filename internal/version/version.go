// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package version reports the build's version control state.
package version

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// String returns a human-readable version for the running binary, including
// the VCS revision when the build carries one.
func String() (string, error) {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "", errors.New("no build info")
	}
	var revision, modified string
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			modified = s.Value
		}
	}
	switch {
	case revision == "":
		return bi.Main.Version, nil
	case modified == "true":
		return fmt.Sprintf("%s %s (modified)", bi.Main.Version, revision), nil
	default:
		return fmt.Sprintf("%s %s", bi.Main.Version, revision), nil
	}
}
