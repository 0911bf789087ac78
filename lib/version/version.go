// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set via -ldflags at build time.
var (
	Version   = "0.1.0-dev"
	Commit    = ""
	BuildTime = "unknown"
)

// Info returns "version (commit, build time)".
func Info() string {
	commit, dirty := vcs()
	if dirty {
		commit += "-dirty"
	}
	return fmt.Sprintf("%s (%s, %s)", Version, commit, BuildTime)
}

// Full is Info plus the Go version and platform.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func vcs() (commit string, dirty bool) {
	commit = Commit
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return orUnknown(commit), false
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if commit == "" && len(setting.Value) >= 7 {
				commit = setting.Value[:7]
			}
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return orUnknown(commit), dirty
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
