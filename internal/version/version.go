// Package version provides application version and build info.
package version

import (
	"fmt"
	"runtime/debug"
	"sync"
)

var (
	// Version is overridden by ldflags at build time.
	Version = "dev"
	// CommitHash is overridden by ldflags at build time, or read from VCS build info.
	CommitHash = ""
	// BuildTime is overridden by ldflags at build time, or read from VCS build info.
	BuildTime = ""

	vcsOnce sync.Once
)

// GetInfo returns the version with a short commit hash when known, e.g. "v1.2.0 (abc1234)".
func GetInfo() string {
	vcsOnce.Do(readBuildInfo)
	res := Version
	if CommitHash != "" {
		short := CommitHash
		if len(short) > 7 {
			short = short[:7]
		}
		res += fmt.Sprintf(" (%s)", short)
	}
	return res
}

func readBuildInfo() {
	if CommitHash != "" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			CommitHash = setting.Value
		case "vcs.time":
			BuildTime = setting.Value
		}
	}
}
