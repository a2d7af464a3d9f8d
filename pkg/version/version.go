// Package version reports build information of the keel binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set at build time with -ldflags "-X github.com/rzbill/keel/pkg/version.Version=...".
var (
	Version   = "dev"
	BuildTime = "unknown"
	Commit    = "unknown"
)

// Build describes the running binary.
type Build struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildTime string `json:"buildTime" yaml:"buildTime"`
	GoVersion string `json:"goVersion" yaml:"goVersion"`
	Platform  string `json:"platform" yaml:"platform"`
}

// Get returns the build information. Development builds fall back to the
// VCS revision recorded by the Go toolchain.
func Get() Build {
	b := Build{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if b.Commit == "unknown" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					b.Commit = s.Value
				case "vcs.time":
					b.BuildTime = s.Value
				}
			}
		}
	}
	return b
}

// ShortCommit returns the first eight characters of the commit.
func (b Build) ShortCommit() string {
	if len(b.Commit) > 8 {
		return b.Commit[:8]
	}
	return b.Commit
}

func (b Build) String() string {
	return fmt.Sprintf("keel %s (%s) - %s %s", b.Version, b.ShortCommit(), b.BuildTime, b.Platform)
}

// Info returns the one line build summary.
func Info() string {
	return Get().String()
}
