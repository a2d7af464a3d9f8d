package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	origVersion, origBuildTime, origCommit := Version, BuildTime, Commit
	defer func() { Version, BuildTime, Commit = origVersion, origBuildTime, origCommit }()

	Version = "1.0.0"
	BuildTime = "2026-01-01"
	Commit = "abcdef0123456789"

	info := Info()
	assert.Contains(t, info, "keel 1.0.0")
	assert.Contains(t, info, "(abcdef01)")
	assert.Contains(t, info, "2026-01-01")
	assert.Contains(t, info, runtime.GOOS+"/"+runtime.GOARCH)
}

func TestShortCommit(t *testing.T) {
	assert.Equal(t, "abc", Build{Commit: "abc"}.ShortCommit())
	assert.Equal(t, "01234567", Build{Commit: "0123456789"}.ShortCommit())
}
