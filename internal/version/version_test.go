package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func stamp(t *testing.T, v, commit, date string) {
	t.Helper()
	oldV, oldC, oldD := Version, Commit, Date
	t.Cleanup(func() { Version, Commit, Date = oldV, oldC, oldD })
	Version, Commit, Date = v, commit, date
}

func TestFullDev(t *testing.T) {
	stamp(t, "dev", "none", "unknown")
	assert.True(t, IsDev())
	assert.Equal(t, "studysync version dev (built from source)", Full())
}

func TestFullRelease(t *testing.T) {
	stamp(t, "1.2.3", "abc123", "2026-01-02")
	assert.False(t, IsDev())
	assert.Equal(t, "studysync version 1.2.3 (abc123, 2026-01-02)", Full())
}

func TestCurrent(t *testing.T) {
	stamp(t, "1.0.0", "abc", "today")
	info := Current()
	assert.Equal(t, "1.0.0", info.Version)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
	assert.Equal(t, runtime.Version(), info.GoVersion)
}

func TestUserAgent(t *testing.T) {
	stamp(t, "1.0.0", "abc", "today")
	assert.Equal(t, "studysync-cli/1.0.0 ("+runtime.GOOS+"/"+runtime.GOARCH+")", UserAgent())
}
