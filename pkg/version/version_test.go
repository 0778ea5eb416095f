package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func withBuild(t *testing.T, version, commit, tag, date string) {
	t.Helper()
	oldVersion, oldCommit, oldTag, oldDate := Version, GitCommit, GitTag, BuildDate
	Version, GitCommit, GitTag, BuildDate = version, commit, tag, date
	t.Cleanup(func() {
		Version, GitCommit, GitTag, BuildDate = oldVersion, oldCommit, oldTag, oldDate
	})
}

func TestGetVersion(t *testing.T) {
	tests := []struct {
		name    string
		version string
		commit  string
		tag     string
		want    string
	}{
		{"injected version", "v0.3.0", "abcdef1234", "v0.2.0", "v0.3.0"},
		{"tag fallback", "dev", "abcdef1234", "v0.2.0", "v0.2.0"},
		{"dev build", "dev", "abcdef1234", "unknown", "dev-abcdef1234"},
		{"empty version", "", "abcdef1234", "", "dev-abcdef1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withBuild(t, tt.version, tt.commit, tt.tag, "unknown")
			assert.Equal(t, tt.want, GetVersion())
		})
	}
}

func TestGetShortVersion(t *testing.T) {
	withBuild(t, "v0.3.0", "abcdef1234", "unknown", "unknown")
	assert.Equal(t, "v0.3.0 (abcdef1)", GetShortVersion())

	withBuild(t, "dev", "abcdef1234", "unknown", "unknown")
	assert.Equal(t, "dev-abcdef1234", GetShortVersion())

	withBuild(t, "v0.3.0", "unknown", "unknown", "unknown")
	assert.Equal(t, "v0.3.0", GetShortVersion())
}

func TestGetLongVersion(t *testing.T) {
	withBuild(t, "v0.3.0", "abcdef1234", "v0.3.0", "2025-01-02")

	out := GetLongVersion()
	assert.Contains(t, out, "nexo version v0.3.0 (abcdef1)")
	assert.Contains(t, out, "Built: 2025-01-02")
	assert.Contains(t, out, "Commit: abcdef1234")
	assert.Contains(t, out, "Go: "+runtime.Version())

	withBuild(t, "dev", "unknown", "unknown", "unknown")
	out = GetLongVersion()
	assert.NotContains(t, out, "Built:")
	assert.NotContains(t, out, "Commit:")
}

func TestGetBuildInfo(t *testing.T) {
	withBuild(t, "v1.0.0", "abcdef1234", "v1.0.0", "2025-01-02")

	info := GetBuildInfo()
	assert.Equal(t, "nexo", info.Component)
	assert.Equal(t, "v1.0.0", info.Version)
	assert.Equal(t, runtime.GOOS, info.Platform)
	assert.Equal(t, runtime.GOARCH, info.Architecture)
}
