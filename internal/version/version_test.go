package version

import (
	"runtime/debug"
	"testing"

	"github.com/fatih/color"
)

func withVersion(t *testing.T, v, commit, date string) {
	t.Helper()
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	Version, GitCommit, BuildDate = v, commit, date
	origRead := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) { return nil, false }
	t.Cleanup(func() {
		Version, GitCommit, BuildDate = origVersion, origCommit, origDate
		readBuildInfo = origRead
	})
}

func TestVersion_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
}

func TestInfoString(t *testing.T) {
	tests := []struct {
		name         string
		commit, date string
		want         string
	}{
		{"bare", "", "", "speclower 1.2.3"},
		{"commit", "abc123", "", "speclower 1.2.3 (abc123)"},
		{"full", "abc123", "2024-01-15T10:30:00Z", "speclower 1.2.3 (abc123, 2024-01-15T10:30:00Z)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withVersion(t, "1.2.3", tt.commit, tt.date)
			if got := Get().String(); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestColoredWithoutColor(t *testing.T) {
	orig := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = orig })

	withVersion(t, "0.4.1-rc1", "", "")
	if got := Colored(); got != "0.4.1-rc1" {
		t.Fatalf("expected plain version, got %q", got)
	}
	withVersion(t, "nightly", "", "")
	if got := Colored(); got != "nightly" {
		t.Fatalf("expected unparsed version unchanged, got %q", got)
	}
}

func TestGetFallsBackToVCSStamp(t *testing.T) {
	withVersion(t, " ", "", "2026-01-02")
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "deadbeef"},
			{Key: "vcs.time", Value: "2020-01-01T00:00:00Z"},
		}}, true
	}
	got := Get()
	want := Info{Version: "dev", GitCommit: "deadbeef", BuildDate: "2026-01-02"}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}
