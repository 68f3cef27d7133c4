// Package version describes the speclower build.
package version

import (
	"runtime/debug"
	"strings"

	"github.com/fatih/color"
)

// Set with -ldflags "-X speclower/internal/version.Version=...". When
// GitCommit or BuildDate are empty, Get falls back to the VCS stamp the Go
// toolchain records in the binary.
var (
	Version   = "0.1.0-dev"
	GitCommit = ""
	BuildDate = ""
)

var readBuildInfo = debug.ReadBuildInfo

// Info is the serialisable build description.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

func Get() Info {
	info := Info{
		Version:   strings.TrimSpace(Version),
		GitCommit: strings.TrimSpace(GitCommit),
		BuildDate: strings.TrimSpace(BuildDate),
	}
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.GitCommit != "" && info.BuildDate != "" {
		return info
	}
	bi, ok := readBuildInfo()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && info.GitCommit == "":
			info.GitCommit = s.Value
		case s.Key == "vcs.time" && info.BuildDate == "":
			info.BuildDate = s.Value
		}
	}
	return info
}

var componentColors = []*color.Color{
	color.New(color.FgYellow, color.Bold),
	color.New(color.FgGreen, color.Bold),
	color.New(color.FgBlue, color.Bold),
}

// Colored paints the major, minor and patch numbers of Version. Anything that
// is not a three-part version is returned as is.
func Colored() string {
	core, suffix, hasSuffix := strings.Cut(Version, "-")
	parts := strings.Split(core, ".")
	if len(parts) != len(componentColors) {
		return Version
	}
	for i, p := range parts {
		parts[i] = componentColors[i].Sprint(p)
	}
	out := strings.Join(parts, ".")
	if hasSuffix {
		out += "-" + suffix
	}
	return out
}

// String is "speclower <version>" plus the commit and date when known.
func (i Info) String() string {
	s := "speclower " + i.Version
	var extra []string
	for _, v := range []string{i.GitCommit, i.BuildDate} {
		if v != "" {
			extra = append(extra, v)
		}
	}
	if len(extra) > 0 {
		s += " (" + strings.Join(extra, ", ") + ")"
	}
	return s
}
