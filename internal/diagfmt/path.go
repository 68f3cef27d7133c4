package diagfmt

import (
	"path/filepath"

	"speclower/internal/diag"
)

func formatPath(path string, mode PathMode, base string) string {
	if path == "" {
		return path
	}
	switch mode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
	case PathModeRelative:
		if base == "" {
			return path
		}
		absBase, err1 := filepath.Abs(base)
		absPath, err2 := filepath.Abs(path)
		if err1 != nil || err2 != nil {
			return path
		}
		if rel, err := filepath.Rel(absBase, absPath); err == nil {
			return rel
		}
	case PathModeBasename:
		return filepath.Base(path)
	}
	return path
}

func relocate(loc diag.Location, mode PathMode, base string) diag.Location {
	loc.Unit = formatPath(loc.Unit, mode, base)
	return loc
}
