package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"speclower/internal/layout"
	"speclower/internal/specconst"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestDiscoverWalksUp(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, FileName), `
[lower]
mode = "default"
target = "spir32"

[output]
dir = "build"
format = "toml"

[batch]
jobs = 3
`)
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	cfg, ok, err := Discover(nested)
	if err != nil || !ok {
		t.Fatalf("expected config, got ok=%v err=%v", ok, err)
	}
	want := Config{
		Lower:  LowerConfig{Mode: "default", Target: "spir32"},
		Output: OutputConfig{Dir: "build", Metadata: true, Format: "toml"},
		Batch:  BatchConfig{Jobs: 3},
	}
	if diff := cmp.Diff(want, cfg, cmpopts.IgnoreFields(Config{}, "Path", "Root")); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
	if cfg.OutputDir() != filepath.Join(root, "build") {
		t.Fatalf("expected output dir under the config root, got %s", cfg.OutputDir())
	}
	if m, _ := cfg.ModeValue(); m != specconst.ModeDefault {
		t.Fatalf("expected default mode, got %s", m)
	}
	if tg, _ := cfg.TargetValue(); tg != layout.SPIR32() {
		t.Fatalf("expected spir32, got %+v", tg)
	}
}

func TestDiscoverWithoutFile(t *testing.T) {
	cfg, ok, err := Discover(t.TempDir())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if ok {
		t.Skip("a speclower.toml exists above the temp dir")
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("expected defaults (-want +got):\n%s", diff)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad_mode", "[lower]\nmode = \"later\"\n"},
		{"bad_target", "[lower]\ntarget = \"x86\"\n"},
		{"bad_format", "[output]\nformat = \"yaml\"\n"},
		{"negative_jobs", "[batch]\njobs = -1\n"},
		{"unknown_key", "[lower]\nmodes = \"runtime\"\n"},
		{"empty_dir", "[output]\ndir = \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			writeFile(t, path, tt.body)
			_, err := Load(path)
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
		})
	}

	path := filepath.Join(t.TempDir(), FileName)
	writeFile(t, path, "[lower\n")
	if _, err := Load(path); err == nil || errors.Is(err, ErrInvalid) {
		t.Fatalf("expected a parse error, got %v", err)
	}
}
