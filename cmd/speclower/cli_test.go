package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"

	"speclower/internal/config"
	"speclower/internal/diag"
	"speclower/internal/driver"
	"speclower/internal/layout"
	"speclower/internal/specconst"
	"speclower/internal/trace"
	"speclower/internal/types"
)

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.scir", "a.scir", "a.lowered.scir", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	got, err := expandInputs([]string{dir, filepath.Join(dir, "a.scir")})
	if err != nil {
		t.Fatalf("expandInputs: %v", err)
	}
	want := []string{filepath.Join(dir, "a.scir"), filepath.Join(dir, "b.scir")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("inputs mismatch (-want +got):\n%s", diff)
	}

	empty := t.TempDir()
	if _, err := expandInputs([]string{empty}); err == nil {
		t.Fatalf("expected an error for a directory without units")
	}
	if _, err := expandInputs([]string{filepath.Join(dir, "missing.scir")}); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestReadUIMode(t *testing.T) {
	cases := []struct {
		input string
		want  uiMode
	}{
		{"", uiModeAuto},
		{"AUTO", uiModeAuto},
		{" on ", uiModeOn},
		{"off", uiModeOff},
	}
	for _, tc := range cases {
		got, err := readUIMode(tc.input)
		if err != nil {
			t.Fatalf("readUIMode(%q) error: %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("readUIMode(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
	if _, err := readUIMode("sometimes"); err == nil {
		t.Fatalf("expected an error for an unknown mode")
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, exitOK},
		{"usage", usageError(errors.New("bad flag")), exitUsage},
		{"failure", failure(errors.New("lowering failed")), exitFailure},
		{"reported", reported(), exitFailure},
		{"cobra", errors.New("unknown command"), exitUsage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := exitCode(tc.err); got != tc.want {
				t.Fatalf("expected exit code %d, got %d", tc.want, got)
			}
		})
	}
}

func TestApplyLowerFlags(t *testing.T) {
	t.Cleanup(func() {
		lowerCmd.Flags().VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	})
	if err := lowerCmd.ParseFlags([]string{"--mode=default", "--format", "toml", "--out-dir", "", "--jobs=3"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	cfg := config.Default()
	cfg.Root = "/project"
	s, err := applyLowerFlags(lowerCmd, cfg)
	if err != nil {
		t.Fatalf("applyLowerFlags: %v", err)
	}
	if s.cfg.Lower.Mode != "default" || s.cfg.Lower.Target != "spir64" {
		t.Fatalf("expected default mode on spir64, got %+v", s.cfg.Lower)
	}
	if s.cfg.Output.Dir != "" || s.cfg.Root != "" || s.cfg.Batch.Jobs != 3 {
		t.Fatalf("expected flag overrides, got %+v", s.cfg)
	}
	if !s.cfg.Output.Metadata {
		t.Fatalf("expected untouched metadata default to stay on")
	}
	if got := sidecarFormat(s.cfg.Output.Format); got != "toml" {
		t.Fatalf("expected toml sidecars, got %q", got)
	}
	if got := sidecarFormat("pretty"); got != "json" {
		t.Fatalf("expected json sidecars for pretty, got %q", got)
	}

	if err := lowerCmd.ParseFlags([]string{"--mode=eager"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	if _, err := applyLowerFlags(lowerCmd, config.Default()); !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestPrintMappingAlignsWideSymbols(t *testing.T) {
	color.NoColor = true
	md := specconst.Metadata{
		Scalars: map[string]uint32{"幅": 0, "X": 3},
		Composites: map[string][]specconst.ElementDescriptor{
			"V": {{ID: 1, Offset: 0, Size: 4}, {ID: 2, Offset: 4, Size: 4}},
		},
	}
	var buf bytes.Buffer
	printMapping(&buf, "a.scir", md)
	want := strings.Join([]string{
		"unit a.scir (3 symbols)",
		"  SYMBOL  KIND       ID  OFFSET  SIZE",
		"  V       composite  1   0       4",
		"          composite  2   4       4",
		"  X       scalar     3",
		"  幅      scalar     0",
		"",
	}, "\n")
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Fatalf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestPrintStructLayouts(t *testing.T) {
	color.NoColor = true
	in := types.NewInterner()
	b := in.Builtins()
	pair := in.RegisterStruct("struct.Pair")
	in.SetStructFields(pair, []types.TypeID{b.I8, in.Intern(types.MakePointer(b.I8, 4))})

	var buf bytes.Buffer
	if err := printStructLayouts(&buf, in, layout.SPIR32()); err != nil {
		t.Fatalf("printStructLayouts: %v", err)
	}
	for _, want := range []string{"target spir-unknown-unknown", "%struct.Pair size=8 align=4", "  1  "} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, buf.String())
		}
	}
}

func TestTraceFlags(t *testing.T) {
	newSet := func() *pflag.FlagSet {
		fs := pflag.NewFlagSet("t", pflag.ContinueOnError)
		fs.String("trace", "", "")
		fs.String("trace-level", "off", "")
		fs.String("trace-mode", "stream", "")
		fs.Int("trace-ring-size", 4096, "")
		fs.Duration("trace-heartbeat", 0, "")
		return fs
	}
	tests := []struct {
		args    []string
		want    trace.Config
		wantErr bool
	}{
		{nil, trace.Config{Level: trace.LevelOff, Mode: trace.ModeStream, RingSize: 4096}, false},
		{[]string{"--trace=out.ndjson"}, trace.Config{Level: trace.LevelPhase, Mode: trace.ModeStream, OutputPath: "out.ndjson", RingSize: 4096}, false},
		{[]string{"--trace-level=error", "--trace-mode=ring", "--trace-ring-size=16", "--trace-heartbeat=1s"},
			trace.Config{Level: trace.LevelError, Mode: trace.ModeRing, RingSize: 16, Heartbeat: time.Second}, false},
		{[]string{"--trace-level=loud"}, trace.Config{}, true},
		{[]string{"--trace-mode=disk"}, trace.Config{}, true},
	}
	for _, tt := range tests {
		fs := newSet()
		if err := fs.Parse(tt.args); err != nil {
			t.Fatalf("parse %v: %v", tt.args, err)
		}
		got, err := traceFlags(fs)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("%v: expected an error", tt.args)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%v: unexpected error: %v", tt.args, err)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Fatalf("%v: config mismatch (-want +got):\n%s", tt.args, diff)
		}
	}
	if _, err := traceFlags(pflag.NewFlagSet("empty", pflag.ContinueOnError)); err == nil {
		t.Fatalf("expected an error for missing flags")
	}
}

func TestVisibleDropsInfoWhenQuiet(t *testing.T) {
	bag := diag.NewBag(8)
	bag.Add(diag.New(diag.SevInfo, diag.SpcUnusedAccessor, diag.InUnit("a.scir"), "unused"))
	bag.Add(diag.New(diag.SevWarning, diag.ColNotNormalized, diag.InUnit("a.scir"), "nfc"))
	bag.Add(diag.NewError(diag.SpcMalformedPattern, diag.InUnit("b.scir"), "bad"))

	if got := visible(bag, false); got != bag {
		t.Fatalf("expected the bag unchanged without --quiet")
	}
	got := visible(bag, true)
	if got.Len() != 2 || !got.HasErrors() || got.Items()[0].Code != diag.ColNotNormalized {
		t.Fatalf("expected the warning and the error, got %+v", got.Items())
	}
}

func TestWriteCollect(t *testing.T) {
	doc := collectDoc{Units: []driver.Sidecar{{
		Unit:    "a.lowered.scir",
		Target:  "spir64-unknown-unknown",
		Scalars: map[string]uint32{"X": 0},
		Composites: map[string][]specconst.ElementDescriptor{
			"V": {{ID: 1, Offset: 0, Size: 4}, {ID: 2, Offset: 4, Size: 4}},
		},
	}}}
	tests := []struct {
		format string
		decode func([]byte, any) error
	}{
		{"json", json.Unmarshal},
		{"toml", toml.Unmarshal},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := writeCollect(&buf, tt.format, doc); err != nil {
				t.Fatalf("writeCollect: %v", err)
			}
			var got collectDoc
			if err := tt.decode(buf.Bytes(), &got); err != nil {
				t.Fatalf("decode %s: %v\n%s", tt.format, err, buf.String())
			}
			if diff := cmp.Diff(doc, got); diff != "" {
				t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}

	var buf bytes.Buffer
	if err := writeCollect(&buf, "pretty", doc); err != nil || buf.Len() != 0 {
		t.Fatalf("expected pretty to write nothing, got %q, %v", buf.String(), err)
	}
}
