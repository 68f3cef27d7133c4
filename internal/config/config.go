// Package config loads speclower.toml.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"speclower/internal/layout"
	"speclower/internal/specconst"
)

// Config is the decoded speclower.toml. Relative paths are resolved against
// Root.
type Config struct {
	Path string `toml:"-"`
	Root string `toml:"-"`

	Lower  LowerConfig  `toml:"lower"`
	Output OutputConfig `toml:"output"`
	Batch  BatchConfig  `toml:"batch"`
}

type LowerConfig struct {
	Mode   string `toml:"mode"`   // runtime | default
	Target string `toml:"target"` // spir64 | spir32
}

type OutputConfig struct {
	Dir      string `toml:"dir"`
	Metadata bool   `toml:"metadata"`
	Format   string `toml:"format"` // json | toml | pretty
}

type BatchConfig struct {
	Jobs int `toml:"jobs"`
}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Formats accepted by [output].format.
var Formats = []string{"json", "toml", "pretty"}

// Default returns the configuration used when no file is found.
func Default() Config {
	return Config{
		Lower:  LowerConfig{Mode: "runtime", Target: "spir64"},
		Output: OutputConfig{Dir: "out", Metadata: true, Format: "json"},
		Batch:  BatchConfig{Jobs: 0},
	}
}

// Load reads the file at path on top of Default. Keys absent from the file
// keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undec := meta.Undecoded(); len(undec) > 0 {
		keys := make([]string, len(undec))
		for i, k := range undec {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: %w: unknown keys %s", path, ErrInvalid, strings.Join(keys, ", "))
	}
	if meta.IsDefined("output", "dir") && strings.TrimSpace(cfg.Output.Dir) == "" {
		return Config{}, fmt.Errorf("%s: %w: [output].dir is empty", path, ErrInvalid)
	}
	cfg.Path = path
	cfg.Root = filepath.Dir(path)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Discover finds and loads speclower.toml above startDir, falling back to
// Default when there is none.
func Discover(startDir string) (Config, bool, error) {
	path, ok, err := Find(startDir)
	if err != nil || !ok {
		return Default(), false, err
	}
	cfg, err := Load(path)
	if err != nil {
		return Config{}, true, err
	}
	return cfg, true, nil
}

// Validate checks enumerated values and ranges.
func (c Config) Validate() error {
	var errs []error
	if _, err := c.ModeValue(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.TargetValue(); err != nil {
		errs = append(errs, err)
	}
	if !slices.Contains(Formats, c.Output.Format) {
		errs = append(errs, fmt.Errorf("[output].format %q (want %s)", c.Output.Format, strings.Join(Formats, ", ")))
	}
	if c.Batch.Jobs < 0 {
		errs = append(errs, fmt.Errorf("[batch].jobs must not be negative, got %d", c.Batch.Jobs))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// ModeValue parses [lower].mode.
func (c Config) ModeValue() (specconst.Mode, error) {
	m, err := specconst.ParseMode(c.Lower.Mode)
	if err != nil {
		return m, fmt.Errorf("[lower].mode: %w", err)
	}
	return m, nil
}

// TargetValue resolves [lower].target.
func (c Config) TargetValue() (layout.Target, error) {
	return ParseTarget(c.Lower.Target)
}

// ParseTarget maps a target name to its layout description.
func ParseTarget(name string) (layout.Target, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "spir64":
		return layout.SPIR64(), nil
	case "spir32", "spir":
		return layout.SPIR32(), nil
	default:
		return layout.Target{}, fmt.Errorf("[lower].target %q (want spir64 or spir32)", name)
	}
}

// OutputDir returns [output].dir resolved against the config root.
func (c Config) OutputDir() string {
	if c.Root == "" || filepath.IsAbs(c.Output.Dir) {
		return c.Output.Dir
	}
	return filepath.Join(c.Root, c.Output.Dir)
}
