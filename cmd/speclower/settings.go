package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"speclower/internal/config"
	"speclower/internal/irfile"
)

// loadConfig returns the configuration named by --config, or the nearest
// speclower.toml above the working directory, or the defaults.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	if path != "" {
		return config.Load(path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return config.Config{}, err
	}
	cfg, _, err := config.Discover(wd)
	return cfg, err
}

// resolveColor reads --color and applies it to fatih/color globally.
func resolveColor(cmd *cobra.Command, out io.Writer) (bool, error) {
	value, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false, err
	}
	var on bool
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on":
		on = true
	case "off":
		on = false
	case "", "auto":
		on = isTerminal(out)
	default:
		return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", value)
	}
	color.NoColor = !on
	return on, nil
}

// expandInputs turns file and directory arguments into a sorted, duplicate
// free list of unit paths. Directories contribute their *.scir files, not
// recursively.
func expandInputs(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, filepath.Clean(arg))
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		n := len(out)
		for _, e := range entries {
			if e.Type().IsRegular() && strings.HasSuffix(e.Name(), irfile.Ext) && !isDerived(e.Name()) {
				out = append(out, filepath.Join(arg, e.Name()))
			}
		}
		if len(out) == n {
			return nil, fmt.Errorf("%s: no %s units", arg, irfile.Ext)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no input units")
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// isDerived reports whether name is an output of a previous lowering run
// written next to its input.
func isDerived(name string) bool {
	return strings.HasSuffix(name, ".lowered"+irfile.Ext)
}
