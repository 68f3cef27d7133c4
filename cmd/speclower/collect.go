package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"speclower/internal/diag"
	"speclower/internal/diagfmt"
	"speclower/internal/driver"
)

var collectCmd = &cobra.Command{
	Use:   "collect [flags] <unit.scir|directory>...",
	Short: "Read the spec constant ID mapping back from lowered units",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCollect,
}

func init() {
	collectCmd.Flags().String("format", "pretty", "output format (pretty|json|toml)")
	collectCmd.Flags().String("target", "", "device target (spir64|spir32), overrides [lower].target")
}

// collectDoc is the json and toml form of a collect run.
type collectDoc struct {
	Units []driver.Sidecar `json:"units" toml:"unit"`
}

func runCollect(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return usageError(err)
	}
	switch format {
	case "pretty", "json", "toml":
	default:
		return usageError(fmt.Errorf("unsupported format %q (must be pretty, json or toml)", format))
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return usageError(err)
	}
	if cmd.Flags().Changed("target") {
		if cfg.Lower.Target, err = cmd.Flags().GetString("target"); err != nil {
			return usageError(err)
		}
	}
	target, err := cfg.TargetValue()
	if err != nil {
		return usageError(err)
	}
	maxDiags, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return usageError(err)
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return usageError(err)
	}
	useColor, err := resolveColor(cmd, os.Stdout)
	if err != nil {
		return usageError(err)
	}
	inputs, err := expandInputs(args)
	if err != nil {
		return usageError(err)
	}

	bag := diag.NewBag(0)
	doc := collectDoc{Units: make([]driver.Sidecar, 0, len(inputs))}
	var errs []error
	for _, in := range inputs {
		res, err := driver.Collect(cmd.Context(), in, target, maxDiags)
		if res != nil {
			bag.Merge(res.Bag)
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sc := driver.Sidecar{
			Unit:       in,
			Target:     target.Triple,
			Scalars:    res.Metadata.Scalars,
			Composites: res.Metadata.Composites,
		}
		doc.Units = append(doc.Units, sc)
		if format == "pretty" {
			printMapping(os.Stdout, in, res.Metadata)
		}
	}
	bag.Sort()

	if err := writeCollect(os.Stdout, format, doc); err != nil {
		return failure(err)
	}
	if err := diagfmt.Pretty(os.Stderr, visible(bag, quiet), diagfmt.PrettyOpts{Color: useColor}); err != nil {
		return failure(err)
	}
	if len(errs) > 0 {
		return failure(errors.Join(errs...))
	}
	return nil
}

// writeCollect encodes doc as json or toml; pretty output is printed per unit
// while collecting.
func writeCollect(w io.Writer, format string, doc collectDoc) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "toml":
		return toml.NewEncoder(w).Encode(doc)
	}
	return nil
}
