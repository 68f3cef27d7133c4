package main

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"speclower/internal/config"
	"speclower/internal/diag"
	"speclower/internal/diagfmt"
	"speclower/internal/driver"
)

var lowerCmd = &cobra.Command{
	Use:   "lower [flags] <unit.scir|directory>...",
	Short: "Lower specialization constant accessors in IR units",
	Long: `Lower rewrites every accessor call in the given units and writes the
lowered modules. In runtime mode each symbolic ID gets numeric IDs and the
calls become SPIR-V spec constant intrinsics; in default mode they become
the zero value of their type.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLower,
}

func init() {
	f := lowerCmd.Flags()
	f.String("mode", "", "lowering mode (runtime|default), overrides [lower].mode")
	f.String("target", "", "device target (spir64|spir32), overrides [lower].target")
	f.String("out-dir", "", "output directory, overrides [output].dir; empty writes next to each input")
	f.Bool("metadata", true, "write an ID mapping sidecar per unit, overrides [output].metadata")
	f.String("format", "", "report and sidecar format (pretty|json|toml), overrides [output].format")
	f.Int("jobs", 0, "max parallel units (0=auto), overrides [batch].jobs")
	f.String("ui", "auto", "progress view (auto|on|off)")
	f.Bool("no-cache", false, "disable the lowering cache")
	f.Bool("clear-cache", false, "drop every cached result before lowering")
}

// lowerSettings is the merge of speclower.toml and command-line flags.
type lowerSettings struct {
	cfg        config.Config
	ui         uiMode
	noCache    bool
	clearCache bool
	quiet      bool
	timings    bool
	maxDiags   int
}

// applyLowerFlags overrides cfg with every flag the user set explicitly.
func applyLowerFlags(cmd *cobra.Command, cfg config.Config) (lowerSettings, error) {
	s := lowerSettings{cfg: cfg}
	f := cmd.Flags()
	var err error
	if f.Changed("mode") {
		if s.cfg.Lower.Mode, err = f.GetString("mode"); err != nil {
			return s, err
		}
	}
	if f.Changed("target") {
		if s.cfg.Lower.Target, err = f.GetString("target"); err != nil {
			return s, err
		}
	}
	if f.Changed("out-dir") {
		if s.cfg.Output.Dir, err = f.GetString("out-dir"); err != nil {
			return s, err
		}
		// flag paths are relative to the working directory
		s.cfg.Root = ""
	}
	if f.Changed("metadata") {
		if s.cfg.Output.Metadata, err = f.GetBool("metadata"); err != nil {
			return s, err
		}
	}
	if f.Changed("format") {
		if s.cfg.Output.Format, err = f.GetString("format"); err != nil {
			return s, err
		}
	}
	if f.Changed("jobs") {
		if s.cfg.Batch.Jobs, err = f.GetInt("jobs"); err != nil {
			return s, err
		}
	}
	if err := s.cfg.Validate(); err != nil {
		return s, err
	}

	uiValue, err := f.GetString("ui")
	if err != nil {
		return s, err
	}
	if s.ui, err = readUIMode(uiValue); err != nil {
		return s, err
	}
	if s.noCache, err = f.GetBool("no-cache"); err != nil {
		return s, err
	}
	if s.clearCache, err = f.GetBool("clear-cache"); err != nil {
		return s, err
	}
	pf := cmd.Root().PersistentFlags()
	if s.quiet, err = pf.GetBool("quiet"); err != nil {
		return s, err
	}
	if s.timings, err = pf.GetBool("timings"); err != nil {
		return s, err
	}
	if s.maxDiags, err = pf.GetInt("max-diagnostics"); err != nil {
		return s, err
	}
	return s, nil
}

// sidecarFormat maps [output].format to the sidecar encoding.
func sidecarFormat(format string) string {
	if format == "toml" {
		return "toml"
	}
	return "json"
}

func runLower(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return usageError(err)
	}
	s, err := applyLowerFlags(cmd, cfg)
	if err != nil {
		return usageError(err)
	}
	mode, err := s.cfg.ModeValue()
	if err != nil {
		return usageError(err)
	}
	target, err := s.cfg.TargetValue()
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

	var cache *driver.Cache
	if !s.noCache {
		if cache, err = driver.OpenCache("speclower"); err != nil {
			fmt.Fprintf(os.Stderr, "warning: lowering cache disabled: %v\n", err)
			cache = nil
		}
	}
	if cache != nil && s.clearCache {
		if err := cache.DropAll(); err != nil {
			return failure(fmt.Errorf("clear cache: %w", err))
		}
	}

	outDir := ""
	if s.cfg.Output.Dir != "" {
		outDir = s.cfg.OutputDir()
	}
	req := driver.Request{
		Inputs:         inputs,
		OutDir:         outDir,
		Mode:           mode,
		Target:         target,
		Metadata:       s.cfg.Output.Metadata,
		MetadataFormat: sidecarFormat(s.cfg.Output.Format),
		Jobs:           s.cfg.Batch.Jobs,
		MaxDiagnostics: s.maxDiags,
		Cache:          cache,
	}

	var rep *driver.Report
	if !s.quiet && shouldUseTUI(s.ui) {
		rep, err = runLowerWithUI(cmd.Context(), fmt.Sprintf("lowering (%s)", mode), req)
	} else {
		rep, err = driver.Lower(cmd.Context(), req)
	}

	bag := diag.NewBag(0)
	if rep != nil {
		bag = rep.Bag()
	}

	switch s.cfg.Output.Format {
	case "json":
		if encErr := writeLowerJSON(os.Stdout, rep, bag, err); encErr != nil {
			return failure(encErr)
		}
	default:
		if rep != nil && !s.quiet {
			printLowerReport(os.Stdout, rep)
		}
		if perr := diagfmt.Pretty(os.Stderr, visible(bag, s.quiet), diagfmt.PrettyOpts{Color: useColor, ShowNotes: true}); perr != nil {
			return failure(perr)
		}
	}
	if s.timings && rep != nil {
		printTimings(os.Stderr, rep.Timer)
	}

	if err != nil {
		return failure(err)
	}
	if bag.HasErrors() {
		return reported()
	}
	return nil
}

// visible drops informational diagnostics in quiet mode.
func visible(bag *diag.Bag, quiet bool) *diag.Bag {
	if !quiet {
		return bag
	}
	out := diag.NewBag(bag.Len())
	for _, d := range bag.Items() {
		if d.Severity.AtLeast(diag.SevWarning) {
			out.Add(d)
		}
	}
	return out
}

type unitJSON struct {
	Input     string              `json:"input"`
	Output    string              `json:"output,omitempty"`
	Sidecar   string              `json:"sidecar,omitempty"`
	Cached    bool                `json:"cached,omitempty"`
	Modified  bool                `json:"modified"`
	CallSites int                 `json:"call_sites"`
	Assigned  map[string][]uint32 `json:"assigned,omitempty"`
}

type lowerJSON struct {
	Units       []unitJSON                `json:"units"`
	Error       string                    `json:"error,omitempty"`
	Diagnostics diagfmt.DiagnosticsOutput `json:"diagnostics"`
}

func writeLowerJSON(out *os.File, rep *driver.Report, bag *diag.Bag, runErr error) error {
	doc := lowerJSON{Units: []unitJSON{}, Diagnostics: diagfmt.BuildDiagnosticsOutput(bag, diagfmt.JSONOpts{IncludeNotes: true})}
	if rep != nil {
		for _, u := range rep.Units {
			if u.Input == "" {
				// never started
				continue
			}
			doc.Units = append(doc.Units, unitJSON{
				Input:     u.Input,
				Output:    u.Output,
				Sidecar:   u.Sidecar,
				Cached:    u.Cached,
				Modified:  u.Lowering.Modified,
				CallSites: u.Lowering.CallSites,
				Assigned:  u.Lowering.Assigned,
			})
		}
	}
	if runErr != nil {
		doc.Error = runErr.Error()
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// assignedSymbols lists the symbols of a unit in first-assignment order,
// falling back to sorted order for cached results without one.
func assignedSymbols(u *driver.UnitResult) []string {
	if len(u.Lowering.Symbols) > 0 {
		return u.Lowering.Symbols
	}
	syms := make([]string, 0, len(u.Lowering.Assigned))
	for sym := range u.Lowering.Assigned {
		syms = append(syms, sym)
	}
	slices.Sort(syms)
	return syms
}
