package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"speclower/internal/ir"
	"speclower/internal/irfile"
	"speclower/internal/layout"
	"speclower/internal/types"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [flags] <unit.scir>",
	Short: "Print an IR unit in textual form",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().Bool("no-metadata", false, "omit instruction metadata")
	dumpCmd.Flags().Bool("layout", false, "print the ABI layout of named structs instead of the module")
	dumpCmd.Flags().String("target", "", "device target for --layout (spir64|spir32), overrides [lower].target")
}

func runDump(cmd *cobra.Command, args []string) error {
	noMetadata, err := cmd.Flags().GetBool("no-metadata")
	if err != nil {
		return usageError(err)
	}
	showLayout, err := cmd.Flags().GetBool("layout")
	if err != nil {
		return usageError(err)
	}
	if _, err := resolveColor(cmd, os.Stdout); err != nil {
		return usageError(err)
	}

	m, err := irfile.ReadFile(args[0])
	if err != nil {
		return failure(err)
	}
	if !showLayout {
		if err := ir.Dump(os.Stdout, m, ir.DumpOptions{NoMetadata: noMetadata}); err != nil {
			return failure(err)
		}
		return nil
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
	if err := printStructLayouts(os.Stdout, m.Types, target); err != nil {
		return failure(err)
	}
	return nil
}

// printStructLayouts lists every named struct with its size and alignment
// and the offset of each field on target.
func printStructLayouts(w io.Writer, in *types.Interner, target layout.Target) error {
	le := layout.New(target, in)
	fmt.Fprintf(w, "%s %s\n", headerColor.Sprint("target"), target.Triple)
	for i := 1; i < in.Len(); i++ {
		id := types.TypeID(i) //nolint:gosec // bounded by Len
		info, ok := in.StructInfo(id)
		if !ok || info.Name == "" {
			continue
		}
		tl, err := le.LayoutOf(id)
		if err != nil {
			fmt.Fprintf(w, "%%%s: %v\n", info.Name, err)
			continue
		}
		fmt.Fprintf(w, "%s size=%d align=%d\n", symColor.Sprintf("%%%s", info.Name), tl.Size, tl.Align)
		rows := make([][]string, 0, len(info.Fields))
		for k, f := range info.Fields {
			off, err := le.FieldOffset(id, k)
			if err != nil {
				return err
			}
			size, err := le.SizeOf(f)
			if err != nil {
				return err
			}
			rows = append(rows, []string{fmt.Sprint(k), in.String(f), fmt.Sprint(off), fmt.Sprint(size)})
		}
		if len(rows) > 0 {
			writeTable(w, "  ", []string{"#", "TYPE", "OFFSET", "SIZE"}, rows)
		}
	}
	return nil
}
