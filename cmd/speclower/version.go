package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"speclower/internal/version"
)

var versionFlags struct {
	format string
	hash   bool
	date   bool
	full   bool
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show speclower build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		info := version.Get()
		if !versionFlags.hash && !versionFlags.full {
			info.GitCommit = ""
		}
		if !versionFlags.date && !versionFlags.full {
			info.BuildDate = ""
		}
		out := cmd.OutOrStdout()
		switch strings.ToLower(versionFlags.format) {
		case "json":
			return writeVersionJSON(out, info)
		case "pretty":
			if _, err := resolveColor(cmd, out); err != nil {
				return usageError(err)
			}
			writeVersionPretty(out, info)
			return nil
		}
		return usageError(fmt.Errorf("unsupported format %q (must be pretty or json)", versionFlags.format))
	},
}

func init() {
	f := versionCmd.Flags()
	f.BoolVar(&versionFlags.hash, "hash", false, "include git commit hash")
	f.BoolVar(&versionFlags.date, "date", false, "include build timestamp")
	f.BoolVar(&versionFlags.full, "full", false, "show every recorded bit of build metadata")
	f.StringVar(&versionFlags.format, "format", "pretty", "output format (pretty|json)")
}

func writeVersionPretty(w io.Writer, info version.Info) {
	fmt.Fprintln(w, "speclower", version.Colored())
	for _, row := range [][2]string{{"commit", info.GitCommit}, {"built", info.BuildDate}} {
		if row[1] != "" {
			fmt.Fprintf(w, "%-7s %s\n", row[0]+":", dimColor.Sprint(row[1]))
		}
	}
}

func writeVersionJSON(w io.Writer, info version.Info) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Tool string `json:"tool"`
		version.Info
	}{"speclower", info})
}
