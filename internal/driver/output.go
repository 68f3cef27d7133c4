package driver

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"speclower/internal/irfile"
	"speclower/internal/specconst"
)

// Sidecar is the metadata file written next to a lowered module.
type Sidecar struct {
	Unit       string                                   `json:"unit" toml:"unit"`
	Mode       string                                   `json:"mode" toml:"mode"`
	Target     string                                   `json:"target" toml:"target"`
	Scalars    map[string]uint32                        `json:"scalars" toml:"scalars"`
	Composites map[string][]specconst.ElementDescriptor `json:"composites" toml:"composites"`
}

// EncodeSidecar writes sc as "json" or "toml".
func EncodeSidecar(w io.Writer, format string, sc *Sidecar) error {
	switch format {
	case "toml":
		return toml.NewEncoder(w).Encode(sc)
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sc)
	default:
		return fmt.Errorf("unknown metadata format %q", format)
	}
}

// DecodeSidecar reads a sidecar written by EncodeSidecar.
func DecodeSidecar(r io.Reader, format string) (*Sidecar, error) {
	var sc Sidecar
	switch format {
	case "toml":
		if _, err := toml.NewDecoder(r).Decode(&sc); err != nil {
			return nil, err
		}
	case "json", "":
		if err := json.NewDecoder(r).Decode(&sc); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown metadata format %q", format)
	}
	return &sc, nil
}

// sidecarExt maps a sidecar format to its file extension.
func sidecarExt(format string) string {
	if format == "toml" {
		return ".spec.toml"
	}
	return ".spec.json"
}

type unitPlan struct {
	input   string
	output  string
	sidecar string
}

// planOutputs maps every input to its output paths. Without an output
// directory the lowered module goes next to its input as <name>.lowered.scir.
func planOutputs(req *Request) ([]unitPlan, error) {
	plans := make([]unitPlan, 0, len(req.Inputs))
	seen := make(map[string]string, len(req.Inputs))
	for _, in := range req.Inputs {
		base := strings.TrimSuffix(filepath.Base(in), irfile.Ext)
		var out string
		if req.OutDir == "" {
			out = filepath.Join(filepath.Dir(in), base+".lowered"+irfile.Ext)
		} else {
			out = filepath.Join(req.OutDir, base+irfile.Ext)
		}
		absIn, err := filepath.Abs(in)
		if err != nil {
			return nil, err
		}
		absOut, err := filepath.Abs(out)
		if err != nil {
			return nil, err
		}
		if absIn == absOut {
			return nil, fmt.Errorf("%s: output would overwrite the input", in)
		}
		if prev, ok := seen[absOut]; ok {
			return nil, fmt.Errorf("%s and %s both write %s", prev, in, out)
		}
		seen[absOut] = in
		p := unitPlan{input: in, output: out}
		if req.Metadata {
			p.sidecar = strings.TrimSuffix(out, irfile.Ext) + sidecarExt(req.MetadataFormat)
		}
		plans = append(plans, p)
	}
	return plans, nil
}

// writeAtomic replaces path with the bytes produced by fill.
func writeAtomic(path string, fill func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				err = errors.Join(err, rmErr)
			}
		}
	}()
	w := bufio.NewWriter(f)
	if err = fill(w); err != nil {
		_ = f.Close()
		return err
	}
	if err = w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}
