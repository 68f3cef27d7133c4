package diagfmt

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"speclower/internal/diag"
)

// Pretty writes diagnostics for humans, one header line each:
//
//	<location>: <SEV> <CODE>: <message>
//
// followed by indented notes when opts.ShowNotes is set. The bag is expected
// to be sorted already.
func Pretty(w io.Writer, bag *diag.Bag, opts PrettyOpts) error {
	if bag == nil {
		return nil
	}
	p := newPalette(opts.Color)
	for _, d := range bag.Items() {
		where := relocate(d.Where, opts.PathMode, opts.BaseDir)
		if _, err := fmt.Fprintf(w, "%s: %s %s: %s\n",
			p.loc.Sprint(where.String()),
			p.severity(d.Severity).Sprint(d.Severity.String()),
			p.code.Sprint(d.Code.ID()),
			d.Message,
		); err != nil {
			return err
		}
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			nw := relocate(n.Where, opts.PathMode, opts.BaseDir)
			if _, err := fmt.Fprintf(w, "  %s %s: %s\n", p.note.Sprint("note:"), nw.String(), n.Msg); err != nil {
				return err
			}
		}
	}
	return nil
}

type palette struct {
	loc, code, note     *color.Color
	info, warning, fail *color.Color
}

func newPalette(enabled bool) palette {
	mk := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}
	return palette{
		loc:     mk(color.Bold),
		code:    mk(color.FgMagenta),
		note:    mk(color.FgCyan),
		info:    mk(color.FgBlue, color.Bold),
		warning: mk(color.FgYellow, color.Bold),
		fail:    mk(color.FgRed, color.Bold),
	}
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.fail
	case diag.SevWarning:
		return p.warning
	default:
		return p.info
	}
}
