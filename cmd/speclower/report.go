package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"speclower/internal/driver"
	"speclower/internal/specconst"
)

var (
	headerColor = color.New(color.Bold)
	symColor    = color.New(color.FgCyan)
	dimColor    = color.New(color.Faint)
	okColor     = color.New(color.FgGreen)
)

// printLowerReport writes one block per unit: the output path, the call site
// count and, in runtime mode, the IDs given to each symbol.
func printLowerReport(w io.Writer, rep *driver.Report) {
	for i := range rep.Units {
		u := &rep.Units[i]
		if u.Input == "" {
			continue
		}
		status := okColor.Sprint("lowered")
		if u.Cached {
			status = okColor.Sprint("cached")
		}
		if !u.Lowering.Modified {
			status = dimColor.Sprint("unchanged")
		}
		fmt.Fprintf(w, "%s %s -> %s (%d call sites)\n", status, u.Input, u.Output, u.Lowering.CallSites)
		syms := assignedSymbols(u)
		if len(syms) == 0 {
			continue
		}
		rows := make([][]string, 0, len(syms))
		for _, sym := range syms {
			rows = append(rows, []string{sym, formatIDs(u.Lowering.Assigned[sym])})
		}
		writeTable(w, "  ", []string{"SYMBOL", "IDS"}, rows)
	}
}

// printMapping renders collected metadata as a table of symbols with their
// element descriptors.
func printMapping(w io.Writer, unit string, md specconst.Metadata) {
	fmt.Fprintf(w, "%s %s (%d symbols)\n", headerColor.Sprint("unit"), unit, md.Len())
	if md.Len() == 0 {
		return
	}
	var rows [][]string
	for _, sym := range md.Symbols() {
		if id, ok := md.Scalars[sym]; ok {
			rows = append(rows, []string{sym, "scalar", fmt.Sprint(id), "", ""})
			continue
		}
		for i, el := range md.Composites[sym] {
			name := sym
			if i > 0 {
				name = ""
			}
			rows = append(rows, []string{name, "composite", fmt.Sprint(el.ID), fmt.Sprint(el.Offset), fmt.Sprint(el.Size)})
		}
	}
	writeTable(w, "  ", []string{"SYMBOL", "KIND", "ID", "OFFSET", "SIZE"}, rows)
}

// writeTable pads columns by display width so that wide runes in symbolic
// IDs keep the columns aligned. The first column is colored.
func writeTable(w io.Writer, indent string, header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	line := func(cells []string, first *color.Color, rest *color.Color) {
		var b strings.Builder
		b.WriteString(indent)
		for i, cell := range cells {
			padded := runewidth.FillRight(cell, widths[i])
			if i == len(cells)-1 {
				padded = cell
			}
			switch {
			case i == 0 && first != nil:
				b.WriteString(first.Sprint(padded))
			case rest != nil:
				b.WriteString(rest.Sprint(padded))
			default:
				b.WriteString(padded)
			}
			if i < len(cells)-1 {
				b.WriteString("  ")
			}
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}
	line(header, dimColor, dimColor)
	for _, row := range rows {
		line(row, symColor, nil)
	}
}

func formatIDs(ids []uint32) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ", ")
}
