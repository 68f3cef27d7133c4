package diag

import (
	"fmt"
	"strings"
)

// FormatShort renders diagnostics one per line in bag order:
// "<SEVERITY> <CODE> <location> <message>". Notes follow their diagnostic
// with severity "note" when includeNotes is set.
func FormatShort(diags []Diagnostic, includeNotes bool) string {
	var b strings.Builder
	for i, d := range diags {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s %s %s %s", severityLabel(d.Severity), d.Code.ID(), d.Where, sanitizeMessage(d.Message))
		if !includeNotes {
			continue
		}
		for _, n := range d.Notes {
			fmt.Fprintf(&b, "\nnote %s %s %s", d.Code.ID(), n.Where, sanitizeMessage(n.Msg))
		}
	}
	return b.String()
}

func severityLabel(s Severity) string {
	return strings.ToLower(s.String())
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", " ")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
