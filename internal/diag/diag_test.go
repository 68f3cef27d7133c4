package diag

import (
	"strings"
	"testing"
)

func TestBagLimitAndSort(t *testing.T) {
	b := NewBag(3)
	r := BagReporter{Bag: b}
	ReportInfo(r, SpcUnusedAccessor, At("b.scir", "k", "entry", 2), "unused").Emit()
	ReportWarning(r, ColNotNormalized, At("a.scir", "k", "entry", 5), "nfc").Emit()
	ReportError(r, SpcMalformedPattern, At("a.scir", "k", "entry", 5), "bad").Emit()
	ReportInfo(r, SpcInfo, InUnit("c.scir"), "dropped").Emit()

	if b.Len() != 3 {
		t.Fatalf("expected 3 diagnostics, got %d", b.Len())
	}
	if !b.HasErrors() || !b.HasWarnings() {
		t.Fatalf("expected errors and warnings")
	}
	b.Sort()
	got := []Code{b.Items()[0].Code, b.Items()[1].Code, b.Items()[2].Code}
	want := []Code{SpcMalformedPattern, ColNotNormalized, SpcUnusedAccessor}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i].ID(), got[i].ID())
		}
	}
}

func TestPendingEmitsOnce(t *testing.T) {
	b := NewBag(10)
	rb := ReportWarning(BagReporter{Bag: b}, ColMalformedAnnotation, InUnit("u"), "x").
		WithNote(At("u", "f", "entry", 0), "here")
	rb.Emit()
	rb.Emit()
	if b.Len() != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", b.Len())
	}
	if len(b.Items()[0].Notes) != 1 {
		t.Fatalf("expected 1 note, got %d", len(b.Items()[0].Notes))
	}
}

func TestDedupReporter(t *testing.T) {
	b := NewBag(10)
	r := NewDedupReporter(BagReporter{Bag: b})
	for range 3 {
		r.Report(ColDuplicateSymbol, SevWarning, InUnit("u"), "dup", nil)
	}
	r.Report(ColDuplicateSymbol, SevWarning, InUnit("v"), "dup", nil)
	if b.Len() != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", b.Len())
	}
}

func TestCodeIDs(t *testing.T) {
	tests := []struct {
		code Code
		want string
	}{
		{SpcMalformedPattern, "SPC1010"},
		{ColNotNormalized, "COL2002"},
		{IRInvalid, "IR3001"},
		{IOLoadFileError, "IO4001"},
		{CfgInvalid, "CFG5001"},
		{UnknownCode, "E0000"},
	}
	for _, tt := range tests {
		if got := tt.code.ID(); got != tt.want {
			t.Fatalf("expected %s, got %s", tt.want, got)
		}
	}
}

func TestFormatShort(t *testing.T) {
	d := New(SevWarning, ColNotNormalized, At("a.scir", "k", "entry", 1), "symbolic ID\n\"Cafe\"").
		WithNote(At("a.scir", "k", "entry", 3), "also here")
	out := FormatShort([]Diagnostic{d}, true)
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", out)
	}
	if lines[0] != `warning COL2002 a.scir:@k:entry#1 symbolic ID "Cafe"` {
		t.Fatalf("unexpected line: %q", lines[0])
	}
	if lines[1] != "note COL2002 a.scir:@k:entry#3 also here" {
		t.Fatalf("unexpected note: %q", lines[1])
	}
}
