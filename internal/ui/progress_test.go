package ui

import (
	"strings"
	"testing"
	"time"

	"speclower/internal/driver"
)

func TestProgressModelTracksUnits(t *testing.T) {
	events := make(chan driver.Event)
	m := NewProgressModel("lowering", []string{"a.scir", "b.scir"}, events).(*progressModel)

	steps := []driver.Event{
		{Unit: "a.scir", Stage: driver.StageLower, Status: driver.StatusWorking},
		{Unit: "b.scir", Stage: driver.StageLoad, Status: driver.StatusCached, Elapsed: 3 * time.Millisecond},
		{Unit: "unknown.scir", Stage: driver.StageLoad, Status: driver.StatusWorking},
	}
	for _, ev := range steps {
		m.Update(eventMsg(ev))
	}

	if got := m.rows[0].label(); got != "lowering" {
		t.Fatalf("expected a.scir lowering, got %q", got)
	}
	if got := m.rows[1].label(); got != "cached" {
		t.Fatalf("expected b.scir cached, got %q", got)
	}
	if got := m.finished(); got != 1 {
		t.Fatalf("expected 1 finished unit, got %d", got)
	}
	if got, want := m.percent(), (0.4+1.0)/2; got != want {
		t.Fatalf("expected percent %v, got %v", want, got)
	}

	view := m.View()
	for _, want := range []string{"lowering (1/2)", "a.scir", "cached", "3ms"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected view to contain %q, got:\n%s", want, view)
		}
	}

	m.Update(doneMsg{})
	if !m.done || !strings.HasPrefix(stripANSI(m.View()), "done: ") {
		t.Fatalf("expected finished view, got:\n%s", m.View())
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"averylongname", 8, "avery..."},
		{"abcdef", 3, "abc"},
		{"日本語ファイル", 7, "日本..."},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Fatalf("truncate(%q, %d): expected %q, got %q", tt.in, tt.width, tt.want, got)
		}
	}
}

func stripANSI(s string) string {
	var b strings.Builder
	esc := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			esc = true
		case esc:
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				esc = false
			}
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
