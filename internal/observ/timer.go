// Package observ times the stages of a lowering run.
package observ

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Phase is one timed step. Depth is 0 for phases begun on the timer itself
// and grows by one each time a timer is merged into another.
type Phase struct {
	Name  string
	Depth int
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer is safe for concurrent use; parallel units merge into the batch
// timer when they finish.
type Timer struct {
	mu     sync.Mutex
	phases []Phase
}

func NewTimer() *Timer { return &Timer{} }

// Begin opens a phase and returns the handle End takes.
func (t *Timer) Begin(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phases = append(t.phases, Phase{Name: name, Start: time.Now()})
	return len(t.phases) - 1
}

// End closes the phase idx. Unknown handles are ignored.
func (t *Timer) End(idx int, note string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx >= 0 && idx < len(t.phases) {
		t.phases[idx].Dur = time.Since(t.phases[idx].Start)
		t.phases[idx].Note = note
	}
}

// Phases returns a copy of the recorded phases.
func (t *Timer) Phases() []Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Phase(nil), t.phases...)
}

// Merge nests the phases of other under prefix.
func (t *Timer) Merge(prefix string, other *Timer) {
	if other == nil {
		return
	}
	nested := other.Phases()
	for i := range nested {
		nested[i].Depth++
		if prefix != "" {
			nested[i].Name = prefix + "/" + nested[i].Name
		}
	}
	t.mu.Lock()
	t.phases = append(t.phases, nested...)
	t.mu.Unlock()
}

// PhaseReport is one phase in milliseconds.
type PhaseReport struct {
	Name       string  `json:"name"`
	Depth      int     `json:"depth,omitempty"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report is the serialisable form of a Timer. TotalMS counts top-level
// phases only, since nested ones already run inside them.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

func (t *Timer) Report() Report {
	var rep Report
	var total time.Duration
	for _, p := range t.Phases() {
		if p.Depth == 0 {
			total += p.Dur
		}
		rep.Phases = append(rep.Phases, PhaseReport{
			Name:       p.Name,
			Depth:      p.Depth,
			DurationMS: millis(p.Dur),
			Note:       p.Note,
		})
	}
	rep.TotalMS = millis(total)
	return rep
}

// Summary renders the report as an indented table ending in a total line.
func (t *Timer) Summary() string {
	rep := t.Report()
	label := func(p PhaseReport) string { return strings.Repeat("  ", p.Depth) + p.Name }
	width := len("total")
	for _, p := range rep.Phases {
		width = max(width, len(label(p)))
	}
	var sb strings.Builder
	for _, p := range rep.Phases {
		fmt.Fprintf(&sb, "%-*s %8.2f ms", width, label(p), p.DurationMS)
		if p.Note != "" {
			fmt.Fprintf(&sb, "  (%s)", p.Note)
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "%-*s %8.2f ms\n", width, "total", rep.TotalMS)
	return sb.String()
}

func millis(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }
