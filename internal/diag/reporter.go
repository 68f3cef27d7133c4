package diag

// Reporter receives diagnostics from the lowering pass and the metadata
// reader. Neither stops on a report; only the returned error aborts.
type Reporter interface {
	Report(code Code, sev Severity, where Location, msg string, notes []Note)
}

// BagReporter appends every report to Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(code Code, sev Severity, where Location, msg string, notes []Note) {
	if r.Bag != nil {
		r.Bag.Add(Diagnostic{Severity: sev, Code: code, Where: where, Message: msg, Notes: notes})
	}
}

// NopReporter drops everything.
type NopReporter struct{}

func (NopReporter) Report(Code, Severity, Location, string, []Note) {}

// DedupReporter forwards a report only the first time its code, severity,
// location and message are seen. It is not safe for concurrent use; the
// driver keeps one per unit.
type DedupReporter struct {
	next Reporter
	seen map[reportKey]bool
}

type reportKey struct {
	code  Code
	sev   Severity
	where Location
	msg   string
}

func NewDedupReporter(next Reporter) *DedupReporter {
	return &DedupReporter{next: next, seen: map[reportKey]bool{}}
}

func (r *DedupReporter) Report(code Code, sev Severity, where Location, msg string, notes []Note) {
	key := reportKey{code, sev, where, msg}
	if r.seen[key] {
		return
	}
	r.seen[key] = true
	if r.next != nil {
		r.next.Report(code, sev, where, msg, notes)
	}
}

// Pending is a diagnostic under construction. Nothing reaches the reporter
// until Emit.
type Pending struct {
	to      Reporter
	d       Diagnostic
	emitted bool
}

func pending(r Reporter, sev Severity, code Code, where Location, msg string) *Pending {
	return &Pending{to: r, d: New(sev, code, where, msg)}
}

func ReportError(r Reporter, code Code, where Location, msg string) *Pending {
	return pending(r, SevError, code, where, msg)
}

func ReportWarning(r Reporter, code Code, where Location, msg string) *Pending {
	return pending(r, SevWarning, code, where, msg)
}

func ReportInfo(r Reporter, code Code, where Location, msg string) *Pending {
	return pending(r, SevInfo, code, where, msg)
}

// WithNote attaches a secondary location.
func (p *Pending) WithNote(where Location, msg string) *Pending {
	p.d = p.d.WithNote(where, msg)
	return p
}

// Emit reports the diagnostic; later calls do nothing.
func (p *Pending) Emit() {
	if p.emitted || p.to == nil {
		return
	}
	p.emitted = true
	p.to.Report(p.d.Code, p.d.Severity, p.d.Where, p.d.Message, p.d.Notes)
}

// Diagnostic returns what Emit would report.
func (p *Pending) Diagnostic() Diagnostic { return p.d }
