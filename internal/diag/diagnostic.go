package diag

import "fmt"

// Location points at a place in an IR unit. Empty fields are omitted when
// rendered, so a diagnostic may refer to a whole unit or a single call site.
type Location struct {
	Unit  string // input file or module name
	Func  string
	Block string
	Index int // instruction index within Block, -1 when unknown
}

// NoIndex marks a location without an instruction index.
const NoIndex = -1

// At builds a location for an instruction position.
func At(unit, fn, block string, index int) Location {
	return Location{Unit: unit, Func: fn, Block: block, Index: index}
}

// InUnit builds a location that covers a whole unit.
func InUnit(unit string) Location {
	return Location{Unit: unit, Index: NoIndex}
}

func (l Location) String() string {
	s := l.Unit
	if l.Func != "" {
		if s != "" {
			s += ":"
		}
		s += "@" + l.Func
	}
	if l.Block != "" {
		s += ":" + l.Block
		if l.Index >= 0 {
			s += fmt.Sprintf("#%d", l.Index)
		}
	}
	if s == "" {
		return "<module>"
	}
	return s
}

type Note struct {
	Where Location
	Msg   string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Where    Location
	Notes    []Note
}

func New(sev Severity, code Code, where Location, msg string) Diagnostic {
	return Diagnostic{Severity: sev, Code: code, Where: where, Message: msg}
}

func NewError(code Code, where Location, msg string) Diagnostic {
	return New(SevError, code, where, msg)
}

// WithNote returns d with one more note; d itself is unchanged.
func (d Diagnostic) WithNote(where Location, msg string) Diagnostic {
	d.Notes = append(d.Notes[:len(d.Notes):len(d.Notes)], Note{Where: where, Msg: msg})
	return d
}
