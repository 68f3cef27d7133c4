package specconst

import (
	"errors"
	"fmt"

	"speclower/internal/diag"
	"speclower/internal/ir"
)

var (
	// ErrMalformedPattern reports a symbolic ID argument that is not a string
	// literal reachable through the expected store/load pattern.
	ErrMalformedPattern = errors.New("unexpected spec constant IR pattern")
	// ErrLeafCountMismatch reports a symbolic ID used with types of different shape.
	ErrLeafCountMismatch = errors.New("symbolic ID reused with a different leaf count")
	// ErrIntrinsicSignature reports an existing intrinsic declaration whose
	// signature differs from the one the pass needs.
	ErrIntrinsicSignature = errors.New("intrinsic already declared with another signature")
	// ErrLiveInstruction reports an instruction that still has uses when the
	// pass removes it.
	ErrLiveInstruction = errors.New("removing live instruction")
	// ErrUnsupportedType reports a constant type outside the supported set.
	ErrUnsupportedType = errors.New("spec constant type not implemented")
)

var kinds = []error{
	ErrMalformedPattern,
	ErrLeafCountMismatch,
	ErrIntrinsicSignature,
	ErrLiveInstruction,
	ErrUnsupportedType,
}

// Error is a fatal lowering error. The module must be discarded after it.
type Error struct {
	Kind   error // one of the Err* sentinels
	Where  diag.Location
	Symbol string // symbolic ID, when already known
	Detail string
	Err    error // underlying cause, if any
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Where, e.Kind)
	if e.Symbol != "" {
		msg += fmt.Sprintf(" (symbolic ID %q)", e.Symbol)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Code maps the error kind to its diagnostic code.
func (e *Error) Code() diag.Code {
	switch e.Kind {
	case ErrMalformedPattern:
		return diag.SpcMalformedPattern
	case ErrLeafCountMismatch:
		return diag.SpcLeafCountMismatch
	case ErrIntrinsicSignature:
		return diag.SpcIntrinsicSignature
	case ErrLiveInstruction:
		return diag.SpcLiveInstruction
	case ErrUnsupportedType:
		return diag.SpcUnsupportedType
	default:
		return diag.UnknownCode
	}
}

// Diagnostic renders the error for a diagnostic bag.
func (e *Error) Diagnostic() diag.Diagnostic {
	msg := e.Kind.Error()
	if e.Symbol != "" {
		msg += fmt.Sprintf(" (symbolic ID %q)", e.Symbol)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return diag.NewError(e.Code(), e.Where, msg)
}

func newError(kind error, at *ir.Instr, format string, args ...any) *Error {
	return &Error{Kind: kind, Where: locate("", at), Detail: fmt.Sprintf(format, args...)}
}

// asError turns err into an *Error positioned at the given call site.
func asError(err error, unit string, at *ir.Instr, sym string) *Error {
	var e *Error
	if !errors.As(err, &e) {
		e = &Error{Kind: ErrUnsupportedType, Err: err}
		for _, k := range kinds {
			if errors.Is(err, k) {
				e.Kind = k
				break
			}
		}
		e.Where = locate(unit, at)
	}
	if e.Where.Unit == "" {
		e.Where.Unit = unit
	}
	if e.Where.Func == "" && at != nil {
		e.Where = locate(unit, at)
	}
	if e.Symbol == "" {
		e.Symbol = sym
	}
	return e
}

func locate(unit string, at *ir.Instr) diag.Location {
	loc := diag.InUnit(unit)
	if at == nil || at.Parent == nil {
		return loc
	}
	loc.Block = at.Parent.Name
	loc.Index = at.Parent.Index(at)
	if f := at.Func(); f != nil {
		loc.Func = f.Name
	}
	return loc
}
