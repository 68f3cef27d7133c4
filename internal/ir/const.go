package ir

import (
	"math"
	"slices"

	"speclower/internal/types"
)

// ConstKind distinguishes constant kinds.
type ConstKind uint8

const (
	// ConstInt is an integer constant; Int holds the zero-extended bits.
	ConstInt ConstKind = iota
	// ConstFloat is a floating-point constant.
	ConstFloat
	// ConstAggregate is an array, vector or struct constant built from Elems.
	ConstAggregate
	// ConstBytes is a character array constant (i8 array) stored as raw bytes.
	ConstBytes
)

// Const is an immutable constant value.
type Const struct {
	Kind  ConstKind
	Typ   types.TypeID
	Int   uint64
	Float float64
	Elems []*Const
	Bytes []byte
}

// Type returns the type of the constant.
func (c *Const) Type() types.TypeID { return c.Typ }
func (*Const) isValue()             {}

// NewInt returns an integer constant of the given type.
func NewInt(typ types.TypeID, v uint64) *Const {
	return &Const{Kind: ConstInt, Typ: typ, Int: v}
}

// NewFloat returns a floating-point constant of the given type.
func NewFloat(typ types.TypeID, v float64) *Const {
	return &Const{Kind: ConstFloat, Typ: typ, Float: v}
}

// NewAggregate returns an array, vector or struct constant.
func NewAggregate(typ types.TypeID, elems ...*Const) *Const {
	return &Const{Kind: ConstAggregate, Typ: typ, Elems: slices.Clone(elems)}
}

// NewBytes returns a character array constant.
func NewBytes(typ types.TypeID, data []byte) *Const {
	return &Const{Kind: ConstBytes, Typ: typ, Bytes: slices.Clone(data)}
}

// IsZero reports whether every scalar leaf of the constant is the canonical
// zero: integer 0 or floating-point +0.0.
func (c *Const) IsZero() bool {
	if c == nil {
		return false
	}
	switch c.Kind {
	case ConstInt:
		return c.Int == 0
	case ConstFloat:
		return c.Float == 0 && !math.Signbit(c.Float)
	case ConstAggregate:
		for _, e := range c.Elems {
			if !e.IsZero() {
				return false
			}
		}
		return true
	case ConstBytes:
		for _, b := range c.Bytes {
			if b != 0 {
				return false
			}
		}
		return true
	default:
		return false
	}
}
