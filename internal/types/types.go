package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindVoid
	KindInt
	KindFloat
	KindPointer
	KindArray
	KindVector
	KindStruct
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindVoid:    "void",
	KindInt:     "int",
	KindFloat:   "float",
	KindPointer: "pointer",
	KindArray:   "array",
	KindVector:  "vector",
	KindStruct:  "struct",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Width captures the precision of integers/floats in bits.
type Width uint8

const (
	Width1  Width = 1
	Width8  Width = 8
	Width16 Width = 16
	Width32 Width = 32
	Width64 Width = 64
)

// Type is a compact descriptor for any supported type.
type Type struct {
	Kind      Kind
	Elem      TypeID // for pointers, arrays and vectors
	Count     uint32 // for arrays and vectors
	Width     Width  // for numeric primitives
	AddrSpace uint32 // for pointers
	Payload   uint32 // struct info slot
}

// MakeInt describes an integer of the given bit width.
func MakeInt(width Width) Type {
	return Type{Kind: KindInt, Width: width}
}

// MakeFloat describes a floating-point type (32 or 64 bits).
func MakeFloat(width Width) Type {
	return Type{Kind: KindFloat, Width: width}
}

// MakePointer describes a typed pointer in the given address space.
func MakePointer(elem TypeID, addrSpace uint32) Type {
	return Type{Kind: KindPointer, Elem: elem, AddrSpace: addrSpace}
}

// MakeArray describes a fixed-size array.
func MakeArray(elem TypeID, count uint32) Type {
	return Type{Kind: KindArray, Elem: elem, Count: count}
}

// MakeVector describes a fixed-size vector.
func MakeVector(elem TypeID, count uint32) Type {
	return Type{Kind: KindVector, Elem: elem, Count: count}
}

// IsScalar reports whether the kind is a numeric leaf.
func (t Type) IsScalar() bool {
	return t.Kind == KindInt || t.Kind == KindFloat
}

// IsAggregate reports whether the type has members a composite spec
// constant can be built from.
func (t Type) IsAggregate() bool {
	return t.Kind == KindArray || t.Kind == KindVector || t.Kind == KindStruct
}
