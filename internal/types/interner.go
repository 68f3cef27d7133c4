package types

import (
	"fmt"
	"strings"

	"fortio.org/safecast"
)

// Builtins stores TypeIDs for common primitive types.
type Builtins struct {
	Invalid TypeID
	Void    TypeID
	I1      TypeID
	I8      TypeID
	I16     TypeID
	I32     TypeID
	I64     TypeID
	F32     TypeID
	F64     TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
type Interner struct {
	types    []Type
	index    map[typeKey]TypeID
	builtins Builtins
	structs  []StructInfo
	named    map[string]TypeID
	literals map[string]TypeID
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		index:    make(map[typeKey]TypeID, 64),
		named:    make(map[string]TypeID, 16),
		literals: make(map[string]TypeID, 16),
	}
	in.structs = append(in.structs, StructInfo{}) // reserve 0 as invalid sentinel
	in.builtins.Invalid = in.internRaw(Type{Kind: KindInvalid})
	in.builtins.Void = in.Intern(Type{Kind: KindVoid})
	in.builtins.I1 = in.Intern(MakeInt(Width1))
	in.builtins.I8 = in.Intern(MakeInt(Width8))
	in.builtins.I16 = in.Intern(MakeInt(Width16))
	in.builtins.I32 = in.Intern(MakeInt(Width32))
	in.builtins.I64 = in.Intern(MakeInt(Width64))
	in.builtins.F32 = in.Intern(MakeFloat(Width32))
	in.builtins.F64 = in.Intern(MakeFloat(Width64))
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID.
// Struct types are not interned here; use RegisterStruct or LiteralStruct.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid || t.Kind == KindStruct {
		return NoTypeID
	}
	key := typeKey(t)
	if id, ok := in.index[key]; ok {
		return id
	}
	return in.internRaw(t)
}

// internRaw adds the descriptor to the storage without consulting the map.
func (in *Interner) internRaw(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	in.index[typeKey(t)] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if in == nil || id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

// Len returns the number of slots, including the invalid sentinel.
func (in *Interner) Len() int {
	if in == nil {
		return 0
	}
	return len(in.types)
}

// String renders the type in LLVM-like notation.
func (in *Interner) String(id TypeID) string {
	var sb strings.Builder
	in.writeType(&sb, id)
	return sb.String()
}

func (in *Interner) writeType(sb *strings.Builder, id TypeID) {
	tt, ok := in.Lookup(id)
	if !ok {
		sb.WriteString("<invalid>")
		return
	}
	switch tt.Kind {
	case KindVoid:
		sb.WriteString("void")
	case KindInt:
		fmt.Fprintf(sb, "i%d", tt.Width)
	case KindFloat:
		if tt.Width == Width64 {
			sb.WriteString("double")
		} else {
			sb.WriteString("float")
		}
	case KindPointer:
		in.writeType(sb, tt.Elem)
		if tt.AddrSpace != 0 {
			fmt.Fprintf(sb, " addrspace(%d)", tt.AddrSpace)
		}
		sb.WriteString("*")
	case KindArray:
		fmt.Fprintf(sb, "[%d x ", tt.Count)
		in.writeType(sb, tt.Elem)
		sb.WriteString("]")
	case KindVector:
		fmt.Fprintf(sb, "<%d x ", tt.Count)
		in.writeType(sb, tt.Elem)
		sb.WriteString(">")
	case KindStruct:
		info := in.structInfo(id)
		if info != nil && info.Name != "" {
			sb.WriteString("%")
			sb.WriteString(info.Name)
			return
		}
		sb.WriteString("{ ")
		if info != nil {
			for i, f := range info.Fields {
				if i > 0 {
					sb.WriteString(", ")
				}
				in.writeType(sb, f)
			}
		}
		sb.WriteString(" }")
	default:
		sb.WriteString(tt.Kind.String())
	}
}

type typeKey struct {
	Kind      Kind
	Elem      TypeID
	Count     uint32
	Width     Width
	AddrSpace uint32
	Payload   uint32
}
