package types

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

// StructInfo stores metadata for a struct type. Name is empty for literal structs.
type StructInfo struct {
	Name   string
	Fields []TypeID
}

// RegisterStruct returns the TypeID of the named struct, allocating a slot on
// first use. Named structs are identified by name; fields are set separately.
func (in *Interner) RegisterStruct(name string) TypeID {
	if id, ok := in.named[name]; ok {
		return id
	}
	slot := in.appendStructInfo(StructInfo{Name: name})
	id := in.internRaw(Type{Kind: KindStruct, Payload: slot})
	in.named[name] = id
	return id
}

// SetStructFields stores the field types for a named struct.
func (in *Interner) SetStructFields(typeID TypeID, fields []TypeID) {
	info := in.structInfo(typeID)
	if info == nil {
		return
	}
	info.Fields = slices.Clone(fields)
}

// NamedStruct looks up a registered struct by name.
func (in *Interner) NamedStruct(name string) (TypeID, bool) {
	id, ok := in.named[name]
	return id, ok
}

// LiteralStruct interns an anonymous struct by its field list.
func (in *Interner) LiteralStruct(fields []TypeID) TypeID {
	key := literalKey(fields)
	if id, ok := in.literals[key]; ok {
		return id
	}
	slot := in.appendStructInfo(StructInfo{Fields: slices.Clone(fields)})
	id := in.internRaw(Type{Kind: KindStruct, Payload: slot})
	in.literals[key] = id
	return id
}

// StructInfo returns metadata for the provided struct TypeID.
func (in *Interner) StructInfo(typeID TypeID) (*StructInfo, bool) {
	info := in.structInfo(typeID)
	if info == nil {
		return nil, false
	}
	return info, true
}

// StructFields returns a copy of struct field types for the TypeID.
func (in *Interner) StructFields(typeID TypeID) []TypeID {
	info := in.structInfo(typeID)
	if info == nil || len(info.Fields) == 0 {
		return nil
	}
	return slices.Clone(info.Fields)
}

func (in *Interner) structInfo(typeID TypeID) *StructInfo {
	if in == nil || typeID == NoTypeID {
		return nil
	}
	tt, ok := in.Lookup(typeID)
	if !ok || tt.Kind != KindStruct {
		return nil
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.structs) {
		return nil
	}
	return &in.structs[tt.Payload]
}

func (in *Interner) appendStructInfo(info StructInfo) uint32 {
	if in.structs == nil {
		in.structs = append(in.structs, StructInfo{})
	}
	in.structs = append(in.structs, StructInfo{
		Name:   info.Name,
		Fields: slices.Clone(info.Fields),
	})
	slot, err := safecast.Conv[uint32](len(in.structs) - 1)
	if err != nil {
		panic(fmt.Errorf("struct info overflow: %w", err))
	}
	return slot
}

func literalKey(fields []TypeID) string {
	var sb strings.Builder
	for i, f := range fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatUint(uint64(f), 10))
	}
	return sb.String()
}
