package ir

import "slices"

// MDKind distinguishes metadata operand kinds.
type MDKind uint8

const (
	// MDString is a string operand.
	MDString MDKind = iota
	// MDInt is a typed integer operand.
	MDInt
)

// MDOperand is a single metadata tuple element.
type MDOperand struct {
	Kind  MDKind
	Str   string
	Int   uint64
	Width uint8 // for MDInt, in bits
}

// MDNode is a metadata tuple attached to an instruction under a name.
type MDNode struct {
	Operands []MDOperand
}

// MDStr builds a string operand.
func MDStr(s string) MDOperand {
	return MDOperand{Kind: MDString, Str: s}
}

// MDI32 builds a 32-bit integer operand.
func MDI32(v uint32) MDOperand {
	return MDOperand{Kind: MDInt, Int: uint64(v), Width: 32}
}

// SetMetadata attaches node under name, replacing any previous attachment.
func (i *Instr) SetMetadata(name string, node *MDNode) {
	if node == nil {
		i.ClearMetadata(name)
		return
	}
	if i.Metadata == nil {
		i.Metadata = make(map[string]*MDNode, 1)
	}
	i.Metadata[name] = &MDNode{Operands: slices.Clone(node.Operands)}
}

// GetMetadata returns the node attached under name.
func (i *Instr) GetMetadata(name string) (*MDNode, bool) {
	if i == nil || i.Metadata == nil {
		return nil, false
	}
	n, ok := i.Metadata[name]
	return n, ok
}

// ClearMetadata removes the attachment under name.
func (i *Instr) ClearMetadata(name string) {
	if i.Metadata == nil {
		return
	}
	delete(i.Metadata, name)
	if len(i.Metadata) == 0 {
		i.Metadata = nil
	}
}

// MetadataNames returns attachment names in sorted order.
func (i *Instr) MetadataNames() []string {
	names := make([]string, 0, len(i.Metadata))
	for name := range i.Metadata {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
