// Package layout computes ABI sizes, alignments and field offsets of device
// types for a SPIR target.
package layout

import (
	"fortio.org/safecast"

	"speclower/internal/types"
)

// TypeLayout is the size and alignment of a type in bytes. FieldOffsets is
// set for structs only.
type TypeLayout struct {
	Size         int
	Align        int
	FieldOffsets []int
}

var unsized = TypeLayout{Align: 1}

type memo struct {
	layout TypeLayout
	err    *LayoutError
}

// LayoutEngine memoises layouts of the types of one interner. It is not safe
// for concurrent use.
type LayoutEngine struct {
	Target Target
	Types  *types.Interner

	done map[types.TypeID]memo
	// open holds the types being computed, in nesting order.
	open []types.TypeID
}

func New(target Target, in *types.Interner) *LayoutEngine {
	return &LayoutEngine{Target: target, Types: in, done: make(map[types.TypeID]memo)}
}

// LayoutOf returns the layout of t. A struct that contains itself by value
// yields LayoutErrRecursiveUnsized.
func (e *LayoutEngine) LayoutOf(t types.TypeID) (TypeLayout, error) {
	l, err := e.visit(t)
	if err != nil {
		return l, err
	}
	return l, nil
}

func (e *LayoutEngine) SizeOf(t types.TypeID) (int, error) {
	l, err := e.LayoutOf(t)
	return l.Size, err
}

func (e *LayoutEngine) AlignOf(t types.TypeID) (int, error) {
	l, err := e.LayoutOf(t)
	return l.Align, err
}

// FieldOffset returns the offset of field i of a struct; 0 for an index out
// of range.
func (e *LayoutEngine) FieldOffset(structT types.TypeID, i int) (int, error) {
	l, err := e.LayoutOf(structT)
	if err != nil || i < 0 || i >= len(l.FieldOffsets) {
		return 0, err
	}
	return l.FieldOffsets[i], nil
}

// StoreSize is the number of bytes written when a value of t is stored. For
// scalars that is the bit width rounded up to bytes, which can be smaller
// than the allocation size (i24 stores 3 bytes and allocates 4).
func (e *LayoutEngine) StoreSize(t types.TypeID) (int, error) {
	tt, ok := e.Types.Lookup(t)
	if !ok {
		return 0, &LayoutError{Kind: LayoutErrUnknownType, Type: t}
	}
	if tt.Kind == types.KindInt || tt.Kind == types.KindFloat {
		return bytesOf(tt.Width), nil
	}
	return e.SizeOf(t)
}

func (e *LayoutEngine) visit(t types.TypeID) (TypeLayout, *LayoutError) {
	if m, ok := e.done[t]; ok {
		return m.layout, m.err
	}
	for i, open := range e.open {
		if open != t {
			continue
		}
		cycle := append(append([]types.TypeID(nil), e.open[i:]...), t)
		err := &LayoutError{Kind: LayoutErrRecursiveUnsized, Type: t, Name: e.Types.String(t), Cycle: cycle}
		return unsized, err
	}
	e.open = append(e.open, t)
	l, err := e.compute(t)
	e.open = e.open[:len(e.open)-1]
	e.done[t] = memo{l, err}
	return l, err
}

func (e *LayoutEngine) compute(id types.TypeID) (TypeLayout, *LayoutError) {
	tt, ok := e.Types.Lookup(id)
	if !ok {
		return unsized, &LayoutError{Kind: LayoutErrUnknownType, Type: id}
	}
	switch tt.Kind {
	case types.KindInt, types.KindFloat:
		n := bytesOf(tt.Width)
		return TypeLayout{Size: alignTo(n, pow2(n)), Align: pow2(n)}, nil
	case types.KindPointer:
		return e.Target.pointer(), nil
	case types.KindArray:
		elem, err := e.visit(tt.Elem)
		if err != nil {
			return unsized, err
		}
		return TypeLayout{Size: alignTo(elem.Size, elem.Align) * count(tt.Count), Align: elem.Align}, nil
	case types.KindVector:
		// lanes are packed; the vector aligns to its size rounded up to a power of two
		elem, err := e.visit(tt.Elem)
		if err != nil {
			return unsized, err
		}
		raw := elem.Size * count(tt.Count)
		align := pow2(raw)
		return TypeLayout{Size: alignTo(raw, align), Align: align}, nil
	case types.KindStruct:
		return e.structLayout(id)
	}
	return unsized, &LayoutError{Kind: LayoutErrUnsized, Type: id, Name: e.Types.String(id)}
}

func (e *LayoutEngine) structLayout(id types.TypeID) (TypeLayout, *LayoutError) {
	info, ok := e.Types.StructInfo(id)
	if !ok || info == nil {
		return unsized, &LayoutError{Kind: LayoutErrUnsized, Type: id, Name: e.Types.String(id)}
	}
	out := TypeLayout{Align: 1, FieldOffsets: make([]int, len(info.Fields))}
	for i, f := range info.Fields {
		fl, err := e.visit(f)
		if err != nil {
			return unsized, err
		}
		out.FieldOffsets[i] = alignTo(out.Size, fl.Align)
		out.Size = out.FieldOffsets[i] + fl.Size
		out.Align = max(out.Align, fl.Align)
	}
	out.Size = alignTo(out.Size, out.Align)
	return out, nil
}

func bytesOf(w types.Width) int { return (int(w) + 7) / 8 }

func count(n uint32) int {
	v, err := safecast.Conv[int](n)
	if err != nil {
		return 0
	}
	return v
}

// pow2 is the smallest power of two >= n, and 1 for n <= 1.
func pow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func alignTo(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}
