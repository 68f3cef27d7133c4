package irfile

import (
	"fmt"
	"io"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"

	"speclower/internal/ir"
	"speclower/internal/types"
)

// Encode writes m to w in the msgpack module format.
func Encode(w io.Writer, m *ir.Module) error {
	rec, err := toRecord(m)
	if err != nil {
		return err
	}
	return msgpack.NewEncoder(w).Encode(rec)
}

type encoder struct {
	m       *ir.Module
	funcs   map[*ir.Func]int32
	globals map[*ir.Global]uint32
	instrs  map[*ir.Instr]uint32
	params  map[*ir.Param]uint32
	blocks  map[*ir.Block]int32
}

func toRecord(m *ir.Module) (*fileRec, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil module", ErrCorrupt)
	}
	e := &encoder{
		m:       m,
		funcs:   make(map[*ir.Func]int32, len(m.Funcs)),
		globals: make(map[*ir.Global]uint32, len(m.Globals)),
	}
	rec := &fileRec{
		Magic:  magic,
		Schema: schemaVersion,
		Name:   m.Name,
		Types:  encodeTypes(m.Types),
	}
	for i, f := range m.Funcs {
		idx, err := safecast.Conv[int32](i)
		if err != nil {
			return nil, fmt.Errorf("function index overflow: %w", err)
		}
		e.funcs[f] = idx
	}
	for i, g := range m.Globals {
		idx, err := safecast.Conv[uint32](i)
		if err != nil {
			return nil, fmt.Errorf("global index overflow: %w", err)
		}
		e.globals[g] = idx
		gr := globalRec{Name: g.Name, ElemType: uint32(g.ElemType), IsConst: g.IsConst}
		if g.Init != nil {
			c := encodeConst(g.Init)
			gr.Init = &c
		}
		rec.Globals = append(rec.Globals, gr)
	}
	for _, f := range m.Funcs {
		fr, err := e.encodeFunc(f)
		if err != nil {
			return nil, fmt.Errorf("function @%s: %w", f.Name, err)
		}
		rec.Funcs = append(rec.Funcs, fr)
	}
	return rec, nil
}

func encodeTypes(in *types.Interner) []typeRec {
	out := make([]typeRec, in.Len())
	for i := 1; i < in.Len(); i++ {
		id := types.TypeID(i) //nolint:gosec // bounded by Len
		tt := in.MustLookup(id)
		tr := typeRec{
			Kind:      uint8(tt.Kind),
			Elem:      uint32(tt.Elem),
			Count:     tt.Count,
			Width:     uint8(tt.Width),
			AddrSpace: tt.AddrSpace,
		}
		if info, ok := in.StructInfo(id); ok {
			tr.StructName = info.Name
			for _, f := range info.Fields {
				tr.Fields = append(tr.Fields, uint32(f))
			}
		}
		out[i] = tr
	}
	return out
}

func (e *encoder) encodeFunc(f *ir.Func) (funcRec, error) {
	fr := funcRec{Name: f.Name, Result: uint32(f.Result)}
	e.params = make(map[*ir.Param]uint32, len(f.Params))
	e.instrs = make(map[*ir.Instr]uint32, 32)
	e.blocks = make(map[*ir.Block]int32, len(f.Blocks))
	for i, p := range f.Params {
		e.params[p] = uint32(i) //nolint:gosec // parameter lists are small
		fr.Params = append(fr.Params, paramRec{Name: p.Name, Type: uint32(p.Typ)})
	}
	var n uint32
	for i, b := range f.Blocks {
		e.blocks[b] = int32(i) //nolint:gosec // block lists are small
		for _, ins := range b.Instrs {
			e.instrs[ins] = n
			n++
		}
	}
	for _, b := range f.Blocks {
		br := blockRec{Name: b.Name}
		for _, ins := range b.Instrs {
			rec, err := e.encodeInstr(ins)
			if err != nil {
				return fr, fmt.Errorf("%s: %w", b.Name, err)
			}
			br.Instrs = append(br.Instrs, rec)
		}
		fr.Blocks = append(fr.Blocks, br)
	}
	return fr, nil
}

func (e *encoder) encodeInstr(ins *ir.Instr) (instrRec, error) {
	rec := instrRec{
		Kind:   uint8(ins.Kind),
		Name:   ins.Name,
		Type:   uint32(ins.Typ),
		Callee: -1,
		Target: -1,
	}
	switch ins.Kind {
	case ir.InstrAlloca:
		rec.Elem = uint32(ins.Alloca.Elem)
	case ir.InstrCast:
		rec.Op = uint8(ins.Cast.Op)
	case ir.InstrBinary:
		rec.Op = uint8(ins.Binary.Op)
	case ir.InstrRet:
		rec.HasValue = ins.Ret.HasValue
	case ir.InstrCall:
		idx, ok := e.funcs[ins.Call.Callee]
		if !ok {
			return rec, fmt.Errorf("%w: call to a function outside the module", ErrCorrupt)
		}
		rec.Callee = idx
	case ir.InstrBr:
		idx, ok := e.blocks[ins.Br.Target]
		if !ok {
			return rec, fmt.Errorf("%w: branch outside the function", ErrCorrupt)
		}
		rec.Target = idx
	}
	for _, op := range ins.Operands() {
		vr, err := e.encodeValue(*op)
		if err != nil {
			return rec, fmt.Errorf("%s operand: %w", ins.Kind, err)
		}
		rec.Operands = append(rec.Operands, vr)
	}
	for _, name := range ins.MetadataNames() {
		node := ins.Metadata[name]
		md := mdRec{Name: name}
		for _, op := range node.Operands {
			md.Operands = append(md.Operands, mdOperandRec{Kind: uint8(op.Kind), Str: op.Str, Int: op.Int, Width: op.Width})
		}
		rec.Metadata = append(rec.Metadata, md)
	}
	return rec, nil
}

func (e *encoder) encodeValue(v ir.Value) (valueRec, error) {
	switch x := v.(type) {
	case *ir.Instr:
		idx, ok := e.instrs[x]
		if !ok {
			return valueRec{}, fmt.Errorf("%w: instruction from another function", ErrCorrupt)
		}
		return valueRec{Ref: refInstr, Index: idx}, nil
	case *ir.Param:
		idx, ok := e.params[x]
		if !ok {
			return valueRec{}, fmt.Errorf("%w: foreign parameter", ErrCorrupt)
		}
		return valueRec{Ref: refParam, Index: idx}, nil
	case *ir.Global:
		idx, ok := e.globals[x]
		if !ok {
			return valueRec{}, fmt.Errorf("%w: global @%s not in module", ErrCorrupt, x.Name)
		}
		return valueRec{Ref: refGlobal, Index: idx}, nil
	case *ir.Const:
		c := encodeConst(x)
		return valueRec{Ref: refConst, Const: &c}, nil
	case *ir.ConstExpr:
		inner, err := e.encodeValue(x.Operand)
		if err != nil {
			return valueRec{}, err
		}
		return valueRec{Ref: refExpr, Expr: &exprRec{
			Op:      uint8(x.Op),
			Type:    uint32(x.Typ),
			Operand: inner,
			Indices: x.Indices,
		}}, nil
	default:
		return valueRec{}, fmt.Errorf("%w: unsupported operand %T", ErrCorrupt, v)
	}
}

func encodeConst(c *ir.Const) constRec {
	rec := constRec{
		Kind:  uint8(c.Kind),
		Type:  uint32(c.Typ),
		Int:   c.Int,
		Float: c.Float,
		Bytes: c.Bytes,
	}
	for _, el := range c.Elems {
		rec.Elems = append(rec.Elems, encodeConst(el))
	}
	return rec
}
