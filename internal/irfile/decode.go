package irfile

import (
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"speclower/internal/ir"
	"speclower/internal/types"
)

var (
	// ErrSchema reports a file written with an unsupported schema version.
	ErrSchema = errors.New("unsupported module schema")
	// ErrCorrupt reports a structurally invalid module file.
	ErrCorrupt = errors.New("corrupt module file")
)

// Decode reads a module written by Encode.
func Decode(r io.Reader) (*ir.Module, error) {
	var rec fileRec
	if err := msgpack.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if rec.Magic != magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorrupt, rec.Magic)
	}
	if rec.Schema != schemaVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSchema, rec.Schema, schemaVersion)
	}
	return fromRecord(&rec)
}

type decoder struct {
	rec     *fileRec
	m       *ir.Module
	typeMap []types.TypeID
	funcs   []*ir.Func
}

func fromRecord(rec *fileRec) (*ir.Module, error) {
	d := &decoder{rec: rec}
	in, err := d.decodeTypes()
	if err != nil {
		return nil, err
	}
	d.m = ir.NewModule(rec.Name, in)

	for _, gr := range rec.Globals {
		elem, err := d.typ(gr.ElemType)
		if err != nil {
			return nil, fmt.Errorf("global @%s: %w", gr.Name, err)
		}
		var init *ir.Const
		if gr.Init != nil {
			if init, err = d.decodeConst(gr.Init); err != nil {
				return nil, fmt.Errorf("global @%s: %w", gr.Name, err)
			}
		}
		if _, err := d.m.NewGlobal(gr.Name, elem, init, gr.IsConst); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
	}

	for _, fr := range rec.Funcs {
		result, err := d.typ(fr.Result)
		if err != nil {
			return nil, fmt.Errorf("function @%s: %w", fr.Name, err)
		}
		params := make([]types.TypeID, len(fr.Params))
		for i, p := range fr.Params {
			if params[i], err = d.typ(p.Type); err != nil {
				return nil, fmt.Errorf("function @%s: %w", fr.Name, err)
			}
		}
		f, err := d.m.NewFunc(fr.Name, result, params...)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		for i, p := range fr.Params {
			f.Params[i].Name = p.Name
		}
		d.funcs = append(d.funcs, f)
	}

	for i := range rec.Funcs {
		if err := d.decodeBody(d.funcs[i], &rec.Funcs[i]); err != nil {
			return nil, fmt.Errorf("function @%s: %w", d.funcs[i].Name, err)
		}
	}
	return d.m, nil
}

// decodeTypes rebuilds the interner. Every non-struct type only refers to
// types recorded before it; named struct fields may refer forward, so they
// are filled in a second pass.
func (d *decoder) decodeTypes() (*types.Interner, error) {
	in := types.NewInterner()
	d.typeMap = make([]types.TypeID, len(d.rec.Types))
	earlier := func(i int, ref uint32) (types.TypeID, error) {
		if ref == 0 || int(ref) >= i {
			return types.NoTypeID, fmt.Errorf("%w: type %d refers to type %d", ErrCorrupt, i, ref)
		}
		return d.typeMap[ref], nil
	}
	for i := 1; i < len(d.rec.Types); i++ {
		tr := d.rec.Types[i]
		kind := types.Kind(tr.Kind)
		var id types.TypeID
		switch kind {
		case types.KindVoid:
			id = in.Intern(types.Type{Kind: types.KindVoid})
		case types.KindInt:
			id = in.Intern(types.MakeInt(types.Width(tr.Width)))
		case types.KindFloat:
			id = in.Intern(types.MakeFloat(types.Width(tr.Width)))
		case types.KindPointer, types.KindArray, types.KindVector:
			elem, err := earlier(i, tr.Elem)
			if err != nil {
				return nil, err
			}
			id = in.Intern(types.Type{Kind: kind, Elem: elem, Count: tr.Count, AddrSpace: tr.AddrSpace})
		case types.KindStruct:
			if tr.StructName != "" {
				id = in.RegisterStruct(tr.StructName)
				break
			}
			fields := make([]types.TypeID, len(tr.Fields))
			for k, f := range tr.Fields {
				fid, err := earlier(i, f)
				if err != nil {
					return nil, err
				}
				fields[k] = fid
			}
			id = in.LiteralStruct(fields)
		default:
			return nil, fmt.Errorf("%w: type %d has kind %d", ErrCorrupt, i, tr.Kind)
		}
		d.typeMap[i] = id
	}
	for i := 1; i < len(d.rec.Types); i++ {
		tr := d.rec.Types[i]
		if types.Kind(tr.Kind) != types.KindStruct || tr.StructName == "" {
			continue
		}
		fields := make([]types.TypeID, len(tr.Fields))
		for k, f := range tr.Fields {
			fid, err := d.typ(f)
			if err != nil {
				return nil, err
			}
			fields[k] = fid
		}
		in.SetStructFields(d.typeMap[i], fields)
	}
	return in, nil
}

func (d *decoder) typ(ref uint32) (types.TypeID, error) {
	if ref == 0 {
		return types.NoTypeID, nil
	}
	if int(ref) >= len(d.typeMap) {
		return types.NoTypeID, fmt.Errorf("%w: type %d out of range", ErrCorrupt, ref)
	}
	return d.typeMap[ref], nil
}

func (d *decoder) decodeConst(cr *constRec) (*ir.Const, error) {
	typ, err := d.typ(cr.Type)
	if err != nil {
		return nil, err
	}
	switch ir.ConstKind(cr.Kind) {
	case ir.ConstInt:
		return ir.NewInt(typ, cr.Int), nil
	case ir.ConstFloat:
		return ir.NewFloat(typ, cr.Float), nil
	case ir.ConstBytes:
		return ir.NewBytes(typ, cr.Bytes), nil
	case ir.ConstAggregate:
		elems := make([]*ir.Const, len(cr.Elems))
		for i := range cr.Elems {
			if elems[i], err = d.decodeConst(&cr.Elems[i]); err != nil {
				return nil, err
			}
		}
		return ir.NewAggregate(typ, elems...), nil
	default:
		return nil, fmt.Errorf("%w: constant kind %d", ErrCorrupt, cr.Kind)
	}
}

func (d *decoder) decodeBody(f *ir.Func, fr *funcRec) error {
	var instrs []*ir.Instr
	for _, br := range fr.Blocks {
		b := f.NewBlock(br.Name)
		for _, rec := range br.Instrs {
			typ, err := d.typ(rec.Type)
			if err != nil {
				return err
			}
			ins := &ir.Instr{Kind: ir.InstrKind(rec.Kind), Name: rec.Name, Typ: typ}
			b.Append(ins)
			instrs = append(instrs, ins)
		}
	}

	n := 0
	for bi, br := range fr.Blocks {
		for _, rec := range br.Instrs {
			ins := instrs[n]
			n++
			if err := d.fillInstr(f, ins, &rec, instrs); err != nil {
				return fmt.Errorf("%s: %w", fr.Blocks[bi].Name, err)
			}
		}
	}
	return nil
}

func (d *decoder) fillInstr(f *ir.Func, ins *ir.Instr, rec *instrRec, instrs []*ir.Instr) error {
	switch ins.Kind {
	case ir.InstrAlloca:
		elem, err := d.typ(rec.Elem)
		if err != nil {
			return err
		}
		ins.Alloca.Elem = elem
	case ir.InstrCast:
		ins.Cast.Op = ir.CastOp(rec.Op)
	case ir.InstrBinary:
		ins.Binary.Op = ir.BinaryOp(rec.Op)
	case ir.InstrRet:
		ins.Ret.HasValue = rec.HasValue
	case ir.InstrCall:
		if rec.Callee < 0 || int(rec.Callee) >= len(d.funcs) {
			return fmt.Errorf("%w: callee %d out of range", ErrCorrupt, rec.Callee)
		}
		ins.Call.Callee = d.funcs[rec.Callee]
		ins.Call.Args = make([]ir.Value, len(rec.Operands))
	case ir.InstrBr:
		if rec.Target < 0 || int(rec.Target) >= len(f.Blocks) {
			return fmt.Errorf("%w: branch target %d out of range", ErrCorrupt, rec.Target)
		}
		ins.Br.Target = f.Blocks[rec.Target]
	case ir.InstrLoad, ir.InstrStore:
	default:
		return fmt.Errorf("%w: instruction kind %d", ErrCorrupt, rec.Kind)
	}

	slots := ins.Operands()
	if len(slots) != len(rec.Operands) {
		return fmt.Errorf("%w: %s has %d operands, want %d", ErrCorrupt, ins.Kind, len(rec.Operands), len(slots))
	}
	for k := range slots {
		v, err := d.decodeValue(f, &rec.Operands[k], instrs)
		if err != nil {
			return err
		}
		*slots[k] = v
	}

	for _, md := range rec.Metadata {
		node := &ir.MDNode{}
		for _, op := range md.Operands {
			node.Operands = append(node.Operands, ir.MDOperand{Kind: ir.MDKind(op.Kind), Str: op.Str, Int: op.Int, Width: op.Width})
		}
		ins.SetMetadata(md.Name, node)
	}
	return nil
}

func (d *decoder) decodeValue(f *ir.Func, vr *valueRec, instrs []*ir.Instr) (ir.Value, error) {
	switch vr.Ref {
	case refInstr:
		if int(vr.Index) >= len(instrs) {
			return nil, fmt.Errorf("%w: instruction ref %d out of range", ErrCorrupt, vr.Index)
		}
		return instrs[vr.Index], nil
	case refParam:
		if int(vr.Index) >= len(f.Params) {
			return nil, fmt.Errorf("%w: parameter ref %d out of range", ErrCorrupt, vr.Index)
		}
		return f.Params[vr.Index], nil
	case refGlobal:
		if int(vr.Index) >= len(d.m.Globals) {
			return nil, fmt.Errorf("%w: global ref %d out of range", ErrCorrupt, vr.Index)
		}
		return d.m.Globals[vr.Index], nil
	case refConst:
		if vr.Const == nil {
			return nil, fmt.Errorf("%w: missing constant", ErrCorrupt)
		}
		return d.decodeConst(vr.Const)
	case refExpr:
		if vr.Expr == nil {
			return nil, fmt.Errorf("%w: missing expression", ErrCorrupt)
		}
		typ, err := d.typ(vr.Expr.Type)
		if err != nil {
			return nil, err
		}
		inner, err := d.decodeValue(f, &vr.Expr.Operand, instrs)
		if err != nil {
			return nil, err
		}
		return &ir.ConstExpr{Op: ir.ExprOp(vr.Expr.Op), Typ: typ, Operand: inner, Indices: vr.Expr.Indices}, nil
	default:
		return nil, fmt.Errorf("%w: value ref kind %d", ErrCorrupt, vr.Ref)
	}
}
