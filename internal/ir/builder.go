package ir

import (
	"slices"

	"speclower/internal/types"
)

// Builder creates instructions at an insertion point: either the end of a
// block or immediately before a given instruction.
type Builder struct {
	block  *Block
	before *Instr
}

// NewBuilder returns a builder appending to the end of b.
func NewBuilder(b *Block) *Builder {
	return &Builder{block: b}
}

// NewBuilderBefore returns a builder inserting immediately before at.
func NewBuilderBefore(at *Instr) *Builder {
	return &Builder{block: at.Parent, before: at}
}

// Block returns the block the builder inserts into.
func (b *Builder) Block() *Block { return b.block }

func (b *Builder) types() *types.Interner {
	return b.block.Parent.Module.Types
}

func (b *Builder) insert(ins *Instr) *Instr {
	ins.Parent = b.block
	if b.before == nil {
		b.block.Instrs = append(b.block.Instrs, ins)
		return ins
	}
	idx := b.block.Index(b.before)
	if idx < 0 {
		b.block.Instrs = append(b.block.Instrs, ins)
		return ins
	}
	b.block.Instrs = slices.Insert(b.block.Instrs, idx, ins)
	return ins
}

// Alloca reserves a stack slot of type elem.
func (b *Builder) Alloca(name string, elem types.TypeID) *Instr {
	ptr := b.types().Intern(types.MakePointer(elem, 0))
	return b.insert(&Instr{Kind: InstrAlloca, Name: name, Typ: ptr, Alloca: AllocaInstr{Elem: elem}})
}

// Load reads a value of type typ from ptr.
func (b *Builder) Load(name string, typ types.TypeID, ptr Value) *Instr {
	return b.insert(&Instr{Kind: InstrLoad, Name: name, Typ: typ, Load: LoadInstr{Ptr: ptr}})
}

// Store writes v to ptr.
func (b *Builder) Store(v, ptr Value) *Instr {
	return b.insert(&Instr{Kind: InstrStore, Store: StoreInstr{Value: v, Ptr: ptr}})
}

// Call calls fn. Calls to void functions get no result name.
func (b *Builder) Call(name string, fn *Func, args ...Value) *Instr {
	typ := fn.Result
	if typ == b.types().Builtins().Void {
		typ = types.NoTypeID
		name = ""
	}
	return b.insert(&Instr{Kind: InstrCall, Name: name, Typ: typ, Call: CallInstr{Callee: fn, Args: slices.Clone(args)}})
}

// Cast converts v to typ with op.
func (b *Builder) Cast(name string, op CastOp, typ types.TypeID, v Value) *Instr {
	return b.insert(&Instr{Kind: InstrCast, Name: name, Typ: typ, Cast: CastInstr{Op: op, Value: v}})
}

// Binary computes l op r; the result has the type of l.
func (b *Builder) Binary(name string, op BinaryOp, l, r Value) *Instr {
	return b.insert(&Instr{Kind: InstrBinary, Name: name, Typ: l.Type(), Binary: BinaryInstr{Op: op, Left: l, Right: r}})
}

// Ret returns v.
func (b *Builder) Ret(v Value) *Instr {
	return b.insert(&Instr{Kind: InstrRet, Ret: RetInstr{HasValue: true, Value: v}})
}

// RetVoid returns without a value.
func (b *Builder) RetVoid() *Instr {
	return b.insert(&Instr{Kind: InstrRet})
}

// Br jumps to target.
func (b *Builder) Br(target *Block) *Instr {
	return b.insert(&Instr{Kind: InstrBr, Br: BrInstr{Target: target}})
}

// Bitcast builds a constant bitcast of v to typ.
func Bitcast(typ types.TypeID, v Value) *ConstExpr {
	return &ConstExpr{Op: ExprBitcast, Typ: typ, Operand: v}
}

// AddrSpaceCast builds a constant address space cast of v to typ.
func AddrSpaceCast(typ types.TypeID, v Value) *ConstExpr {
	return &ConstExpr{Op: ExprAddrSpaceCast, Typ: typ, Operand: v}
}

// GEP builds a constant element address of v.
func GEP(typ types.TypeID, v Value, indices ...int64) *ConstExpr {
	return &ConstExpr{Op: ExprGEP, Typ: typ, Operand: v, Indices: slices.Clone(indices)}
}
