package ir

import "speclower/internal/types"

// InstrKind enumerates instruction kinds.
type InstrKind uint8

const (
	// InstrAlloca reserves a stack slot.
	InstrAlloca InstrKind = iota
	// InstrLoad reads through a pointer.
	InstrLoad
	// InstrStore writes through a pointer.
	InstrStore
	// InstrCall calls a function.
	InstrCall
	// InstrCast converts a value to another type.
	InstrCast
	// InstrBinary is a side-effect free arithmetic instruction.
	InstrBinary
	// InstrRet returns from the function.
	InstrRet
	// InstrBr jumps to another block.
	InstrBr
)

func (k InstrKind) String() string {
	switch k {
	case InstrAlloca:
		return "alloca"
	case InstrLoad:
		return "load"
	case InstrStore:
		return "store"
	case InstrCall:
		return "call"
	case InstrCast:
		return "cast"
	case InstrBinary:
		return "binary"
	case InstrRet:
		return "ret"
	case InstrBr:
		return "br"
	default:
		return "instr?"
	}
}

// Instr is a single instruction. It is a Value when it produces a result.
type Instr struct {
	Kind   InstrKind
	Name   string
	Typ    types.TypeID
	Parent *Block

	Alloca AllocaInstr
	Load   LoadInstr
	Store  StoreInstr
	Call   CallInstr
	Cast   CastInstr
	Binary BinaryInstr
	Ret    RetInstr
	Br     BrInstr

	Metadata map[string]*MDNode
}

// Type returns the result type, NoTypeID for instructions without a result.
func (i *Instr) Type() types.TypeID { return i.Typ }
func (*Instr) isValue()             {}

// AllocaInstr reserves a slot of Elem type; the result is a pointer to it.
type AllocaInstr struct {
	Elem types.TypeID
}

// LoadInstr reads a value of the instruction type from Ptr.
type LoadInstr struct {
	Ptr Value
}

// StoreInstr writes Value to Ptr.
type StoreInstr struct {
	Value Value
	Ptr   Value
}

// CallInstr calls a function by reference.
type CallInstr struct {
	Callee *Func
	Args   []Value
}

// CastOp enumerates cast operators.
type CastOp uint8

const (
	// CastBitcast reinterprets bits.
	CastBitcast CastOp = iota
	// CastAddrSpace moves a pointer between address spaces.
	CastAddrSpace
	// CastZExt zero-extends an integer.
	CastZExt
	// CastTrunc truncates an integer.
	CastTrunc
)

func (op CastOp) String() string {
	switch op {
	case CastBitcast:
		return "bitcast"
	case CastAddrSpace:
		return "addrspacecast"
	case CastZExt:
		return "zext"
	case CastTrunc:
		return "trunc"
	default:
		return "cast?"
	}
}

// IsPointerCast reports whether the operator keeps the address unchanged.
func (op CastOp) IsPointerCast() bool {
	return op == CastBitcast || op == CastAddrSpace
}

// CastInstr converts Value to the instruction type.
type CastInstr struct {
	Op    CastOp
	Value Value
}

// BinaryOp enumerates arithmetic operators.
type BinaryOp uint8

const (
	BinAdd BinaryOp = iota
	BinSub
	BinMul
	BinAnd
	BinOr
	BinXor
)

func (op BinaryOp) String() string {
	switch op {
	case BinAdd:
		return "add"
	case BinSub:
		return "sub"
	case BinMul:
		return "mul"
	case BinAnd:
		return "and"
	case BinOr:
		return "or"
	case BinXor:
		return "xor"
	default:
		return "binop?"
	}
}

// BinaryInstr computes Left op Right.
type BinaryInstr struct {
	Op    BinaryOp
	Left  Value
	Right Value
}

// RetInstr returns, optionally with a value.
type RetInstr struct {
	HasValue bool
	Value    Value
}

// BrInstr jumps unconditionally to Target.
type BrInstr struct {
	Target *Block
}

// Operands returns pointers to every value operand slot of the instruction,
// so callers can both read and rewrite them.
func (i *Instr) Operands() []*Value {
	switch i.Kind {
	case InstrLoad:
		return []*Value{&i.Load.Ptr}
	case InstrStore:
		return []*Value{&i.Store.Value, &i.Store.Ptr}
	case InstrCall:
		ops := make([]*Value, len(i.Call.Args))
		for k := range i.Call.Args {
			ops[k] = &i.Call.Args[k]
		}
		return ops
	case InstrCast:
		return []*Value{&i.Cast.Value}
	case InstrBinary:
		return []*Value{&i.Binary.Left, &i.Binary.Right}
	case InstrRet:
		if i.Ret.HasValue {
			return []*Value{&i.Ret.Value}
		}
		return nil
	case InstrAlloca, InstrBr:
		return nil
	default:
		return nil
	}
}

// HasResult reports whether the instruction defines a value. Instructions
// without a result, including calls to void functions, have no type.
func (i *Instr) HasResult() bool {
	return i.Typ != types.NoTypeID
}

// MayHaveSideEffects reports whether executing the instruction can change
// memory or control state. Calls are conservatively treated as side-effecting.
func (i *Instr) MayHaveSideEffects() bool {
	switch i.Kind {
	case InstrStore, InstrCall:
		return true
	case InstrAlloca, InstrLoad, InstrCast, InstrBinary, InstrRet, InstrBr:
		return false
	default:
		return true
	}
}

// IsTerminator reports whether the instruction ends a block.
func (i *Instr) IsTerminator() bool {
	return i.Kind == InstrRet || i.Kind == InstrBr
}
