package irfile

// Current schema version - increment when the record layout changes
const schemaVersion uint16 = 1

// magic tags the payload so that unrelated msgpack files are rejected early.
const magic = "speclower-ir"

// fileRec is the on-disk form of a module. Type references are indices into
// Types; slot 0 is reserved and means "no type".
type fileRec struct {
	Magic   string
	Schema  uint16
	Name    string
	Types   []typeRec
	Globals []globalRec
	Funcs   []funcRec
}

type typeRec struct {
	Kind      uint8
	Elem      uint32
	Count     uint32
	Width     uint8
	AddrSpace uint32

	// Struct-only:
	StructName string
	Fields     []uint32
}

type globalRec struct {
	Name     string
	ElemType uint32
	Init     *constRec
	IsConst  bool
}

type funcRec struct {
	Name   string
	Result uint32
	Params []paramRec
	Blocks []blockRec
}

type paramRec struct {
	Name string
	Type uint32
}

type blockRec struct {
	Name   string
	Instrs []instrRec
}

type instrRec struct {
	Kind     uint8
	Name     string
	Type     uint32
	Elem     uint32 // alloca
	Op       uint8  // cast and binary
	HasValue bool   // ret
	Callee   int32  // call, index into funcRec list
	Target   int32  // br, index into the function's blocks
	Operands []valueRec
	Metadata []mdRec
}

// value reference kinds
const (
	refInstr uint8 = iota + 1
	refParam
	refGlobal
	refConst
	refExpr
)

type valueRec struct {
	Ref   uint8
	Index uint32 // instr: position in function order; param; global
	Const *constRec
	Expr  *exprRec
}

type constRec struct {
	Kind  uint8
	Type  uint32
	Int   uint64
	Float float64
	Elems []constRec
	Bytes []byte
}

type exprRec struct {
	Op      uint8
	Type    uint32
	Operand valueRec
	Indices []int64
}

type mdRec struct {
	Name     string
	Operands []mdOperandRec
}

type mdOperandRec struct {
	Kind  uint8
	Str   string
	Int   uint64
	Width uint8
}
