package ir

import "speclower/internal/types"

// Value is anything an instruction can take as an operand. The set of
// implementations is closed: *Instr, *Param, *Global, *Const and *ConstExpr.
type Value interface {
	Type() types.TypeID
	isValue()
}

// Param is a formal parameter of a function.
type Param struct {
	Name  string
	Typ   types.TypeID
	Index int
}

// Type returns the parameter type.
func (p *Param) Type() types.TypeID { return p.Typ }
func (*Param) isValue()             {}

// Global is a module-level variable. As a value it denotes its address,
// so its type is a pointer to ElemType.
type Global struct {
	Name     string
	ElemType types.TypeID
	PtrType  types.TypeID
	Init     *Const
	IsConst  bool
}

// Type returns the pointer type of the global.
func (g *Global) Type() types.TypeID { return g.PtrType }
func (*Global) isValue()             {}

// ExprOp enumerates constant expression operators.
type ExprOp uint8

const (
	// ExprBitcast reinterprets a pointer as another pointer type.
	ExprBitcast ExprOp = iota
	// ExprAddrSpaceCast moves a pointer between address spaces.
	ExprAddrSpaceCast
	// ExprGEP computes an element address from constant indices.
	ExprGEP
)

func (op ExprOp) String() string {
	switch op {
	case ExprBitcast:
		return "bitcast"
	case ExprAddrSpaceCast:
		return "addrspacecast"
	case ExprGEP:
		return "getelementptr"
	default:
		return "expr?"
	}
}

// ConstExpr is a constant pointer expression over another value, typically a global.
type ConstExpr struct {
	Op      ExprOp
	Typ     types.TypeID
	Operand Value
	Indices []int64 // for ExprGEP
}

// Type returns the result type of the expression.
func (e *ConstExpr) Type() types.TypeID { return e.Typ }
func (*ConstExpr) isValue()             {}

// IsPointerCast reports whether the expression only changes the pointer type,
// not the address it points to.
func (e *ConstExpr) IsPointerCast() bool {
	switch e.Op {
	case ExprBitcast, ExprAddrSpaceCast:
		return true
	case ExprGEP:
		for _, idx := range e.Indices {
			if idx != 0 {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// StripPointerCasts looks through pointer casts, both instructions and
// constant expressions, and returns the underlying value.
func StripPointerCasts(v Value) Value {
	for {
		switch x := v.(type) {
		case *ConstExpr:
			if !x.IsPointerCast() {
				return v
			}
			v = x.Operand
		case *Instr:
			if x.Kind != InstrCast || !x.Cast.Op.IsPointerCast() {
				return v
			}
			v = x.Cast.Value
		default:
			return v
		}
	}
}
