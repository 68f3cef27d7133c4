package specconst

import (
	"fmt"
	"testing"

	"speclower/internal/ir"
	"speclower/internal/types"
)

// fixture builds a module with one kernel the way a SYCL front end lays out
// accessor calls.
type fixture struct {
	t      *testing.T
	m      *ir.Module
	in     *types.Interner
	b      types.Builtins
	i8p    types.TypeID
	kernel *ir.Func
	bld    *ir.Builder
	nstr   int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	m := ir.NewModule("unit", nil)
	fx := &fixture{t: t, m: m, in: m.Types, b: m.Types.Builtins()}
	fx.i8p = fx.in.Intern(types.MakePointer(fx.b.I8, 4))
	return fx
}

// startKernel defines the kernel after all accessors are declared, so
// declaration order is under the test's control.
func (fx *fixture) startKernel() {
	fx.t.Helper()
	k, err := fx.m.NewFunc("kernel", fx.b.Void)
	if err != nil {
		fx.t.Fatalf("NewFunc: %v", err)
	}
	fx.kernel = k
	fx.bld = ir.NewBuilder(k.NewBlock("entry"))
}

func (fx *fixture) finish() *ir.Module {
	fx.t.Helper()
	fx.bld.RetVoid()
	if err := ir.Validate(fx.m); err != nil {
		fx.t.Fatalf("fixture module invalid: %v", err)
	}
	return fx.m
}

func (fx *fixture) scalarAccessor(suffix string, result types.TypeID) *ir.Func {
	fx.t.Helper()
	fn, err := fx.m.GetOrInsertFunc(ScalarAccessorPrefix+"I"+suffix+"ET_PKc", result, fx.i8p)
	if err != nil {
		fx.t.Fatalf("declare scalar accessor: %v", err)
	}
	return fn
}

func (fx *fixture) compositeAccessor(suffix string, elem types.TypeID) *ir.Func {
	fx.t.Helper()
	out := fx.in.Intern(types.MakePointer(elem, 0))
	fn, err := fx.m.GetOrInsertFunc(CompositeAccessorPrefix+"I"+suffix+"EvPT_PKc", fx.b.Void, out, fx.i8p)
	if err != nil {
		fx.t.Fatalf("declare composite accessor: %v", err)
	}
	return fn
}

// name returns the generic-address-space pointer to a fresh literal.
func (fx *fixture) name(s string) ir.Value {
	fx.t.Helper()
	g, err := fx.m.NewStringLiteral(fmt.Sprintf(".str.%d", fx.nstr), s)
	if err != nil {
		fx.t.Fatalf("NewStringLiteral: %v", err)
	}
	fx.nstr++
	p0 := fx.in.Intern(types.MakePointer(fx.b.I8, 0))
	return ir.AddrSpaceCast(fx.i8p, ir.GEP(p0, g, 0, 0))
}

// sink declares a function consuming one value of type t.
func (fx *fixture) sink(t types.TypeID) *ir.Func {
	fx.t.Helper()
	fn, err := fx.m.GetOrInsertFunc("sink."+fx.in.String(t), fx.b.Void, t)
	if err != nil {
		fx.t.Fatalf("declare sink: %v", err)
	}
	return fn
}

// getScalar emits a direct scalar accessor call and passes the result on.
func (fx *fixture) getScalar(acc *ir.Func, sym string) *ir.Instr {
	call := fx.bld.Call("v", acc, fx.name(sym))
	fx.bld.Call("", fx.sink(acc.Result), call)
	return call
}

// getComposite emits a composite accessor call writing into a local slot.
func (fx *fixture) getComposite(acc *ir.Func, sym string) *ir.Instr {
	elem := fx.in.MustLookup(acc.Params[0].Typ).Elem
	out := fx.bld.Alloca("out", elem)
	return fx.bld.Call("", acc, out, fx.name(sym))
}

// getScalarViaSlot spills the name pointer to a local slot first, the shape
// unoptimised front-end output has.
func (fx *fixture) getScalarViaSlot(acc *ir.Func, sym string) *ir.Instr {
	p0 := fx.in.Intern(types.MakePointer(fx.i8p, 0))
	slot := fx.bld.Alloca("name.addr", fx.i8p)
	fx.bld.Store(fx.name(sym), slot)
	ld := fx.bld.Load("name", fx.i8p, fx.bld.Cast("", ir.CastBitcast, p0, slot))
	cast := fx.bld.Cast("name.cast", ir.CastBitcast, fx.i8p, ld)
	call := fx.bld.Call("v", acc, cast)
	fx.bld.Call("", fx.sink(acc.Result), call)
	return call
}

// callsTo returns the calls of functions whose name starts with prefix.
func callsTo(m *ir.Module, prefix string) []*ir.Instr {
	var out []*ir.Instr
	for _, f := range m.Funcs {
		if len(f.Name) >= len(prefix) && f.Name[:len(prefix)] == prefix {
			out = append(out, m.Callers(f)...)
		}
	}
	return out
}

func annotated(m *ir.Module) []*ir.Instr {
	var out []*ir.Instr
	for _, f := range m.Funcs {
		for _, ins := range f.Instructions() {
			if _, ok := ins.GetMetadata(AnnotationKey); ok {
				out = append(out, ins)
			}
		}
	}
	return out
}
