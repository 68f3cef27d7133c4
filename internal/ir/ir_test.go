package ir_test

import (
	"errors"
	"strings"
	"testing"

	"speclower/internal/ir"
	"speclower/internal/types"
)

func newModule(t *testing.T) (*ir.Module, types.Builtins) {
	t.Helper()
	m := ir.NewModule("test", nil)
	return m, m.Types.Builtins()
}

func mustFunc(t *testing.T, m *ir.Module, name string, result types.TypeID, params ...types.TypeID) *ir.Func {
	t.Helper()
	f, err := m.NewFunc(name, result, params...)
	if err != nil {
		t.Fatalf("NewFunc(%s): %v", name, err)
	}
	return f
}

func TestGetOrInsertFunc(t *testing.T) {
	m, b := newModule(t)
	f1, err := m.GetOrInsertFunc("callee", b.I32, b.I32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f2, err := m.GetOrInsertFunc("callee", b.I32, b.I32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f1 != f2 {
		t.Fatalf("expected the same function on second lookup")
	}
	if len(m.Funcs) != 1 {
		t.Fatalf("expected 1 function, got %d", len(m.Funcs))
	}
	if _, err := m.GetOrInsertFunc("callee", b.I64, b.I32); !errors.Is(err, ir.ErrSignatureMismatch) {
		t.Fatalf("expected ErrSignatureMismatch, got %v", err)
	}
	if !f1.IsDeclaration() {
		t.Fatalf("expected a declaration")
	}
}

func TestCallersOrder(t *testing.T) {
	m, b := newModule(t)
	callee := mustFunc(t, m, "callee", b.I32)
	k1 := mustFunc(t, m, "k1", b.Void)
	k2 := mustFunc(t, m, "k2", b.Void)

	var want []*ir.Instr
	bb := ir.NewBuilder(k1.NewBlock("entry"))
	want = append(want, bb.Call("a", callee), bb.Call("b", callee))
	bb.RetVoid()
	next := ir.NewBuilder(k2.NewBlock("entry"))
	tail := k2.NewBlock("tail")
	want = append(want, next.Call("c", callee))
	next.Br(tail)
	tb := ir.NewBuilder(tail)
	want = append(want, tb.Call("d", callee))
	tb.RetVoid()

	got := m.Callers(callee)
	if len(got) != len(want) {
		t.Fatalf("expected %d callers, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("caller %d: expected %%%s, got %%%s", i, want[i].Name, got[i].Name)
		}
	}
	if err := ir.Validate(m); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestReplaceAllUsesAndErase(t *testing.T) {
	m, b := newModule(t)
	callee := mustFunc(t, m, "callee", b.I32)
	f := mustFunc(t, m, "f", b.I32)
	bb := ir.NewBuilder(f.NewBlock("entry"))
	call := bb.Call("v", callee)
	sum := bb.Binary("sum", ir.BinAdd, call, call)
	bb.Ret(sum)

	if n := f.NumUses(call); n != 2 {
		t.Fatalf("expected 2 uses, got %d", n)
	}
	if err := call.EraseFromParent(); !errors.Is(err, ir.ErrInstrHasUses) {
		t.Fatalf("expected ErrInstrHasUses, got %v", err)
	}

	c := ir.NewInt(b.I32, 7)
	if n := f.ReplaceAllUses(call, c); n != 2 {
		t.Fatalf("expected 2 rewrites, got %d", n)
	}
	if sum.Binary.Left != ir.Value(c) || sum.Binary.Right != ir.Value(c) {
		t.Fatalf("operands not rewritten")
	}
	if err := call.EraseFromParent(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.Blocks[0].Instrs) != 2 {
		t.Fatalf("expected 2 instructions, got %d", len(f.Blocks[0].Instrs))
	}
	if call.Parent != nil {
		t.Fatalf("expected erased instruction to be detached")
	}
}

func TestBuilderBefore(t *testing.T) {
	m, b := newModule(t)
	f := mustFunc(t, m, "f", b.Void)
	bb := ir.NewBuilder(f.NewBlock("entry"))
	ret := bb.RetVoid()
	slot := ir.NewBuilderBefore(ret).Alloca("slot", b.I32)
	ir.NewBuilderBefore(ret).Store(ir.NewInt(b.I32, 1), slot)

	instrs := f.Blocks[0].Instrs
	if len(instrs) != 3 || instrs[0] != slot || instrs[2] != ret {
		t.Fatalf("unexpected order: %v", m)
	}
	if slot.Next() != instrs[1] {
		t.Fatalf("expected store after alloca")
	}
	if err := ir.Validate(m); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestStripPointerCasts(t *testing.T) {
	m, b := newModule(t)
	g, err := m.NewStringLiteral("str", "abc")
	if err != nil {
		t.Fatalf("NewStringLiteral: %v", err)
	}
	i8p := m.Types.Intern(types.MakePointer(b.I8, 0))
	i8g := m.Types.Intern(types.MakePointer(b.I8, 4))

	tests := []struct {
		name string
		v    ir.Value
		want ir.Value
	}{
		{"plain", g, g},
		{"gep_zero", ir.GEP(i8p, g, 0, 0), g},
		{"addrspace_of_gep", ir.AddrSpaceCast(i8g, ir.GEP(i8p, g, 0, 0)), g},
		{"bitcast", ir.Bitcast(i8p, g), g},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ir.StripPointerCasts(tt.v); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}

	offset := ir.GEP(i8p, g, 0, 1)
	if got := ir.StripPointerCasts(offset); got != ir.Value(offset) {
		t.Fatalf("expected non-zero GEP to be kept")
	}
}

func TestValidateReportsErrors(t *testing.T) {
	m, b := newModule(t)
	callee := mustFunc(t, m, "callee", b.Void, b.I32)
	f := mustFunc(t, m, "f", b.Void)
	bb := ir.NewBuilder(f.NewBlock("entry"))
	bb.Call("", callee)

	err := ir.Validate(m)
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	msg := err.Error()
	for _, want := range []string{"unterminated block", "0 arguments, want 1"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in %q", want, msg)
		}
	}
}

func TestDump(t *testing.T) {
	m, b := newModule(t)
	g, err := m.NewStringLiteral(".str", "ab")
	if err != nil {
		t.Fatalf("NewStringLiteral: %v", err)
	}
	i8p := m.Types.Intern(types.MakePointer(b.I8, 0))
	callee := mustFunc(t, m, "get", b.I32, i8p)
	f := mustFunc(t, m, "k", b.Void)
	bb := ir.NewBuilder(f.NewBlock("entry"))
	call := bb.Call("", callee, ir.GEP(i8p, g, 0, 0))
	call.SetMetadata("ann", &ir.MDNode{Operands: []ir.MDOperand{ir.MDStr("ab"), ir.MDI32(3)}})
	bb.RetVoid()

	out := m.String()
	for _, want := range []string{
		`@.str = constant [3 x i8] c"ab\00"`,
		"declare i32 @get(i8*)",
		"define void @k() {",
		`%0 = call i32 @get(i8* getelementptr ([3 x i8]* @.str, i64 0, i64 0)), !ann !{!"ab", i32 3}`,
		"ret void",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in dump:\n%s", want, out)
		}
	}
}
