package specconst

import (
	"errors"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"speclower/internal/ir"
	"speclower/internal/layout"
	"speclower/internal/types"
)

func TestMangle(t *testing.T) {
	in := types.NewInterner()
	b := in.Builtins()
	named := in.RegisterStruct("struct.S")
	lit := in.LiteralStruct([]types.TypeID{b.I8, b.F64})
	arr := in.Intern(types.MakeArray(lit, 3))
	vec := in.Intern(types.MakeVector(b.I16, 4))

	tests := []struct {
		params []types.TypeID
		want   string
	}{
		{[]types.TypeID{b.I32, b.I1}, "_Z4baseib"},
		{[]types.TypeID{b.I8, b.I16, b.I64}, "_Z4baseasx"},
		{[]types.TypeID{b.F32, b.F64}, "_Z4basefd"},
		{[]types.TypeID{named}, "_Z4base8struct.S"},
		{[]types.TypeID{arr}, "_Z4baseA3_SadE"},
		{[]types.TypeID{vec}, "_Z4baseDv4_s"},
		{nil, "_Z4base"},
	}
	for _, tt := range tests {
		got, err := Mangle(in, "base", tt.params)
		if err != nil {
			t.Fatalf("Mangle(%s): %v", tt.want, err)
		}
		if got != tt.want {
			t.Fatalf("expected %s, got %s", tt.want, got)
		}
	}

	got, err := MangleComposite(in, "c", vec, []types.TypeID{b.I16, b.I16, b.I16, b.I16})
	if err != nil || got != "_Z1cssss_RDv4_s" {
		t.Fatalf("expected _Z1cssss_RDv4_s, got %s (%v)", got, err)
	}

	for _, bad := range []types.TypeID{
		in.Intern(types.MakeInt(24)),
		in.Intern(types.MakePointer(b.I8, 0)),
		b.Void,
	} {
		if _, err := Mangle(in, "base", []types.TypeID{bad}); !errors.Is(err, ErrUnsupportedType) {
			t.Fatalf("%s: expected ErrUnsupportedType, got %v", in.String(bad), err)
		}
	}
}

func TestMangleDistinguishesShapes(t *testing.T) {
	in := types.NewInterner()
	b := in.Builtins()
	shapes := []types.TypeID{
		in.Intern(types.MakeArray(b.I32, 2)),
		in.Intern(types.MakeVector(b.I32, 2)),
		in.LiteralStruct([]types.TypeID{b.I32, b.I32}),
		in.LiteralStruct([]types.TypeID{in.LiteralStruct([]types.TypeID{b.I32}), b.I32}),
		in.Intern(types.MakeArray(b.I32, 12)),
		in.Intern(types.MakeArray(in.Intern(types.MakeArray(b.I32, 1)), 2)),
	}
	seen := make(map[string]types.TypeID)
	for _, s := range shapes {
		name, err := MangleComposite(in, "c", s, nil)
		if err != nil {
			t.Fatalf("MangleComposite: %v", err)
		}
		if prev, ok := seen[name]; ok {
			t.Fatalf("%s and %s both mangle to %s", in.String(prev), in.String(s), name)
		}
		seen[name] = s
	}
}

func TestFlatten(t *testing.T) {
	in := types.NewInterner()
	b := in.Builtins()
	le := layout.New(layout.SPIR64(), in)

	pair := in.LiteralStruct([]types.TypeID{b.I8, b.I32})
	nested := in.RegisterStruct("struct.N")
	in.SetStructFields(nested, []types.TypeID{
		b.I1,
		in.Intern(types.MakeArray(pair, 2)),
		in.Intern(types.MakeVector(b.F32, 2)),
	})

	tests := []struct {
		name string
		typ  types.TypeID
		want []ElementDescriptor
	}{
		{"scalar", b.I64, []ElementDescriptor{{Size: 8}}},
		{"bool", b.I1, []ElementDescriptor{{Size: 1}}},
		{"vector", in.Intern(types.MakeVector(b.I32, 2)), []ElementDescriptor{{Offset: 0, Size: 4}, {Offset: 4, Size: 4}}},
		{"empty_array", in.Intern(types.MakeArray(b.I32, 0)), nil},
		{"nested", nested, []ElementDescriptor{
			{Offset: 0, Size: 1},
			{Offset: 1, Size: 1}, {Offset: 2, Size: 4},
			{Offset: 6, Size: 1}, {Offset: 7, Size: 4},
			{Offset: 11, Size: 4}, {Offset: 15, Size: 4},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Flatten(le, tt.typ)
			if err != nil {
				t.Fatalf("Flatten: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("leaves mismatch (-want +got):\n%s", diff)
			}
			// stable across calls
			again, _ := Flatten(le, tt.typ)
			if !slices.Equal(got, again) {
				t.Fatalf("flattening is not stable")
			}
			n, err := LeafCount(in, tt.typ)
			if err != nil || n != len(got) {
				t.Fatalf("expected LeafCount %d, got %d (%v)", len(got), n, err)
			}
		})
	}
}

func TestFlattenRejects(t *testing.T) {
	in := types.NewInterner()
	b := in.Builtins()
	le := layout.New(layout.SPIR64(), in)
	self := in.RegisterStruct("struct.Self")
	in.SetStructFields(self, []types.TypeID{b.I32, self})

	for _, typ := range []types.TypeID{
		self,
		in.LiteralStruct([]types.TypeID{b.I32, in.Intern(types.MakePointer(b.I32, 0))}),
		b.Void,
	} {
		if _, err := Flatten(le, typ); !errors.Is(err, ErrUnsupportedType) {
			t.Fatalf("%s: expected ErrUnsupportedType, got %v", in.String(typ), err)
		}
	}
}

func TestAllocator(t *testing.T) {
	a := NewAllocator()
	steps := []struct {
		sym    string
		leaves int
		fresh  bool
		ids    []uint32
	}{
		{"A", 1, true, []uint32{0}},
		{"B", 3, true, []uint32{1, 2, 3}},
		{"A", 1, false, []uint32{0}},
		{"C", 0, true, []uint32{}},
		{"D", 2, true, []uint32{4, 5}},
		{"B", 3, false, []uint32{1, 2, 3}},
	}
	for _, s := range steps {
		fresh, ids, err := a.AllocateOrReuse(s.sym, s.leaves)
		if err != nil {
			t.Fatalf("%s: %v", s.sym, err)
		}
		if fresh != s.fresh || !slices.Equal(ids, s.ids) {
			t.Fatalf("%s: expected fresh=%v %v, got fresh=%v %v", s.sym, s.fresh, s.ids, fresh, ids)
		}
	}
	if _, _, err := a.AllocateOrReuse("B", 2); !errors.Is(err, ErrLeafCountMismatch) {
		t.Fatalf("expected ErrLeafCountMismatch, got %v", err)
	}
	if a.Len() != 6 {
		t.Fatalf("expected 6 IDs handed out, got %d", a.Len())
	}
	if diff := cmp.Diff([]string{"A", "B", "C", "D"}, a.Symbols()); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}

	// callers cannot corrupt the stored list
	ids, _ := a.Lookup("B")
	ids[0] = 99
	if again, _ := a.Lookup("B"); again[0] != 1 {
		t.Fatalf("expected stored IDs to be unaffected")
	}
}

func TestAllocatorExhaustion(t *testing.T) {
	a := NewAllocator()
	a.next = 1<<32 - 2
	if _, _, err := a.AllocateOrReuse("last", 2); err != nil {
		t.Fatalf("expected the last two IDs to fit, got %v", err)
	}
	if _, _, err := a.AllocateOrReuse("over", 1); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected exhaustion error, got %v", err)
	}
}

func TestDefaultValue(t *testing.T) {
	in := types.NewInterner()
	b := in.Builtins()
	st := in.RegisterStruct("struct.D")
	in.SetStructFields(st, []types.TypeID{b.F64, in.Intern(types.MakeArray(in.Intern(types.MakeVector(b.I8, 2)), 3))})

	c, err := DefaultValue(in, st)
	if err != nil {
		t.Fatalf("DefaultValue: %v", err)
	}
	if !c.IsZero() || c.Typ != st || len(c.Elems) != 2 || len(c.Elems[1].Elems) != 3 {
		t.Fatalf("unexpected default %+v", c)
	}
	if c.Elems[0].Kind != ir.ConstFloat || c.Elems[1].Elems[2].Elems[1].Kind != ir.ConstInt {
		t.Fatalf("expected leaves typed by kind")
	}
	if _, err := DefaultValue(in, in.Intern(types.MakePointer(b.I8, 0))); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType for pointers, got %v", err)
	}
}

func TestStringLiteralArg(t *testing.T) {
	fx := newFixture(t)
	acc := fx.scalarAccessor("i", fx.b.I32)
	fx.startKernel()
	direct := fx.getScalar(acc, "direct")
	viaSlot := fx.getScalarViaSlot(acc, "via slot")
	fx.finish()

	s, dead, err := StringLiteralArg(direct, 0)
	if err != nil || s != "direct" || len(dead) != 0 {
		t.Fatalf("expected direct with no dead instrs, got %q %v %v", s, dead, err)
	}
	s, dead, err = StringLiteralArg(viaSlot, 0)
	if err != nil || s != "via slot" {
		t.Fatalf("expected \"via slot\", got %q (%v)", s, err)
	}
	var kinds []ir.InstrKind
	for _, d := range dead {
		kinds = append(kinds, d.Kind)
	}
	if diff := cmp.Diff([]ir.InstrKind{ir.InstrCast, ir.InstrStore, ir.InstrLoad}, kinds); diff != "" {
		t.Fatalf("dead instrs mismatch (-want +got):\n%s", diff)
	}
	if _, _, err := StringLiteralArg(direct, 3); !errors.Is(err, ErrMalformedPattern) {
		t.Fatalf("expected ErrMalformedPattern for a missing argument, got %v", err)
	}
}

func TestStringLiteralRejectsNonText(t *testing.T) {
	fx := newFixture(t)
	acc := fx.scalarAccessor("i", fx.b.I32)
	arr := fx.in.Intern(types.MakeArray(fx.b.I32, 2))
	g, err := fx.m.NewGlobal("table", arr, ir.NewAggregate(arr, ir.NewInt(fx.b.I32, 1), ir.NewInt(fx.b.I32, 2)), true)
	if err != nil {
		t.Fatalf("NewGlobal: %v", err)
	}
	empty, err := fx.m.NewStringLiteral(".empty", "")
	if err != nil {
		t.Fatalf("NewStringLiteral: %v", err)
	}
	fx.startKernel()
	p0 := fx.in.Intern(types.MakePointer(fx.b.I8, 0))
	c1 := fx.bld.Call("v", acc, ir.AddrSpaceCast(fx.i8p, ir.Bitcast(p0, g)))
	c2 := fx.bld.Call("w", acc, ir.AddrSpaceCast(fx.i8p, ir.GEP(p0, empty, 0, 0)))
	fx.finish()

	for _, c := range []*ir.Instr{c1, c2} {
		if _, _, err := StringLiteralArg(c, 0); !errors.Is(err, ErrMalformedPattern) {
			t.Fatalf("expected ErrMalformedPattern, got %v", err)
		}
	}
}
