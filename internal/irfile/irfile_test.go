package irfile

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"speclower/internal/ir"
	"speclower/internal/types"
)

func sampleModule(t testing.TB) *ir.Module {
	t.Helper()
	m := ir.NewModule("sample", nil)
	in := m.Types
	b := in.Builtins()

	node := in.RegisterStruct("struct.Node")
	nodePtr := in.Intern(types.MakePointer(node, 0))
	in.SetStructFields(node, []types.TypeID{b.I32, nodePtr})
	pair := in.LiteralStruct([]types.TypeID{b.I64, b.F64})
	vec := in.Intern(types.MakeVector(b.F32, 4))
	i8p := in.Intern(types.MakePointer(b.I8, 4))

	str, err := m.NewStringLiteral(".str", "name")
	if err != nil {
		t.Fatalf("NewStringLiteral: %v", err)
	}
	if _, err := m.NewGlobal("init", pair, ir.NewAggregate(pair, ir.NewInt(b.I64, 3), ir.NewFloat(b.F64, 1.5)), false); err != nil {
		t.Fatalf("NewGlobal: %v", err)
	}

	get, err := m.NewFunc("get", b.I32, i8p)
	if err != nil {
		t.Fatalf("NewFunc: %v", err)
	}
	use, err := m.NewFunc("use", b.Void, node, vec)
	if err != nil {
		t.Fatalf("NewFunc: %v", err)
	}
	k, err := m.NewFunc("kernel", b.I32, b.I32)
	if err != nil {
		t.Fatalf("NewFunc: %v", err)
	}
	k.Params[0].Name = "n"
	entry := k.NewBlock("entry")
	exit := k.NewBlock("exit")
	bb := ir.NewBuilder(entry)
	slot := bb.Alloca("slot", b.I32)
	bb.Store(k.Params[0], slot)
	strPtr := ir.AddrSpaceCast(i8p, ir.GEP(in.Intern(types.MakePointer(b.I8, 0)), str, 0, 0))
	call := bb.Call("v", get, strPtr)
	call.SetMetadata("ann", &ir.MDNode{Operands: []ir.MDOperand{ir.MDStr("name"), ir.MDI32(7)}})
	loaded := bb.Load("ld", b.I32, slot)
	sum := bb.Binary("", ir.BinAdd, call, loaded)
	bb.Br(exit)
	eb := ir.NewBuilder(exit)
	eb.Call("", use, ir.NewAggregate(node, ir.NewInt(b.I32, 0), ir.NewInt(nodePtr, 0)), ir.NewAggregate(vec))
	eb.Ret(sum)
	return m
}

func TestRoundTrip(t *testing.T) {
	m := sampleModule(t)
	var buf bytes.Buffer
	if err := Encode(&buf, m); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.String() != m.String() {
		t.Fatalf("round trip mismatch\nwant:\n%s\ngot:\n%s", m.String(), got.String())
	}
	if err := ir.Validate(got); err != nil {
		t.Fatalf("decoded module invalid: %v", err)
	}

	node, ok := got.Types.NamedStruct("struct.Node")
	if !ok {
		t.Fatalf("expected struct.Node to survive")
	}
	fields := got.Types.StructFields(node)
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	ptr := got.Types.MustLookup(fields[1])
	if ptr.Kind != types.KindPointer || ptr.Elem != node {
		t.Fatalf("expected self pointer, got %s", got.Types.String(fields[1]))
	}
}

func TestWriteReadFile(t *testing.T) {
	m := sampleModule(t)
	path := filepath.Join(t.TempDir(), "out", "sample"+Ext)
	if err := WriteFile(path, m); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	// overwrite in place
	if err := WriteFile(path, m); err != nil {
		t.Fatalf("WriteFile (again): %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got.String() != m.String() {
		t.Fatalf("file round trip mismatch")
	}
	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), "tmp-*"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("expected no temp files, got %v", matches)
	}
}

func TestDecodeRejects(t *testing.T) {
	encode := func(rec *fileRec) *bytes.Buffer {
		var buf bytes.Buffer
		if err := msgpack.NewEncoder(&buf).Encode(rec); err != nil {
			t.Fatalf("encode: %v", err)
		}
		return &buf
	}

	tests := []struct {
		name string
		rec  *fileRec
		want error
	}{
		{"bad_magic", &fileRec{Magic: "x", Schema: schemaVersion}, ErrCorrupt},
		{"future_schema", &fileRec{Magic: magic, Schema: schemaVersion + 1}, ErrSchema},
		{"forward_elem", &fileRec{Magic: magic, Schema: schemaVersion, Types: []typeRec{
			{}, {Kind: uint8(types.KindPointer), Elem: 2}, {Kind: uint8(types.KindInt), Width: 8},
		}}, ErrCorrupt},
		{"bad_callee", &fileRec{Magic: magic, Schema: schemaVersion, Funcs: []funcRec{{
			Name:   "f",
			Blocks: []blockRec{{Name: "entry", Instrs: []instrRec{{Kind: uint8(ir.InstrCall), Callee: 5}}}},
		}}}, ErrCorrupt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(encode(tt.rec))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if _, err := Decode(bytes.NewReader([]byte{0xc1})); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt for garbage, got %v", err)
	}
}
