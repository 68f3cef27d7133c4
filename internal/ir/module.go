package ir

import (
	"errors"
	"fmt"
	"slices"

	"speclower/internal/types"
)

var (
	// ErrSignatureMismatch reports a redeclaration with a different signature.
	ErrSignatureMismatch = errors.New("function redeclared with a different signature")
	// ErrDuplicateSymbol reports a second definition of the same name.
	ErrDuplicateSymbol = errors.New("duplicate symbol")
	// ErrInstrHasUses reports removal of an instruction that is still used.
	ErrInstrHasUses = errors.New("instruction still has uses")
	// ErrNotInBlock reports an instruction that is not where it was expected.
	ErrNotInBlock = errors.New("instruction not found in block")
)

// Module is one compilation unit.
type Module struct {
	Name    string
	Types   *types.Interner
	Globals []*Global
	Funcs   []*Func

	funcIndex   map[string]*Func
	globalIndex map[string]*Global
}

// NewModule creates an empty module. A nil interner gets a fresh one.
func NewModule(name string, typesIn *types.Interner) *Module {
	if typesIn == nil {
		typesIn = types.NewInterner()
	}
	return &Module{
		Name:        name,
		Types:       typesIn,
		funcIndex:   make(map[string]*Func, 16),
		globalIndex: make(map[string]*Global, 16),
	}
}

// Func looks up a function by name.
func (m *Module) Func(name string) (*Func, bool) {
	f, ok := m.funcIndex[name]
	return f, ok
}

// Global looks up a global by name.
func (m *Module) Global(name string) (*Global, bool) {
	g, ok := m.globalIndex[name]
	return g, ok
}

// NewFunc declares a function. Add blocks to turn it into a definition.
func (m *Module) NewFunc(name string, result types.TypeID, params ...types.TypeID) (*Func, error) {
	if _, ok := m.funcIndex[name]; ok {
		return nil, fmt.Errorf("%w: function @%s", ErrDuplicateSymbol, name)
	}
	f := &Func{
		Name:   name,
		Result: result,
		Module: m,
	}
	for i, p := range params {
		f.Params = append(f.Params, &Param{Name: fmt.Sprintf("arg%d", i), Typ: p, Index: i})
	}
	m.Funcs = append(m.Funcs, f)
	m.funcIndex[name] = f
	return f, nil
}

// GetOrInsertFunc returns the function called name, declaring it when absent.
// An existing function must have exactly the requested signature.
func (m *Module) GetOrInsertFunc(name string, result types.TypeID, params ...types.TypeID) (*Func, error) {
	if f, ok := m.funcIndex[name]; ok {
		if !f.HasSignature(result, params) {
			return nil, fmt.Errorf("%w: @%s", ErrSignatureMismatch, name)
		}
		return f, nil
	}
	return m.NewFunc(name, result, params...)
}

// NewGlobal adds a module-level variable with an optional initializer.
func (m *Module) NewGlobal(name string, elem types.TypeID, init *Const, isConst bool) (*Global, error) {
	if _, ok := m.globalIndex[name]; ok {
		return nil, fmt.Errorf("%w: global @%s", ErrDuplicateSymbol, name)
	}
	g := &Global{
		Name:     name,
		ElemType: elem,
		PtrType:  m.Types.Intern(types.MakePointer(elem, 0)),
		Init:     init,
		IsConst:  isConst,
	}
	m.Globals = append(m.Globals, g)
	m.globalIndex[name] = g
	return g, nil
}

// NewStringLiteral adds a private constant holding s followed by a NUL byte,
// the way front ends materialise string literals.
func (m *Module) NewStringLiteral(name, s string) (*Global, error) {
	data := append([]byte(s), 0)
	n := uint32(len(data)) //nolint:gosec // literal lengths are small
	arr := m.Types.Intern(types.MakeArray(m.Types.Builtins().I8, n))
	return m.NewGlobal(name, arr, NewBytes(arr, data), true)
}

// Callers returns every call of fn across the module, in function order,
// then block order, then instruction order.
func (m *Module) Callers(fn *Func) []*Instr {
	var out []*Instr
	for _, f := range m.Funcs {
		for _, b := range f.Blocks {
			for _, ins := range b.Instrs {
				if ins.Kind == InstrCall && ins.Call.Callee == fn {
					out = append(out, ins)
				}
			}
		}
	}
	return out
}

// Func is a function declaration or definition.
type Func struct {
	Name   string
	Params []*Param
	Result types.TypeID
	Blocks []*Block
	Module *Module
}

// IsDeclaration reports whether the function has no body.
func (f *Func) IsDeclaration() bool {
	return len(f.Blocks) == 0
}

// ParamTypes returns the parameter types in order.
func (f *Func) ParamTypes() []types.TypeID {
	out := make([]types.TypeID, len(f.Params))
	for i, p := range f.Params {
		out[i] = p.Typ
	}
	return out
}

// HasSignature reports whether f has the given result and parameter types.
func (f *Func) HasSignature(result types.TypeID, params []types.TypeID) bool {
	return f.Result == result && slices.Equal(f.ParamTypes(), params)
}

// NewBlock appends an empty block to the function.
func (f *Func) NewBlock(name string) *Block {
	b := &Block{Name: name, Parent: f}
	f.Blocks = append(f.Blocks, b)
	return b
}

// Instructions returns all instructions of the function in block order.
func (f *Func) Instructions() []*Instr {
	var out []*Instr
	for _, b := range f.Blocks {
		out = append(out, b.Instrs...)
	}
	return out
}

// Users returns the instructions of f that take v as an operand.
// An instruction using v twice is listed once.
func (f *Func) Users(v Value) []*Instr {
	var out []*Instr
	for _, b := range f.Blocks {
		for _, ins := range b.Instrs {
			for _, op := range ins.Operands() {
				if *op == v {
					out = append(out, ins)
					break
				}
			}
		}
	}
	return out
}

// NumUses counts operand slots of f that refer to v.
func (f *Func) NumUses(v Value) int {
	n := 0
	for _, b := range f.Blocks {
		for _, ins := range b.Instrs {
			for _, op := range ins.Operands() {
				if *op == v {
					n++
				}
			}
		}
	}
	return n
}

// ReplaceAllUses rewrites every operand of f that refers to old so that it
// refers to repl instead. It returns the number of rewritten operands.
func (f *Func) ReplaceAllUses(old, repl Value) int {
	n := 0
	for _, b := range f.Blocks {
		for _, ins := range b.Instrs {
			for _, op := range ins.Operands() {
				if *op == old {
					*op = repl
					n++
				}
			}
		}
	}
	return n
}

// Block is a straight-line sequence of instructions ending in a terminator.
type Block struct {
	Name   string
	Instrs []*Instr
	Parent *Func
}

// Append adds ins at the end of the block.
func (b *Block) Append(ins *Instr) *Instr {
	ins.Parent = b
	b.Instrs = append(b.Instrs, ins)
	return ins
}

// Index returns the position of ins in the block, or -1.
func (b *Block) Index(ins *Instr) int {
	return slices.Index(b.Instrs, ins)
}

// InsertBefore places ins immediately before at.
func (b *Block) InsertBefore(at, ins *Instr) error {
	idx := b.Index(at)
	if idx < 0 {
		return fmt.Errorf("%w: insertion point in %s", ErrNotInBlock, b.Name)
	}
	ins.Parent = b
	b.Instrs = slices.Insert(b.Instrs, idx, ins)
	return nil
}

// Terminator returns the last instruction if it ends the block.
func (b *Block) Terminator() *Instr {
	if len(b.Instrs) == 0 {
		return nil
	}
	last := b.Instrs[len(b.Instrs)-1]
	if !last.IsTerminator() {
		return nil
	}
	return last
}

// EraseFromParent removes ins from its block. It fails while any instruction
// of the function still uses ins.
func (i *Instr) EraseFromParent() error {
	b := i.Parent
	if b == nil {
		return fmt.Errorf("%w: detached %s", ErrNotInBlock, i.Kind)
	}
	if i.HasResult() && b.Parent != nil {
		if n := b.Parent.NumUses(i); n > 0 {
			return fmt.Errorf("%w: %s %%%s has %d", ErrInstrHasUses, i.Kind, i.Name, n)
		}
	}
	idx := b.Index(i)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotInBlock, b.Name)
	}
	b.Instrs = slices.Delete(b.Instrs, idx, idx+1)
	i.Parent = nil
	return nil
}

// Next returns the instruction following i in its block, or nil.
func (i *Instr) Next() *Instr {
	if i.Parent == nil {
		return nil
	}
	idx := i.Parent.Index(i)
	if idx < 0 || idx+1 >= len(i.Parent.Instrs) {
		return nil
	}
	return i.Parent.Instrs[idx+1]
}

// Func returns the function containing i, or nil when detached.
func (i *Instr) Func() *Func {
	if i.Parent == nil {
		return nil
	}
	return i.Parent.Parent
}
