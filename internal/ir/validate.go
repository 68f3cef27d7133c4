package ir

import (
	"errors"
	"fmt"

	"speclower/internal/types"
)

// Validate checks structural module invariants.
// Returns error if any invariant is violated.
func Validate(m *Module) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, f := range m.Funcs {
		if f == nil || f.IsDeclaration() {
			continue
		}
		if err := validateFunc(m, f); err != nil {
			errs = append(errs, fmt.Errorf("function @%s: %w", f.Name, err))
		}
	}
	return errors.Join(errs...)
}

func validateFunc(m *Module, f *Func) error {
	var errs []error

	defined := make(map[*Instr]bool, 32)
	blocks := make(map[*Block]bool, len(f.Blocks))
	for _, b := range f.Blocks {
		blocks[b] = true
		for _, ins := range b.Instrs {
			defined[ins] = true
		}
	}
	params := make(map[*Param]bool, len(f.Params))
	for _, prm := range f.Params {
		params[prm] = true
	}

	for _, b := range f.Blocks {
		if b.Terminator() == nil {
			errs = append(errs, fmt.Errorf("%s: unterminated block", b.Name))
		}
		for idx, ins := range b.Instrs {
			if ins.Parent != b {
				errs = append(errs, fmt.Errorf("%s: instruction %d has wrong parent", b.Name, idx))
			}
			if ins.IsTerminator() && idx != len(b.Instrs)-1 {
				errs = append(errs, fmt.Errorf("%s: terminator in the middle of the block", b.Name))
			}
			for _, op := range ins.Operands() {
				switch v := (*op).(type) {
				case nil:
					errs = append(errs, fmt.Errorf("%s: %s has a nil operand", b.Name, ins.Kind))
				case *Instr:
					if !defined[v] {
						errs = append(errs, fmt.Errorf("%s: %s uses an instruction outside the function", b.Name, ins.Kind))
					} else if !v.HasResult() {
						errs = append(errs, fmt.Errorf("%s: %s uses a %s without result", b.Name, ins.Kind, v.Kind))
					}
				case *Param:
					if !params[v] {
						errs = append(errs, fmt.Errorf("%s: %s uses a foreign parameter", b.Name, ins.Kind))
					}
				}
			}
			if err := validateInstr(m, f, ins, blocks); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", b.Name, err))
			}
		}
	}
	return errors.Join(errs...)
}

func validateInstr(m *Module, f *Func, ins *Instr, blocks map[*Block]bool) error {
	switch ins.Kind {
	case InstrCall:
		callee := ins.Call.Callee
		if callee == nil {
			return errors.New("call without callee")
		}
		if known, ok := m.Func(callee.Name); !ok || known != callee {
			return fmt.Errorf("call to @%s which is not in the module", callee.Name)
		}
		if len(ins.Call.Args) != len(callee.Params) {
			return fmt.Errorf("call to @%s: %d arguments, want %d", callee.Name, len(ins.Call.Args), len(callee.Params))
		}
		for i, a := range ins.Call.Args {
			if a != nil && a.Type() != callee.Params[i].Typ {
				return fmt.Errorf("call to @%s: argument %d has type %s, want %s",
					callee.Name, i, m.Types.String(a.Type()), m.Types.String(callee.Params[i].Typ))
			}
		}
		want := callee.Result
		if want == m.Types.Builtins().Void {
			want = types.NoTypeID
		}
		if ins.Typ != want {
			return fmt.Errorf("call to @%s: result type mismatch", callee.Name)
		}
	case InstrStore:
		ptr := ins.Store.Ptr
		if ptr == nil || ins.Store.Value == nil {
			return nil
		}
		tt, ok := m.Types.Lookup(ptr.Type())
		if !ok || tt.Kind != types.KindPointer {
			return errors.New("store through a non-pointer")
		}
		if tt.Elem != ins.Store.Value.Type() {
			return fmt.Errorf("store of %s through %s", m.Types.String(ins.Store.Value.Type()), m.Types.String(ptr.Type()))
		}
	case InstrLoad:
		if ins.Load.Ptr == nil {
			return nil
		}
		tt, ok := m.Types.Lookup(ins.Load.Ptr.Type())
		if !ok || tt.Kind != types.KindPointer {
			return errors.New("load through a non-pointer")
		}
		if tt.Elem != ins.Typ {
			return fmt.Errorf("load of %s through %s", m.Types.String(ins.Typ), m.Types.String(ins.Load.Ptr.Type()))
		}
	case InstrRet:
		void := f.Result == m.Types.Builtins().Void
		if void && ins.Ret.HasValue {
			return errors.New("value returned from void function")
		}
		if !void && (!ins.Ret.HasValue || ins.Ret.Value == nil || ins.Ret.Value.Type() != f.Result) {
			return fmt.Errorf("return type mismatch, want %s", m.Types.String(f.Result))
		}
	case InstrBr:
		if !blocks[ins.Br.Target] {
			return errors.New("branch to a block outside the function")
		}
	}
	return nil
}
