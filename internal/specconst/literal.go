package specconst

import (
	"bytes"

	"speclower/internal/ir"
)

// StringLiteralArg resolves argument argNo of call to the text of a constant
// character array. The argument is either the (possibly cast) address of the
// global itself, or a load from a local slot that received the address in
// the single store preceding the load in the same block.
//
// The returned instructions become dead once the call is removed and must be
// erased in the given order after it.
func StringLiteralArg(call *ir.Instr, argNo int) (string, []*ir.Instr, error) {
	if call == nil || call.Kind != ir.InstrCall {
		return "", nil, newError(ErrMalformedPattern, call, "not a call")
	}
	if argNo < 0 || argNo >= len(call.Call.Args) {
		return "", nil, newError(ErrMalformedPattern, call, "call has %d arguments, symbolic ID expected in argument %d", len(call.Call.Args), argNo)
	}
	f := call.Func()
	if f == nil {
		return "", nil, newError(ErrMalformedPattern, call, "call is not part of a function")
	}

	var dead []*ir.Instr
	v := call.Call.Args[argNo]
	for {
		if ins, ok := v.(*ir.Instr); ok && ins.Kind == ir.InstrCast && ins.Cast.Op.IsPointerCast() {
			if f.NumUses(ins) == 1 {
				dead = append(dead, ins)
			}
			v = ins.Cast.Value
			continue
		}
		if ce, ok := v.(*ir.ConstExpr); ok && ce.IsPointerCast() {
			v = ce.Operand
			continue
		}
		break
	}

	if load, ok := v.(*ir.Instr); ok && load.Kind == ir.InstrLoad {
		store, err := soleStoreBefore(f, load)
		if err != nil {
			return "", nil, err
		}
		dead = append(dead, store, load)
		v = ir.StripPointerCasts(store.Store.Value)
	}

	g, ok := v.(*ir.Global)
	if !ok {
		return "", nil, newError(ErrMalformedPattern, call, "symbolic ID is not a string literal")
	}
	if g.Init == nil || g.Init.Kind != ir.ConstBytes {
		return "", nil, newError(ErrMalformedPattern, call, "global @%s has no character array initializer", g.Name)
	}
	text := g.Init.Bytes
	if n := len(text); n > 0 && text[n-1] == 0 {
		text = text[:n-1]
	}
	if len(text) == 0 {
		return "", nil, newError(ErrMalformedPattern, call, "empty symbolic ID in @%s", g.Name)
	}
	if bytes.IndexByte(text, 0) >= 0 {
		return "", nil, newError(ErrMalformedPattern, call, "symbolic ID in @%s contains a NUL byte", g.Name)
	}
	return string(text), dead, nil
}

// soleStoreBefore finds the only store into the slot load reads from. The
// store must come earlier in the same block with nothing in between that
// could write memory.
func soleStoreBefore(f *ir.Func, load *ir.Instr) (*ir.Instr, error) {
	slot, ok := ir.StripPointerCasts(load.Load.Ptr).(*ir.Instr)
	if !ok || slot.Kind != ir.InstrAlloca {
		return nil, newError(ErrMalformedPattern, load, "symbolic ID is loaded from something other than a local slot")
	}

	var store *ir.Instr
	for _, ins := range f.Instructions() {
		if ins.Kind != ir.InstrStore || ir.StripPointerCasts(ins.Store.Ptr) != slot {
			continue
		}
		if store != nil {
			return nil, newError(ErrMalformedPattern, ins, "local slot %%%s is written more than once", slot.Name)
		}
		store = ins
	}
	if store == nil {
		return nil, newError(ErrMalformedPattern, load, "local slot %%%s is never written", slot.Name)
	}
	if store.Parent != load.Parent {
		return nil, newError(ErrMalformedPattern, load, "store to %%%s is in another block", slot.Name)
	}
	for next := store.Next(); next != nil; next = next.Next() {
		if next == load {
			return store, nil
		}
		if next.MayHaveSideEffects() {
			return nil, newError(ErrMalformedPattern, next, "instruction between store and load may write memory")
		}
	}
	return nil, newError(ErrMalformedPattern, load, "load of %%%s does not follow its store", slot.Name)
}
