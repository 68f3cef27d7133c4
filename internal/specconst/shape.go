package specconst

import (
	"fmt"

	"speclower/internal/types"
)

// walker visits the members of a constant type depth-first. It rejects
// named structs that contain themselves by value.
type walker struct {
	in     *types.Interner
	active map[types.TypeID]bool
}

func newWalker(in *types.Interner) *walker {
	return &walker{in: in, active: make(map[types.TypeID]bool, 4)}
}

func (w *walker) lookup(id types.TypeID) (types.Type, error) {
	tt, ok := w.in.Lookup(id)
	if !ok || tt.Kind == types.KindInvalid {
		return types.Type{}, fmt.Errorf("%w: unknown type #%d", ErrUnsupportedType, id)
	}
	return tt, nil
}

// members calls fn for every direct member type of an aggregate, in order.
func (w *walker) members(id types.TypeID, tt types.Type, fn func(types.TypeID) error) error {
	switch tt.Kind {
	case types.KindArray, types.KindVector:
		for range tt.Count {
			if err := fn(tt.Elem); err != nil {
				return err
			}
		}
		return nil
	case types.KindStruct:
		if w.active[id] {
			return fmt.Errorf("%w: %s contains itself", ErrUnsupportedType, w.in.String(id))
		}
		w.active[id] = true
		defer delete(w.active, id)
		for _, f := range w.in.StructFields(id) {
			if err := fn(f); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %s is not an aggregate", ErrUnsupportedType, w.in.String(id))
	}
}

func unsupported(in *types.Interner, id types.TypeID) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedType, in.String(id))
}
