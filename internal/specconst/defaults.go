package specconst

import (
	"speclower/internal/ir"
	"speclower/internal/types"
)

// DefaultValue returns the zero constant of t: integer 0 and +0.0 at every
// scalar leaf.
func DefaultValue(in *types.Interner, t types.TypeID) (*ir.Const, error) {
	return newWalker(in).zero(t)
}

func (w *walker) zero(id types.TypeID) (*ir.Const, error) {
	tt, err := w.lookup(id)
	if err != nil {
		return nil, err
	}
	switch tt.Kind {
	case types.KindInt:
		return ir.NewInt(id, 0), nil
	case types.KindFloat:
		return ir.NewFloat(id, 0), nil
	case types.KindArray, types.KindVector:
		// every element is the same constant
		elem, err := w.zero(tt.Elem)
		if err != nil {
			return nil, err
		}
		elems := make([]*ir.Const, tt.Count)
		for i := range elems {
			elems[i] = elem
		}
		return ir.NewAggregate(id, elems...), nil
	case types.KindStruct:
		var elems []*ir.Const
		err := w.members(id, tt, func(f types.TypeID) error {
			c, err := w.zero(f)
			if err != nil {
				return err
			}
			elems = append(elems, c)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return ir.NewAggregate(id, elems...), nil
	default:
		return nil, unsupported(w.in, id)
	}
}
