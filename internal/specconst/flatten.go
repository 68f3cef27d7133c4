package specconst

import (
	"fmt"

	"fortio.org/safecast"

	"speclower/internal/layout"
	"speclower/internal/types"
)

// ElementDescriptor describes one scalar leaf of a composite constant: its
// numeric ID and where it lives inside the packed value.
type ElementDescriptor struct {
	ID     uint32 `json:"id" toml:"id" msgpack:"id"`
	Offset uint32 `json:"offset" toml:"offset" msgpack:"offset"`
	Size   uint32 `json:"size" toml:"size" msgpack:"size"`
}

// Flatten lists the scalar leaves of t in depth-first member order. Each
// leaf occupies its store size; offsets are the running sum of the sizes
// before it, without padding. IDs are left zero.
func Flatten(le *layout.LayoutEngine, t types.TypeID) ([]ElementDescriptor, error) {
	f := &flattener{walker: newWalker(le.Types), le: le}
	if err := f.flatten(t); err != nil {
		return nil, err
	}
	return f.out, nil
}

// LeafCount returns the number of scalar leaves of t.
func LeafCount(in *types.Interner, t types.TypeID) (int, error) {
	w := newWalker(in)
	var count func(types.TypeID) (int, error)
	count = func(id types.TypeID) (int, error) {
		tt, err := w.lookup(id)
		if err != nil {
			return 0, err
		}
		if tt.IsScalar() {
			return 1, nil
		}
		if !tt.IsAggregate() {
			return 0, unsupported(in, id)
		}
		n := 0
		err = w.members(id, tt, func(m types.TypeID) error {
			k, err := count(m)
			n += k
			return err
		})
		return n, err
	}
	return count(t)
}

type flattener struct {
	*walker
	le     *layout.LayoutEngine
	out    []ElementDescriptor
	offset uint64
}

func (f *flattener) flatten(id types.TypeID) error {
	tt, err := f.lookup(id)
	if err != nil {
		return err
	}
	if tt.IsAggregate() {
		return f.members(id, tt, f.flatten)
	}
	if !tt.IsScalar() {
		return unsupported(f.in, id)
	}
	size, err := f.le.StoreSize(id)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnsupportedType, err)
	}
	offset, err := safecast.Conv[uint32](f.offset)
	if err != nil {
		return fmt.Errorf("%w: composite larger than 4 GiB: %w", ErrUnsupportedType, err)
	}
	size32, err := safecast.Conv[uint32](size)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnsupportedType, err)
	}
	f.out = append(f.out, ElementDescriptor{Offset: offset, Size: size32})
	f.offset += uint64(size32)
	return nil
}
