package specconst

import (
	"fmt"
	"math"
	"slices"

	"fortio.org/safecast"
)

// Allocator hands out numeric IDs for symbolic IDs. IDs start at 0, grow by
// one per scalar leaf and are never reused for another symbol. A symbol seen
// again gets back the IDs it was first given.
type Allocator struct {
	next  uint64
	ids   map[string][]uint32
	order []string
}

// NewAllocator returns an empty allocator.
func NewAllocator() *Allocator {
	return &Allocator{ids: make(map[string][]uint32)}
}

// AllocateOrReuse returns the IDs of sym, allocating leafCount fresh IDs on
// first use. A later use with a different leaf count fails with
// ErrLeafCountMismatch. fresh reports whether the IDs were just allocated.
func (a *Allocator) AllocateOrReuse(sym string, leafCount int) (fresh bool, ids []uint32, err error) {
	if prev, ok := a.ids[sym]; ok {
		if len(prev) != leafCount {
			return false, nil, fmt.Errorf("%w: %q has %d leaves, now used with %d", ErrLeafCountMismatch, sym, len(prev), leafCount)
		}
		return false, slices.Clone(prev), nil
	}
	n, err := safecast.Conv[uint64](leafCount)
	if err != nil {
		return false, nil, fmt.Errorf("%w: leaf count %d: %w", ErrUnsupportedType, leafCount, err)
	}
	if a.next+n > math.MaxUint32+1 {
		return false, nil, fmt.Errorf("%w: numeric IDs exhausted", ErrUnsupportedType)
	}
	ids = make([]uint32, leafCount)
	for i := range ids {
		ids[i] = uint32(a.next) //nolint:gosec // bounded above
		a.next++
	}
	a.ids[sym] = ids
	a.order = append(a.order, sym)
	return true, slices.Clone(ids), nil
}

// Lookup returns the IDs already assigned to sym.
func (a *Allocator) Lookup(sym string) ([]uint32, bool) {
	ids, ok := a.ids[sym]
	return slices.Clone(ids), ok
}

// Len returns the number of numeric IDs handed out so far.
func (a *Allocator) Len() uint64 { return a.next }

// Symbols returns symbolic IDs in allocation order.
func (a *Allocator) Symbols() []string { return slices.Clone(a.order) }

// Snapshot copies the symbol to IDs mapping.
func (a *Allocator) Snapshot() map[string][]uint32 {
	out := make(map[string][]uint32, len(a.ids))
	for k, v := range a.ids {
		out[k] = slices.Clone(v)
	}
	return out
}
