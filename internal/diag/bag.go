package diag

import (
	"cmp"
	"slices"

	"fortio.org/safecast"
)

// Bag collects diagnostics up to a limit. Reports past the limit are dropped.
type Bag struct {
	items []Diagnostic
	limit uint16
}

func NewBag(limit int) *Bag {
	return &Bag{
		items: make([]Diagnostic, 0, max(0, min(limit, 64))),
		limit: clampLimit(limit),
	}
}

func clampLimit(n int) uint16 {
	v, err := safecast.Conv[uint16](n)
	if err != nil {
		if n < 0 {
			return 0
		}
		return ^uint16(0)
	}
	return v
}

// Add reports false when d was dropped because the bag is full.
func (b *Bag) Add(d Diagnostic) bool {
	if len(b.items) >= int(b.limit) {
		return false
	}
	b.items = append(b.items, d)
	return true
}

func (b *Bag) any(floor Severity) bool {
	return slices.ContainsFunc(b.items, func(d Diagnostic) bool { return d.Severity.AtLeast(floor) })
}

func (b *Bag) HasErrors() bool   { return b.any(SevError) }
func (b *Bag) HasWarnings() bool { return b.any(SevWarning) }

func (b *Bag) Len() int { return len(b.items) }

// Items aliases the bag's storage.
func (b *Bag) Items() []Diagnostic { return b.items }

// Merge appends everything in other, raising the limit if it must.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	if need := len(b.items) + len(other.items); need > int(b.limit) {
		b.limit = clampLimit(need)
	}
	for _, d := range other.items {
		b.Add(d)
	}
}

// Sort orders by location, then most severe first, then by code.
func (b *Bag) Sort() {
	slices.SortStableFunc(b.items, func(x, y Diagnostic) int {
		return cmp.Or(
			cmp.Compare(x.Where.Unit, y.Where.Unit),
			cmp.Compare(x.Where.Func, y.Where.Func),
			cmp.Compare(x.Where.Block, y.Where.Block),
			cmp.Compare(x.Where.Index, y.Where.Index),
			cmp.Compare(y.Severity, x.Severity),
			cmp.Compare(x.Code, y.Code),
		)
	})
}
