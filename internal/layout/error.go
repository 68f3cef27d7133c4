package layout

import (
	"fmt"
	"strings"

	"speclower/internal/types"
)

type LayoutErrorKind uint8

const (
	// LayoutErrRecursiveUnsized is a struct that contains itself by value.
	LayoutErrRecursiveUnsized LayoutErrorKind = iota + 1
	// LayoutErrUnsized is void or an opaque struct.
	LayoutErrUnsized
	// LayoutErrUnknownType is an ID the interner never handed out.
	LayoutErrUnknownType
)

// LayoutError is returned by every LayoutEngine query that fails.
type LayoutError struct {
	Kind  LayoutErrorKind
	Type  types.TypeID
	Name  string
	Cycle []types.TypeID
}

func (e *LayoutError) Error() string {
	name := e.Name
	if name == "" {
		name = fmt.Sprintf("type#%d", e.Type)
	}
	switch e.Kind {
	case LayoutErrRecursiveUnsized:
		ids := make([]string, len(e.Cycle))
		for i, id := range e.Cycle {
			ids[i] = fmt.Sprintf("type#%d", id)
		}
		return fmt.Sprintf("%s contains itself by value (cycle: %s)", name, strings.Join(ids, " -> "))
	case LayoutErrUnsized:
		return fmt.Sprintf("type %s has no storage size", name)
	case LayoutErrUnknownType:
		return fmt.Sprintf("unknown type %s", name)
	}
	return fmt.Sprintf("layout of %s failed (kind %d)", name, e.Kind)
}
