package specconst

import (
	"fmt"
	"strings"
)

// Mode selects how accessor calls are replaced.
type Mode uint8

const (
	// ModeRuntime rebuilds each constant from intrinsic calls so the value
	// can be set when the device program is loaded.
	ModeRuntime Mode = iota
	// ModeDefault folds each constant to the zero value of its type.
	ModeDefault
)

func (m Mode) String() string {
	switch m {
	case ModeRuntime:
		return "runtime"
	case ModeDefault:
		return "default"
	default:
		return fmt.Sprintf("Mode(%d)", m)
	}
}

// ParseMode parses "runtime" or "default", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "runtime", "":
		return ModeRuntime, nil
	case "default":
		return ModeDefault, nil
	default:
		return ModeRuntime, fmt.Errorf("unknown mode %q (want runtime or default)", s)
	}
}

// Names of the functions and annotations the pass matches and produces.
const (
	ScalarAccessorPrefix           = "_Z27__sycl_getSpecConstantValue"
	CompositeAccessorPrefix        = "_Z36__sycl_getCompositeSpecConstantValue"
	SpecConstantIntrinsic          = "__spirv_SpecConstant"
	SpecConstantCompositeIntrinsic = "__spirv_SpecConstantComposite"
	AnnotationKey                  = "SYCL_SPEC_CONST_SYM_ID"
)

type family uint8

const (
	notAccessor family = iota
	scalarAccessor
	compositeAccessor
)

func classifyAccessor(name string) family {
	switch {
	case strings.HasPrefix(name, CompositeAccessorPrefix):
		return compositeAccessor
	case strings.HasPrefix(name, ScalarAccessorPrefix):
		return scalarAccessor
	default:
		return notAccessor
	}
}
