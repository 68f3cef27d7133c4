package specconst

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"

	"speclower/internal/diag"
	"speclower/internal/ir"
	"speclower/internal/layout"
)

// annotation builds the !{!"sym", i32 id, ...} node for a root call.
func annotation(sym string, ids []uint32) *ir.MDNode {
	ops := make([]ir.MDOperand, 0, len(ids)+1)
	ops = append(ops, ir.MDStr(sym))
	for _, id := range ids {
		ops = append(ops, ir.MDI32(id))
	}
	return &ir.MDNode{Operands: ops}
}

var errBadAnnotation = errors.New("malformed annotation")

func decodeAnnotation(n *ir.MDNode) (string, []uint32, error) {
	if n == nil || len(n.Operands) == 0 {
		return "", nil, fmt.Errorf("%w: empty node", errBadAnnotation)
	}
	head := n.Operands[0]
	if head.Kind != ir.MDString || head.Str == "" {
		return "", nil, fmt.Errorf("%w: first operand is not a symbolic ID", errBadAnnotation)
	}
	ids := make([]uint32, 0, len(n.Operands)-1)
	for i, op := range n.Operands[1:] {
		if op.Kind != ir.MDInt || op.Width != 32 || op.Int > math.MaxUint32 {
			return "", nil, fmt.Errorf("%w: operand %d is not an i32", errBadAnnotation, i+1)
		}
		ids = append(ids, uint32(op.Int))
	}
	return head.Str, ids, nil
}

// Metadata is the symbolic to numeric ID mapping recovered from a lowered
// module.
type Metadata struct {
	Scalars    map[string]uint32              `json:"scalars" toml:"scalars"`
	Composites map[string][]ElementDescriptor `json:"composites" toml:"composites"`
}

// Len returns the number of symbolic IDs recorded.
func (md Metadata) Len() int { return len(md.Scalars) + len(md.Composites) }

// Symbols returns every recorded symbolic ID, sorted.
func (md Metadata) Symbols() []string {
	out := make([]string, 0, md.Len())
	for s := range md.Scalars {
		out = append(out, s)
	}
	for s := range md.Composites {
		out = append(out, s)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// CollectOptions configures Collect.
type CollectOptions struct {
	Target   layout.Target // zero value means SPIR64
	Reporter diag.Reporter // warnings about skipped annotations; nil discards them
	Unit     string
}

// Collect rebuilds the ID mapping from the annotations Run left on the root
// intrinsic calls of defined functions. Calls are classified by callee name,
// composite first since the scalar intrinsic name is a prefix of it.
// Malformed annotations are skipped with a warning. A symbol seen twice keeps
// the later entry. found reports whether any annotation was recorded.
func Collect(m *ir.Module, opts CollectOptions) (md Metadata, found bool) {
	if opts.Target == (layout.Target{}) {
		opts.Target = layout.SPIR64()
	}
	if opts.Reporter == nil {
		opts.Reporter = diag.NopReporter{}
	}
	md = Metadata{
		Scalars:    make(map[string]uint32),
		Composites: make(map[string][]ElementDescriptor),
	}
	le := layout.New(opts.Target, m.Types)
	warn := func(code diag.Code, where diag.Location, format string, args ...any) {
		diag.ReportWarning(opts.Reporter, code, where, fmt.Sprintf(format, args...)).Emit()
	}

	for _, f := range m.Funcs {
		if f.IsDeclaration() {
			continue
		}
		for _, b := range f.Blocks {
			for idx, ins := range b.Instrs {
				if ins.Kind != ir.InstrCall || ins.Call.Callee == nil {
					continue
				}
				callee := ins.Call.Callee.Name
				composite := strings.Contains(callee, SpecConstantCompositeIntrinsic)
				if !composite && !strings.Contains(callee, SpecConstantIntrinsic) {
					continue
				}
				node, ok := ins.GetMetadata(AnnotationKey)
				if !ok {
					continue
				}
				where := diag.At(opts.Unit, f.Name, b.Name, idx)
				sym, ids, err := decodeAnnotation(node)
				if err != nil {
					warn(diag.ColMalformedAnnotation, where, "%v", err)
					continue
				}
				if !norm.NFC.IsNormalString(sym) {
					warn(diag.ColNotNormalized, where, "symbolic ID %q is not in NFC form", sym)
				}

				if !composite {
					if len(ids) != 1 {
						warn(diag.ColMalformedAnnotation, where, "scalar %q annotated with %d IDs", sym, len(ids))
						continue
					}
					if prev, ok := md.Scalars[sym]; ok && prev != ids[0] {
						warn(diag.ColDuplicateSymbol, where, "%q was ID %d, now %d", sym, prev, ids[0])
					}
					md.Scalars[sym] = ids[0]
					continue
				}

				leaves, err := Flatten(le, ins.Typ)
				if err != nil {
					warn(diag.ColMalformedAnnotation, where, "composite %q: %v", sym, err)
					continue
				}
				if len(leaves) != len(ids) {
					warn(diag.ColMalformedAnnotation, where, "composite %q has %d leaves but %d IDs", sym, len(leaves), len(ids))
					continue
				}
				for i := range leaves {
					leaves[i].ID = ids[i]
				}
				if prev, ok := md.Composites[sym]; ok && !slices.Equal(prev, leaves) {
					warn(diag.ColDuplicateSymbol, where, "composite %q annotated twice with different elements", sym)
				}
				md.Composites[sym] = leaves
			}
		}
	}
	return md, md.Len() > 0
}
