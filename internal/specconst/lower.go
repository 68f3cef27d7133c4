package specconst

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"speclower/internal/diag"
	"speclower/internal/ir"
	"speclower/internal/layout"
	"speclower/internal/trace"
	"speclower/internal/types"
)

// Options configures one lowering run.
type Options struct {
	Mode     Mode
	Target   layout.Target // zero value means SPIR64
	Reporter diag.Reporter // informational diagnostics; nil discards them
	Unit     string        // name used in diagnostic locations
}

// Result summarises a run.
type Result struct {
	// Modified is false only when no accessor call exists; the module is then
	// untouched.
	Modified  bool
	CallSites int
	// Assigned maps symbolic IDs to their numeric IDs (runtime mode only).
	Assigned map[string][]uint32
	// Symbols lists Assigned keys in allocation order.
	Symbols []string
}

// Run replaces every accessor call in m. Any error leaves m partially
// rewritten; discard it.
func Run(ctx context.Context, m *ir.Module, opts Options) (Result, error) {
	if opts.Target == (layout.Target{}) {
		opts.Target = layout.SPIR64()
	}
	if opts.Reporter == nil {
		opts.Reporter = diag.NopReporter{}
	}
	p := &pass{
		m:    m,
		in:   m.Types,
		le:   layout.New(opts.Target, m.Types),
		ids:  NewAllocator(),
		opts: opts,
		tr:   trace.FromContext(ctx),
	}

	span, ctx := trace.StartSpan(ctx, trace.ScopeUnit, "lower:"+opts.Mode.String())
	res, err := p.run(ctx)
	span.WithExtra("calls", strconv.Itoa(res.CallSites)).
		WithExtra("ids", strconv.FormatUint(p.ids.Len(), 10))
	if err != nil {
		span.End(err.Error())
		return res, err
	}
	span.End("")
	return res, nil
}

type pass struct {
	m    *ir.Module
	in   *types.Interner
	le   *layout.LayoutEngine
	ids  *Allocator
	opts Options
	tr   trace.Tracer
}

func (p *pass) run(ctx context.Context) (Result, error) {
	var res Result
	// intrinsics declared during the run are appended to m.Funcs
	decls := append([]*ir.Func(nil), p.m.Funcs...)
	for _, fn := range decls {
		fam := classifyAccessor(fn.Name)
		if fam == notAccessor || !fn.IsDeclaration() {
			continue
		}
		calls := p.m.Callers(fn)
		if len(calls) == 0 {
			diag.ReportInfo(p.opts.Reporter, diag.SpcUnusedAccessor, diag.InUnit(p.opts.Unit),
				fmt.Sprintf("accessor @%s is declared but never called", fn.Name)).Emit()
			continue
		}
		// a declaration is lowered completely or not at all
		if err := ctx.Err(); err != nil {
			p.finish(&res)
			return res, err
		}
		res.Modified = true

		span, sctx := trace.StartSpan(ctx, trace.ScopePass, "accessor:"+fn.Name)
		for _, call := range calls {
			if err := p.lowerCall(sctx, fam, call); err != nil {
				span.End("error")
				p.finish(&res)
				return res, err
			}
			res.CallSites++
		}
		span.WithExtra("calls", strconv.Itoa(len(calls))).End("")
	}
	p.finish(&res)
	return res, nil
}

func (p *pass) finish(res *Result) {
	if p.opts.Mode != ModeRuntime {
		return
	}
	res.Assigned = p.ids.Snapshot()
	res.Symbols = p.ids.Symbols()
}

func (p *pass) lowerCall(ctx context.Context, fam family, call *ir.Instr) error {
	f := call.Func()
	site := locate(p.opts.Unit, call)
	fail := func(err error, sym string) error {
		return asError(err, p.opts.Unit, call, sym)
	}

	nameArg := 0
	scTy := call.Typ
	var out ir.Value
	if fam == compositeAccessor {
		if len(call.Call.Args) < 2 {
			return fail(newError(ErrMalformedPattern, call, "composite accessor takes an out pointer and a name, got %d arguments", len(call.Call.Args)), "")
		}
		nameArg = 1
		out = call.Call.Args[0]
		pt, ok := p.in.Lookup(out.Type())
		if !ok || pt.Kind != types.KindPointer {
			return fail(newError(ErrMalformedPattern, call, "first argument of a composite accessor must be a pointer"), "")
		}
		scTy = pt.Elem
	} else if !call.HasResult() {
		return fail(newError(ErrUnsupportedType, call, "scalar accessor returns void"), "")
	}

	sym, dead, err := StringLiteralArg(call, nameArg)
	if err != nil {
		return fail(err, "")
	}

	var repl ir.Value
	var ids []uint32
	if p.opts.Mode == ModeRuntime {
		if ids, err = p.idsFor(sym, scTy); err != nil {
			return fail(err, sym)
		}
		mt := &materializer{pass: p, w: newWalker(p.in), b: ir.NewBuilderBefore(call), leafIDs: ids}
		root, err := mt.emit(scTy)
		if err != nil {
			return fail(err, sym)
		}
		if mt.next != len(ids) {
			return fail(fmt.Errorf("%w: consumed %d of %d IDs", ErrLeafCountMismatch, mt.next, len(ids)), sym)
		}
		root.SetMetadata(AnnotationKey, annotation(sym, ids))
		repl = root
	} else {
		def, err := DefaultValue(p.in, scTy)
		if err != nil {
			return fail(err, sym)
		}
		repl = def
	}

	if out != nil {
		ir.NewBuilderBefore(call).Store(repl, out)
	} else {
		f.ReplaceAllUses(call, repl)
	}

	for _, ins := range append([]*ir.Instr{call}, dead...) {
		if err := ins.EraseFromParent(); err != nil {
			if errors.Is(err, ir.ErrInstrHasUses) {
				return &Error{Kind: ErrLiveInstruction, Where: site, Symbol: sym, Err: err}
			}
			return &Error{Kind: ErrMalformedPattern, Where: site, Symbol: sym, Err: err}
		}
	}

	trace.Point(p.tr, trace.ScopeCallSite, "callsite", trace.CurrentSpan(ctx).SpanID, sym, map[string]string{
		"at":  site.String(),
		"ids": formatIDs(ids),
	})
	return nil
}

// idsFor returns the numeric IDs of sym used as a value of type t. The first
// use lays t out; later uses only compare the leaf count.
func (p *pass) idsFor(sym string, t types.TypeID) ([]uint32, error) {
	if prev, ok := p.ids.Lookup(sym); ok {
		n, err := LeafCount(p.in, t)
		if err != nil {
			return nil, err
		}
		if n != len(prev) {
			return nil, fmt.Errorf("%w: %q has %d leaves, now used with %d", ErrLeafCountMismatch, sym, len(prev), n)
		}
		return prev, nil
	}
	leaves, err := Flatten(p.le, t)
	if err != nil {
		return nil, err
	}
	_, ids, err := p.ids.AllocateOrReuse(sym, len(leaves))
	return ids, err
}

// materializer rebuilds a constant of a given type from intrinsic calls
// inserted by b, consuming leafIDs in order.
type materializer struct {
	*pass
	w       *walker
	b       *ir.Builder
	leafIDs []uint32
	next    int
}

func (mt *materializer) emit(t types.TypeID) (*ir.Instr, error) {
	tt, ok := mt.in.Lookup(t)
	if !ok {
		return nil, unsupported(mt.in, t)
	}
	if tt.IsScalar() {
		if mt.next >= len(mt.leafIDs) {
			return nil, fmt.Errorf("%w: more leaves than IDs", ErrLeafCountMismatch)
		}
		id := mt.leafIDs[mt.next]
		mt.next++
		def, err := DefaultValue(mt.in, t)
		if err != nil {
			return nil, err
		}
		i32 := mt.in.Builtins().I32
		fn, err := mt.intrinsic(SpecConstantIntrinsic, t, []types.TypeID{i32, t}, false)
		if err != nil {
			return nil, err
		}
		return mt.b.Call("", fn, ir.NewInt(i32, uint64(id)), def), nil
	}
	if !tt.IsAggregate() {
		return nil, unsupported(mt.in, t)
	}

	var members []ir.Value
	var memberTypes []types.TypeID
	err := mt.w.members(t, tt, func(m types.TypeID) error {
		v, err := mt.emit(m)
		if err != nil {
			return err
		}
		members = append(members, v)
		memberTypes = append(memberTypes, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	fn, err := mt.intrinsic(SpecConstantCompositeIntrinsic, t, memberTypes, true)
	if err != nil {
		return nil, err
	}
	return mt.b.Call("", fn, members...), nil
}

// intrinsic returns the declaration for base specialised to the given
// signature, declaring it on first use.
func (p *pass) intrinsic(base string, result types.TypeID, params []types.TypeID, composite bool) (*ir.Func, error) {
	var name string
	var err error
	if composite {
		name, err = MangleComposite(p.in, base, result, params)
	} else {
		name, err = Mangle(p.in, base, params)
	}
	if err != nil {
		return nil, err
	}
	fn, err := p.m.GetOrInsertFunc(name, result, params...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIntrinsicSignature, err)
	}
	return fn, nil
}

func formatIDs(ids []uint32) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, ",")
}
