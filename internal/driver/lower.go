package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"speclower/internal/diag"
	"speclower/internal/ir"
	"speclower/internal/irfile"
	"speclower/internal/layout"
	"speclower/internal/observ"
	"speclower/internal/specconst"
	"speclower/internal/trace"
)

// Request describes a batch of units to lower.
type Request struct {
	Inputs         []string
	OutDir         string // "" writes next to each input
	Mode           specconst.Mode
	Target         layout.Target
	Metadata       bool   // write a sidecar with the collected ID mapping
	MetadataFormat string // json | toml
	Jobs           int    // <= 0 means GOMAXPROCS
	MaxDiagnostics int
	Cache          *Cache // nil disables caching
	Progress       ProgressSink
}

// UnitResult is the outcome of one unit.
type UnitResult struct {
	Input   string
	Output  string
	Sidecar string
	Cached  bool

	Lowering specconst.Result
	Metadata specconst.Metadata
	Found    bool

	Bag   *diag.Bag
	Timer *observ.Timer
}

// Report collects the results of a batch, in input order.
type Report struct {
	Units []UnitResult
	Timer *observ.Timer
}

// Bag merges the diagnostics of every unit.
func (r *Report) Bag() *diag.Bag {
	out := diag.NewBag(0)
	for i := range r.Units {
		if r.Units[i].Bag != nil {
			out.Merge(r.Units[i].Bag)
		}
	}
	out.Sort()
	return out
}

// Lower runs the pass over every input. Units are independent and run in
// parallel; the first failing unit cancels the rest and its error is
// returned, prefixed with the unit path. The report is returned either way.
func Lower(ctx context.Context, req Request) (*Report, error) {
	if len(req.Inputs) == 0 {
		return nil, errors.New("no input units")
	}
	if req.Target == (layout.Target{}) {
		req.Target = layout.SPIR64()
	}
	if req.MaxDiagnostics <= 0 {
		req.MaxDiagnostics = 100
	}
	if req.Progress == nil {
		req.Progress = nopSink{}
	}
	plans, err := planOutputs(&req)
	if err != nil {
		return nil, err
	}

	jobs := req.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	rep := &Report{Units: make([]UnitResult, len(plans)), Timer: observ.NewTimer()}
	batch := rep.Timer.Begin("batch")
	for _, p := range plans {
		req.Progress.OnEvent(Event{Unit: p.input, Status: StatusQueued})
	}

	span, ctx := trace.StartSpan(ctx, trace.ScopeDriver, "lower")
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(plans)))
	for i, p := range plans {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			started := time.Now()
			u, err := lowerUnit(gctx, &req, p)
			rep.Units[i] = u
			if err != nil {
				req.Progress.OnEvent(Event{Unit: p.input, Status: StatusError, Err: err, Elapsed: time.Since(started)})
				return fmt.Errorf("%s: %w", p.input, err)
			}
			status := StatusDone
			if u.Cached {
				status = StatusCached
			}
			req.Progress.OnEvent(Event{Unit: p.input, Status: status, Elapsed: time.Since(started)})
			return nil
		})
	}
	err = g.Wait()
	rep.Timer.End(batch, fmt.Sprintf("%d units", len(plans)))
	for i := range rep.Units {
		rep.Timer.Merge(filepath.Base(plans[i].input), rep.Units[i].Timer)
	}
	if err != nil {
		span.End(err.Error())
		return rep, err
	}
	span.End("")
	return rep, nil
}

// unit carries the state of one unit through its stages.
type unit struct {
	req  *Request
	plan unitPlan
	res  UnitResult
}

// stage runs fn as one timed, traced and reported step.
func (u *unit) stage(ctx context.Context, s Stage, fn func(context.Context) error) error {
	u.req.Progress.OnEvent(Event{Unit: u.plan.input, Stage: s, Status: StatusWorking})
	idx := u.res.Timer.Begin(string(s))
	span, sctx := trace.StartSpan(ctx, trace.ScopeUnit, string(s))
	err := fn(sctx)
	u.res.Timer.End(idx, "")
	if err != nil {
		span.End(err.Error())
		return err
	}
	span.End("")
	return nil
}

func (u *unit) reportError(code diag.Code, err error) {
	u.res.Bag.Add(diag.NewError(code, diag.InUnit(u.plan.input), err.Error()))
}

func lowerUnit(ctx context.Context, req *Request, plan unitPlan) (UnitResult, error) {
	u := &unit{req: req, plan: plan, res: UnitResult{
		Input:   plan.input,
		Output:  plan.output,
		Sidecar: plan.sidecar,
		Bag:     diag.NewBag(req.MaxDiagnostics),
		Timer:   observ.NewTimer(),
	}}
	span, ctx := trace.StartSpan(ctx, trace.ScopeUnit, "unit:"+plan.input)
	err := u.run(ctx)
	if err != nil {
		if u.res.Bag.Len() > 0 {
			span.WithExtra("diagnostics", diag.FormatShort(u.res.Bag.Items(), false))
		}
		span.End(err.Error())
	} else {
		span.End("")
	}
	return u.res, err
}

func (u *unit) run(ctx context.Context) error {
	var (
		m       *ir.Module
		data    []byte
		key     Digest
		payload CachePayload
		hit     bool
	)
	err := u.stage(ctx, StageLoad, func(context.Context) error {
		var err error
		if data, err = os.ReadFile(u.plan.input); err != nil {
			u.reportError(diag.IOLoadFileError, err)
			return err
		}
		if u.req.Cache != nil {
			key = CacheKey(data, u.req.Mode, u.req.Target)
			if hit, err = u.req.Cache.Get(key, &payload); err != nil {
				// a broken entry is rebuilt
				hit = false
			}
			if hit {
				return nil
			}
		}
		if m, err = irfile.Decode(bytes.NewReader(data)); err != nil {
			u.reportError(diag.IOLoadFileError, err)
			return err
		}
		if err = ir.Validate(m); err != nil {
			u.reportError(diag.IRInvalid, err)
			return fmt.Errorf("invalid input module: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	var lowered []byte
	if hit {
		u.res.Cached = true
		u.res.Lowering = specconst.Result{
			Modified:  payload.Modified,
			CallSites: payload.CallSites,
			Assigned:  payload.Assigned,
			Symbols:   payload.Symbols,
		}
		u.res.Metadata = payload.Metadata
		u.res.Found = payload.Found
		for _, d := range payload.Diagnostics {
			u.res.Bag.Add(d)
		}
		lowered = payload.Module
	} else {
		if lowered, err = u.lower(ctx, m); err != nil {
			return err
		}
		if u.req.Cache != nil {
			payload := &CachePayload{
				Input:       u.plan.input,
				Mode:        u.req.Mode.String(),
				Target:      u.req.Target.Triple,
				Module:      lowered,
				Modified:    u.res.Lowering.Modified,
				CallSites:   u.res.Lowering.CallSites,
				Assigned:    u.res.Lowering.Assigned,
				Symbols:     u.res.Lowering.Symbols,
				Metadata:    u.res.Metadata,
				Found:       u.res.Found,
				Diagnostics: append([]diag.Diagnostic(nil), u.res.Bag.Items()...),
			}
			if err := u.req.Cache.Put(key, payload); err != nil {
				u.res.Bag.Add(diag.New(diag.SevWarning, diag.IOWriteFileError, diag.InUnit(u.plan.input), "cache: "+err.Error()))
			}
		}
	}

	return u.stage(ctx, StageWrite, func(context.Context) error {
		if err := writeAtomic(u.plan.output, func(w io.Writer) error {
			_, err := w.Write(lowered)
			return err
		}); err != nil {
			u.reportError(diag.IOWriteFileError, err)
			return err
		}
		if u.plan.sidecar == "" {
			return nil
		}
		sc := &Sidecar{
			Unit:       u.plan.input,
			Mode:       u.req.Mode.String(),
			Target:     u.req.Target.Triple,
			Scalars:    u.res.Metadata.Scalars,
			Composites: u.res.Metadata.Composites,
		}
		if err := writeAtomic(u.plan.sidecar, func(w io.Writer) error {
			return EncodeSidecar(w, u.req.MetadataFormat, sc)
		}); err != nil {
			u.reportError(diag.IOWriteFileError, err)
			return err
		}
		return nil
	})
}

// lower runs the pass and the reader on m and returns the encoded result.
func (u *unit) lower(ctx context.Context, m *ir.Module) ([]byte, error) {
	rep := diag.NewDedupReporter(diag.BagReporter{Bag: u.res.Bag})
	err := u.stage(ctx, StageLower, func(ctx context.Context) error {
		res, err := specconst.Run(ctx, m, specconst.Options{
			Mode:     u.req.Mode,
			Target:   u.req.Target,
			Reporter: rep,
			Unit:     u.plan.input,
		})
		u.res.Lowering = res
		if err != nil {
			var se *specconst.Error
			if errors.As(err, &se) {
				u.res.Bag.Add(se.Diagnostic())
			} else {
				u.reportError(diag.UnknownCode, err)
			}
			return err
		}
		if err := ir.Validate(m); err != nil {
			u.reportError(diag.IRInvalid, err)
			return fmt.Errorf("lowered module is invalid: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// collected even without a sidecar: cached payloads must carry the mapping
	_ = u.stage(ctx, StageCollect, func(context.Context) error {
		u.res.Metadata, u.res.Found = specconst.Collect(m, specconst.CollectOptions{
			Target:   u.req.Target,
			Reporter: rep,
			Unit:     u.plan.input,
		})
		return nil
	})

	var buf bytes.Buffer
	if err := irfile.Encode(&buf, m); err != nil {
		u.reportError(diag.IOWriteFileError, err)
		return nil, err
	}
	return buf.Bytes(), nil
}

// Collect loads a lowered unit and reads its ID mapping back.
func Collect(ctx context.Context, path string, target layout.Target, maxDiagnostics int) (*UnitResult, error) {
	if target == (layout.Target{}) {
		target = layout.SPIR64()
	}
	if maxDiagnostics <= 0 {
		maxDiagnostics = 100
	}
	res := &UnitResult{Input: path, Bag: diag.NewBag(maxDiagnostics), Timer: observ.NewTimer()}
	span, _ := trace.StartSpan(ctx, trace.ScopeUnit, "collect:"+path)
	defer span.End("")

	idx := res.Timer.Begin(string(StageLoad))
	m, err := irfile.ReadFile(path)
	res.Timer.End(idx, "")
	if err != nil {
		res.Bag.Add(diag.NewError(diag.IOLoadFileError, diag.InUnit(path), err.Error()))
		return res, err
	}
	if err := ir.Validate(m); err != nil {
		res.Bag.Add(diag.NewError(diag.IRInvalid, diag.InUnit(path), err.Error()))
		return res, fmt.Errorf("%s: invalid module: %w", path, err)
	}

	idx = res.Timer.Begin(string(StageCollect))
	res.Metadata, res.Found = specconst.Collect(m, specconst.CollectOptions{
		Target:   target,
		Reporter: diag.BagReporter{Bag: res.Bag},
		Unit:     path,
	})
	res.Timer.End(idx, "")
	return res, nil
}
