package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"speclower/internal/trace"
)

// traceFlags reads the persistent --trace* flags.
func traceFlags(fs *pflag.FlagSet) (cfg trace.Config, err error) {
	var out, levelName, modeName string
	var level trace.Level
	var errs []error
	read := func(e error) {
		if e != nil {
			errs = append(errs, e)
		}
	}
	out, e := fs.GetString("trace")
	read(e)
	levelName, e = fs.GetString("trace-level")
	read(e)
	modeName, e = fs.GetString("trace-mode")
	read(e)
	cfg.RingSize, e = fs.GetInt("trace-ring-size")
	read(e)
	cfg.Heartbeat, e = fs.GetDuration("trace-heartbeat")
	read(e)
	if err = errors.Join(errs...); err != nil {
		return cfg, fmt.Errorf("trace flags: %w", err)
	}

	if level, err = trace.ParseLevel(levelName); err != nil {
		return cfg, err
	}
	if cfg.Mode, err = trace.ParseMode(modeName); err != nil {
		return cfg, err
	}
	// a destination without a level means phase tracing
	if level == trace.LevelOff && out != "" {
		level = trace.LevelPhase
	}
	cfg.Level, cfg.OutputPath = level, out
	return cfg, nil
}

// setupTracing attaches the configured tracer to the command context and
// returns its cleanup. With --trace-level=error nothing is written unless the
// command fails, in which case the recorded events go to stderr.
func setupTracing(cmd *cobra.Command) (func(failed bool), error) {
	cfg, err := traceFlags(cmd.Root().PersistentFlags())
	if err != nil {
		return nil, err
	}
	tracer := trace.Nop
	if cfg.Level != trace.LevelOff {
		if tracer, err = trace.New(cfg); err != nil {
			return nil, fmt.Errorf("failed to create tracer: %w", err)
		}
	}
	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)
	cmd.Root().SetContext(ctx)

	hb := trace.StartHeartbeat(tracer, cfg.Heartbeat)
	started := time.Now()
	return func(failed bool) {
		hb.Stop()
		if ring, ok := trace.Recorder(tracer); ok && failed {
			fmt.Fprintf(os.Stderr, "trace: last %d events before failure (%s):\n", len(ring.Snapshot()), time.Since(started).Round(time.Millisecond))
			if err := ring.Dump(os.Stderr, trace.FormatText); err != nil {
				fmt.Fprintf(os.Stderr, "trace: dump error: %v\n", err)
			}
		}
		if err := errors.Join(tracer.Flush(), tracer.Close()); err != nil {
			fmt.Fprintf(os.Stderr, "trace: %v\n", err)
		}
	}, nil
}
