package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"speclower/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "speclower",
	Short: "SYCL specialization constant lowering",
	Long: `speclower rewrites SYCL specialization constant accessor calls in device
IR units into SPIR-V spec constant intrinsics or into their default values`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		stopProfiling, err := setupProfiling(cmd)
		if err != nil {
			return usageError(err)
		}
		stopTracing, err := setupTracing(cmd)
		if err != nil {
			stopProfiling()
			return usageError(err)
		}
		cleanup = func(failed bool) {
			stopTracing(failed)
			stopProfiling()
		}
		return nil
	},
}

// cleanup is set once tracing and profiling are configured; main runs it
// after the command returns, whatever the outcome.
var cleanup func(failed bool)

func init() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(lowerCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(versionCmd)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "path to speclower.toml (default: search upwards from the working directory)")
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("quiet", false, "suppress non-essential output")
	pf.Bool("timings", false, "show timing information")
	pf.Int("max-diagnostics", 100, "maximum number of diagnostics kept per unit")
	pf.String("trace", "", "trace output file (\"-\" for stderr)")
	pf.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	pf.String("trace-mode", "stream", "trace storage (stream|ring|both)")
	pf.Int("trace-ring-size", 4096, "events kept in ring mode")
	pf.Duration("trace-heartbeat", 0, "emit a heartbeat event at this interval (0 disables)")
	pf.String("cpu-profile", "", "write a CPU profile to this file")
	pf.String("mem-profile", "", "write a heap profile to this file on exit")
	pf.String("runtime-trace", "", "write a Go runtime trace to this file")
}

// main executes the root command and maps the returned error to the process
// exit status.
func main() {
	err := rootCmd.ExecuteContext(context.Background())
	if cleanup != nil {
		cleanup(err != nil)
	}
	os.Exit(exitCode(err))
}

// exitError carries a process exit status. A nil err means the failure has
// already been reported.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

const (
	exitOK      = 0
	exitFailure = 1 // lowering or I/O failure
	exitUsage   = 2 // bad flags or configuration
)

func usageError(err error) error {
	return &exitError{code: exitUsage, err: err}
}

func failure(err error) error {
	return &exitError{code: exitFailure, err: err}
}

// reported marks a failure whose diagnostics were already printed.
func reported() error {
	return &exitError{code: exitFailure}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(os.Stderr, "speclower: %v\n", ee.err)
		}
		return ee.code
	}
	// cobra flag and argument errors
	fmt.Fprintf(os.Stderr, "speclower: %v\n", err)
	return exitUsage
}

// isTerminal reports whether f is attached to a terminal.
// isTerminal reports whether w is an interactive terminal. Writers that are
// not files never are.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // descriptors fit in int
}
