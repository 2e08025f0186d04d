package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/calvinalkan/rollcache/internal/store"
	"github.com/calvinalkan/rollcache/pkg/rollcache"
)

// IO handles command output with warning visibility.
type IO struct {
	out      io.Writer
	errOut   io.Writer
	warnings []string
	started  bool
}

// NewIO creates a new IO instance.
func NewIO(out, errOut io.Writer) *IO {
	return &IO{out: out, errOut: errOut}
}

// Warn records a warning as issue and the action that resolves it. Warnings
// are printed to stderr before the first stdout line and again by Finish,
// and any warning makes the exit code 1. Stdout output is unaffected.
func (o *IO) Warn(issue string, action string) {
	o.warnings = append(o.warnings, fmt.Sprintf("%s: %s", issue, action))
}

// WarnPending records that n pending cache changes are about to be dropped
// unwritten. It does nothing when n is zero.
func (o *IO) WarnPending(n int) {
	if n == 0 {
		return
	}

	o.Warn(fmt.Sprintf("%d pending changes discarded", n), "run flush before exit to keep them")
}

// Error writes err to stderr, followed by a hint when the failure is one the
// user can act on.
func (o *IO) Error(err error) {
	o.ErrPrintln("error:", err)

	if hint := errorHint(err); hint != "" {
		o.ErrPrintln("hint:", hint)
	}
}

func errorHint(err error) string {
	switch {
	case errors.Is(err, rollcache.ErrIndexOutOfRange):
		return "run 'rollc ls' to see which rows exist"
	case errors.Is(err, rollcache.ErrSourceIO):
		return "the database failed; changes not yet written are kept only until rollc exits"
	case errors.Is(err, store.ErrSchemaVersion):
		return "the database was written by another rollc version; pass --db to use a new file"
	default:
		return ""
	}
}

// Println writes to stdout. On first call, any collected warnings
// are printed to stderr first.
func (o *IO) Println(a ...any) {
	o.flushWarningsStart()
	_, _ = fmt.Fprintln(o.out, a...)
}

// Printf writes formatted output to stdout. On first call, any collected
// warnings are printed to stderr first.
func (o *IO) Printf(format string, a ...any) {
	o.flushWarningsStart()
	_, _ = fmt.Fprintf(o.out, format, a...)
}

// ErrPrintln writes to stderr.
func (o *IO) ErrPrintln(a ...any) {
	_, _ = fmt.Fprintln(o.errOut, a...)
}

// Out returns the stdout writer.
func (o *IO) Out() io.Writer {
	return o.out
}

// Finish prints warnings to stderr and returns exit code.
// Returns 1 if any warnings, 0 otherwise.
func (o *IO) Finish() int {
	// If no output happened but we have warnings, print them at "start" position
	o.flushWarningsStart()

	// Always print at end
	for _, w := range o.warnings {
		_, _ = fmt.Fprintln(o.errOut, "warning:", w)
	}

	if len(o.warnings) > 0 {
		return 1
	}

	return 0
}

func (o *IO) flushWarningsStart() {
	if !o.started && len(o.warnings) > 0 {
		for _, w := range o.warnings {
			_, _ = fmt.Fprintln(o.errOut, "warning:", w)
		}

		o.started = true
	}
}
