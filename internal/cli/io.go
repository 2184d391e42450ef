package cli

import (
	"fmt"
	"io"
)

// IO routes command output and collects warnings for the dispatcher.
//
// Warnings are replayed on stderr both before the first line of normal
// output and again after the last, so they survive piping through head or
// tail. A command that warned exits 1 even when it otherwise succeeded;
// CI wrappers around sbs treat that as "ran, but look at stderr".
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

// Warn records a warning as "issue: action". The issue names what went
// wrong; the action tells the operator what to do about it. Normal stdout
// output still happens, so partial results come through with the problem
// flagged rather than suppressed.
func (o *IO) Warn(issue string, action string) {
	o.warnings = append(o.warnings, fmt.Sprintf("%s: %s", issue, action))
}

// Println writes to stdout, flushing collected warnings to stderr before
// the first line.
func (o *IO) Println(a ...any) {
	o.flushWarningsStart()
	_, _ = fmt.Fprintln(o.out, a...)
}

// Printf writes formatted output to stdout, flushing collected warnings to
// stderr before the first line.
func (o *IO) Printf(format string, a ...any) {
	o.flushWarningsStart()
	_, _ = fmt.Fprintf(o.out, format, a...)
}

// ErrPrintln writes to stderr, bypassing warning collection.
func (o *IO) ErrPrintln(a ...any) {
	_, _ = fmt.Fprintln(o.errOut, a...)
}

// Finish replays warnings at the end position and returns the exit code:
// 1 when anything warned, 0 otherwise.
func (o *IO) Finish() int {
	// A command that produced no stdout still gets its start-position replay.
	o.flushWarningsStart()

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
