package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
)

// Command is one sbs subcommand: its flags, its help text, and the function
// that does the work once flags are parsed.
type Command struct {
	// Flags holds the command-specific flag set. The set's own name is
	// ignored; the command is identified by the first word of Usage.
	Flags *flag.FlagSet

	// Usage is the argument synopsis shown after "sbs" in help output,
	// e.g. "show <entry-id>" or "add -p <project> [flags]".
	Usage string

	// Short is the one-line description for the command listing.
	Short string

	// Long, when set, replaces Short in the per-command help page.
	Long string

	// Exec runs the command with the positional arguments left after
	// flag parsing.
	Exec func(ctx context.Context, o *IO, args []string) error
}

// Name returns the command name, the first word of Usage.
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")
	return name
}

// HelpLine formats the command's row in the global usage listing.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-26s %s", c.Usage, c.Short)
}

// PrintHelp writes the per-command help page ("sbs <cmd> --help").
func (c *Command) PrintHelp(o *IO) {
	o.Println("Usage: sbs", c.Usage)
	o.Println()

	desc := c.Long
	if desc == "" {
		desc = c.Short
	}

	o.Println(desc)

	if c.Flags != nil && c.Flags.HasFlags() {
		o.Println()
		o.Println("Flags:")

		var buf strings.Builder
		c.Flags.SetOutput(&buf)
		c.Flags.PrintDefaults()
		o.Printf("%s", buf.String())
	}
}

// Run parses args against the command's flags and executes it, returning
// the exit code. Flag parse failures are usage errors and exit 2; command
// failures exit 1. Error printing happens here so every command reports
// the same way.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	// pflag prints its own complaint on parse errors; keep it quiet and
	// report through IO instead.
	c.Flags.SetOutput(&strings.Builder{})

	parseErr := c.Flags.Parse(args)
	if errors.Is(parseErr, flag.ErrHelp) {
		c.PrintHelp(o)

		return 0
	}

	if parseErr != nil {
		o.ErrPrintln("error:", parseErr)
		o.ErrPrintln()
		c.PrintHelp(o)

		return 2
	}

	if err := c.Exec(ctx, o, c.Flags.Args()); err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	return 0
}
