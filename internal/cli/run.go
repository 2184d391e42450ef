package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sidebyside/harness/internal/config"
)

const (
	minArgs      = 2
	consumedOne  = 1
	consumedTwo  = 2
	consumedNone = 0
	helpFlag     = "--help"
)

var (
	errFlagRequiresArg = errors.New("flag requires an argument")
	errUnknownFlag     = errors.New("unknown flag")
)

// Run is the main entry point. Returns exit code.
//
// Exit codes: 0 on success, 1 on command or gate failure, 2 on usage errors.
// sigCh, when non-nil, cancels the command context on the first signal so
// subprocess work (git, test runs, validators) is interrupted cleanly.
func Run(stdin io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh chan os.Signal) int {
	if len(args) < minArgs {
		printUsage(out)

		return 0
	}

	// Parse global flags
	flags, err := parseGlobalFlags(args[1:])
	if err != nil {
		fprintln(errOut, "error:", err)

		return 2
	}

	// Load and validate config
	cfg, err := config.LoadConfig(config.LoadConfigInput{
		WorkDirOverride:    flags.workDir,
		ConfigPath:         flags.configPath,
		ArchiveDirOverride: flags.archiveDir,
		Env:                env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	log := newLogger(errOut, cfg.LogLevel)

	if len(flags.remaining) == 0 {
		printUsage(out)

		return 0
	}

	name := flags.remaining[0]

	// Handle help flags
	if name == "-h" || name == helpFlag {
		printUsage(out)

		return 0
	}

	svc := newServices(cfg, stdin, log)

	cmd := findCommand(commandList(svc), name)
	if cmd == nil {
		fprintln(errOut, "error: unknown command:", name)
		printUsage(errOut)

		return 2
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	ioCtx := NewIO(out, errOut)

	code := cmd.Run(ctx, ioCtx, flags.remaining[1:])

	// Finish handles warnings and exit code
	finish := ioCtx.Finish()
	if code != 0 {
		return code
	}

	return finish
}

// commandList returns every command in help display order.
func commandList(svc *services) []*Command {
	return []*Command{
		AddCmd(svc),
		LsCmd(svc),
		ShowCmd(svc),
		TagCmd(svc),
		NoteCmd(svc),
		RmCmd(svc),
		SyncCmd(svc),
		GatesCmd(svc),
		ScoresCmd(svc),
		SnapshotCmd(svc),
		ValidateCmd(svc),
		ReposCmd(svc),
		ChangesCmd(svc),
		ShellCmd(svc),
		PrintConfigCmd(svc),
	}
}

func findCommand(commands []*Command, name string) *Command {
	for _, cmd := range commands {
		if cmd.Name() == name {
			return cmd
		}
	}

	return nil
}

func newLogger(errOut io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.WarnLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: errOut, NoColor: true}).
		Level(lvl).
		With().Timestamp().Logger()
}

type globalFlags struct {
	workDir    string
	configPath string
	archiveDir string
	remaining  []string
}

func parseGlobalFlags(args []string) (globalFlags, error) {
	var flags globalFlags

	idx := 0
	for idx < len(args) {
		consumed, err := parseFlag(args, idx, &flags)
		if err != nil {
			return globalFlags{}, err
		}

		if consumed == 0 {
			// Not a flag, this is the command
			flags.remaining = args[idx:]

			break
		}

		idx += consumed
	}

	return flags, nil
}

// parseFlag tries to parse a flag at args[idx]. Returns number of args consumed (0 if not a flag).
func parseFlag(args []string, idx int, flags *globalFlags) (int, error) {
	arg := args[idx]

	// -C/--cwd flag (work directory)
	if (arg == "-C" || arg == "--cwd") && idx+1 < len(args) {
		flags.workDir = args[idx+1]

		return consumedTwo, nil
	}

	if after, ok := strings.CutPrefix(arg, "-C"); ok {
		flags.workDir = after

		return consumedOne, nil
	}

	if after, ok := strings.CutPrefix(arg, "--cwd="); ok {
		flags.workDir = after

		return consumedOne, nil
	}

	// -c/--config flag
	if arg == "-c" || arg == "--config" {
		if idx+1 >= len(args) {
			return consumedNone, fmt.Errorf("%w: %s", errFlagRequiresArg, arg)
		}

		flags.configPath = args[idx+1]

		return consumedTwo, nil
	}

	if after, ok := strings.CutPrefix(arg, "--config="); ok {
		flags.configPath = after

		return consumedOne, nil
	}

	// --archive-dir flag
	if arg == "--archive-dir" {
		if idx+1 >= len(args) {
			return consumedNone, fmt.Errorf("%w: %s", errFlagRequiresArg, arg)
		}

		flags.archiveDir = args[idx+1]

		return consumedTwo, nil
	}

	if after, ok := strings.CutPrefix(arg, "--archive-dir="); ok {
		flags.archiveDir = after

		return consumedOne, nil
	}

	// -h/--help flags
	if arg == "-h" || arg == helpFlag {
		flags.remaining = []string{helpFlag}

		return len(args) - idx, nil
	}

	// Unknown flag
	if strings.HasPrefix(arg, "-") && arg != "-" {
		return consumedNone, fmt.Errorf("%w: %s", errUnknownFlag, arg)
	}

	// Not a flag
	return consumedNone, nil
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(writer io.Writer) {
	fprintln(writer, `sbs - side-by-side blueprint harness

Usage: sbs [options] <command> [args]

Options:
  -C, --cwd <dir>       Run as if started in <dir>
  -c, --config <file>   Use specified config file
      --archive-dir <dir>  Override the archive directory

Commands:
  add -p <project> [flags]     Record an archive entry
  ls [flags]                   List archive entries
  show <entry-id>              Show one entry in full
  tag <entry-id> <tag>...      Add tags to an entry
  note <entry-id> <text>       Set the note on an entry
  rm <entry-id>                Delete an entry and its payload
  sync <entry-id> [--fail]     Record a sync attempt result
  gates [flags]                Evaluate quality gates for a project
  scores [flags]               Show ledger scores with freshness
  snapshot [flags]             Snapshot the current score set
  validate [flags]             Run validators and persist scores
  repos                        Show watched repository status
  changes [flags]              Show changed repos and what to revalidate
  shell                        Interactive archive browser
  print-config                 Show resolved configuration`)
}
