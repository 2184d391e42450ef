package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/sidebyside/harness/internal/archive"
)

// shellLsLimit caps how many entries 'ls' prints inside the shell.
const shellLsLimit = 20

var shellCommands = []string{"count", "ls", "show", "tags", "projects", "help", "exit", "quit"}

// ShellCmd returns the 'shell' command.
func ShellCmd(svc *services) *Command {
	fs := flag.NewFlagSet("shell", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "shell",
		Short: "Interactive archive browser",
		Long: `Open a readline-style shell over the archive index with history and
tab completion. Type 'help' inside the shell for commands.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execShell(o, svc)
		},
	}
}

// shellREPL is the interactive command loop over a loaded archive index.
type shellREPL struct {
	o     *IO
	idx   *archive.Index
	liner *liner.State
}

func execShell(o *IO, svc *services) error {
	idx, err := svc.archive.Load()
	if err != nil {
		return err
	}

	r := &shellREPL{o: o, idx: idx}

	return r.run()
}

// historyFile returns the path to the history file.
func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".sbs_history")
}

func (r *shellREPL) run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	// Load history
	if f, err := os.Open(historyFile()); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}

	r.o.Printf("sbs shell - %d entries loaded\n", r.idx.Len())
	r.o.Println("Type 'help' for available commands.")

	for {
		line, err := r.liner.Prompt("sbs> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				r.o.Println("Bye!")

				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			r.o.Println("Bye!")

			r.saveHistory()

			return nil

		case "help", "?":
			r.printHelp()

		case "count", "len":
			r.o.Println(r.idx.Len())

		case "ls", "list":
			r.cmdLs(args)

		case "show":
			r.cmdShow(args)

		case "tags":
			r.cmdTags()

		case "projects":
			r.cmdProjects()

		default:
			r.o.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	r.saveHistory()

	return nil
}

// saveHistory persists command history to disk.
func (r *shellREPL) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			r.liner.WriteHistory(f)
			f.Close()
		}
	}
}

// completer provides tab completion for shell commands.
func (r *shellREPL) completer(line string) []string {
	var c []string

	for _, cmd := range shellCommands {
		if strings.HasPrefix(cmd, strings.ToLower(line)) {
			c = append(c, cmd)
		}
	}

	return c
}

func (r *shellREPL) printHelp() {
	r.o.Println(`Commands:
  count               Number of entries in the archive
  ls [project]        Newest entries, optionally for one project
  show <entry-id>     One entry as indented JSON
  tags                Tag usage counts
  projects            Projects with at least one entry
  help                Show this help
  exit / quit / q     Leave the shell`)
}

func (r *shellREPL) cmdLs(args []string) {
	filter := archive.Filter{Reverse: true, Limit: shellLsLimit}
	if len(args) > 0 {
		filter.Project = args[0]
	}

	for _, entry := range r.idx.List(filter) {
		r.o.Printf("%s  %-12s %s\n", entry.ID, entry.Project, strings.Join(entry.AllTags(), ","))
	}
}

func (r *shellREPL) cmdShow(args []string) {
	if len(args) < 1 {
		r.o.Println("Usage: show <entry-id>")

		return
	}

	entry, err := r.idx.Get(args[0])
	if err != nil {
		r.o.Println("error:", err)

		return
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		r.o.Println("error:", err)

		return
	}

	r.o.Println(string(data))
}

func (r *shellREPL) cmdTags() {
	counts := r.idx.TagCounts()

	for _, tag := range slices.Sorted(maps.Keys(counts)) {
		r.o.Printf("%-20s %d\n", tag, counts[tag])
	}
}

func (r *shellREPL) cmdProjects() {
	for _, project := range r.idx.Projects() {
		r.o.Println(project)
	}
}
