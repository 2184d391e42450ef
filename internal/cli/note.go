package cli

import (
	"context"
	"errors"
	"strings"

	flag "github.com/spf13/pflag"
)

var errNoteRequired = errors.New("note text argument is required")

// NoteCmd returns the 'note' command.
func NoteCmd(svc *services) *Command {
	fs := flag.NewFlagSet("note", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "note <entry-id> <text>...",
		Short: "Set the note on an entry",
		Long: `Replace the entry's note with the given text. Multiple arguments are
joined with spaces.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execNote(o, svc, args)
		},
	}
}

func execNote(o *IO, svc *services, args []string) error {
	if len(args) < 1 {
		return errIDRequired
	}

	if len(args) < 2 {
		return errNoteRequired
	}

	idx, err := svc.archive.Load()
	if err != nil {
		return err
	}

	id := args[0]

	if err := idx.Note(id, strings.Join(args[1:], " ")); err != nil {
		return err
	}

	if err := svc.archive.Save(idx); err != nil {
		return err
	}

	o.Println(id)

	return nil
}
