package cli

import (
	"context"
	"errors"
	"strings"

	flag "github.com/spf13/pflag"
)

var errTagRequired = errors.New("at least one tag argument is required")

// TagCmd returns the 'tag' command.
func TagCmd(svc *services) *Command {
	fs := flag.NewFlagSet("tag", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "tag <entry-id> <tag>...",
		Short: "Add tags to an entry",
		Long: `Add one or more user tags to an entry. Tags already present are
ignored; the updated tag set is printed.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execTag(o, svc, args)
		},
	}
}

func execTag(o *IO, svc *services, args []string) error {
	if len(args) < 1 {
		return errIDRequired
	}

	if len(args) < 2 {
		return errTagRequired
	}

	idx, err := svc.archive.Load()
	if err != nil {
		return err
	}

	id := args[0]

	if err := idx.Tag(id, args[1:]...); err != nil {
		return err
	}

	if err := svc.archive.Save(idx); err != nil {
		return err
	}

	entry, err := idx.Get(id)
	if err != nil {
		return err
	}

	o.Printf("%s tags: %s\n", id, strings.Join(entry.AllTags(), ","))

	return nil
}
