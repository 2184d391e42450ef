package cli

import (
	"context"

	flag "github.com/spf13/pflag"
)

// RmCmd returns the 'rm' command.
func RmCmd(svc *services) *Command {
	fs := flag.NewFlagSet("rm", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "rm <entry-id>",
		Short: "Delete an entry and its payload",
		Long: `Delete an entry from the index along with its sidecar payload, if one
exists. This is the administrative path; normal operation never deletes
entries.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execRm(o, svc, args)
		},
	}
}

func execRm(o *IO, svc *services, args []string) error {
	if len(args) < 1 {
		return errIDRequired
	}

	idx, err := svc.archive.Load()
	if err != nil {
		return err
	}

	id := args[0]

	if err := idx.Delete(id); err != nil {
		return err
	}

	if err := svc.archive.Save(idx); err != nil {
		return err
	}

	if err := svc.archive.RemovePayload(id); err != nil {
		return err
	}

	o.Println("removed", id)

	return nil
}
