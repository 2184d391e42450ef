package cli

import (
	"context"
	"encoding/json"
	"errors"

	flag "github.com/spf13/pflag"
)

var errIDRequired = errors.New("entry ID argument is required")

// ShowCmd returns the 'show' command.
func ShowCmd(svc *services) *Command {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "show <entry-id>",
		Short: "Show one entry in full",
		Long: `Print the entry as indented JSON, followed by a payload line noting
whether a sidecar payload exists and how large it is.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execShow(o, svc, args)
		},
	}
}

func execShow(o *IO, svc *services, args []string) error {
	if len(args) < 1 {
		return errIDRequired
	}

	idx, err := svc.archive.Load()
	if err != nil {
		return err
	}

	entry, err := idx.Get(args[0])
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}

	o.Println(string(data))

	if !svc.archive.HasPayload(entry.ID) {
		o.Println("payload: none")

		return nil
	}

	payload, err := svc.archive.ReadPayload(entry.ID)
	if err != nil {
		return err
	}

	o.Printf("payload: %d bytes\n", len(payload))

	return nil
}
