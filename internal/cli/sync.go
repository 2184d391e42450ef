package cli

import (
	"context"
	"time"

	flag "github.com/spf13/pflag"
)

// SyncCmd returns the 'sync' command.
func SyncCmd(svc *services) *Command {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	fs.String("fail", "", "Record a failed sync attempt with this message")

	return &Command{
		Flags: fs,
		Usage: "sync <entry-id> [--fail <msg>]",
		Short: "Record a sync attempt result",
		Long: `Record the outcome of an external sync attempt for an entry.

Without --fail the entry is marked synced at the current time and any
previous sync error is cleared. With --fail the message is recorded and
the synced flag is cleared.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execSync(o, svc, fs, args)
		},
	}
}

func execSync(o *IO, svc *services, fs *flag.FlagSet, args []string) error {
	if len(args) < 1 {
		return errIDRequired
	}

	idx, err := svc.archive.Load()
	if err != nil {
		return err
	}

	id := args[0]
	failMsg, _ := fs.GetString("fail")

	if failMsg != "" {
		err = idx.MarkSyncError(id, failMsg)
	} else {
		err = idx.MarkSynced(id, time.Now())
	}

	if err != nil {
		return err
	}

	if err := svc.archive.Save(idx); err != nil {
		return err
	}

	if failMsg != "" {
		o.Println("sync error recorded for", id)
	} else {
		o.Println("synced", id)
	}

	return nil
}
