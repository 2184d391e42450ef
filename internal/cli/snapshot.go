package cli

import (
	"context"
	"errors"
	"time"

	flag "github.com/spf13/pflag"
)

var errNoScores = errors.New("no scores recorded; nothing to snapshot")

// SnapshotCmd returns the 'snapshot' command.
func SnapshotCmd(svc *services) *Command {
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	fs.StringP("project", "p", "", "Sub-project to snapshot (default "+defaultProject+")")

	return &Command{
		Flags: fs,
		Usage: "snapshot [flags]",
		Short: "Snapshot the current score set",
		Long: `Copy the project's current scores into a point-in-time snapshot and
print the snapshot ID. Regression checks compare future scores against
the most recent snapshot.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execSnapshot(o, svc, fs)
		},
	}
}

func execSnapshot(o *IO, svc *services, fs *flag.FlagSet) error {
	project := projectFlag(fs)

	led, err := svc.ledgers.Load(project)
	if err != nil {
		return err
	}

	if len(led.Scores) == 0 {
		return errNoScores
	}

	snap := led.AddSnapshot(time.Now())

	if err := svc.ledgers.Save(project, led); err != nil {
		return err
	}

	o.Println(snap.ID)

	return nil
}
