package cli

import (
	"context"

	flag "github.com/spf13/pflag"
)

// ReposCmd returns the 'repos' command.
func ReposCmd(svc *services) *Command {
	fs := flag.NewFlagSet("repos", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "repos",
		Short: "Show watched repository status",
		Long: `Print every watched repository with its resolved path, current HEAD
commit, and whether the working tree has uncommitted changes.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execRepos(ctx, o, svc)
		},
	}
}

func execRepos(ctx context.Context, o *IO, svc *services) error {
	for _, status := range svc.mapper.Status(ctx) {
		if status.Path == "" {
			o.Printf("%-10s (no path configured)\n", status.Name)

			continue
		}

		if status.Err != nil {
			o.Printf("%-10s %s  error: %v\n", status.Name, status.Path, status.Err)
			o.Warn(status.Name+" is not readable as a git repository",
				"check the repos config or clone it at "+status.Path)

			continue
		}

		state := "clean"
		if status.Dirty {
			state = "dirty"
		}

		o.Printf("%-10s %s  %s  %s\n", status.Name, status.Path, shortCommit(status.Commit), state)
	}

	return nil
}

func shortCommit(commit string) string {
	const short = 10
	if len(commit) > short {
		return commit[:short]
	}

	return commit
}
