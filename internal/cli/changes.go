package cli

import (
	"context"
	"fmt"
	"maps"
	"slices"

	flag "github.com/spf13/pflag"
)

// ChangesCmd returns the 'changes' command.
func ChangesCmd(svc *services) *Command {
	fs := flag.NewFlagSet("changes", flag.ContinueOnError)
	fs.StringP("project", "p", "", "Sub-project to diff against (default "+defaultProject+")")

	return &Command{
		Flags: fs,
		Usage: "changes [flags]",
		Short: "Show changed repos and what to revalidate",
		Long: `Compare the current watched-repo commits against the commits the
project's ledger last saw, then list the affected blueprint pages and
the metrics whose scores need recomputing.

Repos the ledger has never seen count as changed, so a fresh ledger
reports everything.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execChanges(ctx, o, svc, fs)
		},
	}
}

func execChanges(ctx context.Context, o *IO, svc *services, fs *flag.FlagSet) error {
	led, err := svc.ledgers.Load(projectFlag(fs))
	if err != nil {
		return err
	}

	current, problems := svc.mapper.CurrentCommits(ctx)
	for _, repo := range slices.Sorted(maps.Keys(problems)) {
		o.Warn(fmt.Sprintf("cannot read %s commit: %v", repo, problems[repo]),
			"that repo is treated as changed below")
	}

	changed := svc.mapper.DetectChanged(led.RepoCommits, current)

	for repo := range problems {
		if !slices.Contains(changed, repo) {
			changed = append(changed, repo)
		}
	}

	slices.Sort(changed)

	if len(changed) == 0 {
		o.Println("no changes since the last validator run")

		return nil
	}

	o.Println("changed repos:")

	for _, repo := range changed {
		o.Println("  -", repo)
	}

	printScope(o, "pages to revalidate:", svc.mapper.PagesToValidate(changed, led.ValidatedPages))
	printScope(o, "metrics to evaluate:", svc.mapper.MetricsToEvaluate(changed, led))

	return nil
}

func printScope(o *IO, header string, items []string) {
	o.Println(header)

	if len(items) == 0 {
		o.Println("  (none)")

		return
	}

	for _, item := range items {
		o.Println("  -", item)
	}
}
