package cli

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	flag "github.com/spf13/pflag"
)

// ScoresCmd returns the 'scores' command.
func ScoresCmd(svc *services) *Command {
	fs := flag.NewFlagSet("scores", flag.ContinueOnError)
	fs.StringP("project", "p", "", "Sub-project to read (default "+defaultProject+")")

	return &Command{
		Flags: fs,
		Usage: "scores [flags]",
		Short: "Show ledger scores with freshness",
		Long: `Print every recorded quality score for the project with a freshness
state per metric:

  fresh    computed against the current watched-repo commits
  stale    a dependency repo moved since the score was computed
  pending  the metric is mapped but has never been scored`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execScores(ctx, o, svc, fs)
		},
	}
}

func execScores(ctx context.Context, o *IO, svc *services, fs *flag.FlagSet) error {
	led, err := svc.ledgers.Load(projectFlag(fs))
	if err != nil {
		return err
	}

	current, problems := svc.mapper.CurrentCommits(ctx)
	for _, repo := range slices.Sorted(maps.Keys(problems)) {
		o.Warn(fmt.Sprintf("cannot read %s commit: %v", repo, problems[repo]),
			"freshness below treats metrics depending on that repo as stale")
	}

	deps := svc.mapper.Mapping().MetricDeps

	staleSet := make(map[string]bool)
	for _, metric := range led.StaleMetrics(deps, current) {
		staleSet[metric] = true
	}

	for _, metric := range slices.Sorted(maps.Keys(led.Scores)) {
		score := led.Scores[metric]

		state := "fresh"
		if staleSet[metric] {
			state = "stale"
		}

		verdict := "fail"
		if score.Passed {
			verdict = "pass"
		}

		line := fmt.Sprintf("%-20s %.2f  %-4s  %-7s %s",
			metric, score.Value, verdict, state,
			score.ComputedAt.UTC().Format(time.RFC3339))
		if score.Validator != "" {
			line += "  " + score.Validator
		}

		o.Println(line)
	}

	for _, metric := range led.PendingMetrics(deps) {
		o.Printf("%-20s %-5s %-5s %s\n", metric, "-", "-", "pending")
	}

	return nil
}
