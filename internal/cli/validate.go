package cli

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/sidebyside/harness/internal/validators"
)

var errUnknownValidator = errors.New("unknown validator")

// ValidateCmd returns the 'validate' command.
func ValidateCmd(svc *services) *Command {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.StringP("project", "p", "", "Sub-project to validate (default "+defaultProject+")")
	fs.String("only", "", "Comma-separated validators to run (short IDs or metric names)")

	return &Command{
		Flags: fs,
		Usage: "validate [flags]",
		Short: "Run validators and persist scores",
		Long: `Run quality validators for the project and persist scored outcomes
into its ledger.

Without --only the scope is every metric whose score is stale or was
never computed. Agent-judged validators print review prompts instead of
scores; infrastructure failures are reported per validator and never
abort the rest of the run.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execValidate(ctx, o, svc, fs)
		},
	}
}

func execValidate(ctx context.Context, o *IO, svc *services, fs *flag.FlagSet) error {
	project := projectFlag(fs)

	ids, err := validateScope(ctx, o, svc, fs, project)
	if err != nil {
		return err
	}

	if len(ids) == 0 {
		o.Println("nothing to validate; all scores are fresh")

		return nil
	}

	res, err := svc.runner.Run(ctx, project, ids)
	if err != nil {
		return err
	}

	printOutcomes(o, svc.registry, res)

	return nil
}

// validateScope resolves which validators to run: the --only list when
// given, otherwise every validator owning a stale or never-scored metric.
func validateScope(ctx context.Context, o *IO, svc *services, fs *flag.FlagSet, project string) ([]string, error) {
	if only, _ := fs.GetString("only"); only != "" {
		var ids []string

		for _, raw := range strings.Split(only, ",") {
			name := strings.TrimSpace(raw)
			if name == "" {
				continue
			}

			metric, ok := svc.registry.NormalizeMetric(name)
			if !ok {
				return nil, fmt.Errorf("%w: %s", errUnknownValidator, name)
			}

			id, _ := svc.registry.ValidatorForMetric(metric)
			ids = append(ids, id)
		}

		slices.Sort(ids)

		return slices.Compact(ids), nil
	}

	led, err := svc.ledgers.Load(project)
	if err != nil {
		return nil, err
	}

	current, problems := svc.mapper.CurrentCommits(ctx)
	for _, repo := range slices.Sorted(maps.Keys(problems)) {
		o.Warn(fmt.Sprintf("cannot read %s commit: %v", repo, problems[repo]),
			"metrics depending on that repo are treated as stale")
	}

	deps := svc.mapper.Mapping().MetricDeps
	outdated := append(led.StaleMetrics(deps, current), led.PendingMetrics(deps)...)

	var ids []string

	for _, metric := range outdated {
		if id, ok := svc.registry.ValidatorForMetric(metric); ok {
			ids = append(ids, id)
		}
	}

	slices.Sort(ids)

	return slices.Compact(ids), nil
}

func printOutcomes(o *IO, registry *validators.Registry, res *validators.RunnerResult) {
	for _, id := range slices.Sorted(maps.Keys(res.Outcomes)) {
		label := id

		reg, known := registry.Lookup(id)
		if known {
			label = id + " " + reg.Metric
		}

		switch out := res.Outcomes[id].(type) {
		case validators.Scored:
			verdict := "fail"
			if out.Result.Passed {
				verdict = "pass"
			}

			o.Printf("%s: %.2f %s\n", label, out.Result.Metrics[reg.Metric], verdict)

			for _, finding := range out.Result.Findings {
				o.Println("   ", finding)
			}
		case validators.Pending:
			o.Printf("%s: pending (%d prompts)\n", label, len(out.Prompts))

			for _, prompt := range out.Prompts {
				o.Println("  >", prompt)
			}
		case validators.Failed:
			o.Printf("%s: failed: %s\n", label, out.Reason)
			o.Warn(fmt.Sprintf("%s failed: %s", id, out.Reason),
				"fix the validator environment and re-run")
		}
	}

	scored, pending, failed := res.Counts()
	o.Printf("run %s: %d scored, %d pending, %d failed\n", res.RunID, scored, pending, failed)
}
