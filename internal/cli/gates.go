package cli

import (
	"context"
	"errors"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/sidebyside/harness/internal/gates"
)

var errGatesFailed = errors.New("gates failed")

// GatesCmd returns the 'gates' command.
func GatesCmd(svc *services) *Command {
	fs := flag.NewFlagSet("gates", flag.ContinueOnError)
	fs.StringP("project", "p", "", "Sub-project to evaluate (default "+defaultProject+")")
	fs.String("plan", "", "Evaluate this plan file instead of the default location")
	fs.BoolP("force", "f", false, "Bypass gate evaluation")
	fs.Bool("no-refresh", false, "Compare recorded scores without re-running validators")

	return &Command{
		Flags: fs,
		Usage: "gates [flags]",
		Short: "Evaluate quality gates for a project",
		Long: `Evaluate the gates declared in the project's plan file and print the
verdict, one finding per line. Exits 1 when a gate fails.

Stale or missing quality scores are refreshed by re-running the owning
validators first, unless --no-refresh is given.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execGates(ctx, o, svc, fs)
		},
	}
}

func execGates(ctx context.Context, o *IO, svc *services, fs *flag.FlagSet) error {
	plan, _ := fs.GetString("plan")
	if plan != "" && !filepath.IsAbs(plan) {
		plan = filepath.Join(svc.cfg.EffectiveCwd, plan)
	}

	force, _ := fs.GetBool("force")
	noRefresh, _ := fs.GetBool("no-refresh")

	result := svc.gates.CheckGates(ctx, projectFlag(fs), gates.Options{
		Force:     force,
		PlanPath:  plan,
		NoRefresh: noRefresh,
	})

	if result.Passed {
		o.Println("PASS")
	} else {
		o.Println("FAIL")
	}

	for _, finding := range result.Findings {
		o.Println("  -", finding)
	}

	if !result.Passed {
		return errGatesFailed
	}

	return nil
}
