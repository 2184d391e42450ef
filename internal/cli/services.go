package cli

import (
	"io"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/sidebyside/harness/internal/archive"
	"github.com/sidebyside/harness/internal/config"
	"github.com/sidebyside/harness/internal/gates"
	"github.com/sidebyside/harness/internal/gitx"
	"github.com/sidebyside/harness/internal/ledger"
	"github.com/sidebyside/harness/internal/repomap"
	"github.com/sidebyside/harness/internal/validators"
)

// defaultProject is assumed by commands that act on one sub-project when
// --project is not given.
const defaultProject = "blueprint"

// services wires the harness subsystems behind the CLI commands.
// Built once per invocation from the resolved config; commands share the
// same stores and mapper so they see a consistent view of the tree.
type services struct {
	cfg      config.Config
	log      zerolog.Logger
	stdin    io.Reader
	archive  *archive.Store
	ledgers  *ledger.Store
	git      *gitx.Client
	mapper   *repomap.Mapper
	registry *validators.Registry
	runner   *validators.Runner
	gates    *gates.Evaluator
}

func newServices(cfg config.Config, stdin io.Reader, log zerolog.Logger) *services {
	archiveStore := archive.NewStore(cfg.ArchiveDirAbs, log)
	ledgerStore := ledger.NewStore(cfg.LedgerDirAbs, log)
	git := gitx.NewClient(log)

	mapping := cfg.BuildMapping()
	mapper := repomap.NewMapper(mapping, cfg.RepoPaths(mapping), git, log)

	registry := validators.DefaultRegistry()

	// No validator command configured means external validators report
	// Failed instead of shelling out to a missing binary.
	var external *validators.ExternalCLI
	if cfg.ValidatorCommand != "" {
		external = validators.NewExternalCLI(cfg.ValidatorCommand, cfg.ValidatorTimeout(), log)
	}

	runner := validators.NewRunner(validators.RunnerDeps{
		Registry: registry,
		Archive:  archiveStore,
		Ledgers:  ledgerStore,
		Mapper:   mapper,
		Git:      git,
		External: external,
		WorkDir:  cfg.EffectiveCwd,
		Log:      log,
	})

	evaluator := gates.NewEvaluator(gates.EvaluatorDeps{
		PlansDir: cfg.PlansDirAbs,
		Registry: registry,
		Ledgers:  ledgerStore,
		Mapper:   mapper,
		Tests:    gates.NewExecTestRunner(cfg.TestCommand, cfg.EffectiveCwd, cfg.TestTimeout(), log),
		Runner:   runner,
		Log:      log,
	})

	return &services{
		cfg:      cfg,
		log:      log,
		stdin:    stdin,
		archive:  archiveStore,
		ledgers:  ledgerStore,
		git:      git,
		mapper:   mapper,
		registry: registry,
		runner:   runner,
		gates:    evaluator,
	}
}

// projectFlag resolves the effective project for a command, falling back to
// the default sub-project when the flag was left empty.
func projectFlag(fs *flag.FlagSet) string {
	project, _ := fs.GetString("project")
	if project == "" {
		return defaultProject
	}

	return project
}
