package validators

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sidebyside/harness/internal/archive"
	"github.com/sidebyside/harness/internal/gitx"
	"github.com/sidebyside/harness/internal/ledger"
	"github.com/sidebyside/harness/internal/repomap"
)

// RunnerResult aggregates one validator batch.
type RunnerResult struct {
	RunID    string
	Project  string
	Outcomes map[string]Outcome
}

// Counts tallies the outcomes by variant.
func (r *RunnerResult) Counts() (scored, pending, failed int) {
	for _, outcome := range r.Outcomes {
		switch outcome.(type) {
		case Scored:
			scored++
		case Pending:
			pending++
		case Failed:
			failed++
		}
	}

	return scored, pending, failed
}

// AllPassed reports whether the batch produced no failures and every scored
// outcome passed. Pending outcomes don't count either way; they await an
// agent.
func (r *RunnerResult) AllPassed() bool {
	for _, outcome := range r.Outcomes {
		switch out := outcome.(type) {
		case Failed:
			return false
		case Scored:
			if !out.Result.Passed {
				return false
			}
		}
	}

	return true
}

// RunnerDeps wires a Runner. External is optional; without it every external
// validator fails with ErrNoValidatorCommand.
type RunnerDeps struct {
	Registry *Registry
	Archive  *archive.Store
	Ledgers  *ledger.Store
	Mapper   *repomap.Mapper
	Git      *gitx.Client
	External *ExternalCLI
	WorkDir  string
	Log      zerolog.Logger
}

// Runner executes validators by short ID and persists scored outcomes into
// the project's quality ledger.
type Runner struct {
	registry *Registry
	archive  *archive.Store
	ledgers  *ledger.Store
	mapper   *repomap.Mapper
	git      *gitx.Client
	external *ExternalCLI
	workDir  string
	now      func() time.Time
	log      zerolog.Logger
}

// NewRunner returns a Runner over the given dependencies.
func NewRunner(deps RunnerDeps) *Runner {
	return &Runner{
		registry: deps.Registry,
		archive:  deps.Archive,
		ledgers:  deps.Ledgers,
		mapper:   deps.Mapper,
		git:      deps.Git,
		external: deps.External,
		workDir:  deps.WorkDir,
		now:      time.Now,
		log:      deps.Log.With().Str("component", "validators").Logger(),
	}
}

// Run executes the given validators for a project. One validator's failure
// never aborts the batch; it is recorded as a Failed outcome and the rest
// continue. Run returns an error only when the quality ledger itself cannot
// be read or written.
func (r *Runner) Run(ctx context.Context, project string, ids []string) (*RunnerResult, error) {
	result := &RunnerResult{
		RunID:    uuid.NewString(),
		Project:  project,
		Outcomes: make(map[string]Outcome, len(ids)),
	}

	if len(ids) == 0 {
		return result, nil
	}

	commits, problems := r.mapper.CurrentCommits(ctx)
	for repo, err := range problems {
		r.log.Warn().Str("repo", repo).Err(err).Msg("commit unavailable for run")
	}

	vctx := &Context{
		Project: project,
		Archive: r.archive,
		Ledgers: r.ledgers,
		Mapper:  r.mapper,
		Git:     r.git,
		Commits: commits,
		WorkDir: r.workDir,
		Log:     r.log,
	}

	var externals []string

	for _, id := range ids {
		reg, ok := r.registry.Lookup(id)
		if !ok {
			result.Outcomes[id] = Failed{Reason: "unknown validator"}

			continue
		}

		if reg.Category == CategoryExternal {
			externals = append(externals, id)

			continue
		}

		result.Outcomes[id] = r.runOne(ctx, reg, vctx)
	}

	if len(externals) > 0 {
		r.runExternals(ctx, project, externals, result)
	}

	err := r.persist(project, commits, result)
	if err != nil {
		return result, err
	}

	scored, pending, failed := result.Counts()
	r.log.Info().
		Str("run_id", result.RunID).
		Str("project", project).
		Int("scored", scored).
		Int("pending", pending).
		Int("failed", failed).
		Msg("validator run finished")

	return result, nil
}

// runOne isolates a single validator. A validator that errors or panics
// yields a Failed outcome; the rest of the batch continues.
func (r *Runner) runOne(ctx context.Context, reg Registration, vctx *Context) (out Outcome) {
	defer func() {
		rec := recover()
		if rec != nil {
			r.log.Error().Str("validator", reg.ShortID).Interface("panic", rec).Msg("validator panicked")

			out = Failed{Reason: fmt.Sprintf("validator panicked: %v", rec)}
		}
	}()

	outcome, err := reg.impl.Validate(ctx, vctx)
	if err != nil {
		return Failed{Reason: err.Error()}
	}

	if outcome == nil {
		return Failed{Reason: "validator returned no outcome"}
	}

	return outcome
}

// runExternals sends all external validators through one batched CLI call.
// A batch-level failure marks every requested ID failed.
func (r *Runner) runExternals(ctx context.Context, project string, ids []string, result *RunnerResult) {
	if r.external == nil {
		for _, id := range ids {
			result.Outcomes[id] = Failed{Reason: ErrNoValidatorCommand.Error()}
		}

		return
	}

	values, err := r.external.Run(ctx, project, ids)
	if err != nil {
		for _, id := range ids {
			result.Outcomes[id] = Failed{Reason: err.Error()}
		}

		return
	}

	for _, id := range ids {
		value, ok := values[id]
		if !ok {
			result.Outcomes[id] = Failed{Reason: "validator command returned no result"}

			continue
		}

		reg, _ := r.registry.Lookup(id)
		result.Outcomes[id] = Scored{Result{
			Passed:     value >= externalPassBar,
			Metrics:    map[string]float64{reg.Metric: value},
			Confidence: 1,
		}}
	}
}

// persist writes scored outcomes into the quality ledger. A Scored outcome
// missing a value for its own metric is downgraded to Failed.
func (r *Runner) persist(project string, commits map[string]string, result *RunnerResult) error {
	led, err := r.ledgers.Load(project)
	if err != nil {
		return fmt.Errorf("load quality ledger: %w", err)
	}

	now := r.now().UTC()

	for id, outcome := range result.Outcomes {
		scored, ok := outcome.(Scored)
		if !ok {
			continue
		}

		reg, ok := r.registry.Lookup(id)
		if !ok {
			continue
		}

		value, ok := scored.Result.Metrics[reg.Metric]
		if !ok {
			result.Outcomes[id] = Failed{Reason: fmt.Sprintf("no value reported for metric %s", reg.Metric)}

			continue
		}

		led.UpdateScore(reg.Metric, ledger.MetricScore{
			Value:       value,
			Passed:      scored.Result.Passed,
			ComputedAt:  now,
			Validator:   id,
			RepoCommits: commits,
		})

		for _, page := range scored.Result.Pages {
			led.MarkPageValidated(page, now)
		}
	}

	if len(commits) > 0 {
		led.RepoCommits = maps.Clone(commits)
	}

	err = r.ledgers.Save(project, led)
	if err != nil {
		return fmt.Errorf("save quality ledger: %w", err)
	}

	return nil
}
