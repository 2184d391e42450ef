package gates

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sidebyside/harness/internal/ledger"
	"github.com/sidebyside/harness/internal/repomap"
	"github.com/sidebyside/harness/internal/validators"
)

// scoreEpsilon absorbs float noise when comparing scores against thresholds.
const scoreEpsilon = 1e-9

// GateResult is the combined verdict of one gate check. Findings explain the
// verdict either way; a blocked gate always says why.
type GateResult struct {
	Passed   bool
	Findings []string
}

func (r *GateResult) finding(format string, args ...any) {
	r.Findings = append(r.Findings, fmt.Sprintf(format, args...))
}

// Options adjust one gate check.
type Options struct {
	// Force bypasses every gate; the bypass itself is recorded as a finding.
	Force bool
	// PlanPath overrides plan discovery with an explicit document.
	PlanPath string
	// NoRefresh compares existing ledger scores without re-running
	// validators first.
	NoRefresh bool
}

// ValidatorRunner refreshes metric scores by running validators. Satisfied
// by validators.Runner.
type ValidatorRunner interface {
	Run(ctx context.Context, project string, ids []string) (*validators.RunnerResult, error)
}

// Evaluator checks a project's gates. Everything that goes wrong during
// evaluation, from a missing plan to broken tooling, becomes a finding in
// the result; CheckGates never returns an error and never panics the caller.
type Evaluator struct {
	plansDir string
	registry *validators.Registry
	ledgers  *ledger.Store
	mapper   *repomap.Mapper
	tests    TestRunner
	runner   ValidatorRunner
	log      zerolog.Logger
}

// EvaluatorDeps wires an Evaluator. Runner may be nil, in which case quality
// gates compare the scores already on record.
type EvaluatorDeps struct {
	PlansDir string
	Registry *validators.Registry
	Ledgers  *ledger.Store
	Mapper   *repomap.Mapper
	Tests    TestRunner
	Runner   ValidatorRunner
	Log      zerolog.Logger
}

// NewEvaluator returns an Evaluator over the given dependencies.
func NewEvaluator(deps EvaluatorDeps) *Evaluator {
	return &Evaluator{
		plansDir: deps.PlansDir,
		registry: deps.Registry,
		ledgers:  deps.Ledgers,
		mapper:   deps.Mapper,
		tests:    deps.Tests,
		runner:   deps.Runner,
		log:      deps.Log.With().Str("component", "gates").Logger(),
	}
}

// CheckGates evaluates the project's declared gates and returns the verdict.
// A project without a plan, or a plan without gates, passes with an
// explanatory finding.
func (e *Evaluator) CheckGates(ctx context.Context, project string, opts Options) GateResult {
	result := GateResult{Passed: true}

	if opts.Force {
		result.finding("gates bypassed by force")

		return result
	}

	planPath := opts.PlanPath
	if planPath == "" {
		var ok bool

		planPath, ok = LocatePlan(e.plansDir, project)
		if !ok {
			result.finding("no plan found for %s; gates skipped", project)

			return result
		}
	}

	content, err := os.ReadFile(planPath)
	if err != nil {
		result.finding("plan %s could not be read (%v); gates skipped", planPath, err)

		return result
	}

	gate, ok := ParseGates(string(content))
	if !ok {
		result.finding("no gates declared in %s; gates skipped", planPath)

		return result
	}

	if gate.Tests != "" {
		e.evaluateTestGate(ctx, gate.Tests, &result)
	}

	if len(gate.Quality) > 0 {
		e.evaluateQualityGate(ctx, project, gate.Quality, &result, opts.NoRefresh)
	}

	if gate.Regression != "" {
		e.evaluateRegressionGate(project, gate.Regression, &result)
	}

	if len(result.Findings) == 0 {
		result.finding("gates declared no conditions")
	}

	e.log.Info().Str("project", project).Bool("passed", result.Passed).
		Strs("findings", result.Findings).Msg("gate check finished")

	return result
}

// evaluateTestGate runs the test suite and applies the requirement to its
// output.
func (e *Evaluator) evaluateTestGate(ctx context.Context, requirement Threshold, result *GateResult) {
	output, err := e.tests.Run(ctx)
	if err != nil {
		result.Passed = false
		result.finding("tests: could not run (%v)", err)

		return
	}

	passed, findings := judgeTestOutput(requirement, output)
	if !passed {
		result.Passed = false
	}

	result.Findings = append(result.Findings, findings...)
}

// judgeTestOutput applies a test requirement to raw runner output. Output
// with no recognizable summary passes permissively; the tool ran and said
// nothing about failures.
func judgeTestOutput(requirement Threshold, output string) (bool, []string) {
	counts := ParseTestSummary(output)
	if !counts.Recognized {
		return true, []string{"tests: no summary in output; treating as pass"}
	}

	failed := counts.Failed + counts.Errors
	total := counts.Total()

	if requirement == AllPass {
		if failed > 0 {
			return false, []string{fmt.Sprintf("tests: %d of %d failed (all_pass required)", failed, total)}
		}

		return true, []string{fmt.Sprintf("tests: %d passed", counts.Passed)}
	}

	min, err := requirement.Value()
	if err != nil {
		return true, []string{fmt.Sprintf("tests: threshold %q not understood; skipped", string(requirement))}
	}

	if total == 0 {
		return true, []string{"tests: nothing ran; treating as pass"}
	}

	ratio := float64(counts.Passed) / float64(total)
	if ratio+scoreEpsilon >= min {
		return true, []string{fmt.Sprintf("tests: %d/%d passed (ratio %.2f meets %s)", counts.Passed, total, ratio, requirement)}
	}

	return false, []string{fmt.Sprintf("tests: %d/%d passed (ratio %.2f below %s)", counts.Passed, total, ratio, requirement)}
}

// evaluateQualityGate refreshes and compares ledger scores against the
// declared thresholds. Unknown validator names and missing scores become
// findings, not failures.
func (e *Evaluator) evaluateQualityGate(ctx context.Context, project string, quality map[string]Threshold, result *GateResult, noRefresh bool) {
	type want struct {
		key       string
		metric    string
		threshold Threshold
	}

	keys := make([]string, 0, len(quality))
	for key := range quality {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	var wants []want

	for _, key := range keys {
		metric, ok := e.registry.NormalizeMetric(key)
		if !ok {
			result.finding("quality: unknown validator %q", key)

			continue
		}

		wants = append(wants, want{key: key, metric: metric, threshold: quality[key]})
	}

	if len(wants) == 0 {
		return
	}

	metrics := make([]string, 0, len(wants))
	for _, w := range wants {
		metrics = append(metrics, w.metric)
	}

	if e.runner != nil && !noRefresh {
		e.refreshScores(ctx, project, metrics, result)
	}

	led, err := e.ledgers.Load(project)
	if err != nil {
		result.finding("quality: ledger could not be read (%v); skipped", err)

		return
	}

	for _, w := range wants {
		label := w.key
		if w.key != w.metric {
			label = w.key + " (" + w.metric + ")"
		}

		score, ok := led.Scores[w.metric]
		if !ok {
			result.finding("quality: %s has no score; skipped", label)

			continue
		}

		min, err := w.threshold.Value()
		if err != nil {
			result.finding("quality: %s threshold %q not understood; skipped", label, string(w.threshold))

			continue
		}

		if score.Value+scoreEpsilon >= min {
			result.finding("quality: %s %.2f meets %.2f", label, score.Value, min)
		} else {
			result.Passed = false
			result.finding("quality: %s %.2f below %.2f", label, score.Value, min)
		}
	}
}

// refreshScores re-runs validators for declared metrics whose scores are
// stale or missing. Refresh problems degrade to findings; the comparison
// then uses whatever scores are on record.
func (e *Evaluator) refreshScores(ctx context.Context, project string, declared []string, result *GateResult) {
	led, err := e.ledgers.Load(project)
	if err != nil {
		result.finding("quality: ledger could not be read (%v); refresh skipped", err)

		return
	}

	commits, problems := e.mapper.CurrentCommits(ctx)
	for repo, perr := range problems {
		e.log.Warn().Str("repo", repo).Err(perr).Msg("commit unavailable during refresh")
	}

	deps := e.mapper.Mapping().MetricDeps
	outdated := append(led.StaleMetrics(deps, commits), led.PendingMetrics(deps)...)

	var ids []string

	for _, metric := range declared {
		if !slices.Contains(outdated, metric) {
			continue
		}

		id, ok := e.registry.ValidatorForMetric(metric)
		if !ok {
			continue
		}

		ids = append(ids, id)
	}

	if len(ids) == 0 {
		return
	}

	slices.Sort(ids)
	e.log.Debug().Str("project", project).Strs("validators", ids).Msg("refreshing stale scores")

	run, err := e.runner.Run(ctx, project, ids)
	if err != nil {
		result.finding("quality: validator refresh failed (%v)", err)

		return
	}

	for id, outcome := range run.Outcomes {
		failed, ok := outcome.(validators.Failed)
		if ok {
			result.finding("quality: %s could not be evaluated (%s)", id, failed.Reason)
		}
	}
}

// evaluateRegressionGate compares current scores against the last snapshot.
// The threshold is the largest per-metric drop the gate tolerates.
func (e *Evaluator) evaluateRegressionGate(project string, allowed Threshold, result *GateResult) {
	budget, err := allowed.Value()
	if err != nil {
		result.finding("regression: threshold %q not understood; skipped", string(allowed))

		return
	}

	led, err := e.ledgers.Load(project)
	if err != nil {
		result.finding("regression: ledger could not be read (%v); skipped", err)

		return
	}

	last, ok := led.LastSnapshot()
	if !ok {
		result.finding("regression: no snapshot to compare against; skipped")

		return
	}

	var (
		worstMetric string
		worstDrop   float64
	)

	metrics := make([]string, 0, len(last.Scores))
	for metric := range last.Scores {
		metrics = append(metrics, metric)
	}

	slices.Sort(metrics)

	for _, metric := range metrics {
		cur, ok := led.Scores[metric]
		if !ok {
			continue
		}

		drop := last.Scores[metric].Value - cur.Value
		if drop > worstDrop {
			worstDrop = drop
			worstMetric = metric
		}
	}

	if worstDrop > budget+scoreEpsilon {
		result.Passed = false
		result.finding("regression: %s dropped %.2f since snapshot %s (budget %.2f)",
			worstMetric, worstDrop, shortID(last.ID), budget)

		return
	}

	result.finding("regression: worst drop %.2f within budget %.2f", worstDrop, budget)
}

// shortID trims a UUID to its first group for findings.
func shortID(id string) string {
	head, _, found := strings.Cut(id, "-")
	if found {
		return head
	}

	return id
}
