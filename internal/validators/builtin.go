package validators

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sidebyside/harness/internal/archive"
)

// Canonical metric IDs, one per validator.
const (
	MetricBuildHealth      = "build_health"
	MetricPageCoverage     = "page_coverage"
	MetricScreenshotParity = "screenshot_parity"
	MetricLinkIntegrity    = "link_integrity"
	MetricSpecCompliance   = "spec_compliance"
	MetricAssetIntegrity   = "asset_integrity"
	MetricNavConsistency   = "nav_consistency"
	MetricRegressionBudget = "regression_budget"
)

// maxScoreDrop is the per-metric drop against the last snapshot that the
// regression validator tolerates before failing.
const maxScoreDrop = 0.05

var (
	errNoRepos   = errors.New("no watched repos could be checked")
	errNoEntries = errors.New("no archive entries recorded for project")
)

// buildHealth scores how many watched repos are present with a clean working
// tree.
type buildHealth struct{}

func (buildHealth) Validate(ctx context.Context, vctx *Context) (Outcome, error) {
	var (
		findings []string
		checked  int
		clean    int
	)

	for _, repo := range vctx.Mapper.Mapping().Repos {
		dir, ok := vctx.Mapper.RepoPath(repo)
		if !ok {
			findings = append(findings, fmt.Sprintf("%s: no path configured", repo))
			checked++

			continue
		}

		dirty, err := vctx.Git.HasUncommitted(ctx, dir)
		if err != nil {
			findings = append(findings, fmt.Sprintf("%s: %v", repo, err))
			checked++

			continue
		}

		checked++

		if dirty {
			findings = append(findings, fmt.Sprintf("%s has uncommitted changes", repo))
		} else {
			clean++
		}
	}

	if checked == 0 {
		return nil, errNoRepos
	}

	return Scored{Result{
		Passed:     clean == checked,
		Metrics:    map[string]float64{MetricBuildHealth: float64(clean) / float64(checked)},
		Findings:   findings,
		Confidence: 1,
	}}, nil
}

// pageCoverage scores how many mapped pages have a screenshot in the latest
// archive entry for the project. A screenshot covers a page when its file
// name contains the page ID.
type pageCoverage struct{}

func (pageCoverage) Validate(_ context.Context, vctx *Context) (Outcome, error) {
	latest, err := latestEntry(vctx)
	if err != nil {
		return nil, err
	}

	var (
		findings []string
		covered  []string
	)

	pages := vctx.Mapper.Mapping().Pages()
	for _, page := range pages {
		if screenshotFor(latest, page) {
			covered = append(covered, page)
		} else {
			findings = append(findings, fmt.Sprintf("page %s has no screenshot in entry %s", page, latest.ID))
		}
	}

	if len(pages) == 0 {
		return nil, errors.New("no pages mapped")
	}

	return Scored{Result{
		Passed:     len(covered) == len(pages),
		Metrics:    map[string]float64{MetricPageCoverage: float64(len(covered)) / float64(len(pages))},
		Findings:   findings,
		Confidence: 1,
		Pages:      covered,
	}}, nil
}

// screenshotParity cannot compare images in-process; it emits one review
// prompt per captured screenshot.
type screenshotParity struct{}

func (screenshotParity) Validate(_ context.Context, vctx *Context) (Outcome, error) {
	latest, err := latestEntry(vctx)
	if err != nil {
		return Pending{Prompts: []string{
			fmt.Sprintf("Capture screenshots for %s before reviewing visual parity.", vctx.Project),
		}}, nil
	}

	prompts := make([]string, 0, len(latest.Screenshots))
	for _, shot := range latest.Screenshots {
		prompts = append(prompts, fmt.Sprintf(
			"Compare %s against the blueprint reference and report visual differences.", shot))
	}

	if len(prompts) == 0 {
		prompts = append(prompts, fmt.Sprintf(
			"Entry %s has no screenshots; capture them before reviewing visual parity.", latest.ID))
	}

	return Pending{Prompts: prompts}, nil
}

// markdownLinkRe matches the target of an inline markdown link.
var markdownLinkRe = regexp.MustCompile(`\]\(([^)\s]+)\)`)

// linkIntegrity scores how many relative markdown links across the watched
// repos resolve to an existing file.
type linkIntegrity struct{}

func (linkIntegrity) Validate(_ context.Context, vctx *Context) (Outcome, error) {
	var (
		findings []string
		total    int
		resolved int
		scanned  int
	)

	for _, repo := range vctx.Mapper.Mapping().Repos {
		dir, ok := vctx.Mapper.RepoPath(repo)
		if !ok {
			continue
		}

		scanned++

		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if d.IsDir() {
				if d.Name() == ".git" {
					return filepath.SkipDir
				}

				return nil
			}

			if !strings.HasSuffix(d.Name(), ".md") {
				return nil
			}

			fileTotal, fileResolved, broken := checkFileLinks(path)
			total += fileTotal
			resolved += fileResolved
			findings = append(findings, broken...)

			return nil
		})
		if err != nil {
			findings = append(findings, fmt.Sprintf("%s: %v", repo, err))
		}
	}

	if scanned == 0 {
		return nil, errNoRepos
	}

	if total == 0 {
		return Scored{Result{
			Passed:     true,
			Metrics:    map[string]float64{MetricLinkIntegrity: 1},
			Findings:   []string{"no relative links found"},
			Confidence: 1,
		}}, nil
	}

	return Scored{Result{
		Passed:     resolved == total,
		Metrics:    map[string]float64{MetricLinkIntegrity: float64(resolved) / float64(total)},
		Findings:   findings,
		Confidence: 1,
	}}, nil
}

// specCompliance emits one review prompt per mapped page; judging prose
// against the blueprint needs an agent.
type specCompliance struct{}

func (specCompliance) Validate(_ context.Context, vctx *Context) (Outcome, error) {
	pages := vctx.Mapper.Mapping().Pages()

	prompts := make([]string, 0, len(pages))
	for _, page := range pages {
		prompts = append(prompts, fmt.Sprintf(
			"Review the %s page of %s against the blueprint and list every deviation.", page, vctx.Project))
	}

	return Pending{Prompts: prompts}, nil
}

// assetIntegrity scores how many screenshots recorded across the project's
// archive entries still exist on disk.
type assetIntegrity struct{}

func (assetIntegrity) Validate(_ context.Context, vctx *Context) (Outcome, error) {
	index, err := vctx.Archive.Load()
	if err != nil {
		return nil, err
	}

	var (
		findings []string
		total    int
		present  int
	)

	for _, entry := range index.List(archive.Filter{Project: vctx.Project}) {
		for _, shot := range entry.Screenshots {
			total++

			path := shot
			if !filepath.IsAbs(path) {
				path = filepath.Join(vctx.WorkDir, path)
			}

			if fileExists(path) {
				present++
			} else {
				findings = append(findings, fmt.Sprintf("%s recorded in %s is missing", shot, entry.ID))
			}
		}
	}

	if total == 0 {
		return Scored{Result{
			Passed:     true,
			Metrics:    map[string]float64{MetricAssetIntegrity: 1},
			Findings:   []string{"no screenshots recorded"},
			Confidence: 1,
		}}, nil
	}

	return Scored{Result{
		Passed:     present == total,
		Metrics:    map[string]float64{MetricAssetIntegrity: float64(present) / float64(total)},
		Findings:   findings,
		Confidence: 1,
	}}, nil
}

// regressionBudget compares current scores against the last snapshot and
// fails when any metric dropped more than the budget allows.
type regressionBudget struct{}

func (regressionBudget) Validate(_ context.Context, vctx *Context) (Outcome, error) {
	led, err := vctx.Ledgers.Load(vctx.Project)
	if err != nil {
		return nil, err
	}

	last, ok := led.LastSnapshot()
	if !ok {
		return Scored{Result{
			Passed:     true,
			Metrics:    map[string]float64{MetricRegressionBudget: 1},
			Findings:   []string{"no snapshot baseline yet"},
			Confidence: 1,
		}}, nil
	}

	var (
		findings  []string
		worstDrop float64
	)

	for metric, prev := range last.Scores {
		cur, ok := led.Scores[metric]
		if !ok {
			continue
		}

		drop := prev.Value - cur.Value
		if drop > worstDrop {
			worstDrop = drop
		}

		if drop > maxScoreDrop {
			findings = append(findings, fmt.Sprintf(
				"%s dropped %.2f since snapshot %s", metric, drop, last.ID))
		}
	}

	score := 1 - worstDrop
	if score < 0 {
		score = 0
	}

	return Scored{Result{
		Passed:     worstDrop <= maxScoreDrop,
		Metrics:    map[string]float64{MetricRegressionBudget: score},
		Findings:   findings,
		Confidence: 1,
	}}, nil
}

// latestEntry returns the newest archive entry for the context's project.
func latestEntry(vctx *Context) (*archive.Entry, error) {
	index, err := vctx.Archive.Load()
	if err != nil {
		return nil, err
	}

	entries := index.List(archive.Filter{Project: vctx.Project, Reverse: true, Limit: 1})
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", errNoEntries, vctx.Project)
	}

	return entries[0], nil
}

// screenshotFor reports whether any screenshot in the entry names the page.
func screenshotFor(entry *archive.Entry, page string) bool {
	for _, shot := range entry.Screenshots {
		if strings.Contains(filepath.Base(shot), page) {
			return true
		}
	}

	return false
}

// checkFileLinks resolves the relative links of one markdown file.
func checkFileLinks(path string) (total, resolved int, broken []string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, []string{fmt.Sprintf("%s: %v", path, err)}
	}

	base := filepath.Dir(path)

	for _, match := range markdownLinkRe.FindAllStringSubmatch(string(data), -1) {
		target := match[1]
		if skipLinkTarget(target) {
			continue
		}

		target, _, _ = strings.Cut(target, "#")
		if target == "" {
			continue
		}

		total++

		if fileExists(filepath.Join(base, target)) {
			resolved++
		} else {
			broken = append(broken, fmt.Sprintf("%s links to missing %s", path, target))
		}
	}

	return total, resolved, broken
}

// skipLinkTarget reports whether a link target is out of scope for the
// integrity check: absolute paths, anchors, and anything with a scheme.
func skipLinkTarget(target string) bool {
	if target == "" || strings.HasPrefix(target, "#") || strings.HasPrefix(target, "/") {
		return true
	}

	return strings.Contains(target, "://") || strings.HasPrefix(target, "mailto:")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && !info.IsDir()
}
