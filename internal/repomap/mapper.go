package repomap

import (
	"context"
	"slices"

	"github.com/rs/zerolog"

	"github.com/sidebyside/harness/internal/gitx"
	"github.com/sidebyside/harness/internal/ledger"
)

// Mapper answers which repositories changed and what that invalidates. It
// combines the dependency mapping with the git collaborator.
type Mapper struct {
	mapping *Mapping
	paths   map[string]string
	git     *gitx.Client
	log     zerolog.Logger
}

// NewMapper returns a mapper over the given mapping. paths maps each watched
// repo name to its working-tree directory.
func NewMapper(mapping *Mapping, paths map[string]string, git *gitx.Client, log zerolog.Logger) *Mapper {
	return &Mapper{
		mapping: mapping,
		paths:   paths,
		git:     git,
		log:     log.With().Str("component", "repomap").Logger(),
	}
}

// Mapping returns the dependency table the mapper was built with.
func (m *Mapper) Mapping() *Mapping {
	return m.mapping
}

// RepoPath returns the working-tree directory for a watched repo.
func (m *Mapper) RepoPath(name string) (string, bool) {
	path, ok := m.paths[name]

	return path, ok
}

// CurrentCommits queries each watched repository's HEAD commit. Repositories
// that cannot be queried end up in the problems map instead of failing the
// whole snapshot; archiving and change detection degrade per-repo.
func (m *Mapper) CurrentCommits(ctx context.Context) (map[string]string, map[string]error) {
	commits := make(map[string]string, len(m.mapping.Repos))
	problems := make(map[string]error)

	for _, repo := range m.mapping.Repos {
		dir, ok := m.paths[repo]
		if !ok {
			m.log.Debug().Str("repo", repo).Msg("no path configured")

			continue
		}

		hash, err := m.git.Commit(ctx, dir)
		if err != nil {
			problems[repo] = err

			continue
		}

		commits[repo] = hash
	}

	return commits, problems
}

// RepoStatus is one watched repository's working-tree state.
type RepoStatus struct {
	Name   string
	Path   string
	Commit string
	Dirty  bool
	Err    error
}

// Status reports every watched repository's path, HEAD, and dirty state.
func (m *Mapper) Status(ctx context.Context) []RepoStatus {
	statuses := make([]RepoStatus, 0, len(m.mapping.Repos))

	for _, repo := range m.mapping.Repos {
		status := RepoStatus{Name: repo, Path: m.paths[repo]}

		if status.Path == "" {
			statuses = append(statuses, status)

			continue
		}

		commit, err := m.git.Commit(ctx, status.Path)
		if err != nil {
			status.Err = err
			statuses = append(statuses, status)

			continue
		}

		status.Commit = commit
		status.Dirty, status.Err = m.git.HasUncommitted(ctx, status.Path)
		statuses = append(statuses, status)
	}

	return statuses
}

// DetectChanged compares two commit snapshots and returns the repos whose
// commit differs. A repo present in only one snapshot counts as changed.
func (m *Mapper) DetectChanged(previous, current map[string]string) []string {
	changed := make([]string, 0, len(current))
	seen := make(map[string]bool, len(current))

	for repo, hash := range current {
		seen[repo] = true

		if previous[repo] != hash {
			changed = append(changed, repo)
		}
	}

	for repo := range previous {
		if !seen[repo] {
			changed = append(changed, repo)
		}
	}

	slices.Sort(changed)

	return changed
}

// AffectedPages returns the pages depending on at least one changed repo.
func (m *Mapper) AffectedPages(changed []string) []string {
	return affected(m.mapping.PageDeps, changed)
}

// AffectedMetrics returns the metrics depending on at least one changed repo.
func (m *Mapper) AffectedMetrics(changed []string) []string {
	return affected(m.mapping.MetricDeps, changed)
}

// PagesToValidate returns the pages needing revalidation: those affected by
// the changed repos plus those never validated (cold start). validated maps
// page IDs to their last validation time.
func (m *Mapper) PagesToValidate(changed []string, validated map[string]string) []string {
	need := m.AffectedPages(changed)

	for _, page := range m.mapping.Pages() {
		if _, ok := validated[page]; !ok && !slices.Contains(need, page) {
			need = append(need, page)
		}
	}

	slices.Sort(need)

	return need
}

// MetricsToEvaluate returns the metrics needing evaluation: those affected by
// the changed repos plus those the ledger has never scored (cold start).
func (m *Mapper) MetricsToEvaluate(changed []string, led *ledger.Ledger) []string {
	need := m.AffectedMetrics(changed)

	for _, metric := range led.PendingMetrics(m.mapping.MetricDeps) {
		if !slices.Contains(need, metric) {
			need = append(need, metric)
		}
	}

	slices.Sort(need)

	return need
}

func affected(deps map[string][]string, changed []string) []string {
	result := make([]string, 0, len(deps))

	for name, repos := range deps {
		for _, repo := range repos {
			if slices.Contains(changed, repo) {
				result = append(result, name)

				break
			}
		}
	}

	slices.Sort(result)

	return result
}
