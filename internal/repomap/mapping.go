// Package repomap maps changed repositories to the blueprint pages and
// quality metrics that need revalidation: a bipartite dependency table plus
// the set operations over it.
package repomap

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInconsistentMapping reports a dependency table that fails the
// consistency self-check.
var ErrInconsistentMapping = errors.New("inconsistent dependency mapping")

// Mapping declares the watched repositories and which of them each blueprint
// page and quality metric depends on. It is plain data constructed once at
// startup (defaults or config file) and passed into whatever needs it; there
// is no package-global table.
type Mapping struct {
	// Repos lists every watched repository name.
	Repos []string `json:"repos"`
	// PageDeps maps each page ID to the repos it depends on. A page can
	// depend on many repos and a repo can affect many pages.
	PageDeps map[string][]string `json:"pages"`
	// MetricDeps maps each canonical metric ID to the repos it depends on.
	MetricDeps map[string][]string `json:"metrics"`
}

// DefaultMapping returns the blueprint project's dependency table.
func DefaultMapping() *Mapping {
	return &Mapping{
		Repos: []string{"assets", "content", "renderer", "theme", "tooling"},
		PageDeps: map[string][]string{
			"home":            {"content", "renderer", "theme"},
			"getting-started": {"content", "renderer", "theme"},
			"layout-grid":     {"content", "renderer", "theme"},
			"typography":      {"content", "renderer", "theme"},
			"components":      {"content", "renderer", "theme"},
			"gallery":         {"assets", "content", "renderer", "theme"},
			"reference":       {"content", "renderer", "tooling"},
		},
		MetricDeps: map[string][]string{
			"build_health":      {"assets", "content", "renderer", "theme", "tooling"},
			"page_coverage":     {"content", "renderer"},
			"screenshot_parity": {"assets", "renderer", "theme"},
			"link_integrity":    {"content"},
			"spec_compliance":   {"content", "renderer"},
			"asset_integrity":   {"assets"},
			"nav_consistency":   {"content", "theme"},
			"regression_budget": {"tooling"},
		},
	}
}

// Pages returns every mapped page ID, sorted.
func (m *Mapping) Pages() []string {
	pages := make([]string, 0, len(m.PageDeps))
	for page := range m.PageDeps {
		pages = append(pages, page)
	}

	slices.Sort(pages)

	return pages
}

// Metrics returns every mapped metric ID, sorted.
func (m *Mapping) Metrics() []string {
	metrics := make([]string, 0, len(m.MetricDeps))
	for metric := range m.MetricDeps {
		metrics = append(metrics, metric)
	}

	slices.Sort(metrics)

	return metrics
}

// HasRepo reports whether name is a watched repository.
func (m *Mapping) HasRepo(name string) bool {
	return slices.Contains(m.Repos, name)
}

// Validate is the consistency self-check over the table: at least one repo,
// no duplicate repo names, every page and metric declares at least one
// dependency, and every referenced repo is in the declared repo list.
func (m *Mapping) Validate() error {
	if len(m.Repos) == 0 {
		return fmt.Errorf("%w: no repositories declared", ErrInconsistentMapping)
	}

	known := make(map[string]bool, len(m.Repos))

	for _, repo := range m.Repos {
		if repo == "" {
			return fmt.Errorf("%w: empty repository name", ErrInconsistentMapping)
		}

		if known[repo] {
			return fmt.Errorf("%w: duplicate repository %q", ErrInconsistentMapping, repo)
		}

		known[repo] = true
	}

	err := validateDeps(known, m.PageDeps, "page")
	if err != nil {
		return err
	}

	return validateDeps(known, m.MetricDeps, "metric")
}

func validateDeps(known map[string]bool, deps map[string][]string, kind string) error {
	for name, repos := range deps {
		if len(repos) == 0 {
			return fmt.Errorf("%w: %s %q has no dependencies", ErrInconsistentMapping, kind, name)
		}

		for _, repo := range repos {
			if !known[repo] {
				return fmt.Errorf("%w: %s %q references unknown repository %q",
					ErrInconsistentMapping, kind, name, repo)
			}
		}
	}

	return nil
}
