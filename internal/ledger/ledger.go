// Package ledger keeps the per-project quality score ledger: the current
// score for each canonical metric, a bounded history of score snapshots, and
// the repo commits used to decide which scores have gone stale.
package ledger

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// SnapshotRetention bounds the snapshot history; the oldest snapshots are
// trimmed beyond it.
const SnapshotRetention = 20

// MetricScore is the current quality score for one canonical metric.
type MetricScore struct {
	Value  float64 `json:"value"`
	Passed bool    `json:"passed"`

	// ComputedAt is when the validator produced this score.
	ComputedAt time.Time `json:"computed_at"`

	// Validator is the short validator ID that produced the score, e.g. "T5".
	Validator string `json:"validator,omitempty"`

	// RepoCommits records the watched-repo commits at computation time;
	// staleness compares these against the current commits.
	RepoCommits map[string]string `json:"repo_commits_at_computation,omitempty"`
}

// Snapshot is a point-in-time copy of the whole score set.
type Snapshot struct {
	ID          string                 `json:"snapshot_id"`
	TakenAt     time.Time              `json:"taken_at"`
	Scores      map[string]MetricScore `json:"scores"`
	RepoCommits map[string]string      `json:"repo_commits,omitempty"`
}

// Ledger is one project's quality ledger. Mutations happen in memory; the
// store persists the whole ledger as a single JSON file.
type Ledger struct {
	Scores    map[string]MetricScore `json:"scores"`
	Snapshots []Snapshot             `json:"snapshots,omitempty"`

	// RepoCommits is the last commit set a validator run saw; change
	// detection diffs the current commits against it.
	RepoCommits map[string]string `json:"repo_commits,omitempty"`

	// ValidatedPages maps page IDs to the RFC 3339 time they were last
	// covered by a validator run.
	ValidatedPages map[string]string `json:"validated_pages,omitempty"`
}

// NewLedger returns an empty ledger with an initialized score map.
func NewLedger() *Ledger {
	return &Ledger{Scores: make(map[string]MetricScore)}
}

// UpdateScore overwrites the current score for a metric. History is only
// written by AddSnapshot; repeated updates between snapshots leave no trace.
func (l *Ledger) UpdateScore(metric string, score MetricScore) {
	if l.Scores == nil {
		l.Scores = make(map[string]MetricScore)
	}

	score.RepoCommits = maps.Clone(score.RepoCommits)
	l.Scores[metric] = score
}

// AddSnapshot copies the current score set into the snapshot history and
// trims the history to the retention bound.
func (l *Ledger) AddSnapshot(now time.Time) Snapshot {
	snap := Snapshot{
		ID:          uuid.NewString(),
		TakenAt:     now,
		Scores:      maps.Clone(l.Scores),
		RepoCommits: maps.Clone(l.RepoCommits),
	}

	l.Snapshots = append(l.Snapshots, snap)

	if len(l.Snapshots) > SnapshotRetention {
		l.Snapshots = slices.Clone(l.Snapshots[len(l.Snapshots)-SnapshotRetention:])
	}

	return snap
}

// LastSnapshot returns the most recent snapshot, if any.
func (l *Ledger) LastSnapshot() (Snapshot, bool) {
	if len(l.Snapshots) == 0 {
		return Snapshot{}, false
	}

	return l.Snapshots[len(l.Snapshots)-1], true
}

// StaleMetrics returns the metrics whose recorded dependency commits differ
// from the current ones. deps maps each metric to the repos it depends on. A
// metric is stale iff at least one dependency repo's commit differs from, or
// is absent from, the commits recorded when the score was computed. Metrics
// never scored are pending, not stale.
func (l *Ledger) StaleMetrics(deps map[string][]string, current map[string]string) []string {
	stale := make([]string, 0, len(deps))

	for metric, repos := range deps {
		score, ok := l.Scores[metric]
		if !ok {
			continue
		}

		for _, repo := range repos {
			recorded, haveRecorded := score.RepoCommits[repo]
			now, haveNow := current[repo]

			if !haveRecorded || !haveNow || recorded != now {
				stale = append(stale, metric)

				break
			}
		}
	}

	slices.Sort(stale)

	return stale
}

// PendingMetrics returns the metrics declared in deps that have never been
// scored.
func (l *Ledger) PendingMetrics(deps map[string][]string) []string {
	pending := make([]string, 0, len(deps))

	for metric := range deps {
		if _, ok := l.Scores[metric]; !ok {
			pending = append(pending, metric)
		}
	}

	slices.Sort(pending)

	return pending
}

// MarkPageValidated records that a validator run covered the page.
func (l *Ledger) MarkPageValidated(page string, at time.Time) {
	if l.ValidatedPages == nil {
		l.ValidatedPages = make(map[string]string)
	}

	l.ValidatedPages[page] = at.UTC().Format(time.RFC3339)
}
