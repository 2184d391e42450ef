package archive

import (
	"fmt"
	"slices"
	"time"
)

// Entry is one recorded development session or build event.
//
// Entries are immutable once archived except for tags, notes, and the sync
// state fields. The large session payload is never stored inline; the store
// keeps it in a sidecar file keyed by the entry ID.
type Entry struct {
	ID             string             `json:"entry_id"`
	CreatedAt      time.Time          `json:"created_at"`
	Project        string             `json:"project"`
	Trigger        string             `json:"trigger,omitempty"`
	Tags           []string           `json:"tags,omitempty"`
	AutoTags       []string           `json:"auto_tags,omitempty"`
	Notes          string             `json:"notes,omitempty"`
	Screenshots    []string           `json:"screenshots,omitempty"`
	RepoCommits    map[string]string  `json:"repo_commits,omitempty"`
	SyncedToICloud bool               `json:"synced_to_icloud,omitempty"`
	SyncTimestamp  string             `json:"sync_timestamp,omitempty"`
	SyncError      string             `json:"sync_error,omitempty"`
	Timings        map[string]float64 `json:"archive_timings,omitempty"`
}

// Validate checks the fields every entry must carry.
func (e *Entry) Validate() error {
	if e.ID == "" {
		return ErrIDRequired
	}

	if !ValidID(e.ID) {
		return fmt.Errorf("%w: %s", ErrBadEntryID, e.ID)
	}

	if e.Project == "" {
		return ErrProjectRequired
	}

	if e.CreatedAt.IsZero() {
		return ErrCreatedAtRequired
	}

	if e.Trigger != "" && !IsValidTrigger(e.Trigger) {
		return fmt.Errorf("%w: %s", ErrInvalidTrigger, e.Trigger)
	}

	return nil
}

// AllTags returns the union of user tags and system-derived auto tags, sorted.
// Filtering and the tag index both work over this union.
func (e *Entry) AllTags() []string {
	union := make([]string, 0, len(e.Tags)+len(e.AutoTags))
	union = append(union, e.Tags...)

	for _, tag := range e.AutoTags {
		if !slices.Contains(union, tag) {
			union = append(union, tag)
		}
	}

	slices.Sort(union)

	return union
}

// HasTag reports whether tag appears in either tag set.
func (e *Entry) HasTag(tag string) bool {
	return slices.Contains(e.Tags, tag) || slices.Contains(e.AutoTags, tag)
}
