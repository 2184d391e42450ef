package archive

import (
	"slices"
	"time"
)

// Filter selects entries for listing. Zero-value fields are ignored. Set
// fields combine with AND semantics, except Tags, which matches an entry
// carrying any one of the listed tags.
type Filter struct {
	// Project matches entries recorded for this sub-project.
	Project string
	// Tags matches entries carrying at least one of these tags, in either
	// the user or the auto tag set.
	Tags []string
	// Since matches entries created at or after this time.
	Since time.Time
	// Trigger matches entries with this trigger value.
	Trigger string
	// Reverse lists newest first instead of oldest first.
	Reverse bool
	// Limit caps the number of returned entries. Zero or negative means no
	// limit.
	Limit int
	// Offset skips the first N matching entries.
	Offset int
}

// List returns entries matching the filter, ordered by entry ID ascending.
// IDs are timestamp-derived, so ascending ID order is chronological order.
func (ix *Index) List(filter Filter) []*Entry {
	ids := make([]string, 0, len(ix.Entries))
	for id := range ix.Entries {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	if filter.Reverse {
		slices.Reverse(ids)
	}

	matched := make([]*Entry, 0, len(ids))
	skipped := 0

	for _, id := range ids {
		entry := ix.Entries[id]
		if !filter.matches(entry) {
			continue
		}

		if skipped < filter.Offset {
			skipped++

			continue
		}

		matched = append(matched, entry)

		if filter.Limit > 0 && len(matched) >= filter.Limit {
			break
		}
	}

	return matched
}

func (filter Filter) matches(entry *Entry) bool {
	if filter.Project != "" && entry.Project != filter.Project {
		return false
	}

	if filter.Trigger != "" && entry.Trigger != filter.Trigger {
		return false
	}

	if !filter.Since.IsZero() && entry.CreatedAt.Before(filter.Since) {
		return false
	}

	if len(filter.Tags) > 0 {
		found := false

		for _, tag := range filter.Tags {
			if entry.HasTag(tag) {
				found = true

				break
			}
		}

		if !found {
			return false
		}
	}

	return true
}
