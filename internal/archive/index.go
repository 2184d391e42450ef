package archive

import (
	"fmt"
	"slices"
	"time"
)

// Index is the durable archive collection: every entry keyed by ID plus
// derived tag and project lookup maps. The derived maps are maintained on
// every mutation and rebuilt wholesale on load, so a hand-edited index file
// cannot leave them out of sync with the entries.
type Index struct {
	Entries   map[string]*Entry   `json:"entries"`
	ByTag     map[string][]string `json:"by_tag"`
	ByProject map[string][]string `json:"by_project"`
}

// NewIndex returns an empty index with initialized maps.
func NewIndex() *Index {
	return &Index{
		Entries:   make(map[string]*Entry),
		ByTag:     make(map[string][]string),
		ByProject: make(map[string][]string),
	}
}

// Len returns the number of entries.
func (ix *Index) Len() int {
	return len(ix.Entries)
}

// Has reports whether an entry with the given ID exists.
func (ix *Index) Has(id string) bool {
	_, ok := ix.Entries[id]

	return ok
}

// Add inserts a new entry and indexes its tags and project. Duplicate IDs are
// rejected; the ID generator hands out collision-free IDs so rejection is an
// internal invariant, not an expected user-facing failure.
func (ix *Index) Add(entry *Entry) error {
	err := entry.Validate()
	if err != nil {
		return err
	}

	if ix.Has(entry.ID) {
		return fmt.Errorf("%w: %s", ErrDuplicateEntry, entry.ID)
	}

	ix.Entries[entry.ID] = entry

	for _, tag := range entry.AllTags() {
		ix.indexTag(tag, entry.ID)
	}

	ix.indexProject(entry.Project, entry.ID)

	return nil
}

// Get returns the entry with the given ID.
func (ix *Index) Get(id string) (*Entry, error) {
	entry, ok := ix.Entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}

	return entry, nil
}

// Tag adds tags to an entry's user tag set. Adding a tag the entry already
// carries is a no-op, and the tag index never ends up referencing an entry
// twice.
func (ix *Index) Tag(id string, tags ...string) error {
	entry, err := ix.Get(id)
	if err != nil {
		return err
	}

	for _, tag := range tags {
		if tag == "" {
			return ErrTagRequired
		}
	}

	for _, tag := range tags {
		if slices.Contains(entry.Tags, tag) {
			continue
		}

		entry.Tags = append(entry.Tags, tag)
		ix.indexTag(tag, id)
	}

	slices.Sort(entry.Tags)

	return nil
}

// Note replaces the entry's note text. Overwrite, not append.
func (ix *Index) Note(id, text string) error {
	entry, err := ix.Get(id)
	if err != nil {
		return err
	}

	entry.Notes = text

	return nil
}

// Delete removes an entry and every index reference to it. This is the
// administrative path; normal operation never deletes entries.
func (ix *Index) Delete(id string) error {
	entry, err := ix.Get(id)
	if err != nil {
		return err
	}

	delete(ix.Entries, id)

	for _, tag := range entry.AllTags() {
		ix.unindexTag(tag, id)
	}

	ix.unindexProject(entry.Project, id)

	return nil
}

// MarkSynced records a successful sync of the entry at the given time and
// clears any previous sync error.
func (ix *Index) MarkSynced(id string, at time.Time) error {
	entry, err := ix.Get(id)
	if err != nil {
		return err
	}

	entry.SyncedToICloud = true
	entry.SyncTimestamp = at.UTC().Format(time.RFC3339)
	entry.SyncError = ""

	return nil
}

// MarkSyncError records a failed sync attempt.
func (ix *Index) MarkSyncError(id, msg string) error {
	entry, err := ix.Get(id)
	if err != nil {
		return err
	}

	entry.SyncedToICloud = false
	entry.SyncError = msg

	return nil
}

// Projects returns every project with at least one entry, sorted.
func (ix *Index) Projects() []string {
	projects := make([]string, 0, len(ix.ByProject))
	for project := range ix.ByProject {
		projects = append(projects, project)
	}

	slices.Sort(projects)

	return projects
}

// TagCounts returns every indexed tag with the number of entries carrying it.
func (ix *Index) TagCounts() map[string]int {
	counts := make(map[string]int, len(ix.ByTag))
	for tag, ids := range ix.ByTag {
		counts[tag] = len(ids)
	}

	return counts
}

// Rebuild recomputes the derived tag and project maps from the entries.
func (ix *Index) Rebuild() {
	ix.ByTag = make(map[string][]string)
	ix.ByProject = make(map[string][]string)

	for id, entry := range ix.Entries {
		for _, tag := range entry.AllTags() {
			ix.indexTag(tag, id)
		}

		ix.indexProject(entry.Project, id)
	}
}

func (ix *Index) indexTag(tag, id string) {
	ids := ix.ByTag[tag]
	if slices.Contains(ids, id) {
		return
	}

	ids = append(ids, id)
	slices.Sort(ids)
	ix.ByTag[tag] = ids
}

func (ix *Index) unindexTag(tag, id string) {
	ids := slices.DeleteFunc(ix.ByTag[tag], func(other string) bool { return other == id })
	if len(ids) == 0 {
		delete(ix.ByTag, tag)

		return
	}

	ix.ByTag[tag] = ids
}

func (ix *Index) indexProject(project, id string) {
	ids := ix.ByProject[project]
	if slices.Contains(ids, id) {
		return
	}

	ids = append(ids, id)
	slices.Sort(ids)
	ix.ByProject[project] = ids
}

func (ix *Index) unindexProject(project, id string) {
	ids := slices.DeleteFunc(ix.ByProject[project], func(other string) bool { return other == id })
	if len(ids) == 0 {
		delete(ix.ByProject, project)

		return
	}

	ix.ByProject[project] = ids
}
