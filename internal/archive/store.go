package archive

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	"github.com/rs/zerolog"
)

const (
	// IndexFileName is the single JSON document holding the whole index.
	IndexFileName = "archive_index.json"
	// DataDirName is the directory of per-entry payload sidecar files.
	DataDirName = "archive_data"

	dirPerms  = 0o750
	filePerms = 0o600
)

// Store persists the index and the per-entry payload sidecars under one
// archive directory.
//
// Save rewrites the entire index file on every call and takes no lock. Two
// processes mutating the archive at once can clobber each other's writes;
// that is an accepted ceiling for a single-operator tool. At the entry counts
// this tool sees (hundreds to low thousands) the O(n) rewrite stays cheap.
type Store struct {
	dir string
	log zerolog.Logger
}

// NewStore returns a store rooted at dir.
func NewStore(dir string, log zerolog.Logger) *Store {
	return &Store{
		dir: dir,
		log: log.With().Str("component", "archive").Logger(),
	}
}

// IndexPath returns the path of the index file.
func (s *Store) IndexPath() string {
	return filepath.Join(s.dir, IndexFileName)
}

// DataDir returns the directory holding payload sidecars.
func (s *Store) DataDir() string {
	return filepath.Join(s.dir, DataDirName)
}

// Load reads the index. A missing file yields an empty index. The derived
// lookup maps are rebuilt from the entries rather than trusted from disk.
func (s *Store) Load() (*Index, error) {
	data, err := os.ReadFile(s.IndexPath())
	if errors.Is(err, fs.ErrNotExist) {
		return NewIndex(), nil
	}

	if err != nil {
		return nil, fmt.Errorf("read archive index: %w", err)
	}

	idx := NewIndex()

	err = json.Unmarshal(data, idx)
	if err != nil {
		return nil, fmt.Errorf("parse archive index %s: %w", s.IndexPath(), err)
	}

	if idx.Entries == nil {
		idx.Entries = make(map[string]*Entry)
	}

	idx.Rebuild()

	return idx, nil
}

// Save writes the whole index atomically.
func (s *Store) Save(idx *Index) error {
	mkdirErr := os.MkdirAll(s.dir, dirPerms)
	if mkdirErr != nil {
		return fmt.Errorf("create archive directory: %w", mkdirErr)
	}

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("encode archive index: %w", err)
	}

	data = append(data, '\n')
	path := s.IndexPath()

	writeErr := atomic.WriteFile(path, bytes.NewReader(data))
	if writeErr != nil {
		return fmt.Errorf("write archive index: %w", writeErr)
	}

	// Set file permissions (atomic.WriteFile doesn't set them for new files)
	chmodErr := os.Chmod(path, filePerms)
	if chmodErr != nil {
		return fmt.Errorf("set archive index permissions: %w", chmodErr)
	}

	s.log.Debug().Int("entries", idx.Len()).Msg("archive index saved")

	return nil
}

// WritePayload stores an entry's session payload in its sidecar file. The
// payload must be valid JSON; it is written verbatim, never merged into the
// index.
func (s *Store) WritePayload(id string, payload json.RawMessage) error {
	if !ValidID(id) {
		return fmt.Errorf("%w: %s", ErrBadEntryID, id)
	}

	if !json.Valid(payload) {
		return fmt.Errorf("payload for %s: %w", id, ErrInvalidPayload)
	}

	mkdirErr := os.MkdirAll(s.DataDir(), dirPerms)
	if mkdirErr != nil {
		return fmt.Errorf("create archive data directory: %w", mkdirErr)
	}

	path := s.payloadPath(id)

	writeErr := atomic.WriteFile(path, bytes.NewReader(payload))
	if writeErr != nil {
		return fmt.Errorf("write payload sidecar: %w", writeErr)
	}

	chmodErr := os.Chmod(path, filePerms)
	if chmodErr != nil {
		return fmt.Errorf("set payload sidecar permissions: %w", chmodErr)
	}

	return nil
}

// ReadPayload returns the raw sidecar payload for an entry.
func (s *Store) ReadPayload(id string) (json.RawMessage, error) {
	if !ValidID(id) {
		return nil, fmt.Errorf("%w: %s", ErrBadEntryID, id)
	}

	data, err := os.ReadFile(s.payloadPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoPayload, id)
	}

	if err != nil {
		return nil, fmt.Errorf("read payload sidecar: %w", err)
	}

	return data, nil
}

// HasPayload reports whether the entry has a payload sidecar on disk.
func (s *Store) HasPayload(id string) bool {
	if !ValidID(id) {
		return false
	}

	_, err := os.Stat(s.payloadPath(id))

	return err == nil
}

// RemovePayload deletes an entry's sidecar. Removing a missing sidecar is a
// no-op.
func (s *Store) RemovePayload(id string) error {
	if !ValidID(id) {
		return fmt.Errorf("%w: %s", ErrBadEntryID, id)
	}

	err := os.Remove(s.payloadPath(id))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove payload sidecar: %w", err)
	}

	return nil
}

func (s *Store) payloadPath(id string) string {
	return filepath.Join(s.DataDir(), id+".json")
}
