package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/rs/zerolog"
)

// LedgerFileName is the per-project ledger document.
const LedgerFileName = "quality_ledger.json"

const (
	dirPerms  = 0o750
	filePerms = 0o600
)

// Error variables for ledger operations.
var (
	ErrProjectRequired = errors.New("project is required")
	ErrBadProjectName  = errors.New("project name must not contain path separators")
)

// Store persists one ledger file per project under a common root directory.
// Same write discipline as the archive store: whole-file atomic rewrite, no
// locking.
type Store struct {
	dir string
	log zerolog.Logger
}

// NewStore returns a store rooted at dir.
func NewStore(dir string, log zerolog.Logger) *Store {
	return &Store{
		dir: dir,
		log: log.With().Str("component", "ledger").Logger(),
	}
}

// Path returns the ledger file path for a project.
func (s *Store) Path(project string) string {
	return filepath.Join(s.dir, project, LedgerFileName)
}

// Load reads a project's ledger. A missing file yields an empty ledger.
func (s *Store) Load(project string) (*Ledger, error) {
	err := validProject(project)
	if err != nil {
		return nil, err
	}

	data, readErr := os.ReadFile(s.Path(project))
	if errors.Is(readErr, fs.ErrNotExist) {
		return NewLedger(), nil
	}

	if readErr != nil {
		return nil, fmt.Errorf("read quality ledger: %w", readErr)
	}

	led := NewLedger()

	err = json.Unmarshal(data, led)
	if err != nil {
		return nil, fmt.Errorf("parse quality ledger %s: %w", s.Path(project), err)
	}

	if led.Scores == nil {
		led.Scores = make(map[string]MetricScore)
	}

	return led, nil
}

// Save writes a project's ledger atomically.
func (s *Store) Save(project string, led *Ledger) error {
	err := validProject(project)
	if err != nil {
		return err
	}

	mkdirErr := os.MkdirAll(filepath.Join(s.dir, project), dirPerms)
	if mkdirErr != nil {
		return fmt.Errorf("create ledger directory: %w", mkdirErr)
	}

	data, marshalErr := json.MarshalIndent(led, "", "  ")
	if marshalErr != nil {
		return fmt.Errorf("encode quality ledger: %w", marshalErr)
	}

	data = append(data, '\n')
	path := s.Path(project)

	writeErr := atomic.WriteFile(path, bytes.NewReader(data))
	if writeErr != nil {
		return fmt.Errorf("write quality ledger: %w", writeErr)
	}

	// Set file permissions (atomic.WriteFile doesn't set them for new files)
	chmodErr := os.Chmod(path, filePerms)
	if chmodErr != nil {
		return fmt.Errorf("set quality ledger permissions: %w", chmodErr)
	}

	s.log.Debug().Str("project", project).Int("scores", len(led.Scores)).Msg("quality ledger saved")

	return nil
}

func validProject(project string) error {
	if project == "" {
		return ErrProjectRequired
	}

	if project == "." || project == ".." ||
		strings.ContainsAny(project, `/\`) {
		return fmt.Errorf("%w: %s", ErrBadProjectName, project)
	}

	return nil
}
