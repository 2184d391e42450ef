package archive

import "errors"

// Trigger constants. The trigger records what initiated the archived session.
const (
	TriggerSession = "session"
	TriggerBuild   = "build"
	TriggerManual  = "manual"
	TriggerCI      = "ci"
)

// Error variables for archive operations.
var (
	ErrIDRequired         = errors.New("entry ID is required")
	ErrBadEntryID         = errors.New("entry ID contains invalid characters")
	ErrProjectRequired    = errors.New("project is required")
	ErrCreatedAtRequired  = errors.New("created_at is required")
	ErrInvalidTrigger     = errors.New("invalid trigger")
	ErrDuplicateEntry     = errors.New("entry ID already exists")
	ErrEntryNotFound      = errors.New("entry not found")
	ErrTagRequired        = errors.New("tag cannot be empty")
	ErrIDGenerationFailed = errors.New("no unique ID after repeated attempts")
	ErrNoPayload          = errors.New("entry has no payload sidecar")
	ErrInvalidPayload     = errors.New("payload is not valid JSON")
)

// IsValidTrigger reports whether s is a recognized trigger value.
func IsValidTrigger(s string) bool {
	switch s {
	case TriggerSession, TriggerBuild, TriggerManual, TriggerCI:
		return true
	default:
		return false
	}
}
