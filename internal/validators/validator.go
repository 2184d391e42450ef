// Package validators hosts the quality validator registry and runner. Each
// validator produces a score for exactly one canonical metric; the runner
// executes validators, isolates their failures, and persists scored results
// into the quality ledger.
package validators

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/sidebyside/harness/internal/archive"
	"github.com/sidebyside/harness/internal/gitx"
	"github.com/sidebyside/harness/internal/ledger"
	"github.com/sidebyside/harness/internal/repomap"
)

// Validator categories.
const (
	// CategoryAutomated validators run in-process and score deterministically.
	CategoryAutomated = "automated"
	// CategoryAgent validators cannot score in-process; they produce review
	// prompts for an agent-assisted pass.
	CategoryAgent = "agent"
	// CategoryExternal validators run through the external validator CLI.
	CategoryExternal = "external"
)

// Context carries everything a validator may inspect during a run.
type Context struct {
	Project string
	Archive *archive.Store
	Ledgers *ledger.Store
	Mapper  *repomap.Mapper
	Git     *gitx.Client
	// Commits is the watched-repo commit snapshot taken at the start of the
	// run; persisted scores record it for staleness tracking.
	Commits map[string]string
	// WorkDir resolves relative paths recorded in archive entries.
	WorkDir string
	Log     zerolog.Logger
}

// Result is a scored validator verdict. Metrics must contain a value for the
// validator's canonical metric; anything else is auxiliary measurement.
type Result struct {
	Passed     bool
	Metrics    map[string]float64
	Findings   []string
	Confidence float64
	// Pages lists the page IDs this run covered; the runner records them as
	// validated in the ledger.
	Pages []string
}

// Outcome is the tagged result variant of running one validator: Scored,
// Pending, or Failed. Exactly one shape per run, never a single struct with
// mode-dependent fields.
type Outcome interface {
	outcome()
}

// Scored is a completed run with a numeric verdict.
type Scored struct {
	Result Result
}

// Pending is a run that produced prompts for an agent-assisted review
// instead of a score.
type Pending struct {
	Prompts []string
}

// Failed is a run that could not produce a verdict; the reason is recorded
// and the rest of the batch continues.
type Failed struct {
	Reason string
}

func (Scored) outcome()  {}
func (Pending) outcome() {}
func (Failed) outcome()  {}

// Validator produces a Scored or Pending outcome for its metric. Errors are
// isolated by the runner and recorded as Failed outcomes.
type Validator interface {
	Validate(ctx context.Context, vctx *Context) (Outcome, error)
}
