package validators

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// externalPassBar is the score an external validator must reach to pass.
const externalPassBar = 0.8

var (
	// ErrNoValidatorCommand indicates external validators were requested but
	// no validator command is configured.
	ErrNoValidatorCommand = errors.New("no validator command configured")

	// ErrValidatorCommand indicates the validator command failed or returned
	// unusable output.
	ErrValidatorCommand = errors.New("validator command failed")
)

// ExternalCLI invokes the configured validator command once per batch:
//
//	<command> --project <name> --validators <id,id,...> --json
//
// The command prints a JSON document with a top-level "results" object
// mapping validator IDs to either a bare number or {"value": <number>}.
type ExternalCLI struct {
	command string
	timeout time.Duration
	log     zerolog.Logger
}

// NewExternalCLI returns an adapter for the given command line. The command
// may carry arguments of its own ("python3 tools/validate.py").
func NewExternalCLI(command string, timeout time.Duration, log zerolog.Logger) *ExternalCLI {
	return &ExternalCLI{
		command: command,
		timeout: timeout,
		log:     log.With().Str("component", "validator-cli").Logger(),
	}
}

// Run executes one batched invocation and returns the reported value per
// validator ID. IDs missing from the output are simply absent; the caller
// decides what that means.
func (x *ExternalCLI) Run(ctx context.Context, project string, ids []string) (map[string]float64, error) {
	fields := strings.Fields(x.command)
	if len(fields) == 0 {
		return nil, ErrNoValidatorCommand
	}

	args := append(fields[1:], "--project", project, "--validators", strings.Join(ids, ","), "--json")

	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, fields[0], args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	x.log.Debug().Str("project", project).Strs("validators", ids).Msg("running validator command")

	err := cmd.Run()
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: timed out after %s", ErrValidatorCommand, x.timeout)
	}

	if err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = strings.TrimSpace(stdout.String())
		}

		return nil, fmt.Errorf("%w: %v: %s", ErrValidatorCommand, err, detail)
	}

	return parseValidatorOutput(stdout.Bytes(), x.log)
}

// parseValidatorOutput extracts per-validator values from the command's JSON
// document. Entries with an unrecognized shape are skipped, not fatal.
func parseValidatorOutput(data []byte, log zerolog.Logger) (map[string]float64, error) {
	var doc struct {
		Results map[string]json.RawMessage `json:"results"`
	}

	err := json.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("%w: unparseable output: %v", ErrValidatorCommand, err)
	}

	values := make(map[string]float64, len(doc.Results))

	for id, raw := range doc.Results {
		var num float64
		if json.Unmarshal(raw, &num) == nil {
			values[id] = num

			continue
		}

		var obj struct {
			Value float64 `json:"value"`
		}

		if json.Unmarshal(raw, &obj) == nil {
			values[id] = obj.Value

			continue
		}

		log.Warn().Str("validator", id).Msg("validator command returned unrecognized result shape")
	}

	return values, nil
}
