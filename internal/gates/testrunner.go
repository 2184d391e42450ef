package gates

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// TestRunner runs the project's test suite and returns its combined output.
// A failing suite is not an error; the summary line carries the verdict.
// Errors mean the suite could not run at all.
type TestRunner interface {
	Run(ctx context.Context) (string, error)
}

// ExecTestRunner shells the configured test command through /bin/sh.
type ExecTestRunner struct {
	command string
	workDir string
	timeout time.Duration
	log     zerolog.Logger
}

// NewExecTestRunner returns a runner for the given shell command, executed
// in workDir.
func NewExecTestRunner(command, workDir string, timeout time.Duration, log zerolog.Logger) *ExecTestRunner {
	return &ExecTestRunner{
		command: command,
		workDir: workDir,
		timeout: timeout,
		log:     log.With().Str("component", "testrunner").Logger(),
	}
}

// Run executes the test command and returns its combined output.
func (r *ExecTestRunner) Run(ctx context.Context) (string, error) {
	if r.command == "" {
		return "", errors.New("no test command configured")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var out bytes.Buffer

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", r.command)
	cmd.Dir = r.workDir
	cmd.Stdout = &out
	cmd.Stderr = &out

	r.log.Debug().Str("command", r.command).Msg("running test suite")

	err := cmd.Run()
	if ctx.Err() != nil {
		return out.String(), fmt.Errorf("test run timed out after %s", r.timeout)
	}

	// A non-zero exit is how test tools report failures; keep the output and
	// let the summary parser judge it.
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return out.String(), fmt.Errorf("test run: %w", err)
	}

	return out.String(), nil
}

var (
	passedCountRe = regexp.MustCompile(`(\d+)\s+passed`)
	failedCountRe = regexp.MustCompile(`(\d+)\s+failed`)
	errorCountRe  = regexp.MustCompile(`(\d+)\s+error`)
)

// TestCounts is the parsed summary of a test run. Recognized is false when
// the output carried no summary counts at all.
type TestCounts struct {
	Passed     int
	Failed     int
	Errors     int
	Recognized bool
}

// Total returns how many tests the summary accounts for.
func (c TestCounts) Total() int {
	return c.Passed + c.Failed + c.Errors
}

// ParseTestSummary extracts pass/fail/error counts from raw test tool
// output. It matches the summary conventions of pytest-style runners
// ("12 passed, 2 failed, 1 error").
func ParseTestSummary(output string) TestCounts {
	var counts TestCounts

	match := passedCountRe.FindStringSubmatch(output)
	if match != nil {
		counts.Passed, _ = strconv.Atoi(match[1])
		counts.Recognized = true
	}

	match = failedCountRe.FindStringSubmatch(output)
	if match != nil {
		counts.Failed, _ = strconv.Atoi(match[1])
		counts.Recognized = true
	}

	match = errorCountRe.FindStringSubmatch(output)
	if match != nil {
		counts.Errors, _ = strconv.Atoi(match[1])
		counts.Recognized = true
	}

	return counts
}
