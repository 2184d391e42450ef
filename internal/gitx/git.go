// Package gitx shells out to git for the watched repositories. Every call
// runs one git command with a bounded timeout and is attempted exactly once;
// callers decide what a failure means.
package gitx

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// gitTimeout bounds a single git invocation. Local plumbing commands finish
// in milliseconds; anything slower means a wedged repository.
const gitTimeout = 10 * time.Second

// Client runs git commands against local repository directories.
type Client struct {
	log zerolog.Logger
}

// NewClient returns a git client.
func NewClient(log zerolog.Logger) *Client {
	return &Client{log: log.With().Str("component", "gitx").Logger()}
}

// Commit returns the repository's current HEAD commit hash.
func (c *Client) Commit(ctx context.Context, dir string) (string, error) {
	out, err := c.runGit(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(out), nil
}

// HasUncommitted reports whether the repository has staged, unstaged, or
// untracked changes.
func (c *Client) HasUncommitted(ctx context.Context, dir string) (bool, error) {
	out, err := c.runGit(ctx, dir, "status", "--porcelain")
	if err != nil {
		return false, err
	}

	return strings.TrimSpace(out) != "", nil
}

// ChangedFiles returns the paths that changed between the given commit and
// HEAD.
func (c *Client) ChangedFiles(ctx context.Context, dir, since string) ([]string, error) {
	out, err := c.runGit(ctx, dir, "diff", "--name-only", since+"..HEAD")
	if err != nil {
		return nil, err
	}

	return splitLines(out), nil
}

func (c *Client) runGit(ctx context.Context, dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.log.Debug().Str("dir", dir).Strs("args", args).Msg("running git")

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("git %s in %s timed out after %s: %w",
				args[0], dir, gitTimeout, ctx.Err())
		}

		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = strings.TrimSpace(stdout.String())
		}

		if detail != "" {
			return "", fmt.Errorf("git %s in %s: %w: %s", args[0], dir, err, detail)
		}

		return "", fmt.Errorf("git %s in %s: %w", args[0], dir, err)
	}

	return stdout.String(), nil
}

// splitLines splits command output into trimmed, non-empty lines.
func splitLines(out string) []string {
	lines := make([]string, 0)

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}

	return lines
}
