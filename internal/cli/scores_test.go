package cli

import (
	"strings"
	"testing"
)

func Test_Scores_Fresh_After_Validation(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)
	initContentRepo(t, c)

	c.MustRun("validate", "--only", "T4")

	stdout := c.MustRun("scores")

	line := lineWith(t, stdout, "link_integrity")
	AssertContains(t, line, "pass")
	AssertContains(t, line, "fresh")
	AssertContains(t, line, "T4")
}

func Test_Scores_Stale_After_New_Commit(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)
	repoDir := initContentRepo(t, c)

	c.MustRun("validate", "--only", "T4")

	gitRun(t, repoDir, "commit", "-q", "--allow-empty", "-m", "content moved")

	stdout := c.MustRun("scores")
	AssertContains(t, lineWith(t, stdout, "link_integrity"), "stale")
}

func Test_Scores_Unscored_Metric_Shows_Pending(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)
	initContentRepo(t, c)

	stdout := c.MustRun("scores")
	AssertContains(t, lineWith(t, stdout, "link_integrity"), "pending")
}

func Test_Scores_Warns_When_Repos_Unreadable(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)
	seedLedger(t, c, "blueprint", passingQualityLedger)

	// Default mapping, no repos exist: every commit read fails.
	stdout, stderr, code := c.Run("scores")
	if code != 1 {
		t.Fatalf("expected exit 1 from warnings, got %d", code)
	}

	AssertContains(t, stdout, "link_integrity")
	AssertContains(t, stderr, "warning:")
}

// lineWith returns the first output line containing substr.
func lineWith(t *testing.T, output, substr string) string {
	t.Helper()

	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, substr) {
			return line
		}
	}

	t.Fatalf("no line contains %q in:\n%s", substr, output)

	return ""
}
