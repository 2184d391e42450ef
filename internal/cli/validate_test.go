package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func Test_Validate_Scores_Link_Integrity_And_Persists(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)
	initContentRepo(t, c)

	stdout := c.MustRun("validate", "--only", "T4")

	AssertContains(t, stdout, "T4 link_integrity: 1.00 pass")
	AssertContains(t, stdout, "1 scored, 0 pending, 0 failed")

	led := readLedger(t, c, "blueprint")
	AssertContains(t, led, `"link_integrity"`)
	AssertContains(t, led, `"validator": "T4"`)
}

func Test_Validate_Accepts_Metric_Names_In_Only(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)
	initContentRepo(t, c)

	stdout := c.MustRun("validate", "--only", "link_integrity")
	AssertContains(t, stdout, "T4 link_integrity")
}

func Test_Validate_Reports_Broken_Links(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)
	repoDir := initContentRepo(t, c)

	err := os.WriteFile(filepath.Join(repoDir, "guide.md"),
		[]byte("# Guide\n\nSee [home](home.md) and [gone](missing.md).\n"), 0o600)
	if err != nil {
		t.Fatal(err)
	}

	gitRun(t, repoDir, "add", ".")
	gitRun(t, repoDir, "commit", "-q", "-m", "add guide")

	stdout := c.MustRun("validate", "--only", "T4")

	AssertContains(t, stdout, "T4 link_integrity: 0.50 fail")
	AssertContains(t, stdout, "missing.md")
}

func Test_Validate_Default_Scope_Skips_Fresh_Scores(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)
	initContentRepo(t, c)

	c.MustRun("validate", "--only", "T4")

	stdout := c.MustRun("validate")
	AssertContains(t, stdout, "nothing to validate; all scores are fresh")
}

func Test_Validate_Default_Scope_Picks_Up_Stale_Scores(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)
	repoDir := initContentRepo(t, c)

	c.MustRun("validate", "--only", "T4")

	gitRun(t, repoDir, "commit", "-q", "--allow-empty", "-m", "content moved")

	stdout := c.MustRun("validate")
	AssertContains(t, stdout, "T4 link_integrity")
}

func Test_Validate_Rejects_Unknown_Only_Value(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)
	initContentRepo(t, c)

	stderr := c.MustFail("validate", "--only", "T99")
	AssertContains(t, stderr, "unknown validator: T99")
}

func Test_Validate_Missing_External_Command_Reports_Failed(t *testing.T) {
	t.Parallel()
	requireGit(t)

	c := NewCLI(t)

	// Map only the external nav metric; the default validator binary does
	// not exist in the test environment, so the batch fails per validator.
	c.WriteFile(".sbs.json", `{
  "mapping": {
    "repos": ["content"],
    "pages": { "home": ["content"] },
    "metrics": { "nav_consistency": ["content"] }
  }
}`)

	repoDir := filepath.Join(c.Dir, "content")
	if err := os.MkdirAll(repoDir, 0o750); err != nil {
		t.Fatal(err)
	}

	gitRun(t, repoDir, "init", "-q")
	gitRun(t, repoDir, "commit", "-q", "--allow-empty", "-m", "init")

	stdout, stderr, code := c.Run("validate", "--only", "T7")
	if code != 1 {
		t.Fatalf("expected exit 1 from failed-validator warning, got %d", code)
	}

	AssertContains(t, stdout, "T7 nav_consistency: failed:")
	AssertContains(t, stderr, "warning:")
}
