package cli

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// contentOnlyConfig narrows the mapping to one watched repo so tests only
// need a single git repository.
const contentOnlyConfig = `{
  "mapping": {
    "repos": ["content"],
    "pages": { "home": ["content"] },
    "metrics": { "link_integrity": ["content"] }
  }
}`

func requireGit(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func requireShell(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func gitRun(t *testing.T, dir string, args ...string) {
	t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
	)

	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

// initContentRepo installs the content-only mapping and backs it with a real
// git repository holding one committed page. Returns the repo path.
func initContentRepo(t *testing.T, c *CLI) string {
	t.Helper()
	requireGit(t)

	c.WriteFile(".sbs.json", contentOnlyConfig)

	repoDir := filepath.Join(c.Dir, "content")
	if err := os.MkdirAll(repoDir, 0o750); err != nil {
		t.Fatal(err)
	}

	err := os.WriteFile(filepath.Join(repoDir, "home.md"), []byte("# Home\n\nNo links here.\n"), 0o600)
	if err != nil {
		t.Fatal(err)
	}

	gitRun(t, repoDir, "init", "-q")
	gitRun(t, repoDir, "add", ".")
	gitRun(t, repoDir, "commit", "-q", "-m", "initial")

	return repoDir
}

// seedLedger writes a project ledger file directly, bypassing the validators.
func seedLedger(t *testing.T, c *CLI, project, content string) {
	t.Helper()

	dir := filepath.Join(c.Dir, "quality", project)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatal(err)
	}

	err := os.WriteFile(filepath.Join(dir, "quality_ledger.json"), []byte(content), 0o600)
	if err != nil {
		t.Fatal(err)
	}
}

// readLedger returns the raw ledger file for a project.
func readLedger(t *testing.T, c *CLI, project string) string {
	t.Helper()

	content, err := os.ReadFile(filepath.Join(c.Dir, "quality", project, "quality_ledger.json"))
	if err != nil {
		t.Fatalf("failed to read ledger for %s: %v", project, err)
	}

	return string(content)
}
