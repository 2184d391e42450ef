package cli

import (
	"strings"
	"testing"
)

func Test_Tag_Adds_Tags_And_Persists(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)

	id := c.MustRun("add", "-p", "blueprint", "--skip-commits")

	stdout := c.MustRun("tag", id, "launch", "dark-mode")
	AssertContains(t, stdout, "launch")
	AssertContains(t, stdout, "dark-mode")

	// Survives a fresh process.
	AssertContains(t, c.MustRun("ls", "--tag", "launch"), id)
}

func Test_Tag_Is_Idempotent(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)

	id := c.MustRun("add", "-p", "blueprint", "--skip-commits", "--tag", "launch")
	c.MustRun("tag", id, "launch")

	entry := c.MustRun("show", id)

	if got := strings.Count(entry, `"launch"`); got != 1 {
		t.Fatalf("expected tag stored once, found %d times:\n%s", got, entry)
	}
}

func Test_Tag_Unknown_Entry_Fails(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)

	stderr := c.MustFail("tag", "20990101-000000-aaaa", "launch")
	AssertContains(t, stderr, "error:")
}

func Test_Tag_Requires_Tag_Argument(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)

	id := c.MustRun("add", "-p", "blueprint", "--skip-commits")

	stderr := c.MustFail("tag", id)
	AssertContains(t, stderr, "at least one tag argument is required")
}
