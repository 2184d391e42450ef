package cli

import (
	"strings"
	"testing"
)

func Test_Ls_Empty_Archive_Prints_Nothing(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)

	stdout := c.MustRun("ls")
	if stdout != "" {
		t.Fatalf("expected no output, got:\n%s", stdout)
	}
}

func Test_Ls_Lists_Entries_Oldest_First(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)

	first := c.MustRun("add", "-p", "blueprint", "--skip-commits")
	second := c.MustRun("add", "-p", "blueprint", "--skip-commits")

	stdout := c.MustRun("ls")

	lines := strings.Split(stdout, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d:\n%s", len(lines), stdout)
	}

	AssertContains(t, lines[0], first)
	AssertContains(t, lines[1], second)
}

func Test_Ls_Reverse_Lists_Newest_First(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)

	first := c.MustRun("add", "-p", "blueprint", "--skip-commits")
	second := c.MustRun("add", "-p", "blueprint", "--skip-commits")

	stdout := c.MustRun("ls", "--reverse")

	lines := strings.Split(stdout, "\n")
	AssertContains(t, lines[0], second)
	AssertContains(t, lines[1], first)
}

func Test_Ls_Filters_By_Project(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)

	blueprint := c.MustRun("add", "-p", "blueprint", "--skip-commits")
	legacy := c.MustRun("add", "-p", "legacy-site", "--skip-commits")

	stdout := c.MustRun("ls", "-p", "legacy-site")

	AssertContains(t, stdout, legacy)
	AssertNotContains(t, stdout, blueprint)
}

func Test_Ls_Filters_By_Tag_Across_Both_Tag_Sets(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)

	tagged := c.MustRun("add", "-p", "blueprint", "--skip-commits", "--tag", "milestone")
	autoTagged := c.MustRun("add", "-p", "blueprint", "--skip-commits", "--auto-tag", "milestone")
	plain := c.MustRun("add", "-p", "blueprint", "--skip-commits")

	stdout := c.MustRun("ls", "--tag", "milestone")

	AssertContains(t, stdout, tagged)
	AssertContains(t, stdout, autoTagged)
	AssertNotContains(t, stdout, plain)
}

func Test_Ls_Filters_By_Trigger(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)

	session := c.MustRun("add", "-p", "blueprint", "--skip-commits", "-t", "session")
	build := c.MustRun("add", "-p", "blueprint", "--skip-commits", "-t", "build")

	stdout := c.MustRun("ls", "-t", "build")

	AssertContains(t, stdout, build)
	AssertNotContains(t, stdout, session)
}

func Test_Ls_Since_Filters_Out_Older_Entries(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)

	id := c.MustRun("add", "-p", "blueprint", "--skip-commits")

	if got := c.MustRun("ls", "--since", "2099-01-01"); got != "" {
		t.Fatalf("expected nothing after future cutoff, got:\n%s", got)
	}

	AssertContains(t, c.MustRun("ls", "--since", "2020-01-01"), id)
}

func Test_Ls_Rejects_Bad_Since_Value(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)

	stderr := c.MustFail("ls", "--since", "yesterday-ish")
	AssertContains(t, stderr, "cannot parse --since value")
}

func Test_Ls_Limit_And_Offset_Page_Through_Entries(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)

	first := c.MustRun("add", "-p", "blueprint", "--skip-commits")
	second := c.MustRun("add", "-p", "blueprint", "--skip-commits")
	third := c.MustRun("add", "-p", "blueprint", "--skip-commits")

	page := c.MustRun("ls", "--limit", "1", "--offset", "1")

	AssertContains(t, page, second)
	AssertNotContains(t, page, first)
	AssertNotContains(t, page, third)
}
