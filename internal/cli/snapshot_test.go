package cli

import (
	"testing"
)

func Test_Snapshot_Empty_Ledger_Fails(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)

	stderr := c.MustFail("snapshot")
	AssertContains(t, stderr, "nothing to snapshot")
}

func Test_Snapshot_Copies_Scores_And_Prints_ID(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)
	seedLedger(t, c, "blueprint", passingQualityLedger)

	id := c.MustRun("snapshot")
	if len(id) != 36 {
		t.Fatalf("expected a UUID snapshot ID, got %q", id)
	}

	led := readLedger(t, c, "blueprint")
	AssertContains(t, led, `"snapshots"`)
	AssertContains(t, led, id)
	AssertContains(t, led, `"taken_at"`)
}

func Test_Snapshot_Respects_Project_Flag(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)
	seedLedger(t, c, "legacy-site", passingQualityLedger)

	c.MustRun("snapshot", "-p", "legacy-site")

	AssertContains(t, readLedger(t, c, "legacy-site"), `"snapshots"`)
}
