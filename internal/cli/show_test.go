package cli

import (
	"encoding/json"
	"strings"
	"testing"
)

func Test_Show_Prints_Entry_As_JSON(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)

	id := c.MustRun("add", "-p", "blueprint", "--skip-commits", "--tag", "launch")

	stdout := c.MustRun("show", id)

	AssertContains(t, stdout, `"entry_id": "`+id+`"`)
	AssertContains(t, stdout, `"project": "blueprint"`)
	AssertContains(t, stdout, `"launch"`)
	AssertContains(t, stdout, "payload: none")

	// Everything before the payload line must be valid JSON.
	jsonPart := stdout[:strings.LastIndex(stdout, "payload:")]

	var entry map[string]any
	if err := json.Unmarshal([]byte(jsonPart), &entry); err != nil {
		t.Fatalf("show output is not valid JSON: %v\n%s", err, stdout)
	}
}

func Test_Show_Unknown_ID_Fails(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)

	stderr := c.MustFail("show", "20990101-000000-zzzz")
	AssertContains(t, stderr, "error:")
}

func Test_Show_Requires_ID_Argument(t *testing.T) {
	t.Parallel()

	c := NewCLI(t)

	stderr := c.MustFail("show")
	AssertContains(t, stderr, "entry ID argument is required")
}
