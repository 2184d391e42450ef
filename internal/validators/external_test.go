package validators

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()

	_, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
}

// writeScript drops an executable shell script standing in for the external
// validator CLI.
func writeScript(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "validator.sh")

	err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755)
	require.NoError(t, err)

	return path
}

func Test_ExternalCLI_Parses_Number_And_Object_Results(t *testing.T) {
	t.Parallel()
	requireShell(t)

	script := writeScript(t, `echo '{"results": {"T7": 0.93, "T9": {"value": 0.7, "passed": false}}}'`)
	cli := NewExternalCLI(script, 30*time.Second, zerolog.Nop())

	values, err := cli.Run(context.Background(), "blueprint", []string{"T7", "T9"})
	require.NoError(t, err)
	require.InDelta(t, 0.93, values["T7"], 1e-9)
	require.InDelta(t, 0.7, values["T9"], 1e-9)
}

func Test_ExternalCLI_Passes_Project_And_Validator_Flags(t *testing.T) {
	t.Parallel()
	requireShell(t)

	script := writeScript(t, `case "$*" in
*"--project blueprint"*"--validators T7,T9"*"--json"*) echo '{"results": {"T7": 1.0}}' ;;
*) echo '{"results": {}}' ;;
esac`)
	cli := NewExternalCLI(script, 30*time.Second, zerolog.Nop())

	values, err := cli.Run(context.Background(), "blueprint", []string{"T7", "T9"})
	require.NoError(t, err)
	require.Contains(t, values, "T7")
}

func Test_ExternalCLI_Reports_Command_Failure_With_Stderr(t *testing.T) {
	t.Parallel()
	requireShell(t)

	script := writeScript(t, `echo 'validator exploded' >&2; exit 3`)
	cli := NewExternalCLI(script, 30*time.Second, zerolog.Nop())

	_, err := cli.Run(context.Background(), "blueprint", []string{"T7"})
	require.ErrorIs(t, err, ErrValidatorCommand)
	require.ErrorContains(t, err, "validator exploded")
}

func Test_ExternalCLI_Rejects_Unparseable_Output(t *testing.T) {
	t.Parallel()
	requireShell(t)

	script := writeScript(t, `echo 'checked 3 validators, all good'`)
	cli := NewExternalCLI(script, 30*time.Second, zerolog.Nop())

	_, err := cli.Run(context.Background(), "blueprint", []string{"T7"})
	require.ErrorIs(t, err, ErrValidatorCommand)
	require.ErrorContains(t, err, "unparseable")
}

func Test_ExternalCLI_Skips_Unrecognized_Result_Shapes(t *testing.T) {
	t.Parallel()
	requireShell(t)

	script := writeScript(t, `echo '{"results": {"T7": 0.9, "T9": "good"}}'`)
	cli := NewExternalCLI(script, 30*time.Second, zerolog.Nop())

	values, err := cli.Run(context.Background(), "blueprint", []string{"T7", "T9"})
	require.NoError(t, err)
	require.Contains(t, values, "T7")
	require.NotContains(t, values, "T9")
}

func Test_ExternalCLI_Rejects_Empty_Command(t *testing.T) {
	t.Parallel()

	cli := NewExternalCLI("   ", time.Second, zerolog.Nop())

	_, err := cli.Run(context.Background(), "blueprint", []string{"T7"})
	require.ErrorIs(t, err, ErrNoValidatorCommand)
}
