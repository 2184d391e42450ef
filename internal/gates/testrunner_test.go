package gates

import (
	"context"
	"os/exec"
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

func Test_ParseTestSummary_Reads_Pytest_Style_Counts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		output string
		want   TestCounts
	}{
		{
			name:   "all passing",
			output: "............\n===== 12 passed in 0.34s =====\n",
			want:   TestCounts{Passed: 12, Recognized: true},
		},
		{
			name:   "mixed verdicts",
			output: "===== 10 passed, 2 failed in 1.1s =====\n",
			want:   TestCounts{Passed: 10, Failed: 2, Recognized: true},
		},
		{
			name:   "with collection errors",
			output: "===== 5 passed, 1 failed, 2 errors in 2s =====\n",
			want:   TestCounts{Passed: 5, Failed: 1, Errors: 2, Recognized: true},
		},
		{
			name:   "failures only",
			output: "2 failed\n",
			want:   TestCounts{Failed: 2, Recognized: true},
		},
		{
			name:   "no summary at all",
			output: "make: nothing to be done for 'test'\n",
			want:   TestCounts{},
		},
		{
			name:   "empty output",
			output: "",
			want:   TestCounts{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tt.want, ParseTestSummary(tt.output))
		})
	}
}

func Test_TestCounts_Total_Sums_All_Verdicts(t *testing.T) {
	t.Parallel()

	counts := TestCounts{Passed: 5, Failed: 1, Errors: 2, Recognized: true}
	require.Equal(t, 8, counts.Total())
}

func Test_ExecTestRunner_Captures_Output_Of_Failing_Suites(t *testing.T) {
	t.Parallel()
	requireShell(t)

	runner := NewExecTestRunner("echo '3 passed, 1 failed'; exit 1", t.TempDir(), 30*time.Second, zerolog.Nop())

	output, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.Contains(t, output, "3 passed, 1 failed")
}

func Test_ExecTestRunner_Merges_Stderr_Into_Output(t *testing.T) {
	t.Parallel()
	requireShell(t)

	runner := NewExecTestRunner("echo '2 passed' >&2", t.TempDir(), 30*time.Second, zerolog.Nop())

	output, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.Contains(t, output, "2 passed")
}

func Test_ExecTestRunner_Reports_Timeouts(t *testing.T) {
	t.Parallel()
	requireShell(t)

	runner := NewExecTestRunner("sleep 5", t.TempDir(), 50*time.Millisecond, zerolog.Nop())

	_, err := runner.Run(context.Background())
	require.ErrorContains(t, err, "timed out")
}

func Test_ExecTestRunner_Rejects_An_Empty_Command(t *testing.T) {
	t.Parallel()

	runner := NewExecTestRunner("", t.TempDir(), time.Second, zerolog.Nop())

	_, err := runner.Run(context.Background())
	require.ErrorContains(t, err, "no test command")
}
