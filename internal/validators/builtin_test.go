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

	"github.com/sidebyside/harness/internal/archive"
	"github.com/sidebyside/harness/internal/gitx"
	"github.com/sidebyside/harness/internal/ledger"
	"github.com/sidebyside/harness/internal/repomap"
)

// seedEntries saves an archive index containing the given entries.
func seedEntries(t *testing.T, store *archive.Store, entries ...*archive.Entry) {
	t.Helper()

	index := archive.NewIndex()
	for _, entry := range entries {
		require.NoError(t, index.Add(entry))
	}

	require.NoError(t, store.Save(index))
}

func capturedEntry(id string, screenshots ...string) *archive.Entry {
	return &archive.Entry{
		ID:          id,
		CreatedAt:   time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
		Project:     "blueprint",
		Screenshots: screenshots,
	}
}

func Test_PageCoverage_Scores_Latest_Entry_Screenshots(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := archive.NewStore(dir, zerolog.Nop())
	seedEntries(t, store,
		capturedEntry("0000001"),
		capturedEntry("0000002", "shots/home.png", "shots/gallery.png"),
	)

	vctx := &Context{
		Project: "blueprint",
		Archive: store,
		Mapper:  repomap.NewMapper(repomap.DefaultMapping(), nil, nil, zerolog.Nop()),
		Log:     zerolog.Nop(),
	}

	outcome, err := pageCoverage{}.Validate(context.Background(), vctx)
	require.NoError(t, err)

	scored, ok := outcome.(Scored)
	require.True(t, ok)
	require.False(t, scored.Result.Passed)
	require.InDelta(t, 2.0/7.0, scored.Result.Metrics[MetricPageCoverage], 1e-9)
	require.ElementsMatch(t, []string{"gallery", "home"}, scored.Result.Pages)
	require.Len(t, scored.Result.Findings, 5)
}

func Test_PageCoverage_Requires_An_Archive_Entry(t *testing.T) {
	t.Parallel()

	store := archive.NewStore(t.TempDir(), zerolog.Nop())

	vctx := &Context{
		Project: "blueprint",
		Archive: store,
		Mapper:  repomap.NewMapper(repomap.DefaultMapping(), nil, nil, zerolog.Nop()),
		Log:     zerolog.Nop(),
	}

	_, err := pageCoverage{}.Validate(context.Background(), vctx)
	require.ErrorIs(t, err, errNoEntries)
}

func Test_ScreenshotParity_Emits_One_Prompt_Per_Screenshot(t *testing.T) {
	t.Parallel()

	store := archive.NewStore(t.TempDir(), zerolog.Nop())
	seedEntries(t, store, capturedEntry("0000001", "shots/home.png", "shots/gallery.png"))

	vctx := &Context{Project: "blueprint", Archive: store, Log: zerolog.Nop()}

	outcome, err := screenshotParity{}.Validate(context.Background(), vctx)
	require.NoError(t, err)

	pending, ok := outcome.(Pending)
	require.True(t, ok)
	require.Len(t, pending.Prompts, 2)
	require.Contains(t, pending.Prompts[0], "shots/home.png")
}

func Test_ScreenshotParity_Asks_For_Captures_When_Archive_Is_Empty(t *testing.T) {
	t.Parallel()

	store := archive.NewStore(t.TempDir(), zerolog.Nop())

	vctx := &Context{Project: "blueprint", Archive: store, Log: zerolog.Nop()}

	outcome, err := screenshotParity{}.Validate(context.Background(), vctx)
	require.NoError(t, err)

	pending, ok := outcome.(Pending)
	require.True(t, ok)
	require.Len(t, pending.Prompts, 1)
	require.Contains(t, pending.Prompts[0], "Capture screenshots")
}

func Test_SpecCompliance_Emits_One_Prompt_Per_Page(t *testing.T) {
	t.Parallel()

	vctx := &Context{
		Project: "blueprint",
		Mapper:  repomap.NewMapper(repomap.DefaultMapping(), nil, nil, zerolog.Nop()),
		Log:     zerolog.Nop(),
	}

	outcome, err := specCompliance{}.Validate(context.Background(), vctx)
	require.NoError(t, err)

	pending, ok := outcome.(Pending)
	require.True(t, ok)
	require.Len(t, pending.Prompts, 7)
	require.Contains(t, pending.Prompts[1], "gallery")
}

func Test_LinkIntegrity_Resolves_Relative_Links(t *testing.T) {
	t.Parallel()

	repoDir := t.TempDir()
	docs := filepath.Join(repoDir, "docs")
	require.NoError(t, os.MkdirAll(docs, 0o750))

	page := `# Guide

See [the grid](layout.md), [upstream](https://example.com/grid),
[the intro](#overview), and [a ghost](missing.md).
`
	require.NoError(t, os.WriteFile(filepath.Join(docs, "guide.md"), []byte(page), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "layout.md"), []byte("# Grid\n"), 0o600))

	mapping := &repomap.Mapping{Repos: []string{"content"}}
	mapper := repomap.NewMapper(mapping, map[string]string{"content": repoDir}, nil, zerolog.Nop())

	vctx := &Context{Project: "blueprint", Mapper: mapper, Log: zerolog.Nop()}

	outcome, err := linkIntegrity{}.Validate(context.Background(), vctx)
	require.NoError(t, err)

	scored, ok := outcome.(Scored)
	require.True(t, ok)
	require.False(t, scored.Result.Passed)
	require.InDelta(t, 0.5, scored.Result.Metrics[MetricLinkIntegrity], 1e-9)
	require.Len(t, scored.Result.Findings, 1)
	require.Contains(t, scored.Result.Findings[0], "missing.md")
}

func Test_LinkIntegrity_Passes_With_No_Links(t *testing.T) {
	t.Parallel()

	repoDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(repoDir, "notes.md"), []byte("plain text\n"), 0o600))

	mapping := &repomap.Mapping{Repos: []string{"content"}}
	mapper := repomap.NewMapper(mapping, map[string]string{"content": repoDir}, nil, zerolog.Nop())

	vctx := &Context{Project: "blueprint", Mapper: mapper, Log: zerolog.Nop()}

	outcome, err := linkIntegrity{}.Validate(context.Background(), vctx)
	require.NoError(t, err)

	scored, ok := outcome.(Scored)
	require.True(t, ok)
	require.True(t, scored.Result.Passed)
	require.InDelta(t, 1.0, scored.Result.Metrics[MetricLinkIntegrity], 1e-9)
}

func Test_AssetIntegrity_Checks_Recorded_Screenshots_On_Disk(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(workDir, "shots"), 0o750))

	present := filepath.Join(workDir, "shots", "home.png")
	require.NoError(t, os.WriteFile(present, []byte("png"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "shots", "gallery.png"), []byte("png"), 0o600))

	store := archive.NewStore(filepath.Join(workDir, "archive"), zerolog.Nop())
	seedEntries(t, store, capturedEntry("0000001", present, "shots/gallery.png", "shots/vanished.png"))

	vctx := &Context{Project: "blueprint", Archive: store, WorkDir: workDir, Log: zerolog.Nop()}

	outcome, err := assetIntegrity{}.Validate(context.Background(), vctx)
	require.NoError(t, err)

	scored, ok := outcome.(Scored)
	require.True(t, ok)
	require.False(t, scored.Result.Passed)
	require.InDelta(t, 2.0/3.0, scored.Result.Metrics[MetricAssetIntegrity], 1e-9)
	require.Len(t, scored.Result.Findings, 1)
	require.Contains(t, scored.Result.Findings[0], "vanished.png")
}

func Test_AssetIntegrity_Passes_With_Nothing_Recorded(t *testing.T) {
	t.Parallel()

	store := archive.NewStore(t.TempDir(), zerolog.Nop())
	seedEntries(t, store, capturedEntry("0000001"))

	vctx := &Context{Project: "blueprint", Archive: store, WorkDir: t.TempDir(), Log: zerolog.Nop()}

	outcome, err := assetIntegrity{}.Validate(context.Background(), vctx)
	require.NoError(t, err)

	scored, ok := outcome.(Scored)
	require.True(t, ok)
	require.True(t, scored.Result.Passed)
	require.Contains(t, scored.Result.Findings[0], "no screenshots recorded")
}

func Test_RegressionBudget_Fails_On_Drop_Beyond_Budget(t *testing.T) {
	t.Parallel()

	store := ledger.NewStore(t.TempDir(), zerolog.Nop())

	led := ledger.NewLedger()
	led.UpdateScore("link_integrity", ledger.MetricScore{Value: 0.9, Passed: true})
	led.AddSnapshot(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	led.UpdateScore("link_integrity", ledger.MetricScore{Value: 0.7, Passed: false})
	require.NoError(t, store.Save("blueprint", led))

	vctx := &Context{Project: "blueprint", Ledgers: store, Log: zerolog.Nop()}

	outcome, err := regressionBudget{}.Validate(context.Background(), vctx)
	require.NoError(t, err)

	scored, ok := outcome.(Scored)
	require.True(t, ok)
	require.False(t, scored.Result.Passed)
	require.InDelta(t, 0.8, scored.Result.Metrics[MetricRegressionBudget], 1e-9)
	require.Contains(t, scored.Result.Findings[0], "link_integrity")
}

func Test_RegressionBudget_Tolerates_Small_Drops(t *testing.T) {
	t.Parallel()

	store := ledger.NewStore(t.TempDir(), zerolog.Nop())

	led := ledger.NewLedger()
	led.UpdateScore("link_integrity", ledger.MetricScore{Value: 0.9, Passed: true})
	led.AddSnapshot(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	led.UpdateScore("link_integrity", ledger.MetricScore{Value: 0.88, Passed: true})
	require.NoError(t, store.Save("blueprint", led))

	vctx := &Context{Project: "blueprint", Ledgers: store, Log: zerolog.Nop()}

	outcome, err := regressionBudget{}.Validate(context.Background(), vctx)
	require.NoError(t, err)

	scored, ok := outcome.(Scored)
	require.True(t, ok)
	require.True(t, scored.Result.Passed)
	require.Empty(t, scored.Result.Findings)
}

func Test_RegressionBudget_Passes_Without_A_Baseline(t *testing.T) {
	t.Parallel()

	store := ledger.NewStore(t.TempDir(), zerolog.Nop())

	vctx := &Context{Project: "blueprint", Ledgers: store, Log: zerolog.Nop()}

	outcome, err := regressionBudget{}.Validate(context.Background(), vctx)
	require.NoError(t, err)

	scored, ok := outcome.(Scored)
	require.True(t, ok)
	require.True(t, scored.Result.Passed)
	require.Contains(t, scored.Result.Findings[0], "no snapshot baseline")
}

func Test_BuildHealth_Scores_Clean_And_Unreachable_Repos(t *testing.T) {
	t.Parallel()

	_, err := exec.LookPath("git")
	if err != nil {
		t.Skip("git not available")
	}

	repoDir := initCleanRepo(t)

	mapping := &repomap.Mapping{Repos: []string{"content", "theme"}}
	mapper := repomap.NewMapper(mapping, map[string]string{"content": repoDir}, nil, zerolog.Nop())

	vctx := &Context{
		Project: "blueprint",
		Mapper:  mapper,
		Git:     gitx.NewClient(zerolog.Nop()),
		Log:     zerolog.Nop(),
	}

	outcome, err := buildHealth{}.Validate(context.Background(), vctx)
	require.NoError(t, err)

	scored, ok := outcome.(Scored)
	require.True(t, ok)
	require.False(t, scored.Result.Passed)
	require.InDelta(t, 0.5, scored.Result.Metrics[MetricBuildHealth], 1e-9)
	require.Contains(t, scored.Result.Findings[0], "no path configured")

	// A new untracked file turns the clean repo dirty.
	require.NoError(t, os.WriteFile(filepath.Join(repoDir, "scratch.txt"), []byte("wip"), 0o600))

	outcome, err = buildHealth{}.Validate(context.Background(), vctx)
	require.NoError(t, err)

	scored, ok = outcome.(Scored)
	require.True(t, ok)
	require.InDelta(t, 0.0, scored.Result.Metrics[MetricBuildHealth], 1e-9)
}

// initCleanRepo creates a git repo with one committed file.
func initCleanRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()

	env := append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
	)

	for _, args := range [][]string{
		{"init", "-q"},
		{"add", "."},
		{"commit", "-q", "--allow-empty", "-m", "init"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = env

		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
	}

	return dir
}
