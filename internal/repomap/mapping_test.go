package repomap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_DefaultMapping_Is_Consistent(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultMapping().Validate())
}

func Test_Validate_Rejects_Broken_Tables(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(m *Mapping)
		message string
	}{
		{
			name:    "no repos",
			mutate:  func(m *Mapping) { m.Repos = nil },
			message: "no repositories",
		},
		{
			name:    "empty repo name",
			mutate:  func(m *Mapping) { m.Repos = append(m.Repos, "") },
			message: "empty repository",
		},
		{
			name:    "duplicate repo",
			mutate:  func(m *Mapping) { m.Repos = append(m.Repos, "content") },
			message: "duplicate repository",
		},
		{
			name:    "page without dependencies",
			mutate:  func(m *Mapping) { m.PageDeps["orphan"] = nil },
			message: `page "orphan" has no dependencies`,
		},
		{
			name:    "page referencing unknown repo",
			mutate:  func(m *Mapping) { m.PageDeps["home"] = []string{"flux"} },
			message: "unknown repository",
		},
		{
			name:    "metric without dependencies",
			mutate:  func(m *Mapping) { m.MetricDeps["orphan"] = []string{} },
			message: `metric "orphan" has no dependencies`,
		},
		{
			name:    "metric referencing unknown repo",
			mutate:  func(m *Mapping) { m.MetricDeps["build_health"] = []string{"flux"} },
			message: "unknown repository",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mapping := DefaultMapping()
			tt.mutate(mapping)

			err := mapping.Validate()
			require.ErrorIs(t, err, ErrInconsistentMapping)
			require.Contains(t, err.Error(), tt.message)
		})
	}
}

func Test_Pages_And_Metrics_Are_Sorted(t *testing.T) {
	t.Parallel()

	mapping := DefaultMapping()

	pages := mapping.Pages()
	require.Len(t, pages, len(mapping.PageDeps))
	require.IsIncreasing(t, pages)

	metrics := mapping.Metrics()
	require.Len(t, metrics, len(mapping.MetricDeps))
	require.IsIncreasing(t, metrics)
}

func Test_HasRepo(t *testing.T) {
	t.Parallel()

	mapping := DefaultMapping()
	require.True(t, mapping.HasRepo("content"))
	require.False(t, mapping.HasRepo("flux"))
}
