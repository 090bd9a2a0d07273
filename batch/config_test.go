package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPipelineConfig(t *testing.T) {
	path := writeConfig(t, `
workers: 4
jobs:
  - mode: active
    dimension: per-org
    period: weekly
    input: input/active-ther/weekly
    output: output/org/weekly
  - mode: count
    dimension: all
    input: input/ther
    output: output/all
sink:
  db:
    user: agg
    database: metrics
    password_env: AGG_MYSQL_PASSWORD
  replace: true
`)
	cfg, err := LoadPipelineConfig(path)
	require.NoError(t, err)
	require.Equal(t, 4, cfg.Workers)
	require.Equal(t, DefaultReducers, cfg.Reducers)
	require.Len(t, cfg.Jobs, 2)
	require.NotNil(t, cfg.Sink)
	require.Equal(t, "agg", cfg.Sink.TablePrefix)
	require.Equal(t, "agg_active_per_org_weekly", cfg.Sink.TableFor(cfg.Jobs[0]))
}

func TestLoadPipelineConfigRejectsBadJobs(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no jobs", "workers: 2\n"},
		{"bad dimension", `
jobs:
  - {mode: count, dimension: per-galaxy, input: a, output: b}
`},
		{"bad mode", `
jobs:
  - {mode: tally, dimension: all, input: a, output: b}
`},
		{"bad period", `
jobs:
  - {mode: count, dimension: all, period: daily, input: a, output: b}
`},
		{"missing paths", `
jobs:
  - {mode: count, dimension: all}
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPipelineConfig(writeConfig(t, tt.content))
			require.Error(t, err)
		})
	}
}

func TestLoadPipelineConfigMissingFile(t *testing.T) {
	_, err := LoadPipelineConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
