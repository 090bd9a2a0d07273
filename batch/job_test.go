package batch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/milkom-maranatha-research-study/holistic-data-processing-service/aggregate"
)

func writeInput(t *testing.T, tokens ...string) string {
	t.Helper()
	dir := t.TempDir()
	content := ""
	for _, token := range tokens {
		content += token + "\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tokens.txt"), []byte(content), 0o644))
	return dir
}

func TestRunJobPlainPerOrg(t *testing.T) {
	input := writeInput(t, "2023-W1,orgA,101", "2023-W1,orgA,102", "2023-W1,orgB,201")
	output := filepath.Join(t.TempDir(), "out")

	artifact, err := RunJob(context.Background(), JobConfig{
		Mode:       aggregate.ModeCount,
		Dimension:  aggregate.DimensionPerOrg,
		Period:     aggregate.PeriodWeekly,
		InputPath:  input,
		OutputPath: output,
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(output, "per-org-weekly-aggregate"), artifact)

	b, err := os.ReadFile(artifact)
	require.NoError(t, err)
	require.Equal(t, "2023-W1,orgA\t2\n2023-W1,orgB\t1\n", string(b))
}

func TestRunJobActiveInactive(t *testing.T) {
	input := writeInput(t, "2023-W1,orgA,5,101", "2023-W1,orgA,5,102")
	output := filepath.Join(t.TempDir(), "out")

	artifact, err := RunJob(context.Background(), JobConfig{
		Mode:       aggregate.ModeActive,
		Dimension:  aggregate.DimensionPerOrg,
		Period:     aggregate.PeriodWeekly,
		InputPath:  input,
		OutputPath: output,
	})
	require.NoError(t, err)

	b, err := os.ReadFile(artifact)
	require.NoError(t, err)
	require.Equal(t, "2023-W1,orgA\t2,3\t5\n", string(b))
}

func TestRunJobIdempotent(t *testing.T) {
	input := writeInput(t,
		"2023-W1,orgA,101", "2023-W1,orgB,201", "2023-W2,orgA,102",
		"2023-W2,orgA,103", "2023-W1,orgA,104",
	)
	output := filepath.Join(t.TempDir(), "out")
	cfg := JobConfig{
		Mode:       aggregate.ModeCount,
		Dimension:  aggregate.DimensionPerOrg,
		Period:     aggregate.PeriodWeekly,
		InputPath:  input,
		OutputPath: output,
		Workers:    3,
		Reducers:   2,
	}

	artifact, err := RunJob(context.Background(), cfg)
	require.NoError(t, err)
	first, err := os.ReadFile(artifact)
	require.NoError(t, err)

	artifact, err = RunJob(context.Background(), cfg)
	require.NoError(t, err)
	second, err := os.ReadFile(artifact)
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestRunJobRemovesStalePriorOutput(t *testing.T) {
	input := writeInput(t, "2023-W1,orgA,101")
	output := filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.MkdirAll(output, 0o755))
	stale := filepath.Join(output, "mr-out-99.txt")
	require.NoError(t, os.WriteFile(stale, []byte("stale\t1\n"), 0o644))

	artifact, err := RunJob(context.Background(), JobConfig{
		Mode:       aggregate.ModeCount,
		Dimension:  aggregate.DimensionPerOrg,
		InputPath:  input,
		OutputPath: output,
	})
	require.NoError(t, err)

	b, err := os.ReadFile(artifact)
	require.NoError(t, err)
	require.Equal(t, "2023-W1,orgA\t1\n", string(b))
}

func TestRunJobCleansUpPartitionsAndStaging(t *testing.T) {
	input := writeInput(t, "2023-W1,orgA,101")
	output := filepath.Join(t.TempDir(), "out")

	_, err := RunJob(context.Background(), JobConfig{
		Mode:       aggregate.ModeCount,
		Dimension:  aggregate.DimensionPerOrg,
		InputPath:  input,
		OutputPath: output,
	})
	require.NoError(t, err)

	parts, err := filepath.Glob(filepath.Join(output, "mr-out-*.txt"))
	require.NoError(t, err)
	require.Empty(t, parts, "reduce partitions must be removed after export")
}

func TestRunJobFailureStillCleansUp(t *testing.T) {
	// Malformed under the baseline-carrying schema: batch fails fast.
	input := writeInput(t, "2023-W1,orgA")
	output := filepath.Join(t.TempDir(), "out")

	_, err := RunJob(context.Background(), JobConfig{
		Mode:       aggregate.ModeActive,
		Dimension:  aggregate.DimensionPerOrg,
		InputPath:  input,
		OutputPath: output,
	})
	var malformed *aggregate.MalformedTokenError
	require.ErrorAs(t, err, &malformed)

	parts, err := filepath.Glob(filepath.Join(output, "mr-out-*.txt"))
	require.NoError(t, err)
	require.Empty(t, parts, "partitions must be cleaned up on failure too")
}

func TestRunJobNegativeDerivedMetric(t *testing.T) {
	input := writeInput(t,
		"2023-W1,orgA,1,101", "2023-W1,orgA,1,102", "2023-W1,orgA,1,103",
	)
	_, err := RunJob(context.Background(), JobConfig{
		Mode:       aggregate.ModeActive,
		Dimension:  aggregate.DimensionPerOrg,
		InputPath:  input,
		OutputPath: filepath.Join(t.TempDir(), "out"),
	})
	var negative *aggregate.NegativeDerivedMetricError
	require.ErrorAs(t, err, &negative)
}

func TestRunJobRejectsMissingInput(t *testing.T) {
	_, err := RunJob(context.Background(), JobConfig{
		Mode:       aggregate.ModeCount,
		Dimension:  aggregate.DimensionPerOrg,
		InputPath:  filepath.Join(t.TempDir(), "nothing-here-*"),
		OutputPath: filepath.Join(t.TempDir(), "out"),
	})
	require.Error(t, err)
}

func TestArtifactName(t *testing.T) {
	require.Equal(t, "per-org-weekly-aggregate",
		ArtifactName(aggregate.ModeCount, aggregate.DimensionPerOrg, aggregate.PeriodWeekly))
	require.Equal(t, "all-active-ther-alltime-aggregate",
		ArtifactName(aggregate.ModeActive, aggregate.DimensionAll, aggregate.PeriodAllTime))
}
