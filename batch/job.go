package batch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/milkom-maranatha-research-study/holistic-data-processing-service/aggregate"
)

// JobConfig describes one aggregation job: what to count, over which window,
// and where the tokens live.
type JobConfig struct {
	Mode      aggregate.Mode
	Dimension aggregate.Dimension
	Period    aggregate.Period

	// InputPath is a token file, a directory of token files, or a glob.
	InputPath string

	// OutputPath is the job's output directory. It is deleted before the run
	// so restarts never merge with stale prior output; after export it holds
	// only the merged artifact.
	OutputPath string

	Workers  int
	Reducers int
}

func (c *JobConfig) withDefaults() {
	if c.Period == "" {
		c.Period = aggregate.PeriodAllTime
	}
}

// ArtifactName returns the merged artifact filename for a job, addressed by
// aggregation dimension and period.
func ArtifactName(mode aggregate.Mode, dim aggregate.Dimension, period aggregate.Period) string {
	if mode == aggregate.ModeActive {
		return fmt.Sprintf("%s-active-ther-%s-aggregate", dim, period)
	}
	return fmt.Sprintf("%s-%s-aggregate", dim, period)
}

// RunJob drives one job through Prepare -> Run -> Export -> Cleanup and
// returns the merged artifact path. Staged inputs and intermediate state are
// released on every exit path, including run failure.
func RunJob(ctx context.Context, cfg JobConfig) (string, error) {
	cfg.withDefaults()

	schema, err := aggregate.SchemaFor(cfg.Mode, cfg.Dimension)
	if err != nil {
		return "", err
	}
	if _, err := aggregate.ParsePeriod(string(cfg.Period)); err != nil {
		return "", err
	}
	if cfg.InputPath == "" || cfg.OutputPath == "" {
		return "", fmt.Errorf("input and output paths are required")
	}

	jobID := uuid.New().String()
	log.Infof("[Job] %s/%s/%s id=%s", cfg.Mode, cfg.Dimension, cfg.Period, jobID)

	// Prepare
	log.Trace("[Job] Prepare staging")
	stageDir := filepath.Join(os.TempDir(), "dps-stage-"+jobID)
	if err := os.MkdirAll(filepath.Join(stageDir, "input"), 0o755); err != nil {
		return "", err
	}
	defer func() {
		// Cleanup runs on all exit paths.
		log.Trace("[Job] Cleanup staging")
		_ = os.RemoveAll(stageDir)
		removePartitions(cfg.OutputPath)
	}()

	staged, err := stageInputs(cfg.InputPath, filepath.Join(stageDir, "input"))
	if err != nil {
		return "", err
	}

	// Run
	log.Trace("[Job] Run combine+group+reduce")
	if err := os.RemoveAll(cfg.OutputPath); err != nil {
		return "", err
	}
	if err := os.MkdirAll(cfg.OutputPath, 0o755); err != nil {
		return "", err
	}
	if err := RunBatch(ctx, RunConfig{
		Schema:    schema,
		Inputs:    staged,
		StageDir:  stageDir,
		OutputDir: cfg.OutputPath,
		Workers:   cfg.Workers,
		Reducers:  cfg.Reducers,
	}); err != nil {
		return "", fmt.Errorf("run %s/%s/%s: %w", cfg.Mode, cfg.Dimension, cfg.Period, err)
	}

	// Export
	log.Trace("[Job] Export merged artifact")
	artifact := filepath.Join(cfg.OutputPath, ArtifactName(cfg.Mode, cfg.Dimension, cfg.Period))
	if err := mergePartitions(cfg.OutputPath, artifact); err != nil {
		return "", err
	}

	log.Infof("[Job] Done: %s", artifact)
	return artifact, nil
}

// stageInputs resolves the input path (file, directory, or glob) and copies
// every matched file into the staging directory.
func stageInputs(inputPath, stageInputDir string) ([]string, error) {
	var matches []string
	if info, err := os.Stat(inputPath); err == nil && info.IsDir() {
		matches, err = filepath.Glob(filepath.Join(inputPath, "*"))
		if err != nil {
			return nil, err
		}
	} else {
		m, err := filepath.Glob(inputPath)
		if err != nil {
			return nil, err
		}
		matches = m
	}

	var staged []string
	for i, src := range matches {
		if info, err := os.Stat(src); err != nil || info.IsDir() {
			continue
		}
		dst := filepath.Join(stageInputDir, fmt.Sprintf("%05d-%s", i, filepath.Base(src)))
		if err := copyFile(src, dst); err != nil {
			return nil, err
		}
		staged = append(staged, dst)
	}
	if len(staged) == 0 {
		return nil, fmt.Errorf("no input files matched %q", inputPath)
	}
	return staged, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// mergePartitions concatenates all mr-out partitions into one artifact with
// rows sorted by key, so identical inputs always reproduce the identical
// artifact regardless of partition layout.
func mergePartitions(outputDir, artifact string) error {
	parts, err := filepath.Glob(filepath.Join(outputDir, "mr-out-*.txt"))
	if err != nil {
		return err
	}

	var rows []string
	for _, part := range parts {
		b, err := os.ReadFile(part)
		if err != nil {
			return err
		}
		for _, line := range strings.Split(strings.TrimSpace(string(b)), "\n") {
			if line != "" {
				rows = append(rows, line)
			}
		}
	}
	sort.Strings(rows)

	var b strings.Builder
	for _, row := range rows {
		b.WriteString(row)
		b.WriteByte('\n')
	}
	return os.WriteFile(artifact, []byte(b.String()), 0o644)
}

func removePartitions(outputDir string) {
	if parts, err := filepath.Glob(filepath.Join(outputDir, "mr-out-*.txt")); err == nil {
		for _, part := range parts {
			_ = os.Remove(part)
		}
	}
}
