package batch

import (
	"context"

	"github.com/milkom-maranatha-research-study/holistic-data-processing-service/aggregate"
)

// RunConfig describes one combine+group+reduce execution.
type RunConfig struct {
	Schema    aggregate.Schema
	Inputs    []string // input partition files, already staged
	StageDir  string   // scratch dir for intermediate partial-count files
	OutputDir string   // receives one mr-out-*.txt per reduce bucket
	Workers   int
	Reducers  int
}

func (c *RunConfig) withDefaults() {
	if c.Workers <= 0 {
		c.Workers = 8
	}
	if c.Reducers <= 0 {
		c.Reducers = 4
	}
}

// Runner abstracts the batch execution substrate. The engine only requires
// that the substrate partitions input, groups partial counts by full key
// between the combine and reduce phases, and re-executes failed workers from
// scratch (safe because the combiner is a pure function of its partition).
type Runner interface {
	Run(ctx context.Context, cfg RunConfig) error
}

var defaultRunner Runner = LocalRunner{}

// SetDefaultRunner overrides the process-wide execution substrate.
func SetDefaultRunner(r Runner) {
	if r == nil {
		return
	}
	defaultRunner = r
}

// DefaultRunner returns the current process-wide execution substrate.
func DefaultRunner() Runner {
	return defaultRunner
}

// RunBatch executes combine+group+reduce through the configured runner.
func RunBatch(ctx context.Context, cfg RunConfig) error {
	return DefaultRunner().Run(ctx, cfg)
}
