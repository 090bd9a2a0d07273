package batch

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/milkom-maranatha-research-study/holistic-data-processing-service/aggregate"
	"github.com/milkom-maranatha-research-study/holistic-data-processing-service/batch/mysqlsink"
)

// Default worker/reducer counts for pipeline jobs.
const (
	DefaultWorkers  = 8
	DefaultReducers = 4
)

// PipelineConfig holds a full pipeline run parsed from a YAML file: the jobs
// to execute (dimension x period matrix) and an optional MySQL sink for the
// merged artifacts.
type PipelineConfig struct {
	Workers  int           `yaml:"workers"`
	Reducers int           `yaml:"reducers"`
	Jobs     []PipelineJob `yaml:"jobs"`
	Sink     *PipelineSink `yaml:"sink"`
}

// PipelineJob describes one aggregation job in the pipeline.
type PipelineJob struct {
	Mode      string `yaml:"mode"`
	Dimension string `yaml:"dimension"`
	Period    string `yaml:"period"`
	Input     string `yaml:"input"`
	Output    string `yaml:"output"`
}

// PipelineSink configures import of merged artifacts into MySQL.
type PipelineSink struct {
	DB mysqlsink.DBConfig `yaml:"db"`

	// TablePrefix prefixes the per-job target table name,
	// e.g. "agg" -> agg_active_per_org_weekly. Default "agg".
	TablePrefix string `yaml:"table_prefix"`

	Replace   bool `yaml:"replace"`
	BatchSize int  `yaml:"batch_size"`
}

// TableFor returns the sink table name for one job.
func (s PipelineSink) TableFor(job PipelineJob) string {
	name := fmt.Sprintf("%s_%s_%s_%s", s.TablePrefix, job.Mode, job.Dimension, job.Period)
	return strings.ReplaceAll(name, "-", "_")
}

// LoadPipelineConfig reads and parses the pipeline config at path. Missing
// fields are filled with defaults before validation.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline config: read %q: %w", path, err)
	}

	cfg := &PipelineConfig{
		Workers:  DefaultWorkers,
		Reducers: DefaultReducers,
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("pipeline config: parse yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline config: %w", err)
	}
	return cfg, nil
}

// Validate checks structural constraints on the parsed configuration.
func (c *PipelineConfig) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be > 0")
	}
	if c.Reducers <= 0 {
		return fmt.Errorf("reducers must be > 0")
	}
	if len(c.Jobs) == 0 {
		return fmt.Errorf("at least one job is required")
	}
	for i, job := range c.Jobs {
		dim, err := aggregate.ParseDimension(job.Dimension)
		if err != nil {
			return fmt.Errorf("jobs[%d]: %w", i, err)
		}
		if _, err := aggregate.SchemaFor(aggregate.Mode(job.Mode), dim); err != nil {
			return fmt.Errorf("jobs[%d]: %w", i, err)
		}
		if job.Period != "" {
			if _, err := aggregate.ParsePeriod(job.Period); err != nil {
				return fmt.Errorf("jobs[%d]: %w", i, err)
			}
		}
		if job.Input == "" || job.Output == "" {
			return fmt.Errorf("jobs[%d]: input and output are required", i)
		}
	}
	if c.Sink != nil {
		if c.Sink.TablePrefix == "" {
			c.Sink.TablePrefix = "agg"
		}
		if c.Sink.BatchSize < 0 {
			return fmt.Errorf("sink.batch_size must not be negative")
		}
	}
	return nil
}
