package batch

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/milkom-maranatha-research-study/holistic-data-processing-service/aggregate"
	"github.com/milkom-maranatha-research-study/holistic-data-processing-service/batch/mysqlsink"
)

// RunPipeline executes every configured job and, when a sink is configured,
// imports each merged artifact into MySQL. A failing job does not stop the
// remaining jobs; every job still cleans up its own staged state, and all
// failures are reported together.
func RunPipeline(ctx context.Context, cfg *PipelineConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	type done struct {
		job      PipelineJob
		artifact string
	}
	var completed []done
	var errs []error

	for _, job := range cfg.Jobs {
		artifact, err := RunJob(ctx, JobConfig{
			Mode:       aggregate.Mode(job.Mode),
			Dimension:  aggregate.Dimension(job.Dimension),
			Period:     aggregate.Period(job.Period),
			InputPath:  job.Input,
			OutputPath: job.Output,
			Workers:    cfg.Workers,
			Reducers:   cfg.Reducers,
		})
		if err != nil {
			log.Errorf("[Pipeline] Job %s/%s/%s failed: %v", job.Mode, job.Dimension, job.Period, err)
			errs = append(errs, err)
			continue
		}
		completed = append(completed, done{job: job, artifact: artifact})
	}

	if cfg.Sink != nil && len(completed) > 0 {
		db, err := cfg.Sink.DB.Open(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("sink: %w", err))
			return errors.Join(errs...)
		}
		defer db.Close()

		for _, d := range completed {
			log.Infof("[Pipeline] Sink %s -> %s", d.artifact, cfg.Sink.TableFor(d.job))
			err := mysqlsink.ImportArtifact(ctx, db, mysqlsink.SinkConfig{
				TargetTable: cfg.Sink.TableFor(d.job),
				Replace:     cfg.Sink.Replace,
				BatchSize:   cfg.Sink.BatchSize,
			}, aggregate.Mode(d.job.Mode), d.artifact)
			if err != nil {
				errs = append(errs, fmt.Errorf("sink %s: %w", d.artifact, err))
			}
		}
	}

	return errors.Join(errs...)
}
