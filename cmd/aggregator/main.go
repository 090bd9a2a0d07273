package main

import (
	"context"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/milkom-maranatha-research-study/holistic-data-processing-service/aggregate"
	"github.com/milkom-maranatha-research-study/holistic-data-processing-service/batch"
)

var (
	workers    int
	reducers   int
	configPath string
)

func main() {
	if level, err := log.ParseLevel(getenvDefault("LOG_LEVEL", "info")); err == nil {
		log.SetLevel(level)
	}

	rootCmd := &cobra.Command{
		Use:   "aggregator",
		Short: "Aggregator computes periodic therapist counts and active/inactive splits",
		Long: `Aggregator runs batch counting jobs over pre-tokenized interaction records.
It combines partial counts per worker, sums them per composite key, derives
active/inactive splits from baseline totals, and merges the result into one
artifact per aggregation dimension and period.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().IntVarP(&workers, "worker", "w", batch.DefaultWorkers, "Number of combiner workers")
	rootCmd.PersistentFlags().IntVarP(&reducers, "reduce", "r", batch.DefaultReducers, "Number of reducers")

	rootCmd.AddCommand(newJobCmd(
		"count INPUT OUTPUT DIMENSION [PERIOD]",
		"Count therapists per composite key",
		aggregate.ModeCount,
	))
	rootCmd.AddCommand(newJobCmd(
		"active INPUT OUTPUT DIMENSION [PERIOD]",
		"Split therapists into active/inactive against a baseline total",
		aggregate.ModeActive,
	))
	rootCmd.AddCommand(newPipelineCmd())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
	defer cancel()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newJobCmd(use, short string, mode aggregate.Mode) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			dim, err := aggregate.ParseDimension(args[2])
			if err != nil {
				return err
			}
			period := aggregate.PeriodAllTime
			if len(args) == 4 {
				period, err = aggregate.ParsePeriod(args[3])
				if err != nil {
					return err
				}
			}

			artifact, err := batch.RunJob(cmd.Context(), batch.JobConfig{
				Mode:       mode,
				Dimension:  dim,
				Period:     period,
				InputPath:  args[0],
				OutputPath: args[1],
				Workers:    workers,
				Reducers:   reducers,
			})
			if err != nil {
				return err
			}
			fmt.Println(artifact)
			return nil
		},
	}
}

func newPipelineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Run the configured set of aggregation jobs, then sink the artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := batch.LoadPipelineConfig(configPath)
			if err != nil {
				return err
			}
			if workers != batch.DefaultWorkers {
				cfg.Workers = workers
			}
			if reducers != batch.DefaultReducers {
				cfg.Reducers = reducers
			}
			return batch.RunPipeline(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Pipeline config file path (YAML)")
	cmd.MarkFlagRequired("config")
	return cmd
}

func getenvDefault(name, d string) string {
	v := os.Getenv(name)
	if v == "" {
		return d
	}
	return v
}
