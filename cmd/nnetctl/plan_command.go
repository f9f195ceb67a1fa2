package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"nnetctl/internal/config"
	"nnetctl/internal/egs"
	"nnetctl/internal/schedule"
	"nnetctl/internal/trainer"
)

type planOutput struct {
	NumIters          int             `json:"num_iters" yaml:"num_iters"`
	NumArchives       int             `json:"num_archives" yaml:"num_archives"`
	ArchivesToProcess int             `json:"archives_to_process" yaml:"archives_to_process"`
	ModelsToCombine   []int           `json:"models_to_combine" yaml:"models_to_combine"`
	SubsampleFactor   int             `json:"subsample_factor" yaml:"subsample_factor"`
	Steps             []schedule.Step `json:"steps" yaml:"steps"`
}

// buildSchedule resolves the archive count from the egs directory unless
// numArchives is positive.
func buildSchedule(cfg *config.Config, numArchives int) (*schedule.Schedule, error) {
	if _, err := trainer.ApplyConfigVars(cfg); err != nil {
		return nil, err
	}
	if numArchives <= 0 {
		info, err := egs.Read(cfg.Paths.EgsDir)
		if err != nil {
			return nil, fmt.Errorf("%w (pass --num-archives to plan without an egs directory)", err)
		}
		numArchives = info.NumArchives
	}
	return schedule.Build(trainer.ScheduleParams(cfg, numArchives))
}

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var numArchives int
	var format string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the iteration schedule for the configured experiment",
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := validateFormat(format)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			sched, err := buildSchedule(cfg, numArchives)
			if err != nil {
				return err
			}

			if outFormat != formatTable {
				return writeStructured(cmd, outFormat, planOutput{
					NumIters:          sched.NumIters,
					NumArchives:       sched.NumArchives,
					ArchivesToProcess: sched.ArchivesToProcess,
					ModelsToCombine:   sched.Plan.ModelsToCombine(),
					SubsampleFactor:   sched.Plan.SubsampleFactor(),
					Steps:             sched.Steps,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Iterations: %d  Archives: %d  Archives to process: %d\n",
				sched.NumIters, sched.NumArchives, sched.ArchivesToProcess)
			fmt.Fprintf(out, "Models to combine: %v (subsample factor %d)\n",
				sched.Plan.ModelsToCombine(), sched.Plan.SubsampleFactor())

			rows := make([][]string, 0, len(sched.Steps))
			for _, step := range sched.Steps {
				mode := "best"
				if step.Average {
					mode = "average"
				}
				rows = append(rows, []string{
					strconv.Itoa(step.Iter),
					strconv.Itoa(step.NumJobs),
					strconv.FormatFloat(step.LearningRate, 'g', 6, 64),
					strconv.Itoa(step.ArchivesProcessed),
					label(mode),
					step.MinibatchSize,
					strconv.FormatFloat(step.MaxParamChange, 'g', 4, 64),
					yesNo(step.Combine),
				})
			}
			headers := []string{"Iter", "Jobs", "Learning Rate", "Archives", "Mode", "Minibatch", "Max Change", "Combine"}
			aligns := []columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft, alignLeft, alignRight, alignLeft}
			fmt.Fprintln(out, renderTable(headers, rows, aligns, shouldColorize(out)))
			return nil
		},
	}

	cmd.Flags().IntVar(&numArchives, "num-archives", 0, "Archive count to plan for instead of reading egs info")
	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table, json or yaml")
	return cmd
}

func newLearningRateCommand(ctx *commandContext) *cobra.Command {
	var iter int
	var numArchives int

	cmd := &cobra.Command{
		Use:   "lr",
		Short: "Print the effective learning rate of one iteration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			sched, err := buildSchedule(cfg, numArchives)
			if err != nil {
				return err
			}
			step, ok := sched.Step(iter)
			if !ok {
				return fmt.Errorf("iteration %d outside schedule of %d iterations", iter, sched.NumIters)
			}
			fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatFloat(step.LearningRate, 'g', -1, 64))
			return nil
		},
	}

	cmd.Flags().IntVar(&iter, "iter", 0, "Iteration number")
	cmd.Flags().IntVar(&numArchives, "num-archives", 0, "Archive count to plan for instead of reading egs info")
	return cmd
}
