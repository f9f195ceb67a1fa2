package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nnetctl/internal/launcher"
	"nnetctl/internal/priors"
)

func newPriorsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "priors",
		Short: "Presoftmax prior scale utilities",
	}
	cmd.AddCommand(newPriorsSmoothCommand(ctx))
	cmd.AddCommand(newPriorsComputeCommand(ctx))
	return cmd
}

func newPriorsSmoothCommand(ctx *commandContext) *cobra.Command {
	var power, smooth float64

	cmd := &cobra.Command{
		Use:   "smooth <counts-file>",
		Short: "Turn a pdf count vector into a presoftmax prior scale vector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("power") {
				power = cfg.Priors.Power
			}
			if !cmd.Flags().Changed("smooth") {
				smooth = cfg.Priors.Smooth
			}
			counts, err := priors.ReadVector(args[0])
			if err != nil {
				return err
			}
			scales, err := priors.SmoothScaleVector(counts, power, smooth)
			if err != nil {
				return err
			}
			return priors.WriteVector(cmd.OutOrStdout(), scales)
		},
	}

	cmd.Flags().Float64Var(&power, "power", 0, "Prior power (config priors.power when unset)")
	cmd.Flags().Float64Var(&smooth, "smooth", 0, "Smoothing constant (config priors.smooth when unset)")
	return cmd
}

func newPriorsComputeCommand(ctx *commandContext) *cobra.Command {
	var aliDir string
	var numJobs int

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Accumulate alignment counts and write presoftmax_prior_scale.vec",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if aliDir == "" {
				aliDir = cfg.Paths.AliDir
			}
			if aliDir == "" {
				return fmt.Errorf("an alignment directory is required (--ali-dir or paths.ali_dir)")
			}
			if numJobs <= 0 {
				numJobs = cfg.Priors.NumJobs
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			l, err := launcher.New(cfg.Launcher)
			if err != nil {
				return err
			}
			computer := priors.Computer{
				Commands: cfg.Commands,
				Power:    cfg.Priors.Power,
				Smooth:   cfg.Priors.Smooth,
				Launcher: l,
				Logger:   ctx.stderrLogger(),
			}
			scales, err := computer.Compute(cmd.Context(), priors.ComputeInput{
				Dir:     cfg.Paths.ExpDir,
				AliDir:  aliDir,
				NumJobs: numJobs,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d prior scales to %s/%s\n", len(scales), cfg.Paths.ExpDir, priors.ScaleFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&aliDir, "ali-dir", "", "Alignment directory (config paths.ali_dir when unset)")
	cmd.Flags().IntVar(&numJobs, "num-jobs", 0, "Number of alignment archives (config priors.num_jobs when unset)")
	return cmd
}
