package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nnetctl/internal/launcher"
	"nnetctl/internal/ledger"
	"nnetctl/internal/nnet"
	"nnetctl/internal/retention"
)

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	var numIters int
	var pins []int
	var removeEgs bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove intermediate models of a finished experiment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("remove-egs") {
				removeEgs = cfg.Cleanup.RemoveEgs
			}
			if numIters <= 0 {
				store, err := ledger.Open(cfg)
				if err != nil {
					return err
				}
				run, err := store.LatestRun(cmd.Context())
				store.Close()
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("no recorded run in %s; pass --num-iters", cfg.LedgerPath())
				}
				numIters = run.NumIters
			}

			l, err := launcher.New(cfg.Launcher)
			if err != nil {
				return err
			}
			cleaner := retention.Cleaner{
				Layout:           nnet.Layout{Dir: cfg.Paths.ExpDir, AcousticModel: cfg.Trainer.AcousticModel},
				EgsDir:           cfg.Paths.EgsDir,
				RemoveEgsCommand: cfg.Commands.RemoveEgs,
				Launcher:         l,
				Logger:           ctx.stderrLogger(),
			}
			removed, err := cleaner.CleanDir(cmd.Context(), numIters,
				retention.Policy{Interval: cfg.Cleanup.PreserveModelInterval, Pinned: pins}, removeEgs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d models\n", removed)
			return nil
		},
	}

	cmd.Flags().IntVar(&numIters, "num-iters", 0, "Iteration count (latest recorded run when unset)")
	cmd.Flags().IntSliceVar(&pins, "pin", nil, "Iterations whose models must be kept")
	cmd.Flags().BoolVar(&removeEgs, "remove-egs", false, "Also remove the egs directory (config cleanup.remove_egs when unset)")
	return cmd
}
