package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"nnetctl/internal/config"
	"nnetctl/internal/deps"
	"nnetctl/internal/logging"
	"nnetctl/internal/preflight"
	"nnetctl/internal/trainer"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var skipChecks bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Train the configured experiment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			logger, logPath, closeLog, err := logging.NewFromConfig(cfg, ctx.logLevel())
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer closeLog()
			logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, logging.RetentionTarget{
				Dir:     cfg.Paths.LogDir,
				Pattern: logging.ControllerLogPattern,
				Exclude: []string{logPath},
			})

			if !skipChecks {
				if err := runPreflight(cfg); err != nil {
					return err
				}
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ctrl, err := trainer.New(cfg, logger)
			if err != nil {
				return err
			}
			summary, err := ctrl.Run(runCtx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Warn("training interrupted", logging.Int("completed", summary.Completed))
				}
				return err
			}
			out := cmd.OutOrStdout()
			if summary.Combined {
				fmt.Fprintf(out, "Training complete: %d iterations, final model %s\n", summary.NumIters, summary.FinalModel)
			} else {
				fmt.Fprintf(out, "Stopped after %d iterations (exit stage %d)\n", summary.StartIter+summary.Completed, cfg.Trainer.ExitStage)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipChecks, "skip-checks", false, "Skip directory and binary preflight checks")
	return cmd
}

// runPreflight fails when a directory check fails or a required binary is
// missing from PATH.
func runPreflight(cfg *config.Config) error {
	var problems []string
	for _, result := range preflight.Failed(preflight.RunAll(cfg)) {
		problems = append(problems, fmt.Sprintf("%s: %s", result.Name, result.Detail))
	}
	for _, status := range deps.Missing(preflight.CheckSystemDeps(cfg)) {
		problems = append(problems, fmt.Sprintf("%s: %s", status.Name, status.Detail))
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("preflight checks failed (use --skip-checks to bypass):\n  %s", strings.Join(problems, "\n  "))
}
