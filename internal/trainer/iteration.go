package trainer

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"nnetctl/internal/failure"
	"nnetctl/internal/fileutil"
	"nnetctl/internal/launcher"
	"nnetctl/internal/ledger"
	"nnetctl/internal/logging"
	"nnetctl/internal/retention"
	"nnetctl/internal/schedule"
	"nnetctl/internal/selector"
	"nnetctl/internal/shrinkage"
)

// runIteration trains model step.Iter into model step.Iter+1.
func (c *Controller) runIteration(ctx context.Context, sched *schedule.Schedule, step schedule.Step, runID string, store *ledger.Store, bg *launcher.Background) error {
	logger := logging.WithContext(ctx, c.logger)
	iter := step.Iter
	started := time.Now()

	scale := 1.0
	if step.Average {
		policy := shrinkage.Policy{
			Threshold: c.cfg.Shrinkage.SaturationThreshold,
			Value:     c.cfg.Shrinkage.Value,
			Prober:    c.prober,
			Logger:    logger,
		}
		var err error
		scale, err = policy.Scale(ctx, iter, c.layout.ModelPath(iter))
		if err != nil {
			return err
		}
	}

	if err := c.train(ctx, sched, step); err != nil {
		return err
	}

	selection, err := selector.GetSuccessfulModels(step.NumJobs,
		c.layout.TrainLogPattern(iter),
		c.cfg.Selection.DifferenceThreshold, logger)
	if err != nil {
		return err
	}

	record := ledger.Iteration{
		RunID:         runID,
		Iter:          iter,
		NumJobs:       step.NumJobs,
		LearningRate:  step.LearningRate,
		Accepted:      selection.Accepted,
		Best:          selection.Best,
		ShrinkScale:   scale,
		MinibatchSize: step.MinibatchSize,
	}
	combiner := c.combiner()
	if step.Average {
		record.Mode = ledger.ModeAverage
		var shrink *float64
		if scale < 1 {
			shrink = &scale
		}
		if err := combiner.Average(ctx, iter, selection.Accepted, shrink); err != nil {
			return err
		}
	} else {
		record.Mode = ledger.ModeBest
		if err := combiner.Best(ctx, iter, selection.Best); err != nil {
			return err
		}
	}

	for n := 1; n <= step.NumJobs; n++ {
		if _, err := fileutil.RemoveIfExists(c.layout.CandidatePath(iter+1, n)); err != nil {
			logging.WarnWithContext(logger, "failed to remove candidate model", "candidate_cleanup_failed",
				logging.Int("job", n),
				logging.Error(err),
			)
		}
	}

	c.submitDiagnostics(bg, iter)

	if err := store.RecordIteration(context.WithoutCancel(ctx), record); err != nil {
		return err
	}

	if c.cfg.Cleanup.Enabled && iter >= 2 {
		policy := retention.Policy{Interval: c.cfg.Cleanup.PreserveModelInterval, Plan: sched.Plan}
		if _, err := retention.RemoveModel(c.layout, iter-2, policy); err != nil {
			logging.WarnWithContext(logger, "failed to remove old model", "model_cleanup_failed",
				logging.Int("model_iter", iter-2),
				logging.Error(err),
				logging.String(logging.FieldImpact, "disk usage grows until final cleanup"),
			)
		}
	}

	logger.Info("iteration complete",
		logging.Int("num_jobs", step.NumJobs),
		logging.Float64("learning_rate", step.LearningRate),
		logging.String("mode", string(record.Mode)),
		logging.Any("accepted", selection.Accepted),
		logging.Float64("shrink_scale", scale),
		logging.Duration("elapsed", time.Since(started)),
		logging.String(logging.FieldEventType, "iteration_complete"),
	)
	return nil
}

// train launches one job per parallel candidate and waits for all of them.
// Any failed job aborts the iteration.
func (c *Controller) train(ctx context.Context, sched *schedule.Schedule, step schedule.Step) error {
	numArchives := sched.NumArchives
	g, gctx := errgroup.WithContext(ctx)
	for n := 1; n <= step.NumJobs; n++ {
		vars := launcher.Vars{
			"max_param_change": strconv.FormatFloat(step.MaxParamChange, 'g', -1, 64),
			"minibatch_size":   step.MinibatchSize,
			"learning_rate":    strconv.FormatFloat(step.LearningRate, 'g', -1, 64),
			"input_model":      c.layout.RawInput(step.Iter),
			"egs_dir":          c.cfg.Paths.EgsDir,
			"archive":          strconv.Itoa(schedule.ArchiveForJob(step.ArchivesProcessed, n, numArchives)),
			"output_model":     c.layout.CandidatePath(step.Iter+1, n),
		}
		job := launcher.Job{
			Name:    fmt.Sprintf("train.%d.%d", step.Iter, n),
			Command: launcher.Render(c.cfg.Commands.Train, vars),
			LogPath: c.layout.LogPath(fmt.Sprintf("train.%d.%d.log", step.Iter, n)),
		}
		g.Go(func() error {
			if _, err := c.launcher.Run(gctx, job); err != nil {
				return failure.Wrap(failure.ErrLaunch, "trainer", job.Name, "training job failed, see "+job.LogPath, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (c *Controller) submitDiagnostics(bg *launcher.Background, iter int) {
	if c.cfg.Commands.ComputeProb == "" {
		return
	}
	model := c.layout.ModelPath(iter + 1)
	if c.cfg.Trainer.AcousticModel {
		model = c.layout.RawInput(iter + 1)
	}
	bg.Submit(launcher.Job{
		Name: fmt.Sprintf("compute_prob.%d", iter),
		Command: launcher.Render(c.cfg.Commands.ComputeProb, launcher.Vars{
			"model":   model,
			"egs_dir": c.cfg.Paths.EgsDir,
		}),
		LogPath: c.layout.LogPath(fmt.Sprintf("compute_prob_valid.%d.log", iter)),
	})
}
