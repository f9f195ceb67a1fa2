package trainer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"nnetctl/internal/config"
	"nnetctl/internal/egs"
	"nnetctl/internal/failure"
	"nnetctl/internal/launcher"
	"nnetctl/internal/ledger"
	"nnetctl/internal/logging"
	"nnetctl/internal/nnet"
	"nnetctl/internal/priors"
	"nnetctl/internal/retention"
	"nnetctl/internal/schedule"
	"nnetctl/internal/shrinkage"
)

// Controller runs training for one experiment directory.
type Controller struct {
	cfg      *config.Config
	logger   *slog.Logger
	launcher launcher.Launcher
	prober   shrinkage.Prober
	ledger   *ledger.Store
	layout   nnet.Layout
}

// Option configures a Controller.
type Option func(*Controller)

// WithLauncher overrides the launcher built from the config.
func WithLauncher(l launcher.Launcher) Option {
	return func(c *Controller) { c.launcher = l }
}

// WithProber overrides the saturation prober built from the config.
func WithProber(p shrinkage.Prober) Option {
	return func(c *Controller) { c.prober = p }
}

// WithLedger supplies an already open ledger. The caller keeps ownership.
func WithLedger(store *ledger.Store) Option {
	return func(c *Controller) { c.ledger = store }
}

// New constructs a Controller.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Controller, error) {
	if cfg == nil {
		return nil, errors.New("trainer requires config")
	}
	c := &Controller{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "trainer"),
		layout: nnet.Layout{Dir: cfg.Paths.ExpDir, AcousticModel: cfg.Trainer.AcousticModel},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.launcher == nil {
		l, err := launcher.New(cfg.Launcher)
		if err != nil {
			return nil, err
		}
		c.launcher = l
	}
	if c.prober == nil {
		c.prober = shrinkage.CommandProber{
			Template:      cfg.Commands.Saturation,
			AcousticModel: cfg.Trainer.AcousticModel,
			Launcher:      c.launcher,
		}
	}
	return c, nil
}

// Summary describes a finished run.
type Summary struct {
	RunID      string
	NumIters   int
	StartIter  int
	Completed  int
	Combined   bool
	FinalModel string
}

// Run executes the training loop. It returns after the final combination, or
// earlier when the exit stage is reached, a job fails or ctx is cancelled.
func (c *Controller) Run(ctx context.Context) (summary Summary, err error) {
	if err := c.cfg.EnsureDirectories(); err != nil {
		return summary, failure.Wrap(failure.ErrConfiguration, "trainer", "run", "prepare experiment directory", err)
	}
	lock, err := acquireLock(c.cfg.LockPath())
	if err != nil {
		return summary, err
	}
	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			logging.WarnWithContext(c.logger, "failed to release experiment lock", "lock_release_failed",
				logging.Error(unlockErr),
				logging.String(logging.FieldImpact, "a stale lock file remains"),
			)
		}
	}()

	_, sched, err := c.Prepare()
	if err != nil {
		return summary, err
	}
	if copied, err := egs.CopyProperties(c.cfg.Paths.EgsDir, c.cfg.Paths.ExpDir); err != nil {
		return summary, err
	} else if len(copied) > 0 {
		c.logger.Debug("egs properties copied", logging.Any("files", copied))
	}

	store := c.ledger
	if store == nil {
		store, err = ledger.Open(c.cfg)
		if err != nil {
			return summary, err
		}
		defer store.Close()
	}

	start, err := c.startIteration(ctx, store)
	if err != nil {
		return summary, err
	}
	if err := c.ensureStartModel(ctx, start); err != nil {
		return summary, err
	}

	summary = Summary{RunID: uuid.NewString(), NumIters: sched.NumIters, StartIter: start}
	ctx = logging.WithRunID(ctx, summary.RunID)
	logger := logging.WithContext(ctx, c.logger)
	if _, err := store.StartRun(ctx, summary.RunID, sched.NumIters); err != nil {
		return summary, err
	}
	defer func() {
		if finishErr := store.FinishRun(context.WithoutCancel(ctx), summary.RunID, err); finishErr != nil {
			logging.WarnWithContext(logger, "failed to record run outcome", "ledger_write_failed", logging.Error(finishErr))
		}
	}()
	logger.Info("training started",
		logging.Int("num_iters", sched.NumIters),
		logging.Int("start_iter", start),
		logging.Int("archives_to_process", sched.ArchivesToProcess),
		logging.Any("models_to_combine", sched.Plan.ModelsToCombine()),
		logging.String(logging.FieldEventType, "training_started"),
	)

	if err := c.computePriors(ctx); err != nil {
		return summary, err
	}

	interval := time.Duration(c.cfg.Launcher.BackgroundPollingSeconds) * time.Second
	bg, runCtx := launcher.NewBackground(ctx, c.launcher, interval, c.logger)
	defer func() {
		if bgErr := bg.Close(); bgErr != nil && err == nil {
			err = bgErr
		}
	}()

	for iter := start; iter < sched.NumIters; iter++ {
		if exit := c.cfg.Trainer.ExitStage; exit >= 0 && iter == exit {
			logger.Info("exit stage reached", logging.Int(logging.FieldIteration, iter))
			return summary, nil
		}
		if err := runCtx.Err(); err != nil {
			return summary, stopCause(runCtx)
		}
		step, _ := sched.Step(iter)
		if err := c.runIteration(logging.WithIteration(runCtx, iter), sched, step, summary.RunID, store, bg); err != nil {
			if runCtx.Err() != nil {
				return summary, stopCause(runCtx)
			}
			return summary, err
		}
		summary.Completed++
	}

	if err := c.combine(runCtx, sched); err != nil {
		return summary, err
	}
	summary.Combined = true
	summary.FinalModel = c.layout.FinalPath()

	if err := bg.Close(); err != nil {
		return summary, err
	}
	if c.cfg.Cleanup.Enabled {
		c.cleanup(ctx, sched)
	}
	logger.Info("training complete",
		logging.Int("iterations", summary.Completed),
		logging.String("final_model", summary.FinalModel),
		logging.String(logging.FieldEventType, "training_complete"),
	)
	return summary, nil
}

func stopCause(ctx context.Context) error {
	if cause := context.Cause(ctx); cause != nil {
		return cause
	}
	return ctx.Err()
}

// startIteration resumes after the last recorded iteration, never before the
// configured stage.
func (c *Controller) startIteration(ctx context.Context, store *ledger.Store) (int, error) {
	start := max(c.cfg.Trainer.Stage, 0)
	last, ok, err := store.LastCompleted(ctx)
	if err != nil {
		return 0, err
	}
	if ok && last+1 > start {
		c.logger.Info("resuming from ledger",
			logging.Int("last_completed", last),
			logging.String(logging.FieldEventType, "training_resumed"),
		)
		start = last + 1
	}
	return start, nil
}

func (c *Controller) computePriors(ctx context.Context) error {
	if !c.cfg.Priors.Enabled {
		return nil
	}
	output := filepath.Join(c.cfg.Paths.ExpDir, priors.ScaleFile)
	if _, err := os.Stat(output); err == nil {
		c.logger.Debug("presoftmax prior scale present", logging.String("path", output))
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return failure.Wrap(failure.ErrStateMissing, "trainer", "priors", output, err)
	}
	computer := priors.Computer{
		Commands: c.cfg.Commands,
		Power:    c.cfg.Priors.Power,
		Smooth:   c.cfg.Priors.Smooth,
		Launcher: c.launcher,
		Logger:   c.logger,
	}
	_, err := computer.Compute(ctx, priors.ComputeInput{
		Dir:     c.cfg.Paths.ExpDir,
		AliDir:  c.cfg.Paths.AliDir,
		NumJobs: c.cfg.Priors.NumJobs,
	})
	return err
}

// ensureStartModel creates model 0 when training starts from scratch without
// one. Any later starting model must already exist.
func (c *Controller) ensureStartModel(ctx context.Context, start int) error {
	path := c.layout.ModelPath(start)
	_, statErr := os.Stat(path)
	if statErr == nil {
		return nil
	}
	if start != 0 || !errors.Is(statErr, fs.ErrNotExist) {
		return failure.Wrap(failure.ErrStateMissing, "trainer", "run", fmt.Sprintf("starting model %s", path), statErr)
	}
	if err := c.combiner().Init(ctx, c.cfg.Trainer.Srand); err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return failure.Wrap(failure.ErrStateMissing, "trainer", "run", fmt.Sprintf("initial network %s was not written", path), err)
	}
	return nil
}

func (c *Controller) combiner() nnet.Combiner {
	return nnet.Combiner{
		Layout:   c.layout,
		EgsDir:   c.cfg.Paths.EgsDir,
		AliDir:   c.cfg.Paths.AliDir,
		Commands: c.cfg.Commands,
		Launcher: c.launcher,
		Logger:   c.logger,
	}
}

func (c *Controller) combine(ctx context.Context, sched *schedule.Schedule) error {
	models := sched.Plan.ModelsToCombine()
	logging.WithContext(ctx, c.logger).Info("combining final models",
		logging.Int("num_models", len(models)),
		logging.Int("subsample_factor", sched.Plan.SubsampleFactor()),
	)
	return c.combiner().Combine(ctx, models, sched.NumIters)
}

func (c *Controller) cleanup(ctx context.Context, sched *schedule.Schedule) {
	cleaner := retention.Cleaner{
		Layout:           c.layout,
		EgsDir:           c.cfg.Paths.EgsDir,
		RemoveEgsCommand: c.cfg.Commands.RemoveEgs,
		Launcher:         c.launcher,
		Logger:           c.logger,
	}
	policy := retention.Policy{Interval: c.cfg.Cleanup.PreserveModelInterval}
	if _, err := cleaner.CleanDir(ctx, sched.NumIters, policy, c.cfg.Cleanup.RemoveEgs); err != nil {
		logging.WarnWithContext(c.logger, "cleanup failed", "cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "intermediate models or egs remain on disk"),
			logging.String(logging.FieldErrorHint, "run nnetctl cleanup after fixing the cause"),
		)
	}
}
