package launcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"nnetctl/internal/logging"
)

// Background runs diagnostic jobs asynchronously. A polling loop checks for
// failed jobs every interval and cancels the context returned by
// NewBackground with the first failure as its cause.
type Background struct {
	launcher Launcher
	interval time.Duration
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelCauseFunc

	jobs   sync.WaitGroup
	poller sync.WaitGroup
	stop   chan struct{}
	once   sync.Once

	mu     sync.Mutex
	err    error
	failed string
}

// NewBackground starts the polling loop and returns the tracker with the
// context the foreground work must use.
func NewBackground(ctx context.Context, l Launcher, interval time.Duration, logger *slog.Logger) (*Background, context.Context) {
	if interval <= 0 {
		interval = time.Minute
	}
	runCtx, cancel := context.WithCancelCause(ctx)
	b := &Background{
		launcher: l,
		interval: interval,
		logger:   logging.NewComponentLogger(logger, "background"),
		ctx:      runCtx,
		cancel:   cancel,
		stop:     make(chan struct{}),
	}
	b.poller.Add(1)
	go b.poll()
	return b, runCtx
}

// Submit launches job without waiting for it.
func (b *Background) Submit(job Job) {
	b.jobs.Add(1)
	go func() {
		defer b.jobs.Done()
		if _, err := b.launcher.Run(b.ctx, job); err != nil {
			b.record(job.Name, err)
		}
	}()
}

func (b *Background) record(name string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err == nil {
		b.err = err
		b.failed = name
	}
}

// Err returns the first recorded failure.
func (b *Background) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

func (b *Background) poll() {
	defer b.poller.Done()
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-b.stop:
			return
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			b.mu.Lock()
			err, name := b.err, b.failed
			b.mu.Unlock()
			if err != nil {
				logging.ErrorWithContext(b.logger, "background job failed; stopping run", "background_failed",
					logging.String("job", name),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "inspect the job log and rerun from the last completed stage"),
				)
				b.cancel(err)
				return
			}
		}
	}
}

// Close stops the polling loop, waits for outstanding jobs, releases the run
// context and returns the first failure.
func (b *Background) Close() error {
	b.once.Do(func() { close(b.stop) })
	b.poller.Wait()
	b.jobs.Wait()
	err := b.Err()
	if err != nil {
		b.cancel(err)
	} else {
		b.cancel(context.Canceled)
	}
	return err
}
