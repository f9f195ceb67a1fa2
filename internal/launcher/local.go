package launcher

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"nnetctl/internal/failure"
)

var commandContext = exec.CommandContext

// Local runs jobs on the current machine through a POSIX shell.
type Local struct {
	shell       string
	maxParallel int
}

// LocalOption configures a Local launcher.
type LocalOption func(*Local)

// WithShell overrides the shell binary (default "sh").
func WithShell(shell string) LocalOption {
	return func(l *Local) {
		if strings.TrimSpace(shell) != "" {
			l.shell = shell
		}
	}
}

// WithMaxParallel caps the number of concurrently running sub-jobs. Zero
// means unlimited.
func WithMaxParallel(n int) LocalOption {
	return func(l *Local) {
		if n > 0 {
			l.maxParallel = n
		}
	}
}

// NewLocal constructs a Local launcher.
func NewLocal(opts ...LocalOption) *Local {
	l := &Local{shell: "sh"}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run executes every sub-job of job in parallel. The first failing sub-job
// cancels its siblings.
func (l *Local) Run(ctx context.Context, job Job) (Result, error) {
	if err := job.validate(); err != nil {
		return Result{}, err
	}
	tasks := job.Tasks()
	result := Result{LogPaths: make([]string, 0, len(tasks))}
	for _, task := range tasks {
		if task.LogPath != "" {
			result.LogPaths = append(result.LogPaths, task.LogPath)
		}
	}

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	if l.maxParallel > 0 {
		group.SetLimit(l.maxParallel)
	}
	for _, task := range tasks {
		group.Go(func() error {
			if err := l.runTask(groupCtx, task); err != nil {
				mu.Lock()
				result.Failed = append(result.Failed, task.Index)
				mu.Unlock()
				return err
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		slices.Sort(result.Failed)
		msg := fmt.Sprintf("%d of %d jobs failed", len(result.Failed), len(tasks))
		if len(result.LogPaths) > 0 {
			msg += fmt.Sprintf(", see %s", job.LogPath)
		}
		return result, failure.Wrap(failure.ErrLaunch, "launcher", job.Name, msg, err)
	}
	return result, nil
}

func (l *Local) runTask(ctx context.Context, task Task) error {
	cmd := commandContext(ctx, l.shell, "-c", task.Command) //nolint:gosec
	var stderr bytes.Buffer
	var logFile *os.File
	if task.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(task.LogPath), 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		file, err := os.Create(task.LogPath)
		if err != nil {
			return fmt.Errorf("open log %s: %w", task.LogPath, err)
		}
		defer file.Close()
		logFile = file
		fmt.Fprintf(file, "# %s\n# Started at %s\n#\n", task.Command, time.Now().Format(time.UnixDate))
		cmd.Stdout = file
		cmd.Stderr = file
	} else {
		cmd.Stderr = &stderr
	}

	started := time.Now()
	err := cmd.Run()
	if logFile != nil {
		code := 0
		if cmd.ProcessState != nil {
			code = cmd.ProcessState.ExitCode()
		}
		fmt.Fprintf(logFile, "# Accounting: time=%d threads=1\n# Ended (code %d) at %s, elapsed time %d seconds\n",
			int(time.Since(started).Seconds()), code, time.Now().Format(time.UnixDate), int(time.Since(started).Seconds()))
	}
	if err != nil {
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			return fmt.Errorf("job %d: %w: %s", task.Index, err, detail)
		}
		return fmt.Errorf("job %d: %w", task.Index, err)
	}
	return nil
}

// Output runs command through the shell and returns trimmed standard output.
func (l *Local) Output(ctx context.Context, command string) (string, error) {
	if strings.TrimSpace(command) == "" {
		return "", failure.Wrap(failure.ErrLaunch, "launcher", "output", "empty command", nil)
	}
	cmd := commandContext(ctx, l.shell, "-c", command) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		return "", failure.Wrap(failure.ErrLaunch, "launcher", "output", detail, err)
	}
	return strings.TrimSpace(stdout.String()), nil
}
