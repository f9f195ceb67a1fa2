package launcher

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"nnetctl/internal/config"
	"nnetctl/internal/failure"
)

// JobToken is the placeholder replaced by the sub-job index.
const JobToken = "JOB"

// Range is an inclusive span of sub-job indices.
type Range struct {
	Lo int
	Hi int
}

func (r Range) String() string {
	return fmt.Sprintf("%d:%d", r.Lo, r.Hi)
}

// Len returns the number of indices in the range.
func (r Range) Len() int {
	if r.Hi < r.Lo {
		return 0
	}
	return r.Hi - r.Lo + 1
}

// Job is one launch request.
type Job struct {
	Name    string
	Command string
	LogPath string
	Range   *Range
}

// Task is a single expanded sub-job.
type Task struct {
	Index   int
	Command string
	LogPath string
}

// Tasks expands the job into its sub-jobs. A job without a range yields one
// task with index 0 and the command unchanged.
func (j Job) Tasks() []Task {
	if j.Range == nil {
		return []Task{{Index: 0, Command: j.Command, LogPath: j.LogPath}}
	}
	tasks := make([]Task, 0, j.Range.Len())
	for idx := j.Range.Lo; idx <= j.Range.Hi; idx++ {
		n := strconv.Itoa(idx)
		tasks = append(tasks, Task{
			Index:   idx,
			Command: strings.ReplaceAll(j.Command, JobToken, n),
			LogPath: strings.ReplaceAll(j.LogPath, JobToken, n),
		})
	}
	return tasks
}

func (j Job) validate() error {
	if strings.TrimSpace(j.Command) == "" {
		return failure.Wrap(failure.ErrLaunch, "launcher", j.Name, "empty command", nil)
	}
	if j.Range != nil && j.Range.Len() == 0 {
		return failure.Wrap(failure.ErrLaunch, "launcher", j.Name, fmt.Sprintf("empty job range %s", j.Range), nil)
	}
	return nil
}

// Result reports the outcome of a job.
type Result struct {
	LogPaths []string
	// Failed lists the indices of sub-jobs that exited non-zero, ascending.
	Failed []int
}

// Launcher runs jobs and captures command output.
type Launcher interface {
	// Run blocks until every sub-job of job finished.
	Run(ctx context.Context, job Job) (Result, error)
	// Output runs command locally and returns its standard output.
	Output(ctx context.Context, command string) (string, error)
}

// New builds the launcher selected by cfg.
func New(cfg config.Launcher) (Launcher, error) {
	switch cfg.Kind {
	case "", "local":
		return NewLocal(), nil
	case "queue":
		return NewQueue(cfg.Script, cfg.Options), nil
	default:
		return nil, failure.Wrap(failure.ErrConfiguration, "launcher", "new", fmt.Sprintf("unsupported kind %q", cfg.Kind), nil)
	}
}
