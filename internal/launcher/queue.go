package launcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"nnetctl/internal/failure"
)

// Queue delegates jobs to a grid launcher script using the
// "<script> [options] [JOB=lo:hi] <log> <command>" convention. The script is
// responsible for the JOB expansion and for writing the logs.
type Queue struct {
	script  string
	options []string
	local   *Local
}

// NewQueue constructs a Queue launcher. options may hold several
// whitespace-separated flags, e.g. "--mem 4G --gpu 1".
func NewQueue(script, options string) *Queue {
	return &Queue{
		script:  strings.TrimSpace(script),
		options: strings.Fields(options),
		local:   NewLocal(),
	}
}

// Run invokes the launcher script once for the whole job.
func (q *Queue) Run(ctx context.Context, job Job) (Result, error) {
	if err := job.validate(); err != nil {
		return Result{}, err
	}
	if q.script == "" {
		return Result{}, failure.Wrap(failure.ErrConfiguration, "launcher", job.Name, "queue script not configured", nil)
	}
	if job.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(job.LogPath), 0o755); err != nil {
			return Result{}, failure.Wrap(failure.ErrLaunch, "launcher", job.Name, "create log directory", err)
		}
	}
	result := Result{}
	for _, task := range job.Tasks() {
		if task.LogPath != "" {
			result.LogPaths = append(result.LogPaths, task.LogPath)
		}
	}

	cmd := commandContext(ctx, q.script, q.args(job)...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		if job.Range != nil {
			for idx := job.Range.Lo; idx <= job.Range.Hi; idx++ {
				result.Failed = append(result.Failed, idx)
			}
		} else {
			result.Failed = []int{0}
		}
		return result, failure.Wrap(failure.ErrLaunch, "launcher", job.Name, strings.TrimSpace(string(output)), err)
	}
	return result, nil
}

func (q *Queue) args(job Job) []string {
	args := append([]string(nil), q.options...)
	if job.Range != nil {
		args = append(args, JobToken+"="+job.Range.String())
	}
	logPath := job.LogPath
	if logPath == "" {
		logPath = "/dev/null"
	}
	return append(args, logPath, job.Command)
}

// Output runs command locally; diagnostic probes are never queued.
func (q *Queue) Output(ctx context.Context, command string) (string, error) {
	return q.local.Output(ctx, command)
}
