// Package launchertest provides an in-memory launcher for tests.
package launchertest

import (
	"context"
	"strings"
	"sync"

	"nnetctl/internal/launcher"
)

// Fake records every job and command it receives. RunFunc and OutputFunc,
// when set, decide the outcome; otherwise jobs succeed and Output returns "".
type Fake struct {
	RunFunc    func(ctx context.Context, job launcher.Job) (launcher.Result, error)
	OutputFunc func(ctx context.Context, command string) (string, error)

	mu       sync.Mutex
	jobs     []launcher.Job
	commands []string
}

// Run implements launcher.Launcher.
func (f *Fake) Run(ctx context.Context, job launcher.Job) (launcher.Result, error) {
	f.mu.Lock()
	f.jobs = append(f.jobs, job)
	f.mu.Unlock()
	if f.RunFunc != nil {
		return f.RunFunc(ctx, job)
	}
	var result launcher.Result
	for _, task := range job.Tasks() {
		if task.LogPath != "" {
			result.LogPaths = append(result.LogPaths, task.LogPath)
		}
	}
	return result, ctx.Err()
}

// Output implements launcher.Launcher.
func (f *Fake) Output(ctx context.Context, command string) (string, error) {
	f.mu.Lock()
	f.commands = append(f.commands, command)
	f.mu.Unlock()
	if f.OutputFunc != nil {
		return f.OutputFunc(ctx, command)
	}
	return "", nil
}

// Jobs returns a copy of the recorded jobs in submission order.
func (f *Fake) Jobs() []launcher.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]launcher.Job(nil), f.jobs...)
}

// JobsWithPrefix returns the recorded jobs whose name starts with prefix.
func (f *Fake) JobsWithPrefix(prefix string) []launcher.Job {
	var out []launcher.Job
	for _, job := range f.Jobs() {
		if strings.HasPrefix(job.Name, prefix) {
			out = append(out, job)
		}
	}
	return out
}

// Commands returns a copy of the recorded Output commands.
func (f *Fake) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}
