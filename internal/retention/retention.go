// Package retention decides which intermediate models stay on disk.
//
// A model is preserved when its iteration is a multiple of the preserve
// interval, when it belongs to the final combination window, or when it is
// pinned explicitly. Every other model is deleted once the controller no
// longer needs it.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"nnetctl/internal/failure"
	"nnetctl/internal/fileutil"
	"nnetctl/internal/launcher"
	"nnetctl/internal/logging"
	"nnetctl/internal/nnet"
	"nnetctl/internal/schedule"
)

// Keep reports whether the model of iteration iter must be preserved. A nil
// plan preserves no combination window; a non-positive interval disables the
// periodic rule.
func Keep(iter, interval int, plan *schedule.Plan) bool {
	if interval > 0 && iter%interval == 0 {
		return true
	}
	return plan.Contains(iter)
}

// Policy bundles the retention inputs for one experiment.
type Policy struct {
	Interval int
	Plan     *schedule.Plan
	Pinned   []int
}

// Keep applies Keep plus the pinned iterations.
func (p Policy) Keep(iter int) bool {
	return Keep(iter, p.Interval, p.Plan) || slices.Contains(p.Pinned, iter)
}

// RemoveModel deletes the model of iteration iter unless policy keeps it. A
// missing file is not an error. It reports whether a file was removed.
func RemoveModel(layout nnet.Layout, iter int, policy Policy) (bool, error) {
	if policy.Keep(iter) {
		return false, nil
	}
	removed, err := fileutil.RemoveIfExists(layout.ModelPath(iter))
	if err != nil {
		return false, failure.Wrap(failure.ErrStateMissing, "retention", "remove model", layout.ModelPath(iter), err)
	}
	return removed, nil
}

// Cleaner performs the post-training cleanup of an experiment directory.
type Cleaner struct {
	Layout           nnet.Layout
	EgsDir           string
	RemoveEgsCommand string
	Launcher         launcher.Launcher
	Logger           *slog.Logger
}

// CleanDir removes every non-preserved model of iterations 0..numIters-1 and,
// when removeEgs is set, runs the egs removal command first. The combination
// window is not consulted: only the periodic and pinned rules of policy apply.
func (c Cleaner) CleanDir(ctx context.Context, numIters int, policy Policy, removeEgs bool) (int, error) {
	logger := logging.NewComponentLogger(c.Logger, "retention")
	if removeEgs {
		if c.Launcher == nil {
			return 0, failure.Wrap(failure.ErrConfiguration, "retention", "clean", "no launcher configured", nil)
		}
		job := launcher.Job{
			Name:    "remove_egs",
			Command: launcher.Render(c.RemoveEgsCommand, launcher.Vars{"egs_dir": c.EgsDir}),
			LogPath: c.Layout.LogPath("remove_egs.log"),
		}
		if _, err := c.Launcher.Run(ctx, job); err != nil {
			return 0, err
		}
	}

	periodic := Policy{Interval: policy.Interval, Pinned: policy.Pinned}
	removed := 0
	for iter := range numIters {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		ok, err := RemoveModel(c.Layout, iter, periodic)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	logger.Info("experiment directory cleaned",
		logging.Int("removed_models", removed),
		logging.Bool("removed_egs", removeEgs),
		logging.String(logging.FieldEventType, "cleanup_complete"),
		logging.String("summary", fmt.Sprintf("%d of %d models removed", removed, numIters)),
	)
	return removed, nil
}
