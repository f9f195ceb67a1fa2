package nnet

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"nnetctl/internal/config"
	"nnetctl/internal/failure"
	"nnetctl/internal/launcher"
	"nnetctl/internal/logging"
)

// Combiner turns selection outcomes into launcher jobs that produce the next
// iteration's starting model.
type Combiner struct {
	Layout   Layout
	EgsDir   string
	// AliDir holds the alignment model whose transition model wraps a new
	// acoustic model.
	AliDir   string
	Commands config.Commands
	Launcher launcher.Launcher
	Logger   *slog.Logger
}

func formatScale(scale float64) string {
	return strconv.FormatFloat(scale, 'f', -1, 64)
}

// Init creates model 0 from configs/layer1.config. When configs/init.config
// exists the first layer is added on top of the network in init.raw.
func (c Combiner) Init(ctx context.Context, srand int) error {
	if _, err := os.Stat(c.Layout.ConfigPath("layer1.config")); err != nil {
		return failure.Wrap(failure.ErrStateMissing, "nnet", "init", "no first layer config", err)
	}
	initModel := ""
	if _, err := os.Stat(c.Layout.ConfigPath("init.config")); err == nil {
		initModel = filepath.Join(c.Layout.Dir, "init.raw")
	}
	output := c.Layout.ModelPath(0)
	if c.Layout.AcousticModel {
		output = fmt.Sprintf("- | nnet3-am-init %s - %s", filepath.Join(c.AliDir, "final.mdl"), c.Layout.ModelPath(0))
	}
	command := launcher.Render(c.Commands.Init, launcher.Vars{
		"srand":      strconv.Itoa(srand),
		"init_model": initModel,
		"output":     output,
		"dir":        c.Layout.Dir,
	})
	logging.NewComponentLogger(c.Logger, "nnet").Info("creating initial network",
		logging.String("model", c.Layout.ModelPath(0)),
		logging.Bool("on_init_raw", initModel != ""),
		logging.Int("srand", srand),
	)
	return c.run(ctx, "init", command, c.Layout.LogPath("add_first_layer.log"))
}

// Average averages the accepted candidates of iteration iter into the model
// of iteration iter+1, scaled by shrink when it is set.
func (c Combiner) Average(ctx context.Context, iter int, accepted []int, shrink *float64) error {
	if len(accepted) == 0 {
		return failure.Wrap(failure.ErrStateMissing, "nnet", "average", fmt.Sprintf("no accepted models for iteration %d", iter), nil)
	}
	scale := 1.0
	if shrink != nil {
		scale = *shrink
	}
	next := iter + 1
	var output string
	switch {
	case c.Layout.AcousticModel:
		output = fmt.Sprintf("- | nnet3-am-copy --set-raw-nnet=- --scale=%s %s %s",
			formatScale(scale), c.Layout.ModelPath(iter), c.Layout.ModelPath(next))
	case shrink != nil:
		output = fmt.Sprintf("- | nnet3-copy --scale=%s - %s", formatScale(scale), c.Layout.ModelPath(next))
	default:
		output = c.Layout.ModelPath(next)
	}
	command := launcher.Render(c.Commands.Average, launcher.Vars{
		"models": c.Layout.candidates(next, accepted),
		"output": output,
		"scale":  formatScale(scale),
		"dir":    c.Layout.Dir,
	})
	logging.NewComponentLogger(c.Logger, "nnet").Debug("averaging models",
		logging.Int(logging.FieldIteration, iter),
		logging.Int("accepted", len(accepted)),
		logging.Float64("scale", scale),
	)
	return c.run(ctx, fmt.Sprintf("average.%d", iter), command, c.Layout.LogPath(fmt.Sprintf("average.%d.log", iter)))
}

// Best copies candidate best of iteration iter into the model of iteration
// iter+1. Best-pick never shrinks, so the scale is always 1.0.
func (c Combiner) Best(ctx context.Context, iter, best int) error {
	if best <= 0 {
		return failure.Wrap(failure.ErrStateMissing, "nnet", "best", fmt.Sprintf("invalid best model %d", best), nil)
	}
	next := iter + 1
	output := c.Layout.ModelPath(next)
	if c.Layout.AcousticModel {
		output = fmt.Sprintf("- | nnet3-am-copy --set-raw-nnet=- %s %s", c.Layout.ModelPath(iter), c.Layout.ModelPath(next))
	}
	command := launcher.Render(c.Commands.Select, launcher.Vars{
		"scale":      formatScale(1.0),
		"best_model": c.Layout.CandidatePath(next, best),
		"output":     output,
		"dir":        c.Layout.Dir,
	})
	return c.run(ctx, fmt.Sprintf("select.%d", iter), command, c.Layout.LogPath(fmt.Sprintf("select.%d.log", iter)))
}

// Combine merges the models of the given iterations into the final model.
// finalIter is the last iteration's model number, whose transition model is
// reused when wrapping an acoustic model.
func (c Combiner) Combine(ctx context.Context, iters []int, finalIter int) error {
	if len(iters) == 0 {
		return failure.Wrap(failure.ErrStateMissing, "nnet", "combine", "no models to combine", nil)
	}
	models := make([]string, 0, len(iters))
	for _, iter := range iters {
		if c.Layout.AcousticModel {
			models = append(models, fmt.Sprintf("\"nnet3-am-copy --raw=true %s -|\"", c.Layout.ModelPath(iter)))
			continue
		}
		models = append(models, c.Layout.ModelPath(iter))
	}
	output := c.Layout.FinalPath()
	if c.Layout.AcousticModel {
		output = fmt.Sprintf("- | nnet3-am-copy --set-raw-nnet=- %s %s", c.Layout.ModelPath(finalIter), c.Layout.FinalPath())
	}
	command := launcher.Render(c.Commands.Combine, launcher.Vars{
		"models":  strings.Join(models, " "),
		"output":  output,
		"egs_dir": c.EgsDir,
		"dir":     c.Layout.Dir,
	})
	return c.run(ctx, "combine", command, c.Layout.LogPath("combine.log"))
}

func (c Combiner) run(ctx context.Context, name, command, logPath string) error {
	if c.Launcher == nil {
		return failure.Wrap(failure.ErrConfiguration, "nnet", name, "no launcher configured", nil)
	}
	_, err := c.Launcher.Run(ctx, launcher.Job{Name: name, Command: command, LogPath: logPath})
	return err
}
