// Package shrinkage decides when a model is scaled down before the next
// iteration, based on how saturated its nonlinearities are.
package shrinkage

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"nnetctl/internal/failure"
	"nnetctl/internal/launcher"
	"nnetctl/internal/logging"
)

// ParseSaturation reads the output of the saturation probe. It must hold
// exactly one line with one float in [0,1].
func ParseSaturation(reading string) (float64, error) {
	lines := strings.Split(strings.TrimSpace(reading), "\n")
	if len(lines) != 1 {
		return 0, measurement(reading, fmt.Sprintf("expected one line, got %d", len(lines)))
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(lines[0]), 64)
	if err != nil {
		return 0, measurement(reading, "not a number")
	}
	if value < 0 || value > 1 {
		return 0, measurement(reading, "outside [0,1]")
	}
	return value, nil
}

func measurement(reading, why string) error {
	return failure.Wrap(failure.ErrMeasurement, "shrinkage", "parse saturation", fmt.Sprintf("%s in %q", why, reading), nil)
}

// DoShrinkage reports whether the model of iteration iter should be shrunk.
// Iteration 0 always shrinks and reading is not inspected.
func DoShrinkage(iter int, reading string, threshold float64) (bool, error) {
	if iter == 0 {
		return true, nil
	}
	saturation, err := ParseSaturation(reading)
	if err != nil {
		return false, err
	}
	return saturation > threshold, nil
}

// Prober measures the saturation of a model file.
type Prober interface {
	Saturation(ctx context.Context, modelPath string) (string, error)
}

// CommandProber runs the saturation command template through a launcher.
type CommandProber struct {
	Template      string
	AcousticModel bool
	Launcher      launcher.Launcher
}

// Saturation implements Prober.
func (p CommandProber) Saturation(ctx context.Context, modelPath string) (string, error) {
	info := "nnet3-info"
	if p.AcousticModel {
		info = "nnet3-am-info"
	}
	command := launcher.Render(p.Template, launcher.Vars{"info_binary": info, "model": modelPath})
	return p.Launcher.Output(ctx, command)
}

// Policy turns a shrink decision into the scale applied while averaging.
type Policy struct {
	Threshold float64
	Value     float64
	Prober    Prober
	Logger    *slog.Logger
}

// Scale returns Value when iteration iter should shrink and Value < 1, and
// 1.0 otherwise. With Value >= 1 shrinking is a no-op and the model is not
// probed.
func (p Policy) Scale(ctx context.Context, iter int, modelPath string) (float64, error) {
	if p.Value >= 1 {
		return 1.0, nil
	}
	reading := ""
	if iter != 0 {
		if p.Prober == nil {
			return 0, failure.Wrap(failure.ErrConfiguration, "shrinkage", "scale", "no saturation prober configured", nil)
		}
		out, err := p.Prober.Saturation(ctx, modelPath)
		if err != nil {
			return 0, failure.Wrap(failure.ErrMeasurement, "shrinkage", "probe", modelPath, err)
		}
		reading = out
	}
	shrink, err := DoShrinkage(iter, reading, p.Threshold)
	if err != nil {
		return 0, err
	}
	logger := logging.WithContext(ctx, logging.NewComponentLogger(p.Logger, "shrinkage"))
	if !shrink {
		logger.Debug("shrink skipped", logging.Args(logging.DecisionAttrs("shrink", "skip", "saturation below threshold")...)...)
		return 1.0, nil
	}
	logger.Info("shrinking model",
		logging.Args(append(logging.DecisionAttrs("shrink", "apply", "saturation above threshold"),
			logging.Float64("scale", p.Value),
			logging.String("model", modelPath))...)...)
	return p.Value, nil
}
