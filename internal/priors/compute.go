package priors

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"nnetctl/internal/config"
	"nnetctl/internal/failure"
	"nnetctl/internal/fileutil"
	"nnetctl/internal/launcher"
	"nnetctl/internal/logging"
)

// ScaleFile is the name of the output vector inside the experiment directory.
const ScaleFile = "presoftmax_prior_scale.vec"

// ComputeInput names the directories of one prior computation.
type ComputeInput struct {
	Dir     string
	AliDir  string
	NumJobs int
}

// Computer accumulates alignment counts through the launcher and writes the
// smoothed scale vector.
type Computer struct {
	Commands config.Commands
	Power    float64
	Smooth   float64
	Launcher launcher.Launcher
	Logger   *slog.Logger
}

// Compute runs count accumulation over JOB=1:NumJobs, sums the partial
// counts, smooths them and links configs/presoftmax_prior_scale.vec to the
// result.
func (c Computer) Compute(ctx context.Context, in ComputeInput) ([]float64, error) {
	if in.NumJobs <= 0 {
		return nil, failure.Wrap(failure.ErrConfiguration, "priors", "compute", fmt.Sprintf("num_jobs must be positive, got %d", in.NumJobs), nil)
	}
	logger := logging.NewComponentLogger(c.Logger, "priors")
	vars := launcher.Vars{"dir": in.Dir, "ali_dir": in.AliDir}

	acc := launcher.Job{
		Name:    "acc_pdf",
		Command: launcher.Render(c.Commands.AccPriors, vars),
		LogPath: filepath.Join(in.Dir, "log", "acc_pdf.JOB.log"),
		Range:   &launcher.Range{Lo: 1, Hi: in.NumJobs},
	}
	if _, err := c.Launcher.Run(ctx, acc); err != nil {
		return nil, err
	}
	sum := launcher.Job{
		Name:    "sum_pdf_counts",
		Command: launcher.Render(c.Commands.SumPriors, vars),
		LogPath: filepath.Join(in.Dir, "log", "sum_pdf_counts.log"),
	}
	if _, err := c.Launcher.Run(ctx, sum); err != nil {
		return nil, err
	}

	partials, err := filepath.Glob(filepath.Join(in.Dir, "pdf_counts.*"))
	if err != nil {
		return nil, failure.Wrap(failure.ErrStateMissing, "priors", "compute", "list partial counts", err)
	}
	for _, path := range partials {
		if _, err := fileutil.RemoveIfExists(path); err != nil {
			return nil, failure.Wrap(failure.ErrStateMissing, "priors", "compute", "remove partial counts", err)
		}
	}

	counts, err := ReadVector(filepath.Join(in.Dir, "pdf_counts"))
	if err != nil {
		return nil, err
	}
	scales, err := SmoothScaleVector(counts, c.Power, c.Smooth)
	if err != nil {
		return nil, err
	}

	output := filepath.Join(in.Dir, ScaleFile)
	file, err := os.Create(output)
	if err != nil {
		return nil, failure.Wrap(failure.ErrStateMissing, "priors", "compute", "create scale file", err)
	}
	if err := WriteVector(file, scales); err != nil {
		file.Close()
		return nil, failure.Wrap(failure.ErrStateMissing, "priors", "compute", "write scale file", err)
	}
	if err := file.Close(); err != nil {
		return nil, failure.Wrap(failure.ErrStateMissing, "priors", "compute", "close scale file", err)
	}
	if err := fileutil.ForceSymlink("../"+ScaleFile, filepath.Join(in.Dir, "configs", ScaleFile)); err != nil {
		return nil, failure.Wrap(failure.ErrStateMissing, "priors", "compute", "link scale file", err)
	}

	logger.Info("presoftmax prior scale written",
		logging.String("path", output),
		logging.Int("num_pdfs", len(scales)),
		logging.String(logging.FieldEventType, "priors_written"),
	)
	return scales, nil
}
