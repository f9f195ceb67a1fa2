package trainer

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"nnetctl/internal/config"
	"nnetctl/internal/egs"
	"nnetctl/internal/schedule"
)

// ScheduleParams maps the config sections onto schedule parameters for an
// egs directory with numArchives archives.
func ScheduleParams(cfg *config.Config, numArchives int) schedule.Params {
	return schedule.Params{
		NumEpochs:        cfg.Trainer.NumEpochs,
		NumArchives:      numArchives,
		NumJobsInitial:   cfg.Optimization.NumJobsInitial,
		NumJobsFinal:     cfg.Optimization.NumJobsFinal,
		NumHiddenLayers:  cfg.Trainer.NumHiddenLayers,
		AddLayersPeriod:  cfg.Trainer.AddLayersPeriod,
		MaxModelsCombine: cfg.Optimization.MaxModelsCombine,
		InitialLR:        cfg.Optimization.InitialEffectiveLRate,
		FinalLR:          cfg.Optimization.FinalEffectiveLRate,
		MinibatchSize:    cfg.Trainer.MinibatchSize,
		MaxParamChange:   cfg.Trainer.MaxParamChange,
	}
}

// ApplyConfigVars fills the layer count and the expected model context from
// <exp_dir>/configs/vars when the config leaves them at zero. It returns
// false when the file does not exist.
func ApplyConfigVars(cfg *config.Config) (bool, error) {
	path := filepath.Join(cfg.ConfigsDir(), "vars")
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	vars, err := egs.ParseConfigVars(path)
	if err != nil {
		return false, err
	}
	if cfg.Trainer.NumHiddenLayers == 0 {
		cfg.Trainer.NumHiddenLayers = vars.NumHiddenLayers
	}
	if cfg.Egs.LeftContext == 0 {
		cfg.Egs.LeftContext = vars.ModelLeftContext
	}
	if cfg.Egs.RightContext == 0 {
		cfg.Egs.RightContext = vars.ModelRightContext
	}
	return true, nil
}

// Prepare verifies the egs directory against cfg and builds the schedule.
// It has no side effects beyond reading files and logging warnings.
func (c *Controller) Prepare() (egs.Info, *schedule.Schedule, error) {
	if _, err := ApplyConfigVars(c.cfg); err != nil {
		return egs.Info{}, nil, err
	}
	info, err := egs.Verify(c.cfg.Paths.EgsDir, c.cfg.Egs, c.logger)
	if err != nil {
		return egs.Info{}, nil, err
	}
	sched, err := schedule.Build(ScheduleParams(c.cfg, info.NumArchives))
	if err != nil {
		return info, nil, err
	}
	return info, sched, nil
}
