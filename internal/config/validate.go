package config

import (
	"errors"
	"fmt"

	"nnetctl/internal/sizespec"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTrainer(); err != nil {
		return err
	}
	if err := c.validateOptimization(); err != nil {
		return err
	}
	if err := c.validateThresholds(); err != nil {
		return err
	}
	if err := c.validatePriors(); err != nil {
		return err
	}
	if err := c.validateCleanup(); err != nil {
		return err
	}
	if err := c.validateLauncher(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTrainer() error {
	if c.Trainer.NumEpochs <= 0 {
		return errors.New("trainer.num_epochs must be positive")
	}
	if c.Trainer.NumHiddenLayers < 0 {
		return errors.New("trainer.num_hidden_layers must not be negative")
	}
	if c.Trainer.AddLayersPeriod <= 0 {
		return errors.New("trainer.add_layers_period must be positive")
	}
	if c.Trainer.MaxParamChange <= 0 {
		return errors.New("trainer.max_param_change must be positive")
	}
	if !sizespec.ValidateMinibatchSizeStr(c.Trainer.MinibatchSize) {
		return fmt.Errorf("trainer.minibatch_size %q is not a valid minibatch-size string", c.Trainer.MinibatchSize)
	}
	return nil
}

func (c *Config) validateOptimization() error {
	if err := ensurePositiveMap(map[string]int{
		"optimization.num_jobs_initial":   c.Optimization.NumJobsInitial,
		"optimization.num_jobs_final":     c.Optimization.NumJobsFinal,
		"optimization.max_models_combine": c.Optimization.MaxModelsCombine,
	}); err != nil {
		return err
	}
	if c.Optimization.NumJobsFinal < c.Optimization.NumJobsInitial {
		return errors.New("optimization.num_jobs_final must be at least optimization.num_jobs_initial")
	}
	if c.Optimization.InitialEffectiveLRate <= 0 || c.Optimization.FinalEffectiveLRate <= 0 {
		return errors.New("optimization learning rates must be positive")
	}
	return nil
}

func (c *Config) validateThresholds() error {
	if c.Shrinkage.SaturationThreshold < 0 || c.Shrinkage.SaturationThreshold > 1 {
		return errors.New("shrinkage.saturation_threshold must be between 0 and 1")
	}
	if c.Shrinkage.Value <= 0 || c.Shrinkage.Value > 1 {
		return errors.New("shrinkage.value must be in (0, 1]")
	}
	if c.Selection.DifferenceThreshold < 0 {
		return errors.New("selection.difference_threshold must not be negative")
	}
	return nil
}

func (c *Config) validatePriors() error {
	if !c.Priors.Enabled {
		return nil
	}
	if c.Paths.AliDir == "" {
		return errors.New("paths.ali_dir must be set when priors.enabled is true")
	}
	if c.Priors.NumJobs <= 0 {
		return errors.New("priors.num_jobs must be positive")
	}
	if c.Priors.Smooth < 0 {
		return errors.New("priors.smooth must not be negative")
	}
	return nil
}

func (c *Config) validateCleanup() error {
	if c.Cleanup.PreserveModelInterval <= 0 {
		return errors.New("cleanup.preserve_model_interval must be positive")
	}
	return nil
}

func (c *Config) validateLauncher() error {
	switch c.Launcher.Kind {
	case "local", "queue":
	default:
		return fmt.Errorf("launcher.kind: unsupported value %q", c.Launcher.Kind)
	}
	if c.Launcher.BackgroundPollingSeconds < 0 {
		return errors.New("launcher.background_polling_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
