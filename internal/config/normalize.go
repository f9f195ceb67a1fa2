package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTrainer()
	c.normalizeLauncher()
	c.normalizeCommands()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ExpDir) == "" {
		c.Paths.ExpDir = defaultExpDir
	}
	if c.Paths.ExpDir, err = expandPath(strings.TrimSpace(c.Paths.ExpDir)); err != nil {
		return fmt.Errorf("paths.exp_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.EgsDir) == "" {
		c.Paths.EgsDir = filepath.Join(c.Paths.ExpDir, "egs")
	}
	if c.Paths.EgsDir, err = expandPath(strings.TrimSpace(c.Paths.EgsDir)); err != nil {
		return fmt.Errorf("paths.egs_dir: %w", err)
	}
	if c.Paths.AliDir, err = expandPath(strings.TrimSpace(c.Paths.AliDir)); err != nil {
		return fmt.Errorf("paths.ali_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.ExpDir, "log")
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTrainer() {
	c.Trainer.MinibatchSize = strings.TrimSpace(c.Trainer.MinibatchSize)
	if c.Trainer.MinibatchSize == "" {
		c.Trainer.MinibatchSize = defaultMinibatchSize
	}
	c.Egs.IvectorExtractorID = strings.TrimSpace(c.Egs.IvectorExtractorID)
}

func (c *Config) normalizeLauncher() {
	c.Launcher.Kind = strings.ToLower(strings.TrimSpace(c.Launcher.Kind))
	if c.Launcher.Kind == "" {
		c.Launcher.Kind = defaultLauncherKind
	}
	c.Launcher.Script = strings.TrimSpace(c.Launcher.Script)
	if value, ok := os.LookupEnv("NNETCTL_CMD"); ok && strings.TrimSpace(value) != "" {
		c.Launcher.Script = strings.TrimSpace(value)
		c.Launcher.Kind = "queue"
	}
	if c.Launcher.Script == "" {
		c.Launcher.Script = defaultLauncherScript
	}
	c.Launcher.Options = strings.TrimSpace(c.Launcher.Options)
	if c.Launcher.BackgroundPollingSeconds == 0 {
		c.Launcher.BackgroundPollingSeconds = defaultBackgroundPollingSeconds
	}
}

func (c *Config) normalizeCommands() {
	defaults := Default().Commands
	fill := func(value *string, fallback string) {
		*value = strings.TrimSpace(*value)
		if *value == "" {
			*value = fallback
		}
	}
	fill(&c.Commands.Init, defaults.Init)
	fill(&c.Commands.Train, defaults.Train)
	fill(&c.Commands.Average, defaults.Average)
	fill(&c.Commands.Select, defaults.Select)
	fill(&c.Commands.Combine, defaults.Combine)
	fill(&c.Commands.Saturation, defaults.Saturation)
	fill(&c.Commands.ComputeProb, defaults.ComputeProb)
	fill(&c.Commands.AccPriors, defaults.AccPriors)
	fill(&c.Commands.SumPriors, defaults.SumPriors)
	fill(&c.Commands.RemoveEgs, defaults.RemoveEgs)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
