package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"nnetctl/internal/config"
	"nnetctl/internal/logging"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configPath, c.configExists, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}

func (c *commandContext) logLevel() string {
	if c.logLevelFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.logLevelFlag)
}

// stderrLogger is used by the inspection commands so stdout stays parseable.
func (c *commandContext) stderrLogger() *slog.Logger {
	level := c.logLevel()
	format := "console"
	if cfg, err := c.ensureConfig(); err == nil && cfg != nil {
		if level == "" {
			level = cfg.Logging.Level
		}
		format = cfg.Logging.Format
	}
	logger, _, err := logging.New(logging.Options{Level: level, Format: format, Sinks: []string{"stderr"}})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
