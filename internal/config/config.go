package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the experiment directory layout.
type Paths struct {
	ExpDir string `toml:"exp_dir"`
	EgsDir string `toml:"egs_dir"`
	AliDir string `toml:"ali_dir"`
	LogDir string `toml:"log_dir"`
}

// Egs contains the expected properties of the training examples.
type Egs struct {
	FeatDim            int    `toml:"feat_dim"`
	IvectorDim         int    `toml:"ivector_dim"`
	IvectorExtractorID string `toml:"ivector_extractor_id"`
	LeftContext        int    `toml:"left_context"`
	RightContext       int    `toml:"right_context"`
	LeftContextInitial int    `toml:"left_context_initial"`
	RightContextFinal  int    `toml:"right_context_final"`
}

// Trainer contains model-level training options.
type Trainer struct {
	NumEpochs       float64 `toml:"num_epochs"`
	NumHiddenLayers int     `toml:"num_hidden_layers"`
	AddLayersPeriod int     `toml:"add_layers_period"`
	MaxParamChange  float64 `toml:"max_param_change"`
	MinibatchSize   string  `toml:"minibatch_size"`
	// AcousticModel selects <iter>.mdl files wrapping a transition model
	// instead of bare <iter>.raw networks.
	AcousticModel bool `toml:"acoustic_model"`
	Stage         int  `toml:"stage"`
	ExitStage     int  `toml:"exit_stage"`
	// Srand seeds nnet3-init when the first network is created.
	Srand         int  `toml:"srand"`
}

// Optimization contains the learning-rate schedule and the job ramp.
type Optimization struct {
	InitialEffectiveLRate float64 `toml:"initial_effective_lrate"`
	FinalEffectiveLRate   float64 `toml:"final_effective_lrate"`
	NumJobsInitial        int     `toml:"num_jobs_initial"`
	NumJobsFinal          int     `toml:"num_jobs_final"`
	MaxModelsCombine      int     `toml:"max_models_combine"`
}

// Shrinkage contains the saturation-driven shrink settings.
type Shrinkage struct {
	SaturationThreshold float64 `toml:"saturation_threshold"`
	Value               float64 `toml:"value"`
}

// Selection contains candidate model acceptance settings.
type Selection struct {
	DifferenceThreshold float64 `toml:"difference_threshold"`
}

// Priors contains presoftmax prior scale settings.
type Priors struct {
	Enabled bool    `toml:"enabled"`
	Power   float64 `toml:"power"`
	Smooth  float64 `toml:"smooth"`
	NumJobs int     `toml:"num_jobs"`
}

// Cleanup contains the model retention policy.
type Cleanup struct {
	Enabled               bool `toml:"enabled"`
	RemoveEgs             bool `toml:"remove_egs"`
	PreserveModelInterval int  `toml:"preserve_model_interval"`
}

// Launcher contains job dispatch settings.
type Launcher struct {
	// Kind is "local" (run sub-jobs in-process through sh) or "queue"
	// (hand each job to Script, e.g. queue.pl or run.pl).
	Kind                     string `toml:"kind"`
	Script                   string `toml:"script"`
	Options                  string `toml:"options"`
	BackgroundPollingSeconds int    `toml:"background_polling_seconds"`
}

// Commands contains the templates for the external binaries. Placeholders
// use {name} syntax and are filled by the controller.
type Commands struct {
	Init        string `toml:"init"`
	Train       string `toml:"train"`
	Average     string `toml:"average"`
	Select      string `toml:"select"`
	Combine     string `toml:"combine"`
	Saturation  string `toml:"saturation"`
	ComputeProb string `toml:"compute_prob"`
	AccPriors   string `toml:"acc_priors"`
	SumPriors   string `toml:"sum_priors"`
	RemoveEgs   string `toml:"remove_egs"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for nnetctl.
//
// Configuration sections by subsystem:
//   - Paths: experiment, egs, alignment and log directories
//   - Egs: expected egs dimensions and context
//   - Trainer: epochs, layer growth, minibatch size, model flavour, stages
//   - Optimization: learning-rate schedule and job ramp
//   - Shrinkage: saturation threshold and shrink value
//   - Selection: candidate acceptance threshold
//   - Priors: presoftmax prior smoothing
//   - Cleanup: model retention
//   - Launcher: job dispatch and background polling
//   - Commands: external command templates
//   - Logging: log format, level, and retention
type Config struct {
	Paths        Paths        `toml:"paths"`
	Egs          Egs          `toml:"egs"`
	Trainer      Trainer      `toml:"trainer"`
	Optimization Optimization `toml:"optimization"`
	Shrinkage    Shrinkage    `toml:"shrinkage"`
	Selection    Selection    `toml:"selection"`
	Priors       Priors       `toml:"priors"`
	Cleanup      Cleanup      `toml:"cleanup"`
	Launcher     Launcher     `toml:"launcher"`
	Commands     Commands     `toml:"commands"`
	Logging      Logging      `toml:"logging"`
}

// DefaultConfigPath is ~/.config/nnetctl/config.toml, expanded.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/nnetctl/config.toml")
}

// Load reads the configuration at path, or at the first existing default
// location when path is empty, on top of Default. It returns the config
// after normalize and Validate, together with the file it came from and
// whether that file existed. Without any file the defaults are used.
func Load(path string) (*Config, string, bool, error) {
	source, exists, err := locate(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		if err := decodeFile(source, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, source, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func isFile(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("stat config: %w", err)
	case info.IsDir():
		return false, fmt.Errorf("config path %s is a directory", path)
	}
	return true, nil
}

// locate resolves an explicit path, which must exist, or checks the user
// config and then ./nnetctl.toml.
func locate(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		ok, err := isFile(expanded)
		if err != nil {
			return "", false, err
		}
		if !ok {
			return "", false, fmt.Errorf("config file %s not found", expanded)
		}
		return expanded, true, nil
	}

	userPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := expandPath("nnetctl.toml")
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{userPath, projectPath} {
		if ok, _ := isFile(candidate); ok {
			return candidate, true, nil
		}
	}
	return userPath, false, nil
}

// EnsureDirectories creates the experiment directory and its log and configs
// subdirectories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ExpDir, c.Paths.LogDir, c.ConfigsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ConfigsDir is the experiment's configs directory.
func (c *Config) ConfigsDir() string {
	return filepath.Join(c.Paths.ExpDir, "configs")
}

// LedgerPath is the run ledger database inside the experiment directory.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.ExpDir, "nnetctl.db")
}

// LockPath is the controller lock file inside the experiment directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.ExpDir, "nnetctl.lock")
}

// expandPath resolves a leading ~ to the home directory and makes the
// result absolute. The empty string stays empty.
func expandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, strings.TrimPrefix(value, "~"))
	}
	absolute, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", value, err)
	}
	return absolute, nil
}

// ExpandPath applies the same expansion Load uses for path fields.
func ExpandPath(value string) (string, error) {
	return expandPath(value)
}

// CreateSample writes the annotated sample configuration to path.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
