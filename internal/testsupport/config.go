// Package testsupport builds configs, fixture files and ledgers for tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"nnetctl/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The experiment lives under <tmp>/exp with its egs in <tmp>/exp/egs and
// alignments in <tmp>/ali.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.ExpDir = filepath.Join(base, "exp")
	cfgVal.Paths.EgsDir = filepath.Join(base, "exp", "egs")
	cfgVal.Paths.AliDir = filepath.Join(base, "ali")
	cfgVal.Paths.LogDir = filepath.Join(base, "exp", "log")
	cfgVal.Egs.FeatDim = 40
	cfgVal.Egs.LeftContext = 16
	cfgVal.Egs.RightContext = 12
	cfgVal.Launcher.BackgroundPollingSeconds = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithJobs overrides the job ramp.
func WithJobs(initial, final int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Optimization.NumJobsInitial = initial
		b.cfg.Optimization.NumJobsFinal = final
	}
}

// WithEpochs overrides the number of epochs.
func WithEpochs(epochs float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Trainer.NumEpochs = epochs
	}
}

// WithRawModel trains bare networks instead of acoustic model containers.
func WithRawModel() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Trainer.AcousticModel = false
	}
}

// WithPriors enables the presoftmax prior computation.
func WithPriors() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Priors.Enabled = true
	}
}

// WithStubbedBinaries puts no-op executables named after the Kaldi tools
// (run.pl when none are given) on PATH for the duration of the test.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"run.pl"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			WriteFile(b.t, filepath.Join(binDir, name), "#!/bin/sh\nexit 0\n")
			if err := os.Chmod(filepath.Join(binDir, name), 0o755); err != nil {
				b.t.Fatalf("chmod stub %s: %v", name, err)
			}
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.ExpDir)
}
