package preflight

import (
	"nnetctl/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the filesystem checks that apply to cfg.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Experiment directory", cfg.Paths.ExpDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckReadable("Egs directory", cfg.Paths.EgsDir),
	}
	if cfg.Priors.Enabled {
		results = append(results, CheckReadable("Alignment directory", cfg.Paths.AliDir))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
