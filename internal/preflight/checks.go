package preflight

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"nnetctl/internal/config"
	"nnetctl/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

// CheckReadable verifies that the directory exists and can be listed.
func CheckReadable(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.X_OK, "read ok")
}

func checkDirectory(name, path string, mode uint32, okDetail string) Result {
	if path == "" {
		return Result{Name: name, Detail: "path not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, okDetail)}
}

type templateRequirement struct {
	name     string
	template string
	optional bool
}

// CheckSystemDeps checks the shell, the queue script and the leading program
// of every command template the run will use.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{Name: "sh", Command: "sh", Description: "Runs local jobs and probes"},
	}
	if cfg.Launcher.Kind == "queue" {
		requirements = append(requirements, deps.Requirement{
			Name:        "Launcher script",
			Command:     cfg.Launcher.Script,
			Description: "Dispatches jobs to the grid",
		})
	}
	templates := []templateRequirement{
		{"Init", cfg.Commands.Init, true},
		{"Train", cfg.Commands.Train, false},
		{"Average", cfg.Commands.Average, false},
		{"Select", cfg.Commands.Select, false},
		{"Combine", cfg.Commands.Combine, false},
		{"Compute prob", cfg.Commands.ComputeProb, true},
		{"Remove egs", cfg.Commands.RemoveEgs, !cfg.Cleanup.RemoveEgs},
	}
	if cfg.Priors.Enabled {
		templates = append(templates,
			templateRequirement{"Accumulate priors", cfg.Commands.AccPriors, false},
			templateRequirement{"Sum priors", cfg.Commands.SumPriors, false},
		)
	}
	for _, tpl := range templates {
		binary := deps.TemplateBinary(tpl.template)
		if binary == "" {
			continue
		}
		requirements = append(requirements, deps.Requirement{
			Name:        tpl.name,
			Command:     binary,
			Description: fmt.Sprintf("Used by the %s command template", tpl.name),
			Optional:    tpl.optional,
		})
	}
	return deps.CheckBinaries(requirements)
}
