// Package deps reports whether the external programs named by the command
// templates can be found on PATH.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external program the controller launches.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is a Requirement together with the lookup outcome.
type Status struct {
	Requirement
	Available bool
	Detail    string
}

// TemplateBinary returns the program a command template starts with, or ""
// when the template begins with a placeholder or is empty.
func TemplateBinary(template string) string {
	fields := strings.Fields(template)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "{") {
		return ""
	}
	return fields[0]
}

// CheckBinaries looks each requirement up on PATH. Requirements that share
// a command are reported once, under the first name that asked for it.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	seen := make(map[string]bool, len(requirements))
	for _, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		req.Description = strings.TrimSpace(req.Description)
		if req.Command != "" {
			if seen[req.Command] {
				continue
			}
			seen[req.Command] = true
		}
		results = append(results, lookup(req))
	}
	return results
}

func lookup(req Requirement) Status {
	status := Status{Requirement: req}
	if req.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	if _, err := exec.LookPath(req.Command); err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", req.Command)
		return status
	}
	status.Available = true
	return status
}

// Missing returns the required (non-optional) dependencies that are unavailable.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			out = append(out, s)
		}
	}
	return out
}
