package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"
)

// ControllerLogPattern matches the files written by NewFromConfig.
const ControllerLogPattern = "nnetctl-*.log"

// RetentionTarget names the files to prune: Pattern is a filepath.Match glob
// inside Dir, and Exclude lists paths that are never removed (usually the
// log of the current run).
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
}

func (t RetentionTarget) pattern() string {
	if t.Pattern == "" {
		return ControllerLogPattern
	}
	return t.Pattern
}

func (t RetentionTarget) excluded(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return slices.ContainsFunc(t.Exclude, func(candidate string) bool {
		if candidate == "" {
			return false
		}
		resolved, err := filepath.Abs(candidate)
		if err != nil {
			resolved = candidate
		}
		return resolved == abs
	})
}

// CleanupOldLogs removes files of the targets last modified more than
// retentionDays ago and returns how many were removed. Zero days disables
// pruning. Failures are logged and skipped.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) int {
	if retentionDays <= 0 {
		return 0
	}
	logger = NewComponentLogger(logger, "log_retention")
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0
	for _, target := range targets {
		if target.Dir == "" {
			continue
		}
		matches, err := filepath.Glob(filepath.Join(target.Dir, target.pattern()))
		if err != nil {
			continue
		}
		for _, path := range matches {
			if target.excluded(path) {
				continue
			}
			info, err := os.Stat(path)
			if err != nil || info.IsDir() || !info.ModTime().Before(cutoff) {
				continue
			}
			if err := os.Remove(path); err != nil {
				WarnWithContext(logger, "failed to prune controller log", "log_retention_failed",
					String("path", path),
					Error(err),
					String(FieldImpact, "old log file remains on disk"),
				)
				continue
			}
			removed++
			logger.Debug("controller log pruned", String("path", path), String(FieldEventType, "log_pruned"))
		}
	}
	return removed
}
