// Package selector ranks the candidate models trained in parallel during one
// iteration by the objective value each job logged.
package selector

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"

	"nnetctl/internal/failure"
	"nnetctl/internal/logging"
)

// SentinelObjective stands in for a log without a readable objective, so the
// job ranks as the worst candidate.
const SentinelObjective = -100000.0

var objectivePattern = regexp.MustCompile(`LOG .* Overall average objective function for 'output' is ([0-9e.\-+]+) over ([0-9e.\-+]+) frames`)

// ParseObjective returns the objective from the last matching line.
func ParseObjective(lines []string) (float64, error) {
	for i := len(lines) - 1; i >= 0; i-- {
		match := objectivePattern.FindStringSubmatch(lines[i])
		if match == nil {
			continue
		}
		value, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			return SentinelObjective, failure.Wrap(failure.ErrMeasurement, "selector", "parse objective", fmt.Sprintf("unreadable value %q", match[1]), nil)
		}
		return value, nil
	}
	return SentinelObjective, failure.Wrap(failure.ErrMeasurement, "selector", "parse objective", "no objective line", nil)
}

// LogPath replaces every % in pattern with the 1-based model number.
func LogPath(pattern string, model int) string {
	return strings.ReplaceAll(pattern, "%", strconv.Itoa(model))
}

// Selection is the outcome of ranking the candidates.
type Selection struct {
	// Accepted holds 1-based model numbers within the threshold of the best,
	// ascending.
	Accepted []int
	// Best is the 1-based number of the highest objective, first on ties.
	Best int
	// Objectives holds the per-model objective, index 0 for model 1.
	Objectives []float64
}

// GetSuccessfulModels reads numModels logs named by pattern and accepts every
// model whose objective is within threshold of the best one. An unreadable
// log counts as SentinelObjective.
func GetSuccessfulModels(numModels int, pattern string, threshold float64, logger *slog.Logger) (Selection, error) {
	if numModels <= 0 {
		return Selection{}, failure.Wrap(failure.ErrConfiguration, "selector", "get successful models", fmt.Sprintf("num_models must be positive, got %d", numModels), nil)
	}
	logger = logging.NewComponentLogger(logger, "selector")

	objectives := make([]float64, numModels)
	for i := range numModels {
		path := LogPath(pattern, i+1)
		value, err := readObjective(path)
		if err != nil {
			logging.WarnWithContext(logger, "objective unavailable; model ranked last", "objective_missing",
				logging.String("log", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "inspect the training log for a crash or truncated output"),
				logging.String(logging.FieldImpact, "model excluded unless all models fail"),
			)
		}
		objectives[i] = value
	}
	return Rank(objectives, threshold, pattern, logger), nil
}

// Rank selects from already parsed objectives.
func Rank(objectives []float64, threshold float64, pattern string, logger *slog.Logger) Selection {
	best := 0
	for i, value := range objectives {
		if value > objectives[best] {
			best = i
		}
	}
	sel := Selection{Best: best + 1, Objectives: append([]float64(nil), objectives...)}
	for i, value := range objectives {
		if objectives[best]-value <= threshold {
			sel.Accepted = append(sel.Accepted, i+1)
		}
	}
	if len(sel.Accepted) != len(objectives) {
		logging.WarnWithContext(logger, "not all models accepted for averaging", "models_rejected",
			logging.Int("accepted", len(sel.Accepted)),
			logging.Int("num_models", len(objectives)),
			logging.String("logs", pattern),
			logging.String(logging.FieldImpact, "rejected models are left out of the average"),
			logging.String(logging.FieldErrorHint, "lower the learning rate if rejections persist"),
		)
	}
	return sel
}

func readObjective(path string) (float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return SentinelObjective, failure.Wrap(failure.ErrMeasurement, "selector", "read log", path, err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return SentinelObjective, failure.Wrap(failure.ErrMeasurement, "selector", "read log", path, err)
	}
	return ParseObjective(lines)
}
