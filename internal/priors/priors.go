// Package priors computes the presoftmax prior scale vector that rescales the
// output layer by smoothed inverse class frequencies.
package priors

import (
	"fmt"
	"math"

	"nnetctl/internal/failure"
)

// SmoothScaleVector maps raw per-class counts to scales with mean 1:
// raw[i] = (counts[i] + smooth*avg)^power and scale[i] = raw[i]*n/sum(raw).
func SmoothScaleVector(counts []float64, power, smooth float64) ([]float64, error) {
	if len(counts) == 0 {
		return nil, failure.Wrap(failure.ErrStateMissing, "priors", "smooth", "empty count vector", nil)
	}
	var total float64
	for _, c := range counts {
		total += c
	}
	average := total / float64(len(counts))

	raw := make([]float64, len(counts))
	var rawSum float64
	for i, c := range counts {
		raw[i] = math.Pow(c+smooth*average, power)
		rawSum += raw[i]
	}
	if rawSum == 0 || math.IsInf(rawSum, 0) || math.IsNaN(rawSum) {
		return nil, failure.Wrap(failure.ErrStateMissing, "priors", "smooth", fmt.Sprintf("degenerate scale sum %v", rawSum), nil)
	}

	n := float64(len(counts))
	scales := make([]float64, len(counts))
	for i, r := range raw {
		scales[i] = r * n / rawSum
	}
	return scales, nil
}
