package schedule

import (
	"fmt"
	"slices"

	"nnetctl/internal/failure"
)

// PlanInput holds the run-wide constants the iteration planner needs.
type PlanInput struct {
	NumIters         int
	NumHiddenLayers  int
	AddLayersPeriod  int
	NumArchives      int
	NumJobsFinal     int
	MaxModelsCombine int
}

// Plan is the immutable result of VerifyIterations.
type Plan struct {
	numIters            int
	finishAddLayersIter int
	subsampleFactor     int
	models              []int
	index               map[int]struct{}
}

// VerifyIterations checks that there is room for useful training after the
// layer-wise growth phase and returns the set of 1-based iterations whose
// models take part in the final combination.
//
// The combine window targets half an epoch at the final job count, capped by
// half of the post-growth iterations. A window wider than MaxModelsCombine
// is subsampled with a fixed stride, and the final iteration is always a
// member.
func VerifyIterations(in PlanInput) (*Plan, error) {
	finishAddLayersIter := in.NumHiddenLayers * in.AddLayersPeriod
	if in.NumIters <= finishAddLayersIter+2 {
		return nil, failure.Wrap(failure.ErrInsufficientIterations, "planner", "verify iterations",
			fmt.Sprintf("%d iterations do not leave room after layer growth ends at iteration %d", in.NumIters, finishAddLayersIter), nil)
	}
	if in.NumJobsFinal <= 0 {
		return nil, failure.Wrap(failure.ErrConfiguration, "planner", "verify iterations", "num_jobs_final must be positive", nil)
	}
	if in.MaxModelsCombine <= 0 {
		return nil, failure.Wrap(failure.ErrConfiguration, "planner", "verify iterations", "max_models_combine must be positive", nil)
	}

	halfItersAfterAddLayers := (in.NumIters - finishAddLayersIter) / 2
	approxItersPerEpochFinal := in.NumArchives / in.NumJobsFinal
	combineInitial := min(approxItersPerEpochFinal/2+1, halfItersAfterAddLayers)

	plan := &Plan{
		numIters:            in.NumIters,
		finishAddLayersIter: finishAddLayersIter,
		subsampleFactor:     1,
		index:               make(map[int]struct{}),
	}
	if combineInitial > in.MaxModelsCombine {
		plan.subsampleFactor = combineInitial / in.MaxModelsCombine
		for iter := in.NumIters - combineInitial + 1; iter <= in.NumIters; iter += plan.subsampleFactor {
			plan.add(iter)
		}
		plan.add(in.NumIters)
	} else {
		combine := min(in.MaxModelsCombine, halfItersAfterAddLayers)
		for iter := in.NumIters - combine + 1; iter <= in.NumIters; iter++ {
			plan.add(iter)
		}
	}
	slices.Sort(plan.models)
	return plan, nil
}

func (p *Plan) add(iter int) {
	if _, ok := p.index[iter]; ok {
		return
	}
	p.index[iter] = struct{}{}
	p.models = append(p.models, iter)
}

// NumIters returns the iteration count the plan was built for.
func (p *Plan) NumIters() int { return p.numIters }

// FinishAddLayersIter is the iteration at which layer-wise growth ends.
func (p *Plan) FinishAddLayersIter() int { return p.finishAddLayersIter }

// SubsampleFactor is the stride used over the combine window (1 when the
// window was not subsampled).
func (p *Plan) SubsampleFactor() int { return p.subsampleFactor }

// ModelsToCombine returns the combine set in ascending order.
func (p *Plan) ModelsToCombine() []int {
	return slices.Clone(p.models)
}

// Contains reports whether iter is in the combine set. A nil plan contains
// nothing.
func (p *Plan) Contains(iter int) bool {
	if p == nil {
		return false
	}
	_, ok := p.index[iter]
	return ok
}
