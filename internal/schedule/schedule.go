package schedule

import (
	"fmt"
	"math"

	"nnetctl/internal/failure"
	"nnetctl/internal/sizespec"
)

// Params describes a training run in terms of the quantities the schedule
// derives everything else from.
type Params struct {
	NumEpochs        float64
	NumArchives      int
	NumJobsInitial   int
	NumJobsFinal     int
	NumHiddenLayers  int
	AddLayersPeriod  int
	MaxModelsCombine int
	InitialLR        float64
	FinalLR          float64
	MinibatchSize    string
	MaxParamChange   float64
}

// Step is the schedule for a single iteration. Iteration iter trains from
// model iter and produces model iter+1; Combine marks that output model as a
// member of the final combination.
type Step struct {
	Iter              int     `json:"iter" yaml:"iter"`
	NumJobs           int     `json:"num_jobs" yaml:"num_jobs"`
	LearningRate      float64 `json:"learning_rate" yaml:"learning_rate"`
	ArchivesProcessed int     `json:"archives_processed" yaml:"archives_processed"`
	Average           bool    `json:"average" yaml:"average"`
	MinibatchSize     string  `json:"minibatch_size" yaml:"minibatch_size"`
	MaxParamChange    float64 `json:"max_param_change" yaml:"max_param_change"`
	Combine           bool    `json:"combine" yaml:"combine"`
}

// Schedule is the full iteration table plus the combine plan.
type Schedule struct {
	NumIters          int
	NumArchives       int
	ArchivesToProcess int
	Plan              *Plan
	Steps             []Step
}

// Build validates p and computes the schedule for every iteration.
func Build(p Params) (*Schedule, error) {
	if p.NumJobsInitial <= 0 || p.NumJobsFinal < p.NumJobsInitial {
		return nil, failure.Wrap(failure.ErrConfiguration, "schedule", "build",
			fmt.Sprintf("invalid job ramp %d -> %d", p.NumJobsInitial, p.NumJobsFinal), nil)
	}
	if p.InitialLR <= 0 || p.FinalLR <= 0 {
		return nil, failure.Wrap(failure.ErrConfiguration, "schedule", "build", "learning rates must be positive", nil)
	}
	if p.NumArchives <= 0 {
		return nil, failure.Wrap(failure.ErrConfiguration, "schedule", "build", "num_archives must be positive", nil)
	}
	minibatch, err := sizespec.ParseMinibatchSize(p.MinibatchSize)
	if err != nil {
		return nil, err
	}
	halved := minibatch.Halve().String()

	toProcess := NumArchivesToProcess(p.NumEpochs, p.NumArchives)
	numIters := NumIters(toProcess, p.NumJobsInitial, p.NumJobsFinal)
	plan, err := VerifyIterations(PlanInput{
		NumIters:         numIters,
		NumHiddenLayers:  p.NumHiddenLayers,
		AddLayersPeriod:  p.AddLayersPeriod,
		NumArchives:      p.NumArchives,
		NumJobsFinal:     p.NumJobsFinal,
		MaxModelsCombine: p.MaxModelsCombine,
	})
	if err != nil {
		return nil, err
	}

	steps := make([]Step, 0, numIters)
	processed := 0
	for iter := 0; iter < numIters; iter++ {
		jobs := JobsForIter(iter, numIters, p.NumJobsInitial, p.NumJobsFinal)
		step := Step{
			Iter:    iter,
			NumJobs: jobs,
			LearningRate: LearningRate(LRParams{
				Iter:              iter,
				NumJobs:           jobs,
				NumIters:          numIters,
				ArchivesProcessed: processed,
				ArchivesToProcess: toProcess,
				Initial:           p.InitialLR,
				Final:             p.FinalLR,
			}),
			ArchivesProcessed: processed,
			Average:           Averages(iter, p.NumHiddenLayers, p.AddLayersPeriod),
			MinibatchSize:     minibatch.String(),
			MaxParamChange:    p.MaxParamChange,
			Combine:           plan.Contains(iter + 1),
		}
		if !step.Average {
			step.MinibatchSize = halved
			step.MaxParamChange = p.MaxParamChange / math.Sqrt2
		}
		steps = append(steps, step)
		processed += jobs
	}

	return &Schedule{
		NumIters:          numIters,
		NumArchives:       p.NumArchives,
		ArchivesToProcess: toProcess,
		Plan:              plan,
		Steps:             steps,
	}, nil
}

// Averages reports whether iteration iter averages its parallel candidates.
// The first iteration and the iterations that add a hidden layer pick the
// best candidate instead.
func Averages(iter, numHiddenLayers, addLayersPeriod int) bool {
	if iter == 0 {
		return false
	}
	if addLayersPeriod > 0 && iter <= (numHiddenLayers-1)*addLayersPeriod && iter%addLayersPeriod == 0 {
		return false
	}
	return true
}

// Step returns the step for iter.
func (s *Schedule) Step(iter int) (Step, bool) {
	if iter < 0 || iter >= len(s.Steps) {
		return Step{}, false
	}
	return s.Steps[iter], true
}
