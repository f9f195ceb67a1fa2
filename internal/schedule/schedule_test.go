package schedule_test

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nnetctl/internal/failure"
	"nnetctl/internal/schedule"
)

func TestLearningRateFinalIteration(t *testing.T) {
	for _, processed := range []int{0, 17, 500, 10000} {
		got := schedule.LearningRate(schedule.LRParams{
			Iter:              9,
			NumJobs:           4,
			NumIters:          10,
			ArchivesProcessed: processed,
			ArchivesToProcess: 100,
			Initial:           0.0003,
			Final:             0.00003,
		})
		if got != 4*0.00003 {
			t.Fatalf("final learning rate with %d processed = %g, want %g", processed, got, 4*0.00003)
		}
	}
}

func TestLearningRateInterpolatesLogLinearly(t *testing.T) {
	base := schedule.LRParams{
		Iter:              3,
		NumJobs:           1,
		NumIters:          10,
		ArchivesToProcess: 100,
		Initial:           0.0003,
		Final:             0.00003,
	}
	start := base
	if got := schedule.LearningRate(start); math.Abs(got-0.0003) > 1e-12 {
		t.Fatalf("rate at start = %g, want 0.0003", got)
	}

	mid := base
	mid.ArchivesProcessed = 50
	want := math.Sqrt(0.0003 * 0.00003)
	if got := schedule.LearningRate(mid); math.Abs(got-want) > 1e-12 {
		t.Fatalf("rate at midpoint = %g, want %g", got, want)
	}

	scaled := mid
	scaled.NumJobs = 6
	if got := schedule.LearningRate(scaled); math.Abs(got-6*want) > 1e-12 {
		t.Fatalf("rate with 6 jobs = %g, want %g", got, 6*want)
	}
}

func TestJobRamp(t *testing.T) {
	if got := schedule.JobsForIter(0, 100, 1, 8); got != 1 {
		t.Fatalf("initial jobs = %d, want 1", got)
	}
	if got := schedule.JobsForIter(50, 100, 1, 8); got != 5 {
		t.Fatalf("midpoint jobs = %d, want 5", got)
	}
	if got := schedule.JobsForIter(99, 100, 1, 8); got != 8 {
		t.Fatalf("final jobs = %d, want 8", got)
	}
	if got := schedule.NumIters(160, 2, 4); got != 53 {
		t.Fatalf("NumIters = %d, want 53", got)
	}
	if got := schedule.NumArchivesToProcess(2.5, 40); got != 100 {
		t.Fatalf("NumArchivesToProcess = %d, want 100", got)
	}
}

func TestArchiveForJobWraps(t *testing.T) {
	cases := []struct{ processed, job, archives, want int }{
		{0, 1, 10, 1},
		{0, 3, 10, 3},
		{9, 1, 10, 10},
		{9, 2, 10, 1},
		{25, 4, 10, 9},
	}
	for _, tc := range cases {
		if got := schedule.ArchiveForJob(tc.processed, tc.job, tc.archives); got != tc.want {
			t.Fatalf("ArchiveForJob(%d,%d,%d) = %d, want %d", tc.processed, tc.job, tc.archives, got, tc.want)
		}
	}
}

func TestVerifyIterationsInsufficient(t *testing.T) {
	_, err := schedule.VerifyIterations(schedule.PlanInput{
		NumIters:         8,
		NumHiddenLayers:  3,
		AddLayersPeriod:  2,
		NumArchives:      100,
		NumJobsFinal:     4,
		MaxModelsCombine: 20,
	})
	if !errors.Is(err, failure.ErrInsufficientIterations) {
		t.Fatalf("expected ErrInsufficientIterations, got %v", err)
	}
}

func TestVerifyIterationsTrailingWindow(t *testing.T) {
	plan, err := schedule.VerifyIterations(schedule.PlanInput{
		NumIters:         100,
		NumHiddenLayers:  3,
		AddLayersPeriod:  2,
		NumArchives:      120,
		NumJobsFinal:     8,
		MaxModelsCombine: 20,
	})
	if err != nil {
		t.Fatalf("VerifyIterations returned error: %v", err)
	}
	want := make([]int, 0, 20)
	for iter := 81; iter <= 100; iter++ {
		want = append(want, iter)
	}
	if diff := cmp.Diff(want, plan.ModelsToCombine()); diff != "" {
		t.Fatalf("combine set mismatch (-want +got):\n%s", diff)
	}
	if plan.FinishAddLayersIter() != 6 || plan.SubsampleFactor() != 1 {
		t.Fatalf("unexpected plan metadata: finish=%d factor=%d", plan.FinishAddLayersIter(), plan.SubsampleFactor())
	}
}

func TestVerifyIterationsSubsamplesAndForcesFinal(t *testing.T) {
	plan, err := schedule.VerifyIterations(schedule.PlanInput{
		NumIters:         100,
		NumArchives:      98,
		NumJobsFinal:     1,
		MaxModelsCombine: 20,
	})
	if err != nil {
		t.Fatalf("VerifyIterations returned error: %v", err)
	}
	if plan.SubsampleFactor() != 2 {
		t.Fatalf("subsample factor = %d, want 2", plan.SubsampleFactor())
	}
	want := make([]int, 0, 26)
	for iter := 51; iter <= 99; iter += 2 {
		want = append(want, iter)
	}
	want = append(want, 100)
	if diff := cmp.Diff(want, plan.ModelsToCombine()); diff != "" {
		t.Fatalf("combine set mismatch (-want +got):\n%s", diff)
	}
	if !plan.Contains(100) || plan.Contains(100-2) {
		t.Fatal("expected final iteration forced into the set and stride respected")
	}
}

func TestVerifyIterationsProperties(t *testing.T) {
	for numIters := 3; numIters <= 300; numIters += 7 {
		for _, maxCombine := range []int{1, 3, 20} {
			for _, archives := range []int{1, 16, 400} {
				in := schedule.PlanInput{
					NumIters:         numIters,
					NumHiddenLayers:  0,
					AddLayersPeriod:  2,
					NumArchives:      archives,
					NumJobsFinal:     2,
					MaxModelsCombine: maxCombine,
				}
				plan, err := schedule.VerifyIterations(in)
				if err != nil {
					t.Fatalf("VerifyIterations(%+v) returned error: %v", in, err)
				}
				models := plan.ModelsToCombine()
				if len(models) == 0 {
					t.Fatalf("empty combine set for %+v", in)
				}
				if models[len(models)-1] != numIters {
					t.Fatalf("max element %d != num_iters %d for %+v", models[len(models)-1], numIters, in)
				}
				for _, iter := range models {
					if iter < 1 || iter > numIters {
						t.Fatalf("iteration %d out of range for %+v", iter, in)
					}
				}
				if want := expectedCombineSize(in); len(models) != want {
					t.Fatalf("len(models) = %d, want %d for %+v (factor %d)", len(models), want, in, plan.SubsampleFactor())
				}
			}
		}
	}
}

// expectedCombineSize is the combine-set size implied by the window rules. A
// subsampled window of width c with stride f yields ceil(c/f) models, plus
// the final iteration when the stride steps over it.
func expectedCombineSize(in schedule.PlanInput) int {
	half := (in.NumIters - in.NumHiddenLayers*in.AddLayersPeriod) / 2
	window := min(in.NumArchives/in.NumJobsFinal/2+1, half)
	if window <= in.MaxModelsCombine {
		return min(in.MaxModelsCombine, half)
	}
	factor := window / in.MaxModelsCombine
	size := (window + factor - 1) / factor
	if (window-1)%factor != 0 {
		size++
	}
	return size
}

func TestVerifyIterationsForcesFinalIteration(t *testing.T) {
	// 400 archives over 2 final jobs gives a window of min(101, 100) = 100
	// iterations; 100/3 = 33 is the stride, which lands on 101, 134, 167 and
	// 200 from 101 and so reaches the final iteration on its own.
	in := schedule.PlanInput{NumIters: 200, AddLayersPeriod: 2, NumArchives: 400, NumJobsFinal: 2, MaxModelsCombine: 3}
	plan, err := schedule.VerifyIterations(in)
	if err != nil {
		t.Fatalf("VerifyIterations returned error: %v", err)
	}
	if diff := cmp.Diff([]int{101, 134, 167, 200}, plan.ModelsToCombine()); diff != "" {
		t.Fatalf("models mismatch (-want +got):\n%s", diff)
	}

	// A 20 iteration window over stride 6 stops at 199 and needs 200 added.
	in = schedule.PlanInput{NumIters: 200, AddLayersPeriod: 2, NumArchives: 76, NumJobsFinal: 2, MaxModelsCombine: 3}
	plan, err = schedule.VerifyIterations(in)
	if err != nil {
		t.Fatalf("VerifyIterations returned error: %v", err)
	}
	if diff := cmp.Diff([]int{181, 187, 193, 199, 200}, plan.ModelsToCombine()); diff != "" {
		t.Fatalf("models mismatch (-want +got):\n%s", diff)
	}
}

func TestNilPlanContainsNothing(t *testing.T) {
	var plan *schedule.Plan
	if plan.Contains(1) {
		t.Fatal("nil plan should contain nothing")
	}
}

func TestBuild(t *testing.T) {
	sched, err := schedule.Build(schedule.Params{
		NumEpochs:        2,
		NumArchives:      80,
		NumJobsInitial:   2,
		NumJobsFinal:     4,
		NumHiddenLayers:  2,
		AddLayersPeriod:  2,
		MaxModelsCombine: 10,
		InitialLR:        0.0003,
		FinalLR:          0.00003,
		MinibatchSize:    "256",
		MaxParamChange:   2.0,
	})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if sched.NumIters != 53 || len(sched.Steps) != 53 {
		t.Fatalf("unexpected iteration count %d (%d steps)", sched.NumIters, len(sched.Steps))
	}
	if sched.ArchivesToProcess != 160 {
		t.Fatalf("archives to process = %d, want 160", sched.ArchivesToProcess)
	}

	first := sched.Steps[0]
	if first.Average || first.MinibatchSize != "128" || math.Abs(first.MaxParamChange-2/math.Sqrt2) > 1e-12 {
		t.Fatalf("first step should be a halved best-pick, got %+v", first)
	}
	if !sched.Steps[1].Average || sched.Steps[1].MinibatchSize != "256" {
		t.Fatalf("second step should average at full size, got %+v", sched.Steps[1])
	}
	if sched.Steps[2].Average {
		t.Fatalf("layer-add iteration 2 should pick the best model, got %+v", sched.Steps[2])
	}
	if !sched.Steps[4].Average {
		t.Fatalf("iteration 4 is past layer growth and should average, got %+v", sched.Steps[4])
	}
	if sched.Steps[1].ArchivesProcessed != sched.Steps[0].NumJobs {
		t.Fatalf("archives processed should accumulate job counts, got %+v", sched.Steps[1])
	}

	last := sched.Steps[52]
	if !last.Combine || last.LearningRate != float64(last.NumJobs)*0.00003 {
		t.Fatalf("unexpected final step %+v", last)
	}
	if sched.Steps[41].Combine || !sched.Steps[42].Combine {
		t.Fatalf("combine flags should mark models 43..53")
	}
}

func TestBuildRejectsBadMinibatch(t *testing.T) {
	_, err := schedule.Build(schedule.Params{
		NumEpochs:        1,
		NumArchives:      10,
		NumJobsInitial:   1,
		NumJobsFinal:     1,
		MaxModelsCombine: 2,
		InitialLR:        0.1,
		FinalLR:          0.01,
		MinibatchSize:    "128=64/256",
	})
	if !errors.Is(err, failure.ErrInvalidSpec) {
		t.Fatalf("expected ErrInvalidSpec, got %v", err)
	}
}
