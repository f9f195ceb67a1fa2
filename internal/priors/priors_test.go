package priors

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"nnetctl/internal/config"
	"nnetctl/internal/launcher"
	"nnetctl/internal/launcher/launchertest"
	"nnetctl/internal/logging"
)

func TestSmoothScaleVectorUniform(t *testing.T) {
	scales, err := SmoothScaleVector([]float64{10, 10, 10}, -0.25, 0.01)
	if err != nil {
		t.Fatalf("SmoothScaleVector returned error: %v", err)
	}
	want := []float64{1, 1, 1}
	if diff := cmp.Diff(want, scales, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Fatalf("scales mismatch (-want +got):\n%s", diff)
	}
}

func TestSmoothScaleVectorMeanOne(t *testing.T) {
	scales, err := SmoothScaleVector([]float64{1, 100, 1000, 0}, -0.25, 0.01)
	if err != nil {
		t.Fatalf("SmoothScaleVector returned error: %v", err)
	}
	var sum float64
	for _, s := range scales {
		sum += s
	}
	if math.Abs(sum-4) > 1e-9 {
		t.Fatalf("sum = %v, want 4", sum)
	}
	if !(scales[3] > scales[0] && scales[0] > scales[1] && scales[1] > scales[2]) {
		t.Fatalf("rarer classes should get larger scales: %v", scales)
	}
}

func TestSmoothScaleVectorEmpty(t *testing.T) {
	if _, err := SmoothScaleVector(nil, -0.25, 0.01); err == nil {
		t.Fatal("expected error for empty counts")
	}
}

func TestVectorRoundTripFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteVector(&buf, []float64{0.5, 1, 2.25}); err != nil {
		t.Fatalf("WriteVector returned error: %v", err)
	}
	if buf.String() != "[ 0.5 1 2.25 ]\n" {
		t.Fatalf("unexpected text %q", buf.String())
	}
	got, err := ParseVector(" [ 3 4\n 5 6 ]\n")
	if err != nil {
		t.Fatalf("ParseVector returned error: %v", err)
	}
	if diff := cmp.Diff([]float64{3, 4}, got); diff != "" {
		t.Fatalf("first row mismatch (-want +got):\n%s", diff)
	}
	if _, err := ParseVector("3 4"); err == nil {
		t.Fatal("expected error without brackets")
	}
}

func TestComputeWritesScaleAndLink(t *testing.T) {
	dir := t.TempDir()
	fake := &launchertest.Fake{RunFunc: func(ctx context.Context, job launcher.Job) (launcher.Result, error) {
		switch job.Name {
		case "acc_pdf":
			for _, task := range job.Tasks() {
				path := filepath.Join(dir, "pdf_counts."+strconv.Itoa(task.Index))
				if err := os.WriteFile(path, []byte("[ 1 1 1 ]"), 0o644); err != nil {
					return launcher.Result{}, err
				}
			}
		case "sum_pdf_counts":
			if err := os.WriteFile(filepath.Join(dir, "pdf_counts"), []byte("[ 10 10 10 ]\n"), 0o644); err != nil {
				return launcher.Result{}, err
			}
		}
		return launcher.Result{}, nil
	}}
	computer := Computer{
		Commands: config.Default().Commands,
		Power:    -0.25,
		Smooth:   0.01,
		Launcher: fake,
		Logger:   logging.NewNop(),
	}

	scales, err := computer.Compute(context.Background(), ComputeInput{Dir: dir, AliDir: "exp/tri3_ali", NumJobs: 2})
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if len(scales) != 3 {
		t.Fatalf("expected 3 scales, got %v", scales)
	}

	jobs := fake.Jobs()
	if len(jobs) != 2 || jobs[0].Range == nil || jobs[0].Range.Hi != 2 {
		t.Fatalf("unexpected jobs: %+v", jobs)
	}
	if !strings.Contains(jobs[0].Command, "exp/tri3_ali/ali.JOB.gz") {
		t.Fatalf("acc command missing ali dir: %q", jobs[0].Command)
	}
	partials, _ := filepath.Glob(filepath.Join(dir, "pdf_counts.*"))
	if len(partials) != 0 {
		t.Fatalf("partial counts not removed: %v", partials)
	}
	written, err := ReadVector(filepath.Join(dir, ScaleFile))
	if err != nil {
		t.Fatalf("ReadVector returned error: %v", err)
	}
	if diff := cmp.Diff(scales, written, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Fatalf("written vector mismatch (-want +got):\n%s", diff)
	}
	target, err := os.Readlink(filepath.Join(dir, "configs", ScaleFile))
	if err != nil {
		t.Fatalf("Readlink returned error: %v", err)
	}
	if target != "../"+ScaleFile {
		t.Fatalf("link target = %q", target)
	}
}
