package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"nnetctl/internal/ledger"
	"nnetctl/internal/testsupport"
)

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	if _, ok, err := store.LastCompleted(context.Background()); err != nil || ok {
		t.Fatalf("LastCompleted on empty ledger = %v, %v", ok, err)
	}
	run, err := store.LatestRun(context.Background())
	if err != nil || run != nil {
		t.Fatalf("LatestRun on empty ledger = %v, %v", run, err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	reopened, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("reopen ledger: %v", err)
	}
	reopened.Close()
}

func TestRecordAndHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()
	runID := uuid.NewString()

	if _, err := store.StartRun(ctx, runID, 12); err != nil {
		t.Fatalf("StartRun returned error: %v", err)
	}
	records := []ledger.Iteration{
		{RunID: runID, Iter: 0, NumJobs: 1, LearningRate: 0.0003, Mode: ledger.ModeBest, Accepted: []int{1}, Best: 1, ShrinkScale: 1, MinibatchSize: "128"},
		{RunID: runID, Iter: 1, NumJobs: 2, LearningRate: 0.00055, Mode: ledger.ModeAverage, Accepted: []int{1, 2}, Best: 2, ShrinkScale: 0.99, MinibatchSize: "256"},
	}
	for _, rec := range records {
		if err := store.RecordIteration(ctx, rec); err != nil {
			t.Fatalf("RecordIteration returned error: %v", err)
		}
	}

	last, ok, err := store.LastCompleted(ctx)
	if err != nil || !ok || last != 1 {
		t.Fatalf("LastCompleted = %d, %v, %v; want 1", last, ok, err)
	}

	history, err := store.History(ctx, runID)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 iterations, got %d", len(history))
	}
	if diff := cmp.Diff([]int{1, 2}, history[1].Accepted); diff != "" {
		t.Fatalf("accepted mismatch (-want +got):\n%s", diff)
	}
	if history[1].Mode != ledger.ModeAverage || history[1].ShrinkScale != 0.99 {
		t.Fatalf("unexpected iteration: %+v", history[1])
	}
	if history[0].CompletedAt.IsZero() {
		t.Fatal("expected completion time to be recorded")
	}
}

func TestFinishRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	if _, err := store.StartRun(ctx, "run-a", 5); err != nil {
		t.Fatalf("StartRun returned error: %v", err)
	}
	if err := store.FinishRun(ctx, "run-a", errors.New("train job failed")); err != nil {
		t.Fatalf("FinishRun returned error: %v", err)
	}
	run, err := store.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun returned error: %v", err)
	}
	if run.Status != ledger.StatusFailed || run.ErrorMessage != "train job failed" || run.FinishedAt == nil {
		t.Fatalf("unexpected run: %+v", run)
	}
	if err := store.FinishRun(ctx, "missing", nil); err == nil {
		t.Fatal("expected error for unknown run")
	}

	runs, err := store.Runs(ctx)
	if err != nil || len(runs) != 1 {
		t.Fatalf("Runs = %v, %v", runs, err)
	}
}
