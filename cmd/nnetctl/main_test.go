package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"nnetctl/internal/config"
	"nnetctl/internal/ledger"
	"nnetctl/internal/testsupport"
)

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// writeTestConfig writes the paths and job ramp of cfg to a config file.
func writeTestConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	path := filepath.Join(testsupport.BaseDir(cfg), "nnetctl.toml")
	content := fmt.Sprintf(`[paths]
exp_dir = %q
egs_dir = %q
ali_dir = %q
log_dir = %q

[egs]
feat_dim = %d
left_context = %d
right_context = %d

[trainer]
num_epochs = %g

[optimization]
num_jobs_initial = %d
num_jobs_final = %d
`,
		cfg.Paths.ExpDir, cfg.Paths.EgsDir, cfg.Paths.AliDir, cfg.Paths.LogDir,
		cfg.Egs.FeatDim, cfg.Egs.LeftContext, cfg.Egs.RightContext,
		cfg.Trainer.NumEpochs,
		cfg.Optimization.NumJobsInitial, cfg.Optimization.NumJobsFinal,
	)
	testsupport.WriteFile(t, path, content)
	return path
}

func newTestExperiment(t *testing.T) (*config.Config, string) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cfg := testsupport.NewConfig(t, testsupport.WithEpochs(2), testsupport.WithJobs(1, 2))
	testsupport.WriteEgsInfo(t, cfg, 4, "8")
	return cfg, writeTestConfig(t, cfg)
}

func TestConfigInitAndShow(t *testing.T) {
	_, configPath := newTestExperiment(t)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected config init to refuse overwriting")
	}

	out, _, err = runCLI(t, []string{"config", "show"}, configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "num_jobs_final = 2")

	out, _, err = runCLI(t, []string{"config", "path"}, configPath)
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	requireContains(t, out, configPath)
}

func TestSizeSpecCommands(t *testing.T) {
	out, _, err := runCLI(t, []string{"sizespec", "halve", "128=64,128/256=32"}, "")
	if err != nil {
		t.Fatalf("sizespec halve: %v", err)
	}
	if got := strings.TrimSpace(out); got != "128=32,64/256=16" {
		t.Fatalf("halve = %q", got)
	}

	if _, _, err := runCLI(t, []string{"sizespec", "validate", "0:5"}, ""); err == nil {
		t.Fatal("expected invalid minibatch size to fail")
	}

	out, _, err = runCLI(t, []string{"chunkwidth", "150,120,90"}, "")
	if err != nil {
		t.Fatalf("chunkwidth: %v", err)
	}
	requireContains(t, out, "principal: 150")
}

func TestPlanFormats(t *testing.T) {
	_, configPath := newTestExperiment(t)

	out, _, err := runCLI(t, []string{"plan", "--format", "json"}, configPath)
	if err != nil {
		t.Fatalf("plan json: %v", err)
	}
	var plan planOutput
	if err := json.Unmarshal([]byte(out), &plan); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	if plan.NumIters != 5 || len(plan.Steps) != 5 {
		t.Fatalf("unexpected plan %+v", plan)
	}
	if diff := cmp.Diff([]int{4, 5}, plan.ModelsToCombine); diff != "" {
		t.Fatalf("models to combine mismatch (-want +got):\n%s", diff)
	}

	out, _, err = runCLI(t, []string{"plan", "--format", "yaml", "--num-archives", "8"}, configPath)
	if err != nil {
		t.Fatalf("plan yaml: %v", err)
	}
	var fromYAML planOutput
	if err := yaml.Unmarshal([]byte(out), &fromYAML); err != nil {
		t.Fatalf("decode yaml plan: %v", err)
	}
	if fromYAML.NumArchives != 8 {
		t.Fatalf("num_archives = %d, want 8", fromYAML.NumArchives)
	}

	out, _, err = runCLI(t, []string{"plan"}, configPath)
	if err != nil {
		t.Fatalf("plan table: %v", err)
	}
	requireContains(t, out, "Learning Rate")
	requireContains(t, out, "Average")
	if strings.Contains(out, "LEARNING RATE") {
		t.Fatalf("headers should keep their title case, got %q", out)
	}

	if _, _, err := runCLI(t, []string{"plan", "--format", "xml"}, configPath); err == nil {
		t.Fatal("expected unsupported format to fail")
	}
}

func TestLearningRateCommand(t *testing.T) {
	_, configPath := newTestExperiment(t)

	out, _, err := runCLI(t, []string{"lr", "--iter", "0"}, configPath)
	if err != nil {
		t.Fatalf("lr: %v", err)
	}
	// one job at the initial effective rate
	if got := strings.TrimSpace(out); got != "0.0003" {
		t.Fatalf("lr = %q, want 0.0003", got)
	}
	if _, _, err := runCLI(t, []string{"lr", "--iter", "99"}, configPath); err == nil {
		t.Fatal("expected out-of-range iteration to fail")
	}
}

func TestSelectCommand(t *testing.T) {
	cfg, configPath := newTestExperiment(t)
	logDir := filepath.Join(cfg.Paths.ExpDir, "log")
	for i, value := range []float64{-1.2, -1.0, -3.5} {
		testsupport.WriteFile(t, filepath.Join(logDir, fmt.Sprintf("train.0.%d.log", i+1)), testsupport.ObjectiveLog(value))
	}

	out, _, err := runCLI(t, []string{"select", "--num-models", "3",
		"--pattern", filepath.Join(logDir, "train.0.%.log"), "--format", "json"}, configPath)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	var got struct {
		Accepted []int `json:"accepted"`
		Best     int   `json:"best"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode selection: %v", err)
	}
	if got.Best != 2 {
		t.Fatalf("best = %d, want 2", got.Best)
	}
	if diff := cmp.Diff([]int{1, 2}, got.Accepted); diff != "" {
		t.Fatalf("accepted mismatch (-want +got):\n%s", diff)
	}
}

func TestPriorsSmoothCommand(t *testing.T) {
	cfg, configPath := newTestExperiment(t)
	counts := filepath.Join(testsupport.BaseDir(cfg), "pdf_counts")
	testsupport.WriteFile(t, counts, " [ 10 10 10 ]\n")

	out, _, err := runCLI(t, []string{"priors", "smooth", counts}, configPath)
	if err != nil {
		t.Fatalf("priors smooth: %v", err)
	}
	requireContains(t, out, "[ 1 1 1 ]")
}

func TestEgsVerifyCommand(t *testing.T) {
	cfg, configPath := newTestExperiment(t)

	out, _, err := runCLI(t, []string{"egs", "verify"}, configPath)
	if err != nil {
		t.Fatalf("egs verify: %v", err)
	}
	requireContains(t, out, "Egs directory valid")

	testsupport.WriteFile(t, filepath.Join(cfg.Paths.EgsDir, "info", "feat_dim"), "13\n")
	if _, _, err := runCLI(t, []string{"egs", "verify"}, configPath); err == nil {
		t.Fatal("expected feat_dim mismatch to fail")
	}
}

func TestHistoryCommand(t *testing.T) {
	cfg, configPath := newTestExperiment(t)

	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()
	if _, err := store.StartRun(ctx, "run-1", 5); err != nil {
		t.Fatalf("StartRun returned error: %v", err)
	}
	if err := store.RecordIteration(ctx, ledger.Iteration{
		RunID: "run-1", Iter: 0, NumJobs: 1, LearningRate: 0.0003,
		Mode: ledger.ModeBest, Accepted: []int{1}, Best: 1, ShrinkScale: 1, MinibatchSize: "128",
	}); err != nil {
		t.Fatalf("RecordIteration returned error: %v", err)
	}

	out, _, err := runCLI(t, []string{"history"}, configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "Run run-1")
	requireContains(t, out, "Best")

	out, _, err = runCLI(t, []string{"history", "--format", "json"}, configPath)
	if err != nil {
		t.Fatalf("history json: %v", err)
	}
	var rows []historyRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(rows) != 1 || rows[0].Mode != "best" {
		t.Fatalf("unexpected history %+v", rows)
	}

	if _, _, err := runCLI(t, []string{"history", "--run", "missing"}, configPath); err == nil {
		t.Fatal("expected unknown run to fail")
	}
}
