package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"nnetctl/internal/config"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteEgsInfo writes an egs info/ directory that satisfies cfg.Egs, with
// numArchives archives and the given frames_per_eg text.
func WriteEgsInfo(t testing.TB, cfg *config.Config, numArchives int, framesPerEg string) {
	t.Helper()

	info := filepath.Join(cfg.Paths.EgsDir, "info")
	files := map[string]string{
		"feat_dim":      strconv.Itoa(cfg.Egs.FeatDim),
		"ivector_dim":   strconv.Itoa(cfg.Egs.IvectorDim),
		"left_context":  strconv.Itoa(cfg.Egs.LeftContext),
		"right_context": strconv.Itoa(cfg.Egs.RightContext),
		"frames_per_eg": framesPerEg,
		"num_archives":  strconv.Itoa(numArchives),
	}
	if cfg.Egs.IvectorExtractorID != "" {
		files["final.ie.id"] = cfg.Egs.IvectorExtractorID
	}
	for name, content := range files {
		WriteFile(t, filepath.Join(info, name), content+"\n")
	}
}

// ObjectiveLog renders a training log whose final objective is value.
func ObjectiveLog(value float64) string {
	return fmt.Sprintf("# nnet3-train ...\nLOG (nnet3-train[5.5]:PrintTotalStats():nnet-training.cc:210) Overall average objective function for 'output' is %g over 51200 frames.\n# Ended (code 0)\n", value)
}
