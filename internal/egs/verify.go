package egs

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"nnetctl/internal/config"
	"nnetctl/internal/failure"
	"nnetctl/internal/logging"
	"nnetctl/internal/sizespec"
)

// Info is the metadata recorded in an egs directory.
type Info struct {
	FeatDim            int
	IvectorDim         int
	IvectorID          string
	// HasIvectorID is set when info/final.ie.id exists, even if it is empty.
	HasIvectorID       bool
	LeftContext        int
	RightContext       int
	LeftContextInitial int
	RightContextFinal  int
	FramesPerEg        sizespec.ChunkWidth
	NumArchives        int
}

func readLine(dir, name string) (string, error) {
	path := filepath.Join(dir, "info", name)
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", nil
	}
	return strings.TrimSpace(scanner.Text()), nil
}

func missing(dir, name string, err error) error {
	return failure.Wrap(failure.ErrStateMissing, "egs", "verify", fmt.Sprintf("missing or malformed %s", filepath.Join(dir, "info", name)), err)
}

func readInt(dir, name string) (int, error) {
	line, err := readLine(dir, name)
	if err != nil {
		return 0, missing(dir, name, err)
	}
	value, err := strconv.Atoi(line)
	if err != nil {
		return 0, missing(dir, name, err)
	}
	return value, nil
}

// readOptionalInt returns fallback when the file is absent. Older egs
// directories do not record the initial and final chunk context.
func readOptionalInt(dir, name string, fallback int) (int, error) {
	line, err := readLine(dir, name)
	if errors.Is(err, fs.ErrNotExist) {
		return fallback, nil
	}
	if err != nil {
		return 0, missing(dir, name, err)
	}
	value, err := strconv.Atoi(line)
	if err != nil {
		return fallback, nil
	}
	return value, nil
}

// Read loads the metadata of dir without comparing it to anything.
func Read(dir string) (Info, error) {
	var info Info
	var err error
	if info.FeatDim, err = readInt(dir, "feat_dim"); err != nil {
		return Info{}, err
	}
	if info.IvectorDim, err = readInt(dir, "ivector_dim"); err != nil {
		return Info{}, err
	}
	if id, err := readLine(dir, "final.ie.id"); err == nil {
		info.IvectorID, info.HasIvectorID = id, true
	}
	if info.LeftContext, err = readInt(dir, "left_context"); err != nil {
		return Info{}, err
	}
	if info.RightContext, err = readInt(dir, "right_context"); err != nil {
		return Info{}, err
	}
	if info.LeftContextInitial, err = readOptionalInt(dir, "left_context_initial", -1); err != nil {
		return Info{}, err
	}
	if info.RightContextFinal, err = readOptionalInt(dir, "right_context_final", -1); err != nil {
		return Info{}, err
	}
	framesPerEg, err := readLine(dir, "frames_per_eg")
	if err != nil {
		return Info{}, missing(dir, "frames_per_eg", err)
	}
	if info.FramesPerEg, err = sizespec.ParseChunkWidth(framesPerEg); err != nil {
		return Info{}, missing(dir, "frames_per_eg", err)
	}
	if info.NumArchives, err = readInt(dir, "num_archives"); err != nil {
		return Info{}, err
	}
	return info, nil
}

// Verify reads dir and checks it against the expected properties. An
// ivector extractor id recorded on one side only, or on neither, logs a
// warning; two different ids are an error.
func Verify(dir string, expect config.Egs, logger *slog.Logger) (Info, error) {
	info, err := Read(dir)
	if err != nil {
		return Info{}, err
	}
	logger = logging.NewComponentLogger(logger, "egs")

	if info.FeatDim != expect.FeatDim {
		return info, failure.NewMismatch("feat_dim", expect.FeatDim, info.FeatDim)
	}
	if info.IvectorDim != expect.IvectorDim {
		return info, failure.NewMismatch("ivector_dim", expect.IvectorDim, info.IvectorDim)
	}

	expectID := expect.IvectorExtractorID != ""
	switch {
	case !info.HasIvectorID && !expectID:
		logging.WarnWithContext(logger, "ivector ids are not used", "ivector_id_unused",
			logging.String(logging.FieldImpact, "ivector extractor consistency is not checked"),
			logging.String(logging.FieldErrorHint, "make sure the same ivector extractor was used for egs and training"),
		)
	case info.HasIvectorID != expectID:
		logging.WarnWithContext(logger, "ivector ids are inconsistently used", "ivector_id_inconsistent",
			logging.String("egs_id", info.IvectorID),
			logging.String("expected_id", expect.IvectorExtractorID),
			logging.String(logging.FieldImpact, "ivector extractor consistency is not checked"),
			logging.String(logging.FieldErrorHint, "make sure the same ivector extractor was used for egs and training"),
		)
	case info.IvectorID != expect.IvectorExtractorID:
		return info, failure.NewMismatch("ivector_extractor_id", expect.IvectorExtractorID, info.IvectorID)
	}

	if info.LeftContext < expect.LeftContext || info.RightContext < expect.RightContext {
		return info, failure.NewMismatch("context",
			fmt.Sprintf("at least (%d,%d)", expect.LeftContext, expect.RightContext),
			fmt.Sprintf("(%d,%d)", info.LeftContext, info.RightContext))
	}
	if info.LeftContextInitial != expect.LeftContextInitial || info.RightContextFinal != expect.RightContextFinal {
		return info, failure.NewMismatch("initial/final context",
			fmt.Sprintf("(%d,%d)", expect.LeftContextInitial, expect.RightContextFinal),
			fmt.Sprintf("(%d,%d)", info.LeftContextInitial, info.RightContextFinal))
	}
	return info, nil
}
