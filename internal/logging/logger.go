package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"nnetctl/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level string
	// Format is "console" (default) or "json".
	Format string
	// Sinks lists destinations: "stdout", "stderr" or file paths. Empty means stdout.
	Sinks  []string
	Source bool
}

// New constructs a slog logger using the provided options. The returned
// close function releases the file sinks; stdout and stderr are left open.
func New(opts Options) (*slog.Logger, func() error, error) {
	levelVar := new(slog.LevelVar)
	levelVar.Set(parseLevel(opts.Level))
	addSource := opts.Source || levelVar.Level() <= slog.LevelDebug

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format != "" && format != "console" && format != "json" {
		return nil, nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	w, closeSinks, err := openSinks(opts.Sinks)
	if err != nil {
		return nil, nil, err
	}
	if format == "json" {
		return slog.New(newJSONHandler(w, levelVar, addSource)), closeSinks, nil
	}
	return slog.New(newConsoleHandler(w, levelVar, addSource)), closeSinks, nil
}

// NewFromConfig builds the controller logger. Output goes to stdout and, when
// a log directory is configured, to <log_dir>/nnetctl-<stamp>.log, whose path
// is returned along with the function that closes it.
func NewFromConfig(cfg *config.Config, levelOverride string) (*slog.Logger, string, func() error, error) {
	if cfg == nil {
		logger, closeLog, err := New(Options{Level: levelOverride})
		return logger, "", closeLog, err
	}

	level := cfg.Logging.Level
	if strings.TrimSpace(levelOverride) != "" {
		level = levelOverride
	}

	sinks := []string{"stdout"}
	var logPath string
	if cfg.Paths.LogDir != "" {
		stamp := time.Now().UTC().Format("20060102T150405.000Z")
		logPath = filepath.Join(cfg.Paths.LogDir, "nnetctl-"+stamp+".log")
		sinks = append(sinks, logPath)
	}

	logger, closeLog, err := New(Options{Level: level, Format: cfg.Logging.Format, Sinks: sinks})
	if err != nil {
		return nil, "", nil, err
	}
	return logger, logPath, closeLog, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openSinks(sinks []string) (io.Writer, func() error, error) {
	var names []string
	for _, sink := range sinks {
		sink = strings.TrimSpace(sink)
		if sink != "" && !slices.Contains(names, sink) {
			names = append(names, sink)
		}
	}
	if len(names) == 0 {
		return os.Stdout, func() error { return nil }, nil
	}

	var files []*os.File
	closeFiles := func() error {
		var errs []error
		for _, file := range files {
			errs = append(errs, file.Close())
		}
		return errors.Join(errs...)
	}
	writers := make([]io.Writer, 0, len(names))
	for _, name := range names {
		switch name {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			file, err := openLogFile(name)
			if err != nil {
				_ = closeFiles()
				return nil, nil, err
			}
			files = append(files, file)
			writers = append(writers, file)
		}
	}
	if len(writers) == 1 {
		return writers[0], closeFiles, nil
	}
	return io.MultiWriter(writers...), closeFiles, nil
}

func openLogFile(name string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory for %s: %w", name, err)
	}
	file, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", name, err)
	}
	return file, nil
}

func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   addSource,
		ReplaceAttr: jsonAttr,
	})
}

// jsonAttr renames time to ts (UTC, RFC 3339), lower-cases the level and
// shortens source to file:line.
func jsonAttr(_ []string, attr slog.Attr) slog.Attr {
	switch attr.Key {
	case slog.TimeKey:
		if attr.Value.Kind() == slog.KindTime {
			return slog.String("ts", attr.Value.Time().UTC().Format(time.RFC3339))
		}
		attr.Key = "ts"
	case slog.LevelKey:
		attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
	case slog.SourceKey:
		if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
			attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
		}
	}
	return attr
}
