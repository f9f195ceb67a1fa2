package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"nnetctl/internal/config"
)

// Store manages ledger persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the experiment's ledger.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.LedgerPath())
}

// OpenPath opens the ledger at dbPath.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// StartRun records a new running run.
func (s *Store) StartRun(ctx context.Context, runID string, numIters int) (*Run, error) {
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at, num_iters, status) VALUES (?, ?, ?, ?)`,
		runID, now.Format(time.RFC3339Nano), numIters, StatusRunning,
	); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return &Run{RunID: runID, StartedAt: now, NumIters: numIters, Status: StatusRunning}, nil
}

// FinishRun marks a run completed, or failed when runErr is non-nil.
func (s *Store) FinishRun(ctx context.Context, runID string, runErr error) error {
	status := StatusCompleted
	var message any
	if runErr != nil {
		status = StatusFailed
		message = runErr.Error()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, error_message = ? WHERE run_id = ?`,
		status, time.Now().UTC().Format(time.RFC3339Nano), message, runID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update run: unknown run %q", runID)
	}
	return nil
}

// RecordIteration stores a completed iteration. Re-recording an iteration of
// the same run replaces it.
func (s *Store) RecordIteration(ctx context.Context, it Iteration) error {
	completed := it.CompletedAt
	if completed.IsZero() {
		completed = time.Now()
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO iterations (
            run_id, iter, num_jobs, learning_rate, mode, accepted, best,
            shrink_scale, minibatch_size, completed_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.RunID, it.Iter, it.NumJobs, it.LearningRate, it.Mode, encodeInts(it.Accepted), it.Best,
		it.ShrinkScale, it.MinibatchSize, completed.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("insert iteration %d: %w", it.Iter, err)
	}
	return nil
}

// LastCompleted returns the highest iteration recorded by any run.
func (s *Store) LastCompleted(ctx context.Context) (int, bool, error) {
	var iter sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(iter) FROM iterations`).Scan(&iter); err != nil {
		return 0, false, fmt.Errorf("query last iteration: %w", err)
	}
	if !iter.Valid {
		return 0, false, nil
	}
	return int(iter.Int64), true, nil
}

// LatestRun returns the most recently started run, or nil.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, started_at, finished_at, num_iters, status, error_message
         FROM runs ORDER BY id DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

// Runs lists every run, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, started_at, finished_at, num_iters, status, error_message
         FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// History returns the iterations of every run in iteration order. A non-empty
// runID restricts the result to that run.
func (s *Store) History(ctx context.Context, runID string) ([]Iteration, error) {
	query := `SELECT run_id, iter, num_jobs, learning_rate, mode, accepted, best,
                     shrink_scale, minibatch_size, completed_at
              FROM iterations`
	var args []any
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` ORDER BY iter ASC, completed_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list iterations: %w", err)
	}
	defer rows.Close()

	var out []Iteration
	for rows.Next() {
		var it Iteration
		var mode, accepted, completed string
		if err := rows.Scan(&it.RunID, &it.Iter, &it.NumJobs, &it.LearningRate, &mode, &accepted,
			&it.Best, &it.ShrinkScale, &it.MinibatchSize, &completed); err != nil {
			return nil, fmt.Errorf("scan iteration: %w", err)
		}
		it.Mode = Mode(mode)
		if it.Accepted, err = decodeInts(accepted); err != nil {
			return nil, fmt.Errorf("decode accepted models of iteration %d: %w", it.Iter, err)
		}
		it.CompletedAt = parseTime(completed)
		out = append(out, it)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var started, status string
	var finished, message sql.NullString
	if err := row.Scan(&run.RunID, &started, &finished, &run.NumIters, &status, &message); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt = parseTime(started)
	run.Status = Status(status)
	if finished.Valid {
		ts := parseTime(finished.String)
		run.FinishedAt = &ts
	}
	run.ErrorMessage = message.String
	return &run, nil
}

func parseTime(value string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func encodeInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func decodeInts(text string) ([]int, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	parts := strings.Split(text, ",")
	values := make([]int, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}
