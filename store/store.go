// Package store records training runs in SQLite: one row per run, per
// iteration and per final word state.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/ieee0824/wordhmm-go/train"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at TIMESTAMP NOT NULL,
	finished_at TIMESTAMP,
	config TEXT NOT NULL,
	words INTEGER NOT NULL,
	status TEXT NOT NULL,
	log_likelihood REAL
);
CREATE TABLE IF NOT EXISTS iterations (
	run_id TEXT NOT NULL REFERENCES runs(id),
	iteration INTEGER NOT NULL,
	log_likelihood REAL NOT NULL,
	heldout REAL,
	accumulated INTEGER NOT NULL,
	skipped INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	PRIMARY KEY (run_id, iteration)
);
CREATE TABLE IF NOT EXISTS word_states (
	run_id TEXT NOT NULL REFERENCES runs(id),
	word TEXT NOT NULL,
	state TEXT NOT NULL,
	error TEXT,
	PRIMARY KEY (run_id, word)
);
`

// Run statuses.
const (
	StatusRunning  = "running"
	StatusDone     = "done"
	StatusFailed   = "failed"
	StatusCanceled = "canceled"
)

// ErrNotFound is returned for an unknown run ID.
var ErrNotFound = errors.New("store: run not found")

// Run is one training run.
type Run struct {
	ID            uuid.UUID
	StartedAt     time.Time
	FinishedAt    *time.Time
	Config        string
	Words         int
	Status        string
	LogLikelihood *float64
}

// WordState is the final state of one word in a run.
type WordState struct {
	Word  string
	State string
	Error string
}

// Store wraps an open database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates the schema if needed.
func Open(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("store schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// StartRun inserts a running run and returns its ID.
func (s *Store) StartRun(ctx context.Context, config string, words int) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (id, started_at, config, words, status) VALUES (?, ?, ?, ?, ?)",
		id.String(), s.now().UTC(), config, words, StatusRunning)
	if err != nil {
		return uuid.Nil, fmt.Errorf("start run: %w", err)
	}
	return id, nil
}

// RecordIteration stores one iteration result.
func (s *Store) RecordIteration(ctx context.Context, id uuid.UUID, r train.IterationResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO iterations (run_id, iteration, log_likelihood, heldout, accumulated, skipped, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id.String(), r.Iteration, r.LogLikelihood, nullable(r.HeldOut), r.Accumulated, r.Skipped, r.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("record iteration %d: %w", r.Iteration, err)
	}
	return nil
}

// FinishRun sets the run's status and final log-likelihood and stores each
// word's state, in one transaction.
func (s *Store) FinishRun(ctx context.Context, id uuid.UUID, status string, ll float64, words []*train.Word) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE runs SET finished_at = ?, status = ?, log_likelihood = ? WHERE id = ?",
		s.now().UTC(), status, nullable(ll), id.String())
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	for _, w := range words {
		var msg sql.NullString
		if w.Err != nil {
			msg = sql.NullString{String: w.Err.Error(), Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO word_states (run_id, word, state, error) VALUES (?, ?, ?, ?)",
			id.String(), w.Name, w.State.String(), msg); err != nil {
			return fmt.Errorf("word state %q: %w", w.Name, err)
		}
	}
	return tx.Commit()
}

// Run returns one run.
func (s *Store) Run(ctx context.Context, id uuid.UUID) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, started_at, finished_at, config, words, status, log_likelihood FROM runs WHERE id = ?",
		id.String())
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

// Runs returns the most recent runs first, at most limit.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, started_at, finished_at, config, words, status, log_likelihood FROM runs ORDER BY started_at DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// Iterations returns a run's iteration results in order. HeldOut is NaN
// where none was recorded. Improvement is derived from the previous row.
func (s *Store) Iterations(ctx context.Context, id uuid.UUID) ([]train.IterationResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT iteration, log_likelihood, heldout, accumulated, skipped, duration_ms
		FROM iterations WHERE run_id = ? ORDER BY iteration`, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []train.IterationResult
	for rows.Next() {
		var (
			r       train.IterationResult
			heldOut sql.NullFloat64
			ms      int64
		)
		if err := rows.Scan(&r.Iteration, &r.LogLikelihood, &heldOut, &r.Accumulated, &r.Skipped, &ms); err != nil {
			return nil, err
		}
		r.HeldOut = math.NaN()
		if heldOut.Valid {
			r.HeldOut = heldOut.Float64
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		r.Improvement = math.Inf(1)
		if n := len(out); n > 0 {
			r.Improvement = r.LogLikelihood - out[n-1].LogLikelihood
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// WordStates returns the final word states of a run, by word.
func (s *Store) WordStates(ctx context.Context, id uuid.UUID) ([]WordState, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT word, state, error FROM word_states WHERE run_id = ? ORDER BY word", id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []WordState
	for rows.Next() {
		var (
			ws  WordState
			msg sql.NullString
		)
		if err := rows.Scan(&ws.Word, &ws.State, &msg); err != nil {
			return nil, err
		}
		ws.Error = msg.String
		out = append(out, ws)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		r        Run
		id       string
		finished sql.NullTime
		ll       sql.NullFloat64
	)
	if err := sc.Scan(&id, &r.StartedAt, &finished, &r.Config, &r.Words, &r.Status, &ll); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("run id %q: %w", id, err)
	}
	r.ID = parsed
	if finished.Valid {
		r.FinishedAt = &finished.Time
	}
	if ll.Valid {
		r.LogLikelihood = &ll.Float64
	}
	return &r, nil
}

func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
