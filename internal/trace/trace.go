// Package trace records engine transitions into a SQLite database so runs
// can be inspected after the fact. Each run gets a UUIDv7 token; every
// transition is stored with a per-run sequence number for deterministic
// read-back.
package trace

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/dhowell/statepick"
)

//go:embed schema.sql
var schemaSQL string

// noState is the stored literal for the no-active side of a transition.
const noState = "-"

// Store is a trace database. SQLite supports one writer at a time, so the
// connection pool is capped at a single connection.
type Store struct {
	db *sql.DB
}

// Open creates or opens the trace database at path. WAL mode keeps reads
// available while a run is being recorded. Idempotent.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open trace database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect trace database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply trace schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Run is one recorded engine run.
type Run struct {
	Token     string
	Machine   string
	Scenario  string
	CreatedAt string
}

// Event is one recorded transition.
type Event struct {
	Seq    int
	Tick   uint64
	From   string
	To     string
	Forced bool
}

// BeginRun registers a new run for the named machine and returns a
// Recorder that appends its transitions. scenario may be empty for
// interactive runs.
func (s *Store) BeginRun(ctx context.Context, machine, scenario string) (*Recorder, error) {
	token := uuid.Must(uuid.NewV7()).String()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (token, machine, scenario) VALUES (?, ?, ?)
	`, token, machine, scenario)
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	return &Recorder{store: s, ctx: ctx, token: token}, nil
}

// Recorder appends one run's transitions. It implements
// statepick.TransitionListener so it can be subscribed directly to an
// engine. The listener interface cannot surface errors, so the first
// write failure is kept and reported by Err; later events are dropped.
type Recorder struct {
	store *Store
	ctx   context.Context
	token string
	seq   int
	err   error
}

// Token returns the run token.
func (r *Recorder) Token() string { return r.token }

// Err returns the first write failure, if any.
func (r *Recorder) Err() error { return r.err }

// OnTransition appends the transition to the run.
func (r *Recorder) OnTransition(t statepick.Transition[string]) {
	if r.err != nil {
		return
	}
	_, err := r.store.db.ExecContext(r.ctx, `
		INSERT INTO transitions (run_token, seq, tick, from_id, to_id, forced)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.token, r.seq, t.Tick, idLabel(t.From), idLabel(t.To), t.Forced)
	if err != nil {
		r.err = fmt.Errorf("record transition: %w", err)
		return
	}
	r.seq++
}

// ListRuns returns all recorded runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token, machine, scenario, created_at
		FROM runs
		ORDER BY created_at DESC, token DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.Token, &r.Machine, &r.Scenario, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// RunEvents returns the transitions of one run in occurrence order.
func (s *Store) RunEvents(ctx context.Context, token string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, tick, from_id, to_id, forced
		FROM transitions
		WHERE run_token = ?
		ORDER BY seq ASC
	`, token)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Seq, &e.Tick, &e.From, &e.To, &e.Forced); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}
	return events, nil
}

func idLabel(id *string) string {
	if id == nil {
		return noState
	}
	return *id
}
