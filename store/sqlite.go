// Package store persists alarm records and the wake log in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lixenwraith/tilt-alarm/alarm"
	"github.com/lixenwraith/tilt-alarm/challenge"
)

var ErrNotFound = errors.New("alarm not found")

// Wake is one completed challenge in the wake log
type Wake struct {
	AlarmID     string
	Kind        challenge.Kind
	CompletedAt time.Time
	Elapsed     time.Duration
}

type SQLite struct {
	db *sql.DB
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS alarms (
		id TEXT PRIMARY KEY,
		hour INTEGER NOT NULL CHECK (hour BETWEEN 0 AND 23),
		minute INTEGER NOT NULL CHECK (minute BETWEEN 0 AND 59),
		kind TEXT NOT NULL CHECK (kind IN ('quiz', 'maze')),
		difficulty INTEGER NOT NULL,
		label TEXT NOT NULL DEFAULT '',
		enabled BOOLEAN NOT NULL DEFAULT 1,
		days INTEGER NOT NULL DEFAULT 0 CHECK (days BETWEEN 0 AND 127),
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS wakes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		alarm_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		completed_at DATETIME NOT NULL,
		elapsed_ms INTEGER NOT NULL
	)`,
	"CREATE INDEX IF NOT EXISTS idx_alarms_time ON alarms(hour, minute)",
	"CREATE INDEX IF NOT EXISTS idx_wakes_completed ON wakes(completed_at)",
}

// Open connects to the database at path and creates missing tables
// ":memory:" gives a private in-memory database
func Open(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	// One connection keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database %s: %w", path, err)
	}
	for _, q := range schema {
		if _, err := db.ExecContext(ctx, q); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

// migrate adds columns introduced after the first schema
func migrate(ctx context.Context, db *sql.DB) error {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info('alarms') WHERE name = 'days'`).Scan(&n)
	if err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}
	if n == 0 {
		if _, err := db.ExecContext(ctx,
			`ALTER TABLE alarms ADD COLUMN days INTEGER NOT NULL DEFAULT 0`); err != nil {
			return fmt.Errorf("add days column: %w", err)
		}
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// Save inserts or replaces the alarm with d.ID
func (s *SQLite) Save(ctx context.Context, d alarm.Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alarms (id, hour, minute, kind, difficulty, label, enabled, days)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			hour = excluded.hour,
			minute = excluded.minute,
			kind = excluded.kind,
			difficulty = excluded.difficulty,
			label = excluded.label,
			enabled = excluded.enabled,
			days = excluded.days,
			updated_at = CURRENT_TIMESTAMP`,
		d.ID, d.Hour, d.Minute, d.Kind.String(), d.Difficulty, d.Label, d.Enabled, int(d.Days))
	if err != nil {
		return fmt.Errorf("save alarm %s: %w", d.ID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDescriptor(row scanner) (alarm.Descriptor, error) {
	var d alarm.Descriptor
	var kind string
	var days int
	if err := row.Scan(&d.ID, &d.Hour, &d.Minute, &kind, &d.Difficulty, &d.Label, &d.Enabled, &days); err != nil {
		return alarm.Descriptor{}, err
	}
	d.Days = alarm.Days(days)
	k, err := challenge.ParseKind(kind)
	if err != nil {
		return alarm.Descriptor{}, err
	}
	d.Kind = k
	return d, nil
}

const selectAlarm = `SELECT id, hour, minute, kind, difficulty, label, enabled, days FROM alarms`

// Get returns the alarm with id or ErrNotFound
func (s *SQLite) Get(ctx context.Context, id string) (alarm.Descriptor, error) {
	d, err := scanDescriptor(s.db.QueryRowContext(ctx, selectAlarm+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return alarm.Descriptor{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return alarm.Descriptor{}, fmt.Errorf("get alarm %s: %w", id, err)
	}
	return d, nil
}

// List returns every alarm ordered by time of day
func (s *SQLite) List(ctx context.Context) ([]alarm.Descriptor, error) {
	rows, err := s.db.QueryContext(ctx, selectAlarm+` ORDER BY hour, minute, id`)
	if err != nil {
		return nil, fmt.Errorf("list alarms: %w", err)
	}
	defer rows.Close()

	var out []alarm.Descriptor
	for rows.Next() {
		d, err := scanDescriptor(rows)
		if err != nil {
			return nil, fmt.Errorf("list alarms: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Delete removes the alarm with id; ErrNotFound when absent
func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM alarms WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete alarm %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete alarm %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// RecordWake appends a completed challenge to the wake log
func (s *SQLite) RecordWake(ctx context.Context, w Wake) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO wakes (alarm_id, kind, completed_at, elapsed_ms) VALUES (?, ?, ?, ?)`,
		w.AlarmID, w.Kind.String(), w.CompletedAt.UTC(), w.Elapsed.Milliseconds())
	if err != nil {
		return fmt.Errorf("record wake for %s: %w", w.AlarmID, err)
	}
	return nil
}

// Wakes returns the most recent wake log entries, newest first
func (s *SQLite) Wakes(ctx context.Context, limit int) ([]Wake, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT alarm_id, kind, completed_at, elapsed_ms FROM wakes ORDER BY completed_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list wakes: %w", err)
	}
	defer rows.Close()

	var out []Wake
	for rows.Next() {
		var w Wake
		var kind string
		var ms int64
		if err := rows.Scan(&w.AlarmID, &kind, &w.CompletedAt, &ms); err != nil {
			return nil, fmt.Errorf("list wakes: %w", err)
		}
		if w.Kind, err = challenge.ParseKind(kind); err != nil {
			return nil, fmt.Errorf("list wakes: %w", err)
		}
		w.Elapsed = time.Duration(ms) * time.Millisecond
		out = append(out, w)
	}
	return out, rows.Err()
}
