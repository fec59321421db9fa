// Package store persists PM2.5 readings in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tamzrod/dust-sensor/internal/air"
)

// ErrNoReadings is returned by Latest on an empty history.
var ErrNoReadings = errors.New("store: no readings")

// Record is one stored reading.
type Record struct {
	ID           int64
	RunID        string
	At           time.Time
	AQI          int
	Ugm3         float64
	Pcs          float64
	Ratio        float64
	LowOccupancy time.Duration
	Pulses       int
	OutOfBounds  int
}

// NewRecord builds a Record from a closed measurement window.
func NewRecord(runID string, at time.Time, m air.Measurement) Record {
	return Record{
		RunID:        runID,
		At:           at,
		AQI:          m.AQI,
		Ugm3:         m.Ugm3,
		Pcs:          m.Pcs,
		Ratio:        m.Ratio,
		LowOccupancy: m.LowOccupancy,
		Pulses:       m.Pulses,
		OutOfBounds:  m.OutOfBounds,
	}
}

// Store is a SQLite backed reading history.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and runs the schema migration.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// WAL lets the CLI query while the daemon writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS particle_pm25 (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id           TEXT    NOT NULL,
			ts_created       INTEGER NOT NULL,
			aqi              INTEGER NOT NULL,
			ugm3             REAL    NOT NULL,
			pcs              REAL    NOT NULL,
			ratio            REAL    NOT NULL,
			low_occupancy_us INTEGER NOT NULL,
			pulses           INTEGER NOT NULL,
			out_of_bounds    INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS particle_pm25_ts ON particle_pm25 (ts_created);
	`)
	return err
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert appends a record and returns its id. ts_created is stored as unix
// milliseconds.
func (s *Store) Insert(ctx context.Context, r Record) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO particle_pm25
			(run_id, ts_created, aqi, ugm3, pcs, ratio, low_occupancy_us, pulses, out_of_bounds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.At.UnixMilli(), r.AQI, r.Ugm3, r.Pcs, r.Ratio,
		r.LowOccupancy.Microseconds(), r.Pulses, r.OutOfBounds,
	)
	if err != nil {
		return 0, fmt.Errorf("store: insert: %w", err)
	}
	return res.LastInsertId()
}

const selectColumns = `SELECT id, run_id, ts_created, aqi, ugm3, pcs, ratio, low_occupancy_us, pulses, out_of_bounds FROM particle_pm25`

// Latest returns the most recent record.
func (s *Store) Latest(ctx context.Context) (Record, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` ORDER BY ts_created DESC, id DESC LIMIT 1`)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNoReadings
	}
	if err != nil {
		return Record{}, fmt.Errorf("store: latest: %w", err)
	}
	return r, nil
}

// Since returns all records created at or after t, oldest first.
func (s *Store) Since(ctx context.Context, t time.Time) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` WHERE ts_created >= ? ORDER BY ts_created, id`, t.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("store: since: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("store: since: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Prune deletes records created before t and returns how many were removed.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM particle_pm25 WHERE ts_created < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("store: prune: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var (
		r     Record
		tsMs  int64
		lowUs int64
	)
	if err := sc.Scan(&r.ID, &r.RunID, &tsMs, &r.AQI, &r.Ugm3, &r.Pcs, &r.Ratio, &lowUs, &r.Pulses, &r.OutOfBounds); err != nil {
		return Record{}, err
	}
	r.At = time.UnixMilli(tsMs)
	r.LowOccupancy = time.Duration(lowUs) * time.Microsecond
	return r, nil
}
