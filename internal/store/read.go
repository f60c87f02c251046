package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/fredkin/internal/logparse"
)

// ErrRunNotFound is returned for unknown run ids.
var ErrRunNotFound = errors.New("run not found")

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var r Run
	var importedAt string
	if err := row.Scan(&r.ID, &r.Source, &r.Encoding, &importedAt, &r.Points, &r.Skipped); err != nil {
		return Run{}, err
	}
	t, err := time.Parse(time.RFC3339, importedAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse imported_at %q: %w", importedAt, err)
	}
	r.ImportedAt = t
	return r, nil
}

// ListRuns returns every run, oldest import first.
// Returns an empty slice (not nil) when the archive is empty.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, encoding, imported_at, points, skipped
		FROM runs
		ORDER BY imported_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, source, encoding, imported_at, points, skipped
		FROM runs WHERE id = ?
	`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("get run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return r, nil
}

// ReadSeries returns a run's points in file order.
func (s *Store) ReadSeries(ctx context.Context, id string) (logparse.Series, error) {
	if _, err := s.GetRun(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT generation, alive, dead
		FROM points
		WHERE run_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}
	defer rows.Close()

	series := logparse.Series{}
	for rows.Next() {
		var p logparse.Point
		if err := rows.Scan(&p.Generation, &p.Alive, &p.Dead); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		series = append(series, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate points: %w", err)
	}
	return series, nil
}
