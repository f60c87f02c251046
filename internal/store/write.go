package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/fredkin/internal/logparse"
)

// Run describes one imported log file.
type Run struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Encoding   string    `json:"encoding"`
	ImportedAt time.Time `json:"imported_at"`
	Points     int       `json:"points"`
	Skipped    int       `json:"skipped"`
}

// SaveRun stores a parsed series as a new run, atomically.
// Points are numbered by file order starting at 0.
func (s *Store) SaveRun(ctx context.Context, source string, stats logparse.Stats, series logparse.Series) (Run, error) {
	run := Run{
		ID:         s.ids.Generate(),
		Source:     source,
		Encoding:   stats.Encoding,
		ImportedAt: s.now().UTC().Truncate(time.Second),
		Points:     len(series),
		Skipped:    stats.Skipped,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("save run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, source, encoding, imported_at, points, skipped)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.Source, run.Encoding, run.ImportedAt.Format(time.RFC3339), run.Points, run.Skipped)
	if err != nil {
		return Run{}, fmt.Errorf("save run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO points (run_id, seq, generation, alive, dead)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return Run{}, fmt.Errorf("save run: prepare points: %w", err)
	}
	defer stmt.Close()

	for i, p := range series {
		if _, err := stmt.ExecContext(ctx, run.ID, i, p.Generation, p.Alive, p.Dead); err != nil {
			return Run{}, fmt.Errorf("save run: point %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("save run: commit: %w", err)
	}
	return run, nil
}

// DeleteRun removes a run and its points.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete run %s: %w", id, ErrRunNotFound)
	}
	return nil
}
