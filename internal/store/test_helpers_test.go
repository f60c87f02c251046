package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/fredkin/internal/logparse"
	"github.com/roach88/fredkin/internal/testutil"
)

// createTestStore creates a new store in a temp dir with fixed ids and clock.
func createTestStore(t *testing.T, ids ...string) *Store {
	t.Helper()
	clock := testutil.NewStepClock(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), time.Minute)
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDGenerator(NewFixedGenerator(ids...)), WithClock(clock.Now))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// sampleSeries returns a short series with a repeated generation.
func sampleSeries() logparse.Series {
	return logparse.Series{
		{Generation: 0, Alive: 10, Dead: 1526},
		{Generation: 1, Alive: 12, Dead: 1524},
		{Generation: 1, Alive: 12, Dead: 1524},
		{Generation: 3, Alive: 8, Dead: 1528},
	}
}
