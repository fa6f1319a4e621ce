package storage

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// ApplyError reports the statement that failed during Apply.
type ApplyError struct {
	// Index is the 0-based position of the failing statement.
	Index int
	// Label is the first line of the statement, typically "-- <district>".
	Label string
	Err   error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("storage: statement %d (%s): %v", e.Index+1, e.Label, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }

// Apply executes stmts one by one, in order, outside any transaction.
//
// Behavior:
//   - Cancellation is checked between statements. A canceled context stops
//     the run with ctx.Err() and the count applied so far.
//   - The first failing statement stops the run. The error is an
//     *ApplyError carrying the statement index and its comment label, and it
//     unwraps to the repository error.
//   - A progress line with throughput is logged every progressEvery
//     statements; zero disables progress logging.
//
// Returns the number of statements applied before any failure.
func Apply(ctx context.Context, repo Repository, stmts []string, progressEvery int) (int64, error) {
	if repo == nil {
		return 0, fmt.Errorf("storage: Apply: repo must not be nil")
	}

	var (
		applied   int64
		start     = time.Now()
		lastTS    = start
		lastCount int64
	)

	for i, stmt := range stmts {
		if err := ctx.Err(); err != nil {
			return applied, err
		}
		if err := repo.Exec(ctx, stmt); err != nil {
			log.Printf("apply: failed after=%d err=%v", applied, err)
			return applied, &ApplyError{Index: i, Label: label(stmt), Err: err}
		}
		applied++

		if progressEvery > 0 && applied%int64(progressEvery) == 0 {
			now := time.Now()
			since := now.Sub(lastTS)
			sps := float64(0)
			if since > 0 {
				sps = float64(applied-lastCount) / since.Seconds()
			}
			log.Printf("apply: %d/%d statements sps=%.0f elapsed=%s",
				applied, len(stmts), sps, now.Sub(start).Truncate(time.Millisecond))
			lastTS = now
			lastCount = applied
		}
	}
	return applied, nil
}

// label returns the first line of stmt without the comment marker.
func label(stmt string) string {
	first, _, _ := strings.Cut(stmt, "\n")
	return strings.TrimSpace(strings.TrimPrefix(first, "--"))
}
