package dbopen

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// backoff is the wait before each retry of a busy transaction.
var backoff = []time.Duration{50 * time.Millisecond, 150 * time.Millisecond, 400 * time.Millisecond}

// IsBusy reports whether err is an SQLite BUSY or locked condition.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, s := range []string{"SQLITE_BUSY", "database is locked", "database table is locked"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// RunTx runs fn in a transaction, retrying while the database is busy.
// fn must be safe to run more than once.
func RunTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = runOnce(ctx, db, fn)
		if err == nil || !IsBusy(err) || attempt == len(backoff) {
			return err
		}
		t := time.NewTimer(backoff[attempt])
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("dbopen: retry interrupted: %w", ctx.Err())
		case <-t.C:
		}
	}
}

func runOnce(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("dbopen: begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("dbopen: commit: %w", err)
	}
	return nil
}
