// Package sessionhistory is the optional Postgres archival adapter: it
// persists issued host-auth users/tokens, the latest snapshot of each
// session (upserted by session id) and an append-only log of
// event-contract entries for replay/analytics. The
// live runtime never reads through this package — internal/sessionstore
// and internal/runtime hold the authoritative in-memory/Redis state;
// this is a write-behind archival layer a host may wire in, or leave nil
// entirely.
package sessionhistory

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"conversation-runtime/server/internal/config"
	"conversation-runtime/server/internal/errors"
	_ "github.com/lib/pq"
)

// DB holds the archival connection pool.
type DB struct {
	*sql.DB
}

// NewConnection opens and pings the Postgres archival database. Callers
// should only invoke this when cfg.Database.Enabled() is true.
func NewConnection(cfg *config.DatabaseConfig) (*DB, error) {
	if cfg.URL == "" {
		return nil, errors.New(errors.ErrMissingEnvVar, "DATABASE_URL environment variable is required")
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, errors.New(errors.ErrDatabaseError, fmt.Sprintf("failed to open database connection: %v", err))
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections / 2)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	db.SetConnMaxIdleTime(time.Duration(cfg.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		if err := db.PingContext(ctx); err != nil {
			lastErr = err
			slog.Warn("database connection attempt failed", "attempt", attempt, "error", err)
			if attempt < 3 {
				time.Sleep(2 * time.Second)
				continue
			}
		} else {
			lastErr = nil
			break
		}
	}

	if lastErr != nil {
		db.Close()
		return nil, errors.New(errors.ErrDatabaseError, fmt.Sprintf("failed to connect to database after 3 attempts: %v", lastErr))
	}

	slog.Info("connected to session-history database")
	return &DB{db}, nil
}

// Close closes the connection pool. Safe to call on a nil *DB.
func (db *DB) Close() error {
	if db == nil || db.DB == nil {
		return nil
	}
	return db.DB.Close()
}

// Migrate applies no migrations itself: it only logs that the schema is
// created by PostgreSQL init scripts, which this repository does not
// include.
func (db *DB) Migrate() error {
	slog.Info("session-history migrations handled by PostgreSQL init scripts")
	return nil
}

// Transaction runs fn inside a transaction, rolling back on error or panic.
func (db *DB) Transaction(fn func(*sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, errors.ErrDatabaseError)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseError)
	}

	return nil
}

func NullStringToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func NullTimeToTime(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

func StringToNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func TimeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// CleanupExpiredAuthSessions removes expired host-auth sessions (§11.1).
// Nothing in this repository calls it; internal/workers has no job for it.
func (db *DB) CleanupExpiredAuthSessions() error {
	_, err := db.Exec("DELETE FROM auth_sessions WHERE expires_at < NOW()")
	if err != nil {
		return errors.Wrap(err, errors.ErrDatabaseError)
	}
	return nil
}
