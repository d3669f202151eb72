// Package postgres implements the Launchpad repositories against
// PostgreSQL using lib/pq. Visit history and progress are stored as JSONB.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/equihome/launchpad/internal/domain"
)

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, domain.Unavailable("ping postgres", err)
	}
	return db, nil
}

// pq error codes
const (
	uniqueViolation = "23505"
)

// classify maps driver errors onto domain errors. Server-reported errors
// are bugs or constraint violations; anything else is a transport failure.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == uniqueViolation {
			return fmt.Errorf("%s: %w", op, domain.ErrConflict)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return domain.Unavailable(op, err)
}

type pinger struct{ db *sql.DB }

// Ping checks the connection for health probes.
func (p pinger) Ping(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return domain.Unavailable("ping postgres", err)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
