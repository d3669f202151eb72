package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/equihome/launchpad/internal/domain"
)

// ActivityRepo implements activity.Repository against PostgreSQL.
type ActivityRepo struct{ pinger }

// NewActivityRepo creates a Postgres-backed activity repository.
func NewActivityRepo(db *sql.DB) *ActivityRepo { return &ActivityRepo{pinger{db}} }

const activityColumns = `user_id, email, last_active, last_sign_in, visit_history, progress, created_at`

func (r *ActivityRepo) Get(ctx context.Context, userID string) (*domain.ActivityRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+activityColumns+` FROM launchpad_activity WHERE user_id = $1`, userID)
	return scanActivity(row)
}

// Put upserts the whole document. The last write wins.
func (r *ActivityRepo) Put(ctx context.Context, rec *domain.ActivityRecord) error {
	history, err := json.Marshal(rec.VisitHistory)
	if err != nil {
		return fmt.Errorf("marshal visit history: %w", err)
	}
	progress, err := json.Marshal(rec.Progress)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO launchpad_activity (`+activityColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			email = EXCLUDED.email,
			last_active = EXCLUDED.last_active,
			last_sign_in = EXCLUDED.last_sign_in,
			visit_history = EXCLUDED.visit_history,
			progress = EXCLUDED.progress
	`, rec.UserID, rec.Email, rec.LastActive, nullTime(rec.LastSignIn), history, progress, rec.CreatedAt)
	return classify("put activity", err)
}

func (r *ActivityRepo) List(ctx context.Context) ([]domain.ActivityRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+activityColumns+` FROM launchpad_activity ORDER BY last_active DESC`)
	if err != nil {
		return nil, classify("list activity", err)
	}
	defer rows.Close()

	out := []domain.ActivityRecord{}
	for rows.Next() {
		rec, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, classify("list activity", rows.Err())
}

func scanActivity(s scanner) (*domain.ActivityRecord, error) {
	var (
		rec               domain.ActivityRecord
		lastSignIn        sql.NullTime
		history, progress []byte
	)
	err := s.Scan(&rec.UserID, &rec.Email, &rec.LastActive, &lastSignIn, &history, &progress, &rec.CreatedAt)
	if err != nil {
		return nil, classify("scan activity", err)
	}
	if err := json.Unmarshal(history, &rec.VisitHistory); err != nil {
		return nil, fmt.Errorf("decode visit history for %s: %w", rec.UserID, err)
	}
	if err := json.Unmarshal(progress, &rec.Progress); err != nil {
		return nil, fmt.Errorf("decode progress for %s: %w", rec.UserID, err)
	}
	if rec.VisitHistory == nil {
		rec.VisitHistory = []domain.Visit{}
	}
	if rec.Progress == nil {
		rec.Progress = domain.Progress{}
	}
	rec.LastActive = rec.LastActive.UTC()
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.LastSignIn = timePtr(lastSignIn)
	return &rec, nil
}
