package postgres

import (
	"context"
	"database/sql"

	"github.com/equihome/launchpad/internal/domain"
)

// AccessRepo implements access.Repository against PostgreSQL.
type AccessRepo struct{ pinger }

// NewAccessRepo creates a Postgres-backed access repository.
func NewAccessRepo(db *sql.DB) *AccessRepo { return &AccessRepo{pinger{db}} }

const accessColumns = `id, email, name, request_type, status, requested_at, approved_at, approved_by, updated_at`

func (r *AccessRepo) Get(ctx context.Context, id string) (*domain.AccessRequest, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accessColumns+` FROM launchpad_access_requests WHERE id = $1`, id)
	return scanAccess(row)
}

func (r *AccessRepo) FindByEmailAndType(ctx context.Context, email string, rt domain.RequestType) (*domain.AccessRequest, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accessColumns+` FROM launchpad_access_requests WHERE email = $1 AND request_type = $2`,
		email, string(rt))
	return scanAccess(row)
}

func (r *AccessRepo) Create(ctx context.Context, req *domain.AccessRequest) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO launchpad_access_requests (`+accessColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, req.ID, req.Email, req.Name, string(req.RequestType), string(req.Status),
		req.Timestamp, nullTime(req.ApprovedAt), req.ApprovedBy, req.UpdatedAt)
	return classify("create access request", err)
}

func (r *AccessRepo) Update(ctx context.Context, req *domain.AccessRequest) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE launchpad_access_requests
		SET name = $2, status = $3, requested_at = $4, approved_at = $5, approved_by = $6, updated_at = $7
		WHERE id = $1
	`, req.ID, req.Name, string(req.Status), req.Timestamp, nullTime(req.ApprovedAt), req.ApprovedBy, req.UpdatedAt)
	if err != nil {
		return classify("update access request", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *AccessRepo) List(ctx context.Context) ([]domain.AccessRequest, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accessColumns+` FROM launchpad_access_requests ORDER BY requested_at DESC`)
	if err != nil {
		return nil, classify("list access requests", err)
	}
	defer rows.Close()

	out := []domain.AccessRequest{}
	for rows.Next() {
		req, err := scanAccess(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	return out, classify("list access requests", rows.Err())
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccess(s scanner) (*domain.AccessRequest, error) {
	var (
		req        domain.AccessRequest
		rt, status string
		approvedAt sql.NullTime
	)
	err := s.Scan(&req.ID, &req.Email, &req.Name, &rt, &status,
		&req.Timestamp, &approvedAt, &req.ApprovedBy, &req.UpdatedAt)
	if err != nil {
		return nil, classify("scan access request", err)
	}
	req.RequestType = domain.RequestType(rt)
	req.Status = domain.AccessStatus(status)
	req.Timestamp = req.Timestamp.UTC()
	req.UpdatedAt = req.UpdatedAt.UTC()
	req.ApprovedAt = timePtr(approvedAt)
	return &req, nil
}
