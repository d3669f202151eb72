package postgres

import (
	"context"
	"database/sql"

	"github.com/equihome/launchpad/internal/domain"
)

// NewsletterRepo implements newsletter.Repository against PostgreSQL.
type NewsletterRepo struct{ pinger }

// NewNewsletterRepo creates a Postgres-backed subscriber repository.
func NewNewsletterRepo(db *sql.DB) *NewsletterRepo { return &NewsletterRepo{pinger{db}} }

func (r *NewsletterRepo) Get(ctx context.Context, email string) (*domain.NewsletterSubscriber, error) {
	var s domain.NewsletterSubscriber
	err := r.db.QueryRowContext(ctx,
		`SELECT email, subscribed_at FROM launchpad_newsletter_subscribers WHERE email = $1`, email,
	).Scan(&s.Email, &s.SubscribedAt)
	if err != nil {
		return nil, classify("get subscriber", err)
	}
	s.SubscribedAt = s.SubscribedAt.UTC()
	return &s, nil
}

func (r *NewsletterRepo) Create(ctx context.Context, s *domain.NewsletterSubscriber) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO launchpad_newsletter_subscribers (email, subscribed_at) VALUES ($1, $2)`,
		s.Email, s.SubscribedAt)
	return classify("create subscriber", err)
}

func (r *NewsletterRepo) List(ctx context.Context) ([]domain.NewsletterSubscriber, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT email, subscribed_at FROM launchpad_newsletter_subscribers ORDER BY subscribed_at DESC`)
	if err != nil {
		return nil, classify("list subscribers", err)
	}
	defer rows.Close()

	out := []domain.NewsletterSubscriber{}
	for rows.Next() {
		var s domain.NewsletterSubscriber
		if err := rows.Scan(&s.Email, &s.SubscribedAt); err != nil {
			return nil, classify("scan subscriber", err)
		}
		s.SubscribedAt = s.SubscribedAt.UTC()
		out = append(out, s)
	}
	return out, classify("list subscribers", rows.Err())
}
