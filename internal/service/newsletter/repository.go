package newsletter

import (
	"context"

	"github.com/equihome/launchpad/internal/domain"
)

// Repository defines the data access contract for subscribers.
type Repository interface {
	// Get returns domain.ErrNotFound for unknown emails.
	Get(ctx context.Context, email string) (*domain.NewsletterSubscriber, error)

	// Create returns domain.ErrConflict when the email already exists.
	Create(ctx context.Context, s *domain.NewsletterSubscriber) error

	List(ctx context.Context) ([]domain.NewsletterSubscriber, error)
}

// Notifier sends the welcome email. Calls must not block the caller.
type Notifier interface {
	NewsletterWelcome(s domain.NewsletterSubscriber)
}

// EventPublisher forwards lead lifecycle events. Calls must not block the caller.
type EventPublisher interface {
	Publish(e domain.LeadEvent)
}
