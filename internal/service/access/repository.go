package access

import (
	"context"

	"github.com/equihome/launchpad/internal/domain"
)

// Repository defines the data access contract for access requests.
// Implementations return domain.ErrNotFound for missing records and wrap
// transport failures with domain.ErrUnavailable.
type Repository interface {
	// Get returns the request with the given id.
	Get(ctx context.Context, id string) (*domain.AccessRequest, error)

	// FindByEmailAndType returns the single request for the pair.
	// The email is already normalized.
	FindByEmailAndType(ctx context.Context, email string, rt domain.RequestType) (*domain.AccessRequest, error)

	// Create inserts a new request.
	Create(ctx context.Context, r *domain.AccessRequest) error

	// Update overwrites an existing request. There is no version check:
	// the last write wins.
	Update(ctx context.Context, r *domain.AccessRequest) error

	// List returns every request in no particular order.
	List(ctx context.Context) ([]domain.AccessRequest, error)
}

// Notifier sends the workflow emails. Calls must not block the caller.
type Notifier interface {
	AccessRequested(r domain.AccessRequest)
	AccessApproved(r domain.AccessRequest)
	AccessDenied(r domain.AccessRequest)
}

// EventPublisher forwards lead lifecycle events. Calls must not block the caller.
type EventPublisher interface {
	Publish(e domain.LeadEvent)
}

type nopNotifier struct{}

func (nopNotifier) AccessRequested(domain.AccessRequest) {}
func (nopNotifier) AccessApproved(domain.AccessRequest)  {}
func (nopNotifier) AccessDenied(domain.AccessRequest)    {}

type nopPublisher struct{}

func (nopPublisher) Publish(domain.LeadEvent) {}
