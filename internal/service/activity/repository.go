package activity

import (
	"context"

	"github.com/equihome/launchpad/internal/domain"
)

// Repository defines the data access contract for visitor activity.
// Implementations return domain.ErrNotFound for unknown visitors and wrap
// transport failures with domain.ErrUnavailable.
type Repository interface {
	Get(ctx context.Context, userID string) (*domain.ActivityRecord, error)

	// Put replaces the whole document for rec.UserID.
	Put(ctx context.Context, rec *domain.ActivityRecord) error

	List(ctx context.Context) ([]domain.ActivityRecord, error)
}
