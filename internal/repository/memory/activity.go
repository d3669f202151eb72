package memory

import (
	"context"
	"sync"

	"github.com/equihome/launchpad/internal/domain"
)

// ActivityRepo implements activity.Repository in memory.
type ActivityRepo struct {
	mu    sync.RWMutex
	store map[string]domain.ActivityRecord
}

// NewActivityRepo creates an empty in-memory activity repository.
func NewActivityRepo() *ActivityRepo {
	return &ActivityRepo{store: make(map[string]domain.ActivityRecord)}
}

func (r *ActivityRepo) Get(_ context.Context, userID string) (*domain.ActivityRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.store[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyActivity(rec), nil
}

func (r *ActivityRepo) Put(_ context.Context, rec *domain.ActivityRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store[rec.UserID] = *copyActivity(*rec)
	return nil
}

func (r *ActivityRepo) List(_ context.Context) ([]domain.ActivityRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ActivityRecord, 0, len(r.store))
	for _, rec := range r.store {
		out = append(out, *copyActivity(rec))
	}
	return out, nil
}

// Ping always succeeds.
func (r *ActivityRepo) Ping(context.Context) error { return nil }

func copyActivity(rec domain.ActivityRecord) *domain.ActivityRecord {
	if rec.LastSignIn != nil {
		at := *rec.LastSignIn
		rec.LastSignIn = &at
	}
	history := make([]domain.Visit, len(rec.VisitHistory))
	for i, v := range rec.VisitHistory {
		if v.ScheduledDate != nil {
			sd := *v.ScheduledDate
			v.ScheduledDate = &sd
		}
		history[i] = v
	}
	rec.VisitHistory = history
	progress := make(domain.Progress, len(rec.Progress))
	for k, v := range rec.Progress {
		progress[k] = v
	}
	rec.Progress = progress
	return &rec
}
