package memory

import (
	"context"
	"sync"

	"github.com/equihome/launchpad/internal/domain"
)

// NewsletterRepo implements newsletter.Repository in memory.
type NewsletterRepo struct {
	mu    sync.RWMutex
	store map[string]domain.NewsletterSubscriber
}

// NewNewsletterRepo creates an empty in-memory subscriber repository.
func NewNewsletterRepo() *NewsletterRepo {
	return &NewsletterRepo{store: make(map[string]domain.NewsletterSubscriber)}
}

func (r *NewsletterRepo) Get(_ context.Context, email string) (*domain.NewsletterSubscriber, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.store[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (r *NewsletterRepo) Create(_ context.Context, s *domain.NewsletterSubscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.store[s.Email]; ok {
		return domain.ErrConflict
	}
	r.store[s.Email] = *s
	return nil
}

func (r *NewsletterRepo) List(_ context.Context) ([]domain.NewsletterSubscriber, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.NewsletterSubscriber, 0, len(r.store))
	for _, s := range r.store {
		out = append(out, s)
	}
	return out, nil
}

// Ping always succeeds.
func (r *NewsletterRepo) Ping(context.Context) error { return nil }
