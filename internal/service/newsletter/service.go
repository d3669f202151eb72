package newsletter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/equihome/launchpad/internal/domain"
	"github.com/equihome/launchpad/internal/pkg/logger"
)

// Service implements newsletter subscription.
type Service struct {
	repo   Repository
	notify Notifier
	events EventPublisher
	now    func() time.Time
}

// NewService creates a newsletter service. notify and events may be nil.
func NewService(repo Repository, notify Notifier, events EventPublisher) *Service {
	return &Service{
		repo:   repo,
		notify: notify,
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Subscribe adds email to the list. An existing subscriber is returned
// unchanged with created=false and no welcome email is sent.
func (s *Service) Subscribe(ctx context.Context, email string) (*domain.NewsletterSubscriber, bool, error) {
	e, err := domain.ValidateEmail(email)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.repo.Get(ctx, e)
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, false, fmt.Errorf("get subscriber: %w", err)
	}

	sub := &domain.NewsletterSubscriber{Email: e, SubscribedAt: s.now()}
	if err := s.repo.Create(ctx, sub); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// lost a race with a concurrent sign-up
			existing, gerr := s.repo.Get(ctx, e)
			if gerr != nil {
				return nil, false, fmt.Errorf("get subscriber: %w", gerr)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("create subscriber: %w", err)
	}

	logger.Info("newsletter subscriber added", "email", e)
	if s.notify != nil {
		s.notify.NewsletterWelcome(*sub)
	}
	if s.events != nil {
		s.events.Publish(domain.LeadEvent{
			Type:       domain.EventNewsletterSubscribed,
			Email:      e,
			OccurredAt: sub.SubscribedAt,
		})
	}
	return sub, true, nil
}

// List returns every subscriber, newest first.
func (s *Service) List(ctx context.Context) ([]domain.NewsletterSubscriber, error) {
	subs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].SubscribedAt.After(subs[j].SubscribedAt)
	})
	return subs, nil
}

// Count returns the number of subscribers.
func (s *Service) Count(ctx context.Context) (int, error) {
	subs, err := s.repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list subscribers: %w", err)
	}
	return len(subs), nil
}
