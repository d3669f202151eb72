package activity

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/equihome/launchpad/internal/domain"
	"github.com/equihome/launchpad/internal/pkg/logger"
	"github.com/equihome/launchpad/internal/pkg/retry"
)

// ErrVisitorNotFound is returned when progress is merged for an unknown visitor.
var ErrVisitorNotFound = fmt.Errorf("visitor %w", domain.ErrNotFound)

// Service records visitor activity.
type Service struct {
	repo   Repository
	policy retry.Policy
	now    func() time.Time
}

// NewService creates an activity service. A zero policy retries three
// times with 100ms linear backoff.
func NewService(repo Repository, policy retry.Policy) *Service {
	if policy.Attempts == 0 {
		policy.Attempts = retry.Default.Attempts
	}
	if policy.Delay == 0 {
		policy.Delay = retry.Default.Delay
	}
	policy.Retryable = func(err error) bool { return errors.Is(err, domain.ErrUnavailable) }
	return &Service{
		repo:   repo,
		policy: policy,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// PageView is one tracked page visit.
type PageView struct {
	UserID        string
	Email         string
	Page          string
	ScheduledDate *time.Time
}

// RecordPageView appends a visit, creating the visitor on first sight.
func (s *Service) RecordPageView(ctx context.Context, pv PageView) error {
	userID, err := domain.ValidateUserID(pv.UserID)
	if err != nil {
		return err
	}
	page := strings.TrimSpace(pv.Page)
	if page == "" {
		return domain.NewValidationError("page", "is required")
	}
	email := domain.NormalizeEmail(pv.Email)
	if email == "" {
		return domain.NewValidationError("email", "is required")
	}

	return s.mutate(ctx, "record page view", userID, true, func(rec *domain.ActivityRecord, now time.Time) {
		visit := domain.Visit{Page: page, Timestamp: now}
		if pv.ScheduledDate != nil {
			sd := pv.ScheduledDate.UTC()
			visit.ScheduledDate = &sd
		}
		rec.VisitHistory = append(rec.VisitHistory, visit)
		rec.Touch(email, now)
	})
}

// RecordSignIn stamps a sign-in, creating the visitor on first sight.
func (s *Service) RecordSignIn(ctx context.Context, userID, email string) error {
	id, err := domain.ValidateUserID(userID)
	if err != nil {
		return err
	}
	e := domain.NormalizeEmail(email)
	if e == "" {
		return domain.NewValidationError("email", "is required")
	}

	return s.mutate(ctx, "record sign-in", id, true, func(rec *domain.ActivityRecord, now time.Time) {
		rec.LastSignIn = &now
		rec.Touch(e, now)
	})
}

// MergeProgress folds patch into the visitor's progress map. Keys in patch
// overwrite, absent keys are kept, and a false flag never clears a
// milestone already reached. Unknown visitors are not created.
func (s *Service) MergeProgress(ctx context.Context, userID string, patch domain.Progress) error {
	id, err := domain.ValidateUserID(userID)
	if err != nil {
		return err
	}
	if patch == nil {
		return domain.NewValidationError("progress", "is required")
	}

	return s.mutate(ctx, "merge progress", id, false, func(rec *domain.ActivityRecord, now time.Time) {
		rec.Progress = rec.Progress.Merge(patch)
		rec.Touch("", now)
	})
}

// Get returns the visitor's record.
func (s *Service) Get(ctx context.Context, userID string) (*domain.ActivityRecord, error) {
	id, err := domain.ValidateUserID(userID)
	if err != nil {
		return nil, err
	}
	rec, err := s.repo.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", id, ErrVisitorNotFound)
	}
	return rec, err
}

// List returns every visitor, most recently active first.
func (s *Service) List(ctx context.Context) ([]domain.ActivityRecord, error) {
	recs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].LastActive.After(recs[j].LastActive)
	})
	return recs, nil
}

// mutate runs get, apply and put as one retried unit so a retry re-reads
// the document instead of re-putting a stale copy.
func (s *Service) mutate(ctx context.Context, op, userID string, create bool, apply func(*domain.ActivityRecord, time.Time)) error {
	err := retry.Do(ctx, s.policy, op, func(ctx context.Context) error {
		now := s.now()
		rec, err := s.repo.Get(ctx, userID)
		switch {
		case errors.Is(err, domain.ErrNotFound) && create:
			rec = domain.NewActivityRecord(userID, now)
		case errors.Is(err, domain.ErrNotFound):
			return fmt.Errorf("%s: %w", userID, ErrVisitorNotFound)
		case err != nil:
			return err
		}
		if rec.Progress == nil {
			rec.Progress = domain.Progress{}
		}
		apply(rec, now)
		return s.repo.Put(ctx, rec)
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Error("activity write failed", "op", op, "user_id", userID, "error", err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
