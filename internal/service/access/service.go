package access

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/equihome/launchpad/internal/domain"
	"github.com/equihome/launchpad/internal/pkg/logger"
	"github.com/equihome/launchpad/internal/pkg/retry"
)

// Config tunes the access service.
type Config struct {
	// DefaultApprover is recorded as approvedBy when the caller names nobody.
	DefaultApprover string
	// Retry bounds storage writes. Only domain.ErrUnavailable is retried.
	Retry retry.Policy
}

// Service implements the access workflow. It is safe for concurrent use,
// but concurrent mutations of one request race and the last write wins.
type Service struct {
	repo   Repository
	allow  *Allowlist
	notify Notifier
	events EventPublisher
	cfg    Config
	now    func() time.Time
}

// NewService creates an access service. notify and events may be nil.
func NewService(repo Repository, allow *Allowlist, notify Notifier, events EventPublisher, cfg Config) *Service {
	if notify == nil {
		notify = nopNotifier{}
	}
	if events == nil {
		events = nopPublisher{}
	}
	if cfg.Retry.Retryable == nil {
		cfg.Retry.Retryable = isTransient
	}
	return &Service{
		repo:   repo,
		allow:  allow,
		notify: notify,
		events: events,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func isTransient(err error) bool {
	return errors.Is(err, domain.ErrUnavailable)
}

// RequestInput is the public access request form.
type RequestInput struct {
	Email       string
	Name        string
	RequestType string
}

// Outcome describes what RequestAccess did with the submission.
type Outcome string

const (
	OutcomeCreated         Outcome = "created"
	OutcomeRefreshed       Outcome = "refreshed"
	OutcomeReopened        Outcome = "reopened"
	OutcomeAlreadyApproved Outcome = "already_approved"
)

// RequestAccess upserts a request for (email, type). A new or re-opened
// request triggers the operator alert, the requester acknowledgment and an
// access.requested event. An approved request is returned unchanged.
func (s *Service) RequestAccess(ctx context.Context, in RequestInput) (*domain.AccessRequest, Outcome, error) {
	email, err := domain.ValidateEmail(in.Email)
	if err != nil {
		return nil, "", err
	}
	rt, err := domain.ParseRequestType(in.RequestType)
	if err != nil {
		return nil, "", err
	}
	name := strings.TrimSpace(in.Name)
	now := s.now()

	existing, err := s.repo.FindByEmailAndType(ctx, email, rt)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, "", fmt.Errorf("find access request: %w", err)
	}

	var (
		req     *domain.AccessRequest
		outcome Outcome
	)
	switch {
	case existing == nil:
		req = &domain.AccessRequest{
			ID:          uuid.NewString(),
			Email:       email,
			Name:        name,
			RequestType: rt,
			Status:      domain.StatusPending,
			Timestamp:   now,
			UpdatedAt:   now,
		}
		if err := s.write(ctx, "create access request", func(ctx context.Context) error {
			return s.repo.Create(ctx, req)
		}); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				// a concurrent submission created the pair first
				winner, ferr := s.repo.FindByEmailAndType(ctx, email, rt)
				if ferr != nil {
					return nil, "", fmt.Errorf("find access request: %w", ferr)
				}
				return winner, OutcomeRefreshed, nil
			}
			return nil, "", err
		}
		outcome = OutcomeCreated

	case existing.Status == domain.StatusApproved:
		logger.Info("access request for approved pair ignored", "email", email, "request_type", rt, "id", existing.ID)
		return existing, OutcomeAlreadyApproved, nil

	case existing.Status == domain.StatusDenied:
		req = existing
		if name != "" {
			req.Name = name
		}
		req.Status = domain.StatusPending
		req.ClearApproval()
		req.Timestamp = now
		req.UpdatedAt = now
		if err := s.update(ctx, req); err != nil {
			return nil, "", err
		}
		outcome = OutcomeReopened

	default:
		req = existing
		if name != "" && name != req.Name {
			req.Name = name
			req.UpdatedAt = now
			if err := s.update(ctx, req); err != nil {
				return nil, "", err
			}
		}
		logger.Info("access request refreshed", "email", email, "request_type", rt, "id", req.ID)
		return req, OutcomeRefreshed, nil
	}

	logger.Info("access request submitted", "email", email, "request_type", rt, "id", req.ID, "outcome", string(outcome))
	s.notify.AccessRequested(*req)
	s.events.Publish(domain.LeadEvent{
		Type:        domain.EventAccessRequested,
		Email:       req.Email,
		RequestID:   req.ID,
		RequestType: req.RequestType,
		OccurredAt:  now,
	})
	return req, outcome, nil
}

// Decision is the answer to an access check.
type Decision struct {
	HasAccess bool       `json:"hasAccess"`
	Since     *time.Time `json:"since,omitempty"`
	Hardcoded bool       `json:"hardcoded,omitempty"`
	Degraded  bool       `json:"degraded,omitempty"`
}

// CheckAccess decides whether email may view resourceType. Allowlisted
// emails are granted without touching the store. A store failure never
// grants access and never returns an error: the decision is flagged
// Degraded instead.
func (s *Service) CheckAccess(ctx context.Context, email, resourceType string) (Decision, error) {
	e := domain.NormalizeEmail(email)
	if e == "" {
		return Decision{}, domain.NewValidationError("email", "is required")
	}
	rt, err := domain.ParseRequestType(resourceType)
	if err != nil {
		return Decision{}, err
	}

	if s.allow.Allows(e, rt) {
		now := s.now()
		return Decision{HasAccess: true, Since: &now, Hardcoded: true}, nil
	}

	req, err := s.repo.FindByEmailAndType(ctx, e, rt)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return Decision{}, nil
	case err != nil:
		logger.Warn("access check degraded, store unavailable", "email", e, "request_type", rt, "error", err)
		return Decision{Degraded: true}, nil
	case !req.IsApproved():
		return Decision{}, nil
	}
	return Decision{HasAccess: true, Since: req.ApprovedAt}, nil
}

// SetStatus moves a request to status on behalf of approver. approved
// stamps the approver and sends the approval email; denied clears the
// stamps and sends the denial email; pending clears the stamps silently.
func (s *Service) SetStatus(ctx context.Context, id, status, approver string) (*domain.AccessRequest, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.NewValidationError("id", "is required")
	}
	st, err := domain.ParseAccessStatus(status)
	if err != nil {
		return nil, err
	}

	req, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", id, ErrRequestNotFound)
		}
		return nil, fmt.Errorf("get access request: %w", err)
	}

	now := s.now()
	actor := s.approver(approver)
	switch st {
	case domain.StatusApproved:
		req.Approve(actor, now)
	case domain.StatusDenied:
		req.Deny(now)
	default:
		req.Status = domain.StatusPending
		req.ClearApproval()
		req.UpdatedAt = now
	}

	if err := s.update(ctx, req); err != nil {
		return nil, err
	}
	logger.Info("access request status changed", "id", req.ID, "email", req.Email, "status", string(st), "approver", actor)

	switch st {
	case domain.StatusApproved:
		s.notify.AccessApproved(*req)
		s.publish(domain.EventAccessApproved, req, actor, now)
	case domain.StatusDenied:
		s.notify.AccessDenied(*req)
		s.publish(domain.EventAccessDenied, req, actor, now)
	}
	return req, nil
}

// GrantInput is an admin's manual grant.
type GrantInput struct {
	Email       string
	Name        string
	RequestType string
	Approver    string
}

// GrantManually upserts the (email, type) request straight to approved,
// creating a pre-approved record when none exists, and sends the approval
// email.
func (s *Service) GrantManually(ctx context.Context, in GrantInput) (*domain.AccessRequest, error) {
	email, err := domain.ValidateEmail(in.Email)
	if err != nil {
		return nil, err
	}
	rt, err := domain.ParseRequestType(in.RequestType)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	now := s.now()
	actor := s.approver(in.Approver)

	req, err := s.repo.FindByEmailAndType(ctx, email, rt)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		req = &domain.AccessRequest{
			ID:          uuid.NewString(),
			Email:       email,
			Name:        name,
			RequestType: rt,
			Timestamp:   now,
		}
		req.Approve(actor, now)
		if err := s.write(ctx, "create access request", func(ctx context.Context) error {
			return s.repo.Create(ctx, req)
		}); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("find access request: %w", err)
	default:
		if name != "" {
			req.Name = name
		}
		req.Approve(actor, now)
		if err := s.update(ctx, req); err != nil {
			return nil, err
		}
	}

	logger.Info("access granted manually", "id", req.ID, "email", email, "request_type", rt, "approver", actor)
	s.notify.AccessApproved(*req)
	s.publish(domain.EventAccessApproved, req, actor, now)
	return req, nil
}

// Revoke denies the (email, type) request and clears its stamps. No email
// is sent.
func (s *Service) Revoke(ctx context.Context, email, requestType, approver string) (*domain.AccessRequest, error) {
	e, err := domain.ValidateEmail(email)
	if err != nil {
		return nil, err
	}
	rt, err := domain.ParseRequestType(requestType)
	if err != nil {
		return nil, err
	}

	req, err := s.repo.FindByEmailAndType(ctx, e, rt)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%s/%s: %w", e, rt, ErrRequestNotFound)
		}
		return nil, fmt.Errorf("find access request: %w", err)
	}

	now := s.now()
	req.Deny(now)
	if err := s.update(ctx, req); err != nil {
		return nil, err
	}

	actor := s.approver(approver)
	logger.Info("access revoked", "id", req.ID, "email", e, "request_type", rt, "approver", actor)
	s.publish(domain.EventAccessRevoked, req, actor, now)
	return req, nil
}

// ListAll returns every request, newest first.
func (s *Service) ListAll(ctx context.Context) ([]domain.AccessRequest, error) {
	reqs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list access requests: %w", err)
	}
	sort.SliceStable(reqs, func(i, j int) bool {
		return reqs[i].Timestamp.After(reqs[j].Timestamp)
	})
	return reqs, nil
}

// CountPending returns the number of requests awaiting a decision.
func (s *Service) CountPending(ctx context.Context) (int, error) {
	reqs, err := s.repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list access requests: %w", err)
	}
	n := 0
	for _, r := range reqs {
		if r.Status == domain.StatusPending {
			n++
		}
	}
	return n, nil
}

// Allowlist returns the configured grants.
func (s *Service) Allowlist() []Grant {
	return s.allow.Grants()
}

func (s *Service) approver(name string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return s.cfg.DefaultApprover
}

func (s *Service) update(ctx context.Context, req *domain.AccessRequest) error {
	return s.write(ctx, "update access request", func(ctx context.Context) error {
		return s.repo.Update(ctx, req)
	})
}

func (s *Service) write(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if err := retry.Do(ctx, s.cfg.Retry, op, fn); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Service) publish(t domain.LeadEventType, req *domain.AccessRequest, actor string, at time.Time) {
	s.events.Publish(domain.LeadEvent{
		Type:        t,
		Email:       req.Email,
		RequestID:   req.ID,
		RequestType: req.RequestType,
		Actor:       actor,
		OccurredAt:  at,
	})
}
