package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/equihome/launchpad/internal/domain"
	"github.com/equihome/launchpad/internal/pkg/logger"
)

// View is the gate's answer for one resource.
type View struct {
	Allowed   bool
	Since     *time.Time
	FromCache bool
}

// Gate decides what the local session may show, asking the server first and
// falling back to the cache only when the server cannot be reached.
type Gate struct {
	client *Client
	cache  Cache
	now    func() time.Time
}

// NewGate creates a gate over client and cache.
func NewGate(c *Client, cache Cache) *Gate {
	return &Gate{client: c, cache: cache, now: time.Now}
}

// VisitorID returns the persisted visitor id, generating one on first use.
func (g *Gate) VisitorID() (string, error) {
	s, err := g.cache.Load()
	if err != nil {
		return "", err
	}
	if s.VisitorID != "" {
		return s.VisitorID, nil
	}
	s.VisitorID = uuid.NewString()
	if err := g.cache.Save(s); err != nil {
		return "", fmt.Errorf("persist visitor id: %w", err)
	}
	return s.VisitorID, nil
}

// CanView checks access for email on resource. A server answer always wins
// and refreshes the cached grant. Only a transport failure consults the
// cache; server errors (4xx, 5xx) are returned as-is.
func (g *Gate) CanView(ctx context.Context, email string, resource domain.RequestType) (View, error) {
	key := grantKey(email, resource)

	d, err := g.client.CheckAccess(ctx, email, resource)
	if err == nil {
		g.updateGrant(key, d)
		return View{Allowed: d.HasAccess, Since: d.Since}, nil
	}
	if !errors.Is(err, ErrUnreachable) {
		return View{}, err
	}

	s, cerr := g.cache.Load()
	if cerr != nil {
		return View{}, err
	}
	since, ok := s.Grants[key]
	if !ok {
		return View{FromCache: true}, nil
	}
	logger.Info("access check served from cache", "email", email, "resource", string(resource))
	return View{Allowed: true, Since: &since, FromCache: true}, nil
}

// TrackProgress writes progress to the server and mirrors it locally once
// the server has accepted it.
func (g *Gate) TrackProgress(ctx context.Context, userID string, patch domain.Progress) error {
	if err := g.client.UpdateProgress(ctx, userID, patch); err != nil {
		return err
	}
	s, err := g.cache.Load()
	if err != nil {
		return err
	}
	s.Progress = s.Progress.Merge(patch)
	return g.cache.Save(s)
}

// Progress returns the locally mirrored progress.
func (g *Gate) Progress() (domain.Progress, error) {
	s, err := g.cache.Load()
	if err != nil {
		return nil, err
	}
	return s.Progress, nil
}

func (g *Gate) updateGrant(key string, d AccessDecision) {
	s, err := g.cache.Load()
	if err != nil {
		logger.Warn("access cache unreadable", "error", err)
		return
	}
	if d.HasAccess && !d.Degraded {
		if s.Grants == nil {
			s.Grants = make(map[string]time.Time)
		}
		since := g.now().UTC()
		if d.Since != nil {
			since = *d.Since
		}
		s.Grants[key] = since
	} else if !d.Degraded {
		delete(s.Grants, key)
	}
	if err := g.cache.Save(s); err != nil {
		logger.Warn("access cache not saved", "error", err)
	}
}
