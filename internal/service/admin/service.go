package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/equihome/launchpad/internal/domain"
	"github.com/equihome/launchpad/internal/pkg/logger"
)

// MaxRecentActivity caps the recent-activity listing.
const MaxRecentActivity = 50

// ErrExportDisabled is returned when no snapshot store is configured.
var ErrExportDisabled = fmt.Errorf("snapshot export not configured: %w", domain.ErrUnavailable)

// AccessReader lists access requests.
type AccessReader interface {
	ListAll(ctx context.Context) ([]domain.AccessRequest, error)
}

// ActivityReader lists visitor activity, most recently active first.
type ActivityReader interface {
	List(ctx context.Context) ([]domain.ActivityRecord, error)
}

// SubscriberReader lists newsletter subscribers.
type SubscriberReader interface {
	List(ctx context.Context) ([]domain.NewsletterSubscriber, error)
}

// SnapshotStore persists an exported snapshot under key.
type SnapshotStore interface {
	PutSnapshot(ctx context.Context, key string, body []byte) error
}

// Config tunes the admin service.
type Config struct {
	ActiveWindow time.Duration
	RecentLimit  int
	ExportPrefix string
}

// Service serves the admin dashboard.
type Service struct {
	access      AccessReader
	activity    ActivityReader
	subscribers SubscriberReader
	snapshots   SnapshotStore
	cfg         Config
	now         func() time.Time
}

// NewService creates an admin service. snapshots may be nil, which
// disables ExportSnapshot.
func NewService(access AccessReader, activity ActivityReader, subscribers SubscriberReader, snapshots SnapshotStore, cfg Config) *Service {
	if cfg.ActiveWindow <= 0 {
		cfg.ActiveWindow = 7 * 24 * time.Hour
	}
	if cfg.RecentLimit <= 0 || cfg.RecentLimit > MaxRecentActivity {
		cfg.RecentLimit = MaxRecentActivity
	}
	if cfg.ExportPrefix == "" {
		cfg.ExportPrefix = "snapshots"
	}
	return &Service{
		access:      access,
		activity:    activity,
		subscribers: subscribers,
		snapshots:   snapshots,
		cfg:         cfg,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Metrics is the dashboard summary.
type Metrics struct {
	TotalUsers            int            `json:"totalUsers"`
	ActiveUsers           int            `json:"activeUsers"`
	ScheduledCalls        int            `json:"scheduledCalls"`
	WebinarRegistrations  int            `json:"webinarRegistrations"`
	NewsletterSubscribers int            `json:"newsletterSubscribers"`
	PendingRequests       int            `json:"pendingRequests"`
	ApprovedRequests      int            `json:"approvedRequests"`
	MilestoneCounts       map[string]int `json:"milestoneCounts"`
	GeneratedAt           time.Time      `json:"generatedAt"`
}

// Metrics counts visitors, milestones, subscribers and request states.
// Active visitors are those seen within the configured window.
func (s *Service) Metrics(ctx context.Context) (*Metrics, error) {
	recs, err := s.activity.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	subs, err := s.subscribers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	reqs, err := s.access.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	now := s.now()
	cutoff := now.Add(-s.cfg.ActiveWindow)
	m := &Metrics{
		TotalUsers:            len(recs),
		NewsletterSubscribers: len(subs),
		MilestoneCounts:       make(map[string]int),
		GeneratedAt:           now,
	}
	for _, r := range recs {
		if r.LastActive.After(cutoff) {
			m.ActiveUsers++
		}
		if r.Progress.Reached(domain.ProgressCallScheduled) {
			m.ScheduledCalls++
		}
		if r.Progress.Reached(domain.ProgressWebinarRegistered) {
			m.WebinarRegistrations++
		}
		for k := range r.Progress {
			if r.Progress.Reached(k) {
				m.MilestoneCounts[k]++
			}
		}
	}
	for _, r := range reqs {
		switch r.Status {
		case domain.StatusPending:
			m.PendingRequests++
		case domain.StatusApproved:
			m.ApprovedRequests++
		}
	}
	return m, nil
}

// RecentActivity returns up to the configured limit of visitors by
// lastActive, newest first. limit is clamped to MaxRecentActivity.
func (s *Service) RecentActivity(ctx context.Context, limit int) ([]domain.ActivityRecord, error) {
	if limit <= 0 || limit > s.cfg.RecentLimit {
		limit = s.cfg.RecentLimit
	}
	recs, err := s.activity.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// Subscribers returns every newsletter subscriber.
func (s *Service) Subscribers(ctx context.Context) ([]domain.NewsletterSubscriber, error) {
	return s.subscribers.List(ctx)
}

// Snapshot is the exported document.
type Snapshot struct {
	GeneratedAt    time.Time                     `json:"generatedAt"`
	AccessRequests []domain.AccessRequest        `json:"accessRequests"`
	Activity       []domain.ActivityRecord       `json:"activity"`
	Subscribers    []domain.NewsletterSubscriber `json:"subscribers"`
}

// ExportSnapshot writes every collection to the snapshot store under
// <prefix>/YYYY/MM/DD/HH-MM-SS.json and returns the key.
func (s *Service) ExportSnapshot(ctx context.Context) (string, error) {
	if s.snapshots == nil {
		return "", ErrExportDisabled
	}

	snap := Snapshot{GeneratedAt: s.now()}
	var err error
	if snap.AccessRequests, err = s.access.ListAll(ctx); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	if snap.Activity, err = s.activity.List(ctx); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	if snap.Subscribers, err = s.subscribers.List(ctx); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}

	body, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("export: marshal snapshot: %w", err)
	}

	key := SnapshotKey(s.cfg.ExportPrefix, snap.GeneratedAt)
	if err := s.snapshots.PutSnapshot(ctx, key, body); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	logger.Info("snapshot exported", "key", key, "bytes", len(body),
		"access_requests", len(snap.AccessRequests), "visitors", len(snap.Activity), "subscribers", len(snap.Subscribers))
	return key, nil
}

// SnapshotKey builds the object key for a snapshot taken at t.
func SnapshotKey(prefix string, t time.Time) string {
	t = t.UTC()
	return path.Join(prefix, t.Format("2006/01/02"), t.Format("15-04-05")+".json")
}
