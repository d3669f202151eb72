package domain

import (
	"strings"
	"time"
)

// Visit is one tracked page view.
type Visit struct {
	Page          string     `json:"page"`
	Timestamp     time.Time  `json:"timestamp"`
	ScheduledDate *time.Time `json:"scheduledDate,omitempty"`
}

// ActivityRecord is the per-visitor document keyed by a client-generated
// visitor id. VisitHistory only grows and Progress only merges.
type ActivityRecord struct {
	UserID       string     `json:"userId"`
	Email        string     `json:"email"`
	LastActive   time.Time  `json:"lastActive"`
	LastSignIn   *time.Time `json:"lastSignIn,omitempty"`
	VisitHistory []Visit    `json:"visitHistory"`
	Progress     Progress   `json:"progress"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// NewActivityRecord returns an empty record for a first-seen visitor.
func NewActivityRecord(userID string, now time.Time) *ActivityRecord {
	return &ActivityRecord{
		UserID:       userID,
		LastActive:   now,
		VisitHistory: []Visit{},
		Progress:     Progress{},
		CreatedAt:    now,
	}
}

// Touch records activity at now, overwriting the email when one is given.
func (r *ActivityRecord) Touch(email string, now time.Time) {
	if email != "" {
		r.Email = email
	}
	if now.After(r.LastActive) {
		r.LastActive = now
	}
}

// ValidateUserID trims the visitor id and rejects empty values.
func ValidateUserID(userID string) (string, error) {
	id := strings.TrimSpace(userID)
	if id == "" {
		return "", NewValidationError("userId", "is required")
	}
	return id, nil
}
