package domain

import "time"

// LeadEventType enumerates lifecycle events published for downstream CRM sync.
type LeadEventType string

const (
	EventAccessRequested      LeadEventType = "access.requested"
	EventAccessApproved       LeadEventType = "access.approved"
	EventAccessDenied         LeadEventType = "access.denied"
	EventAccessRevoked        LeadEventType = "access.revoked"
	EventNewsletterSubscribed LeadEventType = "newsletter.subscribed"
)

// LeadEvent describes one lead lifecycle change.
type LeadEvent struct {
	Type        LeadEventType `json:"type"`
	Email       string        `json:"email"`
	RequestID   string        `json:"requestId,omitempty"`
	RequestType RequestType   `json:"requestType,omitempty"`
	Actor       string        `json:"actor,omitempty"`
	OccurredAt  time.Time     `json:"occurredAt"`
}
