package domain

import (
	"net/mail"
	"strings"
	"time"
)

// RequestType enumerates the independently gated resource areas.
type RequestType string

const (
	RequestDealRoom    RequestType = "dealRoom"
	RequestPortfolioOS RequestType = "portfolioOS"
	RequestTechDemo    RequestType = "techDemo"
)

// RequestTypes lists every gated resource type in display order.
var RequestTypes = []RequestType{RequestDealRoom, RequestPortfolioOS, RequestTechDemo}

// ParseRequestType validates s against the known resource types.
func ParseRequestType(s string) (RequestType, error) {
	switch rt := RequestType(strings.TrimSpace(s)); rt {
	case RequestDealRoom, RequestPortfolioOS, RequestTechDemo:
		return rt, nil
	case "":
		return "", NewValidationError("requestType", "is required")
	default:
		return "", NewValidationError("requestType", "must be one of dealRoom, portfolioOS, techDemo")
	}
}

// DisplayName returns the human-readable area name used in emails.
func (t RequestType) DisplayName() string {
	switch t {
	case RequestDealRoom:
		return "Deal Room"
	case RequestPortfolioOS:
		return "Portfolio OS"
	case RequestTechDemo:
		return "Tech Demo"
	}
	return string(t)
}

// AccessStatus enumerates the states of an access request.
type AccessStatus string

const (
	StatusPending  AccessStatus = "pending"
	StatusApproved AccessStatus = "approved"
	StatusDenied   AccessStatus = "denied"
)

// ParseAccessStatus validates s against the known statuses.
func ParseAccessStatus(s string) (AccessStatus, error) {
	switch st := AccessStatus(strings.TrimSpace(s)); st {
	case StatusPending, StatusApproved, StatusDenied:
		return st, nil
	case "":
		return "", NewValidationError("status", "is required")
	default:
		return "", NewValidationError("status", "must be one of pending, approved, denied")
	}
}

// AccessRequest is one email asking for entry to one gated resource type.
// At most one record exists per (Email, RequestType).
type AccessRequest struct {
	ID          string       `json:"id"`
	Email       string       `json:"email"`
	Name        string       `json:"name"`
	RequestType RequestType  `json:"requestType"`
	Status      AccessStatus `json:"status"`
	Timestamp   time.Time    `json:"timestamp"`
	ApprovedAt  *time.Time   `json:"approvedAt,omitempty"`
	ApprovedBy  string       `json:"approvedBy,omitempty"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Approve moves the request to approved and stamps the approver.
func (r *AccessRequest) Approve(by string, at time.Time) {
	r.Status = StatusApproved
	r.ApprovedAt = &at
	r.ApprovedBy = by
	r.UpdatedAt = at
}

// Deny moves the request to denied and clears any approval stamps.
func (r *AccessRequest) Deny(at time.Time) {
	r.Status = StatusDenied
	r.ClearApproval()
	r.UpdatedAt = at
}

// ClearApproval removes the approval stamps.
func (r *AccessRequest) ClearApproval() {
	r.ApprovedAt = nil
	r.ApprovedBy = ""
}

// IsApproved reports whether the request currently grants access.
func (r *AccessRequest) IsApproved() bool {
	return r.Status == StatusApproved
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail normalizes email and rejects empty or malformed addresses.
func ValidateEmail(email string) (string, error) {
	e := NormalizeEmail(email)
	if e == "" {
		return "", NewValidationError("email", "is required")
	}
	addr, err := mail.ParseAddress(e)
	if err != nil || addr.Address != e {
		return "", NewValidationError("email", "is not a valid address")
	}
	return e, nil
}
