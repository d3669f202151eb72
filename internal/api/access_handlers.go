package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/equihome/launchpad/internal/auth"
	"github.com/equihome/launchpad/internal/domain"
	"github.com/equihome/launchpad/internal/pkg/httputil"
	"github.com/equihome/launchpad/internal/service/access"
)

type requestAccessBody struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	RequestType string `json:"requestType"`
}

type statusBody struct {
	Status     string `json:"status"`
	AdminEmail string `json:"adminEmail"`
}

type grantBody struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	RequestType string `json:"requestType"`
	AdminEmail  string `json:"adminEmail"`
}

type revokeBody struct {
	Email       string `json:"email"`
	RequestType string `json:"requestType"`
	AdminEmail  string `json:"adminEmail"`
}

type requestResponse struct {
	Message string                `json:"message"`
	Request *domain.AccessRequest `json:"request"`
}

// RequestAccess handles POST /api/request-access.
func (h *Handlers) RequestAccess(w http.ResponseWriter, r *http.Request) {
	var body requestAccessBody
	if !httputil.Decode(w, r, &body) {
		return
	}

	req, outcome, err := h.access.RequestAccess(r.Context(), access.RequestInput{
		Email:       body.Email,
		Name:        body.Name,
		RequestType: body.RequestType,
	})
	if err != nil {
		httputil.FromError(w, err)
		return
	}

	msg := "Access request submitted successfully"
	if outcome == access.OutcomeAlreadyApproved {
		msg = "Access already granted"
	}
	httputil.Created(w, map[string]string{
		"message":   msg,
		"requestId": req.ID,
	})
}

// CheckAccess handles GET /api/check-access?email=&resourceType=.
func (h *Handlers) CheckAccess(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	decision, err := h.access.CheckAccess(r.Context(), q.Get("email"), q.Get("resourceType"))
	if err != nil {
		httputil.FromError(w, err)
		return
	}
	httputil.OK(w, decision)
}

// ListAccessRequests handles GET /api/access-requests.
func (h *Handlers) ListAccessRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.access.ListAll(r.Context())
	if err != nil {
		httputil.FromError(w, err)
		return
	}
	if reqs == nil {
		reqs = []domain.AccessRequest{}
	}
	httputil.OK(w, reqs)
}

// UpdateAccessRequest handles POST and PUT /api/access-requests/{id}.
func (h *Handlers) UpdateAccessRequest(w http.ResponseWriter, r *http.Request) {
	var body statusBody
	if !httputil.Decode(w, r, &body) {
		return
	}

	req, err := h.access.SetStatus(r.Context(), chi.URLParam(r, "id"), body.Status, approverFor(r, body.AdminEmail))
	if err != nil {
		httputil.FromError(w, err)
		return
	}
	httputil.OK(w, requestResponse{
		Message: "Access request " + string(req.Status),
		Request: req,
	})
}

// GrantAccess handles POST /api/grant-access.
func (h *Handlers) GrantAccess(w http.ResponseWriter, r *http.Request) {
	var body grantBody
	if !httputil.Decode(w, r, &body) {
		return
	}

	req, err := h.access.GrantManually(r.Context(), access.GrantInput{
		Email:       body.Email,
		Name:        body.Name,
		RequestType: body.RequestType,
		Approver:    approverFor(r, body.AdminEmail),
	})
	if err != nil {
		httputil.FromError(w, err)
		return
	}
	httputil.OK(w, requestResponse{Message: "Access granted", Request: req})
}

// RevokeAccess handles POST /api/revoke-access.
func (h *Handlers) RevokeAccess(w http.ResponseWriter, r *http.Request) {
	var body revokeBody
	if !httputil.Decode(w, r, &body) {
		return
	}

	req, err := h.access.Revoke(r.Context(), body.Email, body.RequestType, approverFor(r, body.AdminEmail))
	if err != nil {
		httputil.FromError(w, err)
		return
	}
	httputil.OK(w, requestResponse{Message: "Access revoked", Request: req})
}

// approverFor picks the acting admin: the body field, then the token
// identity. Empty falls through to the configured default approver.
func approverFor(r *http.Request, adminEmail string) string {
	if adminEmail != "" {
		return adminEmail
	}
	if a, ok := auth.AdminFromContext(r.Context()); ok {
		return a.Email
	}
	return ""
}
