package api

import (
	"net/http"
	"strconv"

	"github.com/equihome/launchpad/internal/domain"
	"github.com/equihome/launchpad/internal/pkg/httputil"
)

// AdminMetrics handles GET /api/admin/metrics.
func (h *Handlers) AdminMetrics(w http.ResponseWriter, r *http.Request) {
	m, err := h.admin.Metrics(r.Context())
	if err != nil {
		httputil.FromError(w, err)
		return
	}
	httputil.OK(w, m)
}

// RecentActivity handles GET /api/admin/recent-activity?limit=.
func (h *Handlers) RecentActivity(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			httputil.BadRequest(w, "limit: must be a positive integer")
			return
		}
		limit = n
	}

	recs, err := h.admin.RecentActivity(r.Context(), limit)
	if err != nil {
		httputil.FromError(w, err)
		return
	}
	if recs == nil {
		recs = []domain.ActivityRecord{}
	}
	httputil.OK(w, recs)
}

// Subscribers handles GET /api/admin/subscribers.
func (h *Handlers) Subscribers(w http.ResponseWriter, r *http.Request) {
	subs, err := h.admin.Subscribers(r.Context())
	if err != nil {
		httputil.FromError(w, err)
		return
	}
	if subs == nil {
		subs = []domain.NewsletterSubscriber{}
	}
	httputil.OK(w, subs)
}

// Allowlist handles GET /api/admin/allowlist.
func (h *Handlers) Allowlist(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, h.access.Allowlist())
}

// ExportSnapshot handles POST /api/admin/export.
func (h *Handlers) ExportSnapshot(w http.ResponseWriter, r *http.Request) {
	key, err := h.admin.ExportSnapshot(r.Context())
	if err != nil {
		httputil.FromError(w, err)
		return
	}
	httputil.OK(w, map[string]string{"key": key})
}
