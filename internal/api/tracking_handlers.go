package api

import (
	"net/http"

	"github.com/equihome/launchpad/internal/domain"
	"github.com/equihome/launchpad/internal/pkg/httputil"
	"github.com/equihome/launchpad/internal/service/activity"
)

type activityBody struct {
	UserID        string `json:"userId"`
	Email         string `json:"email"`
	Page          string `json:"page"`
	ScheduledDate string `json:"scheduledDate,omitempty"`
}

type progressBody struct {
	UserID   string          `json:"userId"`
	Progress domain.Progress `json:"progress"`
}

type signInBody struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

var success = map[string]bool{"success": true}

// TrackActivity handles POST /api/track/activity.
func (h *Handlers) TrackActivity(w http.ResponseWriter, r *http.Request) {
	var body activityBody
	if !httputil.Decode(w, r, &body) {
		return
	}

	pv := activity.PageView{UserID: body.UserID, Email: body.Email, Page: body.Page}
	if body.ScheduledDate != "" {
		t, err := domain.ParseProgressTime(body.ScheduledDate)
		if err != nil {
			httputil.BadRequest(w, "scheduledDate: must be an ISO 8601 timestamp")
			return
		}
		pv.ScheduledDate = &t
	}

	if err := h.activity.RecordPageView(r.Context(), pv); err != nil {
		httputil.FromError(w, err)
		return
	}
	httputil.OK(w, success)
}

// TrackProgress handles POST /api/track/progress.
func (h *Handlers) TrackProgress(w http.ResponseWriter, r *http.Request) {
	var body progressBody
	if !httputil.Decode(w, r, &body) {
		return
	}
	if err := h.activity.MergeProgress(r.Context(), body.UserID, body.Progress); err != nil {
		httputil.FromError(w, err)
		return
	}
	httputil.OK(w, success)
}

// TrackSignIn handles POST /api/track/signin.
func (h *Handlers) TrackSignIn(w http.ResponseWriter, r *http.Request) {
	var body signInBody
	if !httputil.Decode(w, r, &body) {
		return
	}
	if err := h.activity.RecordSignIn(r.Context(), body.UserID, body.Email); err != nil {
		httputil.FromError(w, err)
		return
	}
	httputil.OK(w, success)
}
