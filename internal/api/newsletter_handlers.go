package api

import (
	"net/http"

	"github.com/equihome/launchpad/internal/pkg/httputil"
)

// Subscribe handles POST /api/newsletter/subscribe. New subscribers get 201,
// repeats get 200 with the existing record.
func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}

	sub, created, err := h.newsletter.Subscribe(r.Context(), body.Email)
	if err != nil {
		httputil.FromError(w, err)
		return
	}
	resp := map[string]any{"message": "Already subscribed", "subscriber": sub}
	if created {
		resp["message"] = "Subscribed successfully"
		httputil.Created(w, resp)
		return
	}
	httputil.OK(w, resp)
}
