package api

import (
	"github.com/equihome/launchpad/internal/service/access"
	"github.com/equihome/launchpad/internal/service/activity"
	"github.com/equihome/launchpad/internal/service/admin"
	"github.com/equihome/launchpad/internal/service/newsletter"
)

// Handlers holds the services behind the HTTP routes.
type Handlers struct {
	access     *access.Service
	activity   *activity.Service
	newsletter *newsletter.Service
	admin      *admin.Service
	health     *HealthChecker
}

// NewHandlers creates the route handlers.
func NewHandlers(
	accessSvc *access.Service,
	activitySvc *activity.Service,
	newsletterSvc *newsletter.Service,
	adminSvc *admin.Service,
	health *HealthChecker,
) *Handlers {
	return &Handlers{
		access:     accessSvc,
		activity:   activitySvc,
		newsletter: newsletterSvc,
		admin:      adminSvc,
		health:     health,
	}
}
