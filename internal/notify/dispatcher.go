package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/equihome/launchpad/internal/domain"
	"github.com/equihome/launchpad/internal/pkg/logger"
)

// DispatcherConfig configures recipients and links.
type DispatcherConfig struct {
	OperatorEmails []string
	SiteURL        string
	Timeout        time.Duration
}

// Dispatcher renders workflow emails and sends each one on its own
// goroutine. It satisfies the notifier interfaces of the access and
// newsletter services.
type Dispatcher struct {
	mailer    Mailer
	templates *Templates
	cfg       DispatcherConfig
	wg        sync.WaitGroup
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(mailer Mailer, templates *Templates, cfg DispatcherConfig) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Dispatcher{mailer: mailer, templates: templates, cfg: cfg}
}

// AccessRequested alerts the operators and acknowledges the requester.
func (d *Dispatcher) AccessRequested(r domain.AccessRequest) {
	vars := d.accessVars(r)
	if len(d.cfg.OperatorEmails) > 0 {
		d.dispatch(TemplateOperatorAlert, d.cfg.OperatorEmails, vars)
	}
	d.dispatch(TemplateRequestAck, []string{r.Email}, vars)
}

// AccessApproved tells the requester they are in.
func (d *Dispatcher) AccessApproved(r domain.AccessRequest) {
	d.dispatch(TemplateApproved, []string{r.Email}, d.accessVars(r))
}

// AccessDenied tells the requester the request was declined.
func (d *Dispatcher) AccessDenied(r domain.AccessRequest) {
	d.dispatch(TemplateDenied, []string{r.Email}, d.accessVars(r))
}

// NewsletterWelcome greets a new subscriber.
func (d *Dispatcher) NewsletterWelcome(s domain.NewsletterSubscriber) {
	d.dispatch(TemplateNewsletterWelcome, []string{s.Email}, map[string]any{
		"email":    s.Email,
		"site_url": d.cfg.SiteURL,
	})
}

// Wait blocks until every in-flight send has finished. Call it only after
// the HTTP server has stopped, so no new send can start while it waits.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) accessVars(r domain.AccessRequest) map[string]any {
	return map[string]any{
		"email":        r.Email,
		"name":         r.Name,
		"resource":     r.RequestType.DisplayName(),
		"request_type": string(r.RequestType),
		"request_id":   r.ID,
		"submitted_at": r.Timestamp.Format("2 Jan 2006 15:04 MST"),
		"site_url":     d.cfg.SiteURL,
	}
}

func (d *Dispatcher) dispatch(template string, to []string, vars map[string]any) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("email send panicked", "template", template, "panic", fmt.Sprint(r))
			}
		}()

		msg, err := d.templates.Render(template, vars)
		if err != nil {
			logger.Error("email render failed", "template", template, "error", err)
			return
		}
		msg.To = to

		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
		defer cancel()
		if err := d.mailer.Send(ctx, msg); err != nil {
			logger.Warn("email send failed", "template", template, "to", to[0], "error", err)
			return
		}
		logger.Debug("email dispatched", "template", template, "to", to[0])
	}()
}
