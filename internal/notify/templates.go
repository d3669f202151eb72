package notify

import (
	"fmt"

	"github.com/osteele/liquid"
)

// Template names.
const (
	TemplateOperatorAlert     = "operator_alert"
	TemplateRequestAck        = "request_ack"
	TemplateApproved          = "approved"
	TemplateDenied            = "denied"
	TemplateNewsletterWelcome = "newsletter_welcome"
)

type source struct {
	subject, html, text string
}

// User-supplied values are escaped in the HTML bodies.
var sources = map[string]source{
	TemplateOperatorAlert: {
		subject: `New {{ resource }} access request from {{ email }}`,
		html: `<p>{{ name | default: "Someone" | escape }} ({{ email | escape }}) requested access to the <strong>{{ resource }}</strong>.</p>
<p>Request ID: {{ request_id }}<br>Submitted: {{ submitted_at }}</p>
<p><a href="{{ site_url }}/admin">Review pending requests</a></p>`,
		text: `{{ name | default: "Someone" }} ({{ email }}) requested access to the {{ resource }}.
Request ID: {{ request_id }}
Submitted: {{ submitted_at }}
Review: {{ site_url }}/admin`,
	},
	TemplateRequestAck: {
		subject: `We received your {{ resource }} access request`,
		html: `<p>Hi {{ name | default: "there" | escape }},</p>
<p>Thanks for your interest in Equihome. We have received your request to access the <strong>{{ resource }}</strong> and will be in touch shortly.</p>`,
		text: `Hi {{ name | default: "there" }},

Thanks for your interest in Equihome. We have received your request to access the {{ resource }} and will be in touch shortly.`,
	},
	TemplateApproved: {
		subject: `Your {{ resource }} access has been approved`,
		html: `<p>Hi {{ name | default: "there" | escape }},</p>
<p>Your access to the <strong>{{ resource }}</strong> has been approved.</p>
<p><a href="{{ site_url }}">Open the {{ resource }}</a> and sign in with {{ email | escape }}.</p>`,
		text: `Hi {{ name | default: "there" }},

Your access to the {{ resource }} has been approved.
Open it at {{ site_url }} and sign in with {{ email }}.`,
	},
	TemplateDenied: {
		subject: `Update on your {{ resource }} access request`,
		html: `<p>Hi {{ name | default: "there" | escape }},</p>
<p>Thank you for your interest. We are unable to grant access to the <strong>{{ resource }}</strong> at this time.</p>`,
		text: `Hi {{ name | default: "there" }},

Thank you for your interest. We are unable to grant access to the {{ resource }} at this time.`,
	},
	TemplateNewsletterWelcome: {
		subject: `Welcome to the Equihome newsletter`,
		html: `<p>Thanks for subscribing with {{ email | escape }}.</p>
<p>You will hear from us when there is news on our portfolio and upcoming webinars.</p>`,
		text: `Thanks for subscribing with {{ email }}.

You will hear from us when there is news on our portfolio and upcoming webinars.`,
	},
}

type parsed struct {
	subject, html, text *liquid.Template
}

// Templates holds the parsed email templates.
type Templates struct {
	byName map[string]parsed
}

// NewTemplates parses every built-in template.
func NewTemplates() (*Templates, error) {
	engine := liquid.NewEngine()
	t := &Templates{byName: make(map[string]parsed, len(sources))}
	for name, src := range sources {
		var p parsed
		for _, part := range []struct {
			dst  **liquid.Template
			body string
		}{{&p.subject, src.subject}, {&p.html, src.html}, {&p.text, src.text}} {
			tpl, serr := engine.ParseString(part.body)
			if serr != nil {
				return nil, fmt.Errorf("parse template %s: %w", name, serr)
			}
			*part.dst = tpl
		}
		t.byName[name] = p
	}
	return t, nil
}

// Render builds a message body from the named template.
func (t *Templates) Render(name string, vars map[string]any) (Message, error) {
	p, ok := t.byName[name]
	if !ok {
		return Message{}, fmt.Errorf("unknown template %q", name)
	}
	subject, serr := p.subject.RenderString(vars)
	if serr != nil {
		return Message{}, fmt.Errorf("render %s subject: %w", name, serr)
	}
	html, serr := p.html.RenderString(vars)
	if serr != nil {
		return Message{}, fmt.Errorf("render %s html: %w", name, serr)
	}
	text, serr := p.text.RenderString(vars)
	if serr != nil {
		return Message{}, fmt.Errorf("render %s text: %w", name, serr)
	}
	return Message{
		Subject: subject,
		HTML:    html,
		Text:    text,
		Tags:    map[string]string{"template": name},
	}, nil
}
