package domain

import "time"

// NewsletterSubscriber is created once per email and never modified.
type NewsletterSubscriber struct {
	Email        string    `json:"email"`
	SubscribedAt time.Time `json:"subscribedAt"`
}
