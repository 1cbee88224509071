// Package queue defines message payloads exchanged over the message broker.
package queue

// EmailQueueName is the durable queue carrying registration mail events.
const EmailQueueName = "auth.user-registered"

// UserRegisteredEvent is published after a registration has been committed
// and its response built.  The consumer turns it into a verification email;
// it carries everything needed to render the mail without querying the
// primary database.
type UserRegisteredEvent struct {
	EventID           string `json:"event_id"` // uuid, for consumer-side dedup and log correlation
	UserID            uint64 `json:"user_id"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	VerificationLink  string `json:"verification_link"`
	ExpiresInMinutes  int    `json:"expires_in_minutes"`
	RegisteredAt      string `json:"registered_at"`
}
