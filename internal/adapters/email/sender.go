package email

import (
	"context"
	"errors"
	"time"
)

// ErrNoRecipients is returned when a message has no addresses to deliver to.
var ErrNoRecipients = errors.New("email has no recipients")

// Message is a single outgoing email.
type Message struct {
	To      []string
	From    string // empty uses the sender's default
	Subject string
	HTML    string
	Text    string // plain-text alternative, optional
}

// Receipt is the provider's acknowledgement of a message.
type Receipt struct {
	MessageID string
	SentAt    time.Time
}

// Sender delivers email through a provider.
type Sender interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}
