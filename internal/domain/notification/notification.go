package notification

import (
	"context"
	"errors"
)

var ErrNoRecipient = errors.New("notification: recipient is required")

// Message is a rendered email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

func (m Message) Validate() error {
	if m.To == "" {
		return ErrNoRecipient
	}
	return nil
}

// Notifier delivers a message. Callers treat it as fire-and-forget.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
