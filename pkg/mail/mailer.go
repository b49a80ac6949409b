package mail

import (
	"context"
	"fmt"
	"regexp"
)

// Sender is the outbound mail transport consumed by the dispatch engine.
// SendPlain delivers a text-only message; SendMultipart delivers a
// text-plus-HTML alternative pair. Both require at least one recipient:
// the engine skips the transport call entirely when permission gating
// leaves the recipient list empty.
type Sender interface {
	SendPlain(ctx context.Context, msg Message) error
	SendMultipart(ctx context.Context, msg Message) error
}

// Message holds the parameters of an outbound email.
type Message struct {
	From    string            `json:"from"`
	To      []string          `json:"to"`
	Subject string            `json:"subject"`
	Text    string            `json:"text"`
	HTML    string            `json:"html,omitempty"` // required for SendMultipart
	Headers map[string]string `json:"headers,omitempty"`
	Tag     string            `json:"tag,omitempty"`
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

// Validate checks the message for the fields every transport requires.
func (m Message) Validate() error {
	if m.From == "" {
		return fmt.Errorf("%w: from address is required", ErrInvalidMessage)
	}
	if !emailRegex.MatchString(m.From) {
		return fmt.Errorf("%w: invalid from address %q", ErrInvalidMessage, m.From)
	}
	if len(m.To) == 0 {
		return ErrNoRecipients
	}
	for _, to := range m.To {
		if !emailRegex.MatchString(to) {
			return fmt.Errorf("%w: invalid recipient address %q", ErrInvalidMessage, to)
		}
	}
	if m.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	}
	return nil
}
