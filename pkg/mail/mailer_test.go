package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validMessage() Message {
	return Message{
		From:    "noreply@example.com",
		To:      []string{"user@example.com"},
		Subject: "hello",
		Text:    "hi there",
	}
}

func TestMessage_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Message)
		wantErr error
	}{
		{
			name:   "valid message",
			mutate: func(m *Message) {},
		},
		{
			name:    "missing from",
			mutate:  func(m *Message) { m.From = "" },
			wantErr: ErrInvalidMessage,
		},
		{
			name:    "malformed from",
			mutate:  func(m *Message) { m.From = "not-an-email" },
			wantErr: ErrInvalidMessage,
		},
		{
			name:    "no recipients",
			mutate:  func(m *Message) { m.To = nil },
			wantErr: ErrNoRecipients,
		},
		{
			name:    "malformed recipient",
			mutate:  func(m *Message) { m.To = []string{"user@example.com", "bad@"} },
			wantErr: ErrInvalidMessage,
		},
		{
			name:    "missing subject",
			mutate:  func(m *Message) { m.Subject = "" },
			wantErr: ErrInvalidMessage,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			msg := validMessage()
			tt.mutate(&msg)

			err := msg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
