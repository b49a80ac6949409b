package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mrz1836/postmark"
)

type postmarkSender struct {
	client *postmark.Client
	config Config
}

// NewPostmarkSender creates a Postmark-backed mail sender. Both tokens are
// required for runtime operation - this enforces explicit configuration
// rather than silent failures in production.
func NewPostmarkSender(cfg Config) (Sender, error) {
	if cfg.PostmarkServerToken == "" {
		return nil, fmt.Errorf("%w: PostmarkServerToken is required", ErrInvalidConfig)
	}
	if cfg.PostmarkAccountToken == "" {
		return nil, fmt.Errorf("%w: PostmarkAccountToken is required", ErrInvalidConfig)
	}
	if cfg.SenderEmail != "" && !emailRegex.MatchString(cfg.SenderEmail) {
		return nil, fmt.Errorf("%w: SenderEmail must be a valid email address", ErrInvalidConfig)
	}

	return &postmarkSender{
		client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		config: cfg,
	}, nil
}

// MustNewPostmarkSender creates a Postmark sender that panics on invalid
// config, failing fast during initialization.
func MustNewPostmarkSender(cfg Config) Sender {
	sender, err := NewPostmarkSender(cfg)
	if err != nil {
		panic(err)
	}
	return sender
}

func (s *postmarkSender) SendPlain(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	return s.send(ctx, msg, "")
}

func (s *postmarkSender) SendMultipart(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if msg.HTML == "" {
		return ErrMissingHTML
	}
	return s.send(ctx, msg, msg.HTML)
}

func (s *postmarkSender) send(ctx context.Context, msg Message, html string) error {
	from := msg.From
	if from == "" {
		from = s.config.SenderEmail
	}

	headers := make([]postmark.Header, 0, len(msg.Headers))
	for name, value := range msg.Headers {
		headers = append(headers, postmark.Header{Name: name, Value: value})
	}

	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:     from,
		ReplyTo:  s.config.ReplyToEmail,
		To:       strings.Join(msg.To, ","),
		Subject:  msg.Subject,
		Tag:      msg.Tag,
		TextBody: msg.Text,
		HTMLBody: html,
		Headers:  headers,
	})
	if err != nil {
		return errors.Join(ErrFailedToSend, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(
			ErrFailedToSend,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message),
		)
	}
	return nil
}
