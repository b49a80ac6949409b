package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DevSender implements Sender for local development. It saves messages as
// text/HTML and JSON files to a directory instead of sending them through
// a transport.
type DevSender struct {
	dir string
}

// NewDevSender creates a development mail sender that saves messages to
// disk. The directory will be created if it doesn't exist.
func NewDevSender(dir string) *DevSender {
	return &DevSender{dir: dir}
}

// messageMetadata contains the message data saved to JSON (excluding bodies).
type messageMetadata struct {
	Timestamp string            `json:"timestamp"`
	From      string            `json:"from"`
	To        []string          `json:"to"`
	Subject   string            `json:"subject"`
	Headers   map[string]string `json:"headers,omitempty"`
	Tag       string            `json:"tag,omitempty"`
	Multipart bool              `json:"multipart"`
}

func (d *DevSender) SendPlain(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	return d.save(msg, false)
}

func (d *DevSender) SendMultipart(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if msg.HTML == "" {
		return ErrMissingHTML
	}
	return d.save(msg, true)
}

func (d *DevSender) save(msg Message, multipart bool) error {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return fmt.Errorf("%w: failed to create directory: %v", ErrFailedToSend, err)
	}

	now := time.Now()
	identifier := msg.Tag
	if identifier == "" {
		identifier = msg.Subject
	}
	base := fmt.Sprintf("%s_%s", now.Format("2006_01_02_150405"), sanitizeFilename(identifier))

	textPath := filepath.Join(d.dir, base+".txt")
	if err := os.WriteFile(textPath, []byte(msg.Text), 0644); err != nil {
		return fmt.Errorf("%w: failed to write text file: %v", ErrFailedToSend, err)
	}

	if multipart {
		htmlPath := filepath.Join(d.dir, base+".html")
		if err := os.WriteFile(htmlPath, []byte(msg.HTML), 0644); err != nil {
			return fmt.Errorf("%w: failed to write HTML file: %v", ErrFailedToSend, err)
		}
	}

	metadata := messageMetadata{
		Timestamp: now.Format(time.RFC3339),
		From:      msg.From,
		To:        msg.To,
		Subject:   msg.Subject,
		Headers:   msg.Headers,
		Tag:       msg.Tag,
		Multipart: multipart,
	}
	jsonData, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to marshal metadata: %v", ErrFailedToSend, err)
	}
	jsonPath := filepath.Join(d.dir, base+".json")
	if err := os.WriteFile(jsonPath, jsonData, 0644); err != nil {
		return fmt.Errorf("%w: failed to write JSON file: %v", ErrFailedToSend, err)
	}

	return nil
}

// sanitizeRegex matches characters that are not alphanumeric, dash,
// underscore, or dot.
var sanitizeRegex = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// sanitizeFilename converts a string into a safe filename.
func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = sanitizeRegex.ReplaceAllString(s, "")

	const maxLength = 100
	if len(s) > maxLength {
		s = s[:maxLength]
	}
	if s == "" {
		s = "message"
	}
	return strings.ToLower(s)
}
