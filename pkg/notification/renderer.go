package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// templateRoot is the directory prefix all notification templates live
// under, mirroring the template layout consumers ship with their apps:
//
//	notification/<label>/<format>   label-specific variant
//	notification/<format>           generic fallback
const templateRoot = "notification"

// Subject and body wrapper templates fed with the prerendered short and
// full text messages.
const (
	subjectTemplate = "email_subject.txt"
	bodyTemplate    = "email_body.txt"
)

// SiteLinks carries the site identity injected into every render context.
type SiteLinks struct {
	URL         string // absolute base URL of the site
	NoticesURL  string // absolute URL of the notice list page
	SettingsURL string // absolute URL of the notice settings page
}

// SiteLinksFromConfig builds the absolute URLs from the configured base URL
// and route paths.
func SiteLinksFromConfig(cfg Config) SiteLinks {
	base := strings.TrimRight(cfg.SiteURL, "/")
	return SiteLinks{
		URL:         base,
		NoticesURL:  base + cfg.NoticesPath,
		SettingsURL: base + cfg.SettingsPath,
	}
}

// Renderer produces the per-format message variants for a notification.
type Renderer struct {
	engine TemplateEngine
	site   SiteLinks
	logger *slog.Logger
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithRendererLogger sets the logger for the Renderer.
func WithRendererLogger(logger *slog.Logger) RendererOption {
	return func(r *Renderer) {
		r.logger = logger
	}
}

// NewRenderer creates a renderer over the given template engine.
func NewRenderer(engine TemplateEngine, site SiteLinks, opts ...RendererOption) *Renderer {
	r := &Renderer{
		engine: engine,
		site:   site,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Context builds the render context for a recipient: site identity and the
// recipient/sender pair first, then the caller's extra context layered on
// top. Caller keys win on collision.
func (r *Renderer) Context(recipient User, sender *User, extra map[string]any) map[string]any {
	data := map[string]any{
		"recipient":            recipient,
		"sender":               sender,
		"site_url":             r.site.URL,
		"notices_url":          r.site.NoticesURL,
		"notices_settings_url": r.site.SettingsURL,
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

// Formats renders each requested format for the labeled notification. A
// label-specific template is preferred over the generic per-format
// fallback. Plain-text formats render without escaping; everything else is
// HTML-escaped. A format whose templates are all missing is logged and
// omitted from the result; any other render failure aborts.
func (r *Renderer) Formats(ctx context.Context, label string, formats []Format, data map[string]any) (map[Format]string, error) {
	messages := make(map[Format]string, len(formats))
	for _, format := range formats {
		candidates := []string{
			fmt.Sprintf("%s/%s/%s", templateRoot, label, format),
			fmt.Sprintf("%s/%s", templateRoot, format),
		}

		rendered, err := r.engine.Render(ctx, candidates, data, !format.PlainText())
		if err != nil {
			if errors.Is(err, ErrTemplateNotFound) {
				r.logger.LogAttrs(ctx, slog.LevelError, "Notification template missing",
					slog.String("label", label),
					slog.String("format", string(format)),
					logger.Error(err),
				)
				continue
			}
			return nil, err
		}
		messages[format] = rendered
	}
	return messages, nil
}

// EmailSubject renders the subject wrapper template fed with the
// prerendered short message, strips embedded newlines, and prepends the
// configured prefix.
func (r *Renderer) EmailSubject(ctx context.Context, prefix, message string, data map[string]any) (string, error) {
	wrapped := cloneContext(data)
	wrapped["message"] = message

	subject, err := r.engine.Render(ctx, []string{templateRoot + "/" + subjectTemplate}, wrapped, false)
	if err != nil {
		return "", err
	}
	subject = strings.ReplaceAll(subject, "\r", "")
	subject = strings.ReplaceAll(subject, "\n", "")
	return prefix + subject, nil
}

// EmailBody renders the body wrapper template fed with the prerendered
// full text message.
func (r *Renderer) EmailBody(ctx context.Context, message string, data map[string]any) (string, error) {
	wrapped := cloneContext(data)
	wrapped["message"] = message
	return r.engine.Render(ctx, []string{templateRoot + "/" + bodyTemplate}, wrapped, false)
}

func cloneContext(data map[string]any) map[string]any {
	clone := make(map[string]any, len(data)+1)
	for k, v := range data {
		clone[k] = v
	}
	return clone
}
