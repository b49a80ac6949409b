package notification

import (
	"context"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	"strings"
	"sync"
	texttemplate "text/template"

	"golang.org/x/text/language"
)

// TemplateEngine renders the first resolvable template from an ordered list
// of candidate paths. Implementations must return ErrTemplateNotFound
// (wrapped or bare) when none of the candidates resolve, so the renderer
// can treat the format as unavailable rather than failing the dispatch.
type TemplateEngine interface {
	Render(ctx context.Context, candidates []string, data map[string]any, autoescape bool) (string, error)
}

// Translator resolves a message key for a locale. It is exposed to
// templates as the "t" function, bound to the locale carried by the render
// context.
type Translator func(locale language.Tag, key string) string

// FSEngine is a TemplateEngine over an fs.FS. Plain-text renders go through
// text/template; escaped renders go through html/template, which applies
// context-aware escaping. Template source is cached per path; parsing
// happens per render because the "t" function is bound to the recipient's
// locale.
type FSEngine struct {
	fsys      fs.FS
	translate Translator

	mu     sync.RWMutex
	source map[string][]byte // path -> raw template, nil = known missing
}

// FSEngineOption configures an FSEngine.
type FSEngineOption func(*FSEngine)

// WithTranslator exposes locale-aware message lookup to templates.
func WithTranslator(t Translator) FSEngineOption {
	return func(e *FSEngine) {
		e.translate = t
	}
}

// NewFSEngine creates a template engine reading templates from fsys.
func NewFSEngine(fsys fs.FS, opts ...FSEngineOption) *FSEngine {
	e := &FSEngine{
		fsys:   fsys,
		source: make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render implements TemplateEngine.
func (e *FSEngine) Render(ctx context.Context, candidates []string, data map[string]any, autoescape bool) (string, error) {
	path, raw, ok := e.resolve(candidates)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, strings.Join(candidates, ", "))
	}

	var sb strings.Builder
	if autoescape {
		tpl, err := htmltemplate.New(path).Funcs(e.funcs(ctx)).Parse(string(raw))
		if err != nil {
			return "", fmt.Errorf("failed to parse template %q: %w", path, err)
		}
		if err := tpl.Execute(&sb, data); err != nil {
			return "", fmt.Errorf("failed to render template %q: %w", path, err)
		}
		return sb.String(), nil
	}

	tpl, err := texttemplate.New(path).Funcs(e.funcs(ctx)).Parse(string(raw))
	if err != nil {
		return "", fmt.Errorf("failed to parse template %q: %w", path, err)
	}
	if err := tpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render template %q: %w", path, err)
	}
	return sb.String(), nil
}

// funcs builds the per-render function map. The "t" function is bound to
// the locale carried by ctx so translations follow the recipient, not the
// process.
func (e *FSEngine) funcs(ctx context.Context) map[string]any {
	locale, _ := LocaleFromContext(ctx)
	translate := e.translate
	return map[string]any{
		"t": func(key string) string {
			if translate == nil {
				return key
			}
			return translate(locale, key)
		},
	}
}

// resolve returns the first candidate that exists, together with its
// source. Lookups, hits and misses alike, are cached.
func (e *FSEngine) resolve(candidates []string) (string, []byte, bool) {
	for _, path := range candidates {
		e.mu.RLock()
		raw, known := e.source[path]
		e.mu.RUnlock()

		if !known {
			data, err := fs.ReadFile(e.fsys, path)
			if err != nil {
				data = nil
			}
			e.mu.Lock()
			e.source[path] = data
			e.mu.Unlock()
			raw = data
		}

		if raw != nil {
			return path, raw, true
		}
	}
	return "", nil, false
}
