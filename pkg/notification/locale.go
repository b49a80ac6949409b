package notification

import (
	"context"
	"fmt"
	"os"
	"sync"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// localeContextKey is the key for storing the active locale in context.
type localeContextKey struct{}

// WithLocale returns a context carrying the given locale. The dispatch
// engine derives a per-user context for rendering; the caller's context is
// never mutated, so the locale active before a batch is the locale active
// after it.
func WithLocale(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, localeContextKey{}, tag)
}

// LocaleFromContext returns the locale carried by the context, if any.
func LocaleFromContext(ctx context.Context) (language.Tag, bool) {
	tag, ok := ctx.Value(localeContextKey{}).(language.Tag)
	return tag, ok
}

// LocaleStore looks up a user's preferred notification locale. Every
// failure mode (no entry, misconfigured backend) is collapsed into
// ErrLocaleUnavailable; the engine then keeps the caller's locale.
type LocaleStore interface {
	Lookup(ctx context.Context, userID string) (language.Tag, error)
}

// StaticLocaleStore is a fixed user-to-locale mapping.
type StaticLocaleStore map[string]language.Tag

// Lookup implements LocaleStore.
func (s StaticLocaleStore) Lookup(ctx context.Context, userID string) (language.Tag, error) {
	tag, ok := s[userID]
	if !ok {
		return language.Und, ErrLocaleUnavailable
	}
	return tag, nil
}

// FileLocaleStore loads a YAML user-to-locale mapping from disk once, on
// first lookup. The file is a flat map of user IDs to BCP 47 tags.
type FileLocaleStore struct {
	path string

	once    sync.Once
	locales StaticLocaleStore
	loadErr error
}

// NewFileLocaleStore creates a store backed by the YAML file at path.
func NewFileLocaleStore(path string) *FileLocaleStore {
	return &FileLocaleStore{path: path}
}

// Lookup implements LocaleStore.
func (s *FileLocaleStore) Lookup(ctx context.Context, userID string) (language.Tag, error) {
	s.once.Do(s.load)
	if s.loadErr != nil {
		// A misconfigured store degrades to "unavailable", never a hard error.
		return language.Und, fmt.Errorf("%w: %v", ErrLocaleUnavailable, s.loadErr)
	}
	return s.locales.Lookup(ctx, userID)
}

func (s *FileLocaleStore) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.loadErr = err
		return
	}

	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		s.loadErr = err
		return
	}

	locales := make(StaticLocaleStore, len(raw))
	for userID, code := range raw {
		tag, err := language.Parse(code)
		if err != nil {
			s.loadErr = fmt.Errorf("invalid locale %q for user %s: %w", code, userID, err)
			return
		}
		locales[userID] = tag
	}
	s.locales = locales
}
