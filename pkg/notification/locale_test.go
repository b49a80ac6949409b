package notification

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestLocaleContext(t *testing.T) {
	t.Parallel()

	_, ok := LocaleFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithLocale(context.Background(), language.German)
	tag, ok := LocaleFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, language.German, tag)

	// A derived context shadows without touching the parent.
	child := WithLocale(ctx, language.French)
	tag, ok = LocaleFromContext(child)
	require.True(t, ok)
	assert.Equal(t, language.French, tag)

	tag, ok = LocaleFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, language.German, tag)
}

func TestStaticLocaleStore(t *testing.T) {
	t.Parallel()

	store := StaticLocaleStore{"u1": language.French}

	tag, err := store.Lookup(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, language.French, tag)

	_, err = store.Lookup(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrLocaleUnavailable)
}

func TestFileLocaleStore(t *testing.T) {
	t.Parallel()

	t.Run("loads and parses the mapping", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "locales.yml")
		require.NoError(t, os.WriteFile(path, []byte("u1: fr\nu2: de-AT\n"), 0o600))

		store := NewFileLocaleStore(path)

		tag, err := store.Lookup(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, language.French, tag)

		tag, err = store.Lookup(context.Background(), "u2")
		require.NoError(t, err)
		assert.Equal(t, language.MustParse("de-AT"), tag)

		_, err = store.Lookup(context.Background(), "u3")
		assert.ErrorIs(t, err, ErrLocaleUnavailable)
	})

	t.Run("missing file degrades to unavailable", func(t *testing.T) {
		t.Parallel()

		store := NewFileLocaleStore(filepath.Join(t.TempDir(), "nope.yml"))
		_, err := store.Lookup(context.Background(), "u1")
		assert.ErrorIs(t, err, ErrLocaleUnavailable)
	})

	t.Run("invalid locale tag degrades to unavailable", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "locales.yml")
		require.NoError(t, os.WriteFile(path, []byte("u1: not a locale\n"), 0o600))

		store := NewFileLocaleStore(path)
		_, err := store.Lookup(context.Background(), "u1")
		assert.ErrorIs(t, err, ErrLocaleUnavailable)
	})
}
