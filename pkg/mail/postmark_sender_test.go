package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPostmarkSender(t *testing.T) {
	t.Parallel()

	valid := Config{
		PostmarkServerToken:  "server-token",
		PostmarkAccountToken: "account-token",
		SenderEmail:          "noreply@example.com",
	}

	t.Run("valid config", func(t *testing.T) {
		t.Parallel()
		sender, err := NewPostmarkSender(valid)
		require.NoError(t, err)
		assert.NotNil(t, sender)
	})

	t.Run("missing server token", func(t *testing.T) {
		t.Parallel()
		cfg := valid
		cfg.PostmarkServerToken = ""
		_, err := NewPostmarkSender(cfg)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("missing account token", func(t *testing.T) {
		t.Parallel()
		cfg := valid
		cfg.PostmarkAccountToken = ""
		_, err := NewPostmarkSender(cfg)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("malformed sender email", func(t *testing.T) {
		t.Parallel()
		cfg := valid
		cfg.SenderEmail = "not-an-email"
		_, err := NewPostmarkSender(cfg)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("must panics on invalid config", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { MustNewPostmarkSender(Config{}) })
	})
}
