package mail

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listFiles(t *testing.T, dir, ext string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*"+ext))
	require.NoError(t, err)
	return matches
}

func TestDevSender_SendPlain(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sender := NewDevSender(dir)

	msg := validMessage()
	msg.Tag = "friends_invite"
	require.NoError(t, sender.SendPlain(context.Background(), msg))

	txt := listFiles(t, dir, ".txt")
	require.Len(t, txt, 1)
	body, err := os.ReadFile(txt[0])
	require.NoError(t, err)
	assert.Equal(t, "hi there", string(body))
	assert.Contains(t, filepath.Base(txt[0]), "friends_invite")

	assert.Empty(t, listFiles(t, dir, ".html"))

	jsonFiles := listFiles(t, dir, ".json")
	require.Len(t, jsonFiles, 1)
	raw, err := os.ReadFile(jsonFiles[0])
	require.NoError(t, err)
	var meta map[string]any
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, "noreply@example.com", meta["from"])
	assert.Equal(t, "hello", meta["subject"])
	assert.Equal(t, false, meta["multipart"])
}

func TestDevSender_SendMultipart(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sender := NewDevSender(dir)

	msg := validMessage()
	msg.HTML = "<p>hi there</p>"
	require.NoError(t, sender.SendMultipart(context.Background(), msg))

	html := listFiles(t, dir, ".html")
	require.Len(t, html, 1)
	body, err := os.ReadFile(html[0])
	require.NoError(t, err)
	assert.Equal(t, "<p>hi there</p>", string(body))

	// Multipart without HTML is a caller bug, not a silent downgrade.
	assert.ErrorIs(t, sender.SendMultipart(context.Background(), validMessage()), ErrMissingHTML)
}

func TestDevSender_InvalidMessage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sender := NewDevSender(dir)

	msg := validMessage()
	msg.To = nil
	assert.ErrorIs(t, sender.SendPlain(context.Background(), msg), ErrNoRecipients)
	assert.Empty(t, listFiles(t, dir, ".txt"))
}

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "you_were_invited", sanitizeFilename("You were invited"))
	assert.Equal(t, "invitehtml", sanitizeFilename(`invite<>/html`))
	assert.Equal(t, "message", sanitizeFilename("///"))
	assert.Len(t, sanitizeFilename(strings.Repeat("a", 200)), 100)
}
