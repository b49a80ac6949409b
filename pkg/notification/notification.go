package notification

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Channel identifies a delivery medium for notifications.
type Channel string

const (
	// ChannelEmail is the only channel shipped out of the box.
	ChannelEmail Channel = "email"
)

// Format identifies a rendered message variant. The suffix carries the
// escaping policy: ".txt" formats are rendered verbatim, everything else
// is HTML-escaped.
type Format string

const (
	FormatShortText  Format = "short.txt"
	FormatFullText   Format = "full.txt"
	FormatNoticeHTML Format = "notice.html"
	FormatFullHTML   Format = "full.html"
)

// PlainText reports whether the format is rendered without HTML escaping.
func (f Format) PlainText() bool {
	return strings.HasSuffix(string(f), ".txt")
}

// DefaultFormats is the full format set rendered by a dispatch.
func DefaultFormats() []Format {
	return []Format{FormatShortText, FormatFullText, FormatNoticeHTML, FormatFullHTML}
}

// NoticeType is a named category of notification. Label is the identity;
// Default is the sensitivity threshold used to derive per-channel opt-in
// defaults for users without an explicit setting.
type NoticeType struct {
	Label       string `json:"label"`
	Display     string `json:"display"`
	Description string `json:"description"`
	Default     int    `json:"default"`
}

// Setting records, for a given user, whether to deliver notifications of a
// given type through a given channel. At most one record exists per
// (user, label, channel) triple.
type Setting struct {
	UserID  string  `json:"user_id"`
	Label   string  `json:"label"`
	Channel Channel `json:"channel"`
	Send    bool    `json:"send"`
}

// Notice is the persisted in-site record of a sent notification. Message is
// pre-rendered at dispatch time, so later NoticeType edits do not alter
// past notices.
type Notice struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipient_id"`
	SenderID    string    `json:"sender_id,omitempty"`
	Message     string    `json:"message"`
	Label       string    `json:"label"`
	CreatedAt   time.Time `json:"created_at"`
	Unseen      bool      `json:"unseen"`
	Archived    bool      `json:"archived"`
	OnSite      bool      `json:"on_site"`
}

// ObjectRef identifies an arbitrary domain entity as a (kind, id) pair.
// It replaces a language-level generic foreign key with an explicit
// reference the storage layer can index.
type ObjectRef struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

func (r ObjectRef) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}

// IsZero reports whether the reference is empty.
func (r ObjectRef) IsZero() bool {
	return r.Kind == "" && r.ID == ""
}

// DefaultSignal is the signal a subscription listens for when none is given.
const DefaultSignal = "post_save"

// Subscription registers a user's interest in future events on a domain
// object. Uniqueness is business-level only: multiple records for the same
// (observed, observer, signal) triple are treated as a single watch.
type Subscription struct {
	ID         string    `json:"id"`
	ObserverID string    `json:"observer_id"`
	Observed   ObjectRef `json:"observed"`
	Label      string    `json:"label"`
	Signal     string    `json:"signal"`
	CreatedAt  time.Time `json:"created_at"`
}

// User is the minimal recipient view the dispatch layer needs from the
// host application's user directory.
type User struct {
	ID     string `json:"id"`
	Email  string `json:"email,omitempty"`
	Active bool   `json:"active"`
}

// IsAnonymous reports whether the user is an unauthenticated visitor.
// Anonymous users never observe objects and never receive notifications.
func (u User) IsAnonymous() bool {
	return u.ID == ""
}

// Directory resolves user IDs to users. It is a consumed capability of the
// host application; the observer fan-out uses it to materialize recipients.
type Directory interface {
	User(ctx context.Context, id string) (User, error)
}
