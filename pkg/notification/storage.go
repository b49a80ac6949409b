package notification

import "context"

// TypeStore persists notification types.
type TypeStore interface {
	CreateType(ctx context.Context, nt NoticeType) error

	// GetType returns ErrNoticeTypeNotFound when the label is unknown.
	GetType(ctx context.Context, label string) (*NoticeType, error)

	UpdateType(ctx context.Context, nt NoticeType) error
}

// SettingStore persists per-user per-channel opt-in settings. The
// (user, label, channel) unique constraint lives here: CreateSetting must
// fail with ErrSettingExists on a duplicate rather than overwrite.
type SettingStore interface {
	// GetSetting returns ErrSettingNotFound when no record exists.
	GetSetting(ctx context.Context, userID, label string, channel Channel) (*Setting, error)

	CreateSetting(ctx context.Context, s Setting) error

	// UpdateSetting overwrites the Send flag of an existing record.
	UpdateSetting(ctx context.Context, s Setting) error
}

// ListOptions filters and paginates notice listings.
type ListOptions struct {
	Archived bool  // include archived notices
	Unseen   *bool // nil = all, true = unseen only, false = seen only
	OnSite   *bool // nil = all, otherwise filter by the on-site flag
	Sent     bool  // list notices the user sent instead of received
	Limit    int   // 0 = no limit
	Offset   int
}

// NoticeStore persists in-site notices. Listings are newest-first.
type NoticeStore interface {
	CreateNotice(ctx context.Context, n Notice) error

	// GetNotice returns ErrNoticeNotFound when the id is unknown.
	GetNotice(ctx context.Context, id string) (*Notice, error)

	ListNotices(ctx context.Context, userID string, opts ListOptions) ([]Notice, error)

	UnseenCount(ctx context.Context, userID string) (int, error)

	// MarkSeen flips the unseen flag and reports the value it observed.
	// The first call on an unseen notice returns true; every later call
	// returns false.
	MarkSeen(ctx context.Context, id string) (bool, error)

	ArchiveNotice(ctx context.Context, id string) error

	DeleteNotices(ctx context.Context, userID string, ids ...string) error
}

// SubscriptionStore persists observer registrations.
type SubscriptionStore interface {
	CreateSubscription(ctx context.Context, s Subscription) error

	DeleteSubscription(ctx context.Context, id string) error

	// FindAll returns every subscription on an observed object for a
	// signal, across all observers.
	FindAll(ctx context.Context, observed ObjectRef, signal string) ([]Subscription, error)

	// FindFor returns the subscriptions a single observer holds on an
	// observed object for a signal. Zero, one, or more records may match.
	FindFor(ctx context.Context, observed ObjectRef, observerID, signal string) ([]Subscription, error)
}

// Storage aggregates every store the dispatch layer needs.
type Storage interface {
	TypeStore
	SettingStore
	NoticeStore
	SubscriptionStore
}
