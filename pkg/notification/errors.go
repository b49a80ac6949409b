package notification

import "errors"

var (
	// ErrNoticeTypeNotFound is returned when a notification label is not
	// registered in the type registry.
	ErrNoticeTypeNotFound = errors.New("notification.errors.notice_type_not_found")

	// ErrNoticeNotFound is returned when a notice does not exist.
	ErrNoticeNotFound = errors.New("notification.errors.notice_not_found")

	// ErrSettingNotFound is returned by storage when no setting exists for
	// a (user, label, channel) triple. The preference store recovers from
	// it by lazily creating the default.
	ErrSettingNotFound = errors.New("notification.errors.setting_not_found")

	// ErrSettingExists is returned by storage when a setting for the triple
	// already exists. The unique constraint is the sole arbiter; callers
	// recover by re-fetching the existing record.
	ErrSettingExists = errors.New("notification.errors.setting_exists")

	// ErrSubscriptionNotFound is returned when no subscription matches.
	ErrSubscriptionNotFound = errors.New("notification.errors.subscription_not_found")

	// ErrUnknownChannel indicates a channel with no configured sensitivity
	// threshold. This is a misconfiguration and is never recovered from.
	ErrUnknownChannel = errors.New("notification.errors.unknown_channel")

	// ErrAnonymousObserver is returned when an unauthenticated user is
	// registered as an observer.
	ErrAnonymousObserver = errors.New("notification.errors.anonymous_observer")

	// ErrTemplateNotFound is returned by a TemplateEngine when none of the
	// candidate template paths resolve.
	ErrTemplateNotFound = errors.New("notification.errors.template_not_found")

	// ErrLocaleUnavailable collapses every locale-store failure mode: store
	// not configured, user without an entry, or a misconfigured lookup.
	ErrLocaleUnavailable = errors.New("notification.errors.locale_unavailable")
)
