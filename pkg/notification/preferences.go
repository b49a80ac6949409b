package notification

import (
	"context"
	"errors"
	"fmt"
)

// Preferences resolves per-user per-channel opt-in, creating the default
// record lazily on first access.
type Preferences struct {
	settings SettingStore
	defaults map[Channel]int
}

// NewPreferences creates a preference store. defaults maps each known
// channel to its sensitivity threshold; a channel absent from the map is
// treated as a misconfiguration by CanSend.
func NewPreferences(settings SettingStore, defaults map[Channel]int) *Preferences {
	return &Preferences{
		settings: settings,
		defaults: defaults,
	}
}

// GetOrCreate returns the setting for the triple, creating and persisting
// the default on first access. The default opts the user in when the
// channel's sensitivity threshold does not exceed the type's default
// sensitivity. A duplicate-create race is resolved by the storage unique
// constraint: the loser re-reads the winner's record.
func (p *Preferences) GetOrCreate(ctx context.Context, user User, nt NoticeType, channel Channel) (Setting, error) {
	threshold, ok := p.defaults[channel]
	if !ok {
		return Setting{}, fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}

	existing, err := p.settings.GetSetting(ctx, user.ID, nt.Label, channel)
	if err == nil {
		return *existing, nil
	}
	if !errors.Is(err, ErrSettingNotFound) {
		return Setting{}, fmt.Errorf("failed to load setting for user %s: %w", user.ID, err)
	}

	setting := Setting{
		UserID:  user.ID,
		Label:   nt.Label,
		Channel: channel,
		Send:    threshold <= nt.Default,
	}
	if err := p.settings.CreateSetting(ctx, setting); err != nil {
		if errors.Is(err, ErrSettingExists) {
			existing, err := p.settings.GetSetting(ctx, user.ID, nt.Label, channel)
			if err != nil {
				return Setting{}, fmt.Errorf("failed to re-read setting for user %s: %w", user.ID, err)
			}
			return *existing, nil
		}
		return Setting{}, fmt.Errorf("failed to create setting for user %s: %w", user.ID, err)
	}
	return setting, nil
}

// CanSend reports whether a notification of the given type may be delivered
// to the user through the channel. Opt-in is combined with the user's
// deliverability: an inactive user or one without an email address is never
// sent to.
func (p *Preferences) CanSend(ctx context.Context, user User, nt NoticeType, channel Channel) (bool, error) {
	setting, err := p.GetOrCreate(ctx, user, nt, channel)
	if err != nil {
		return false, err
	}
	return setting.Send && user.Email != "" && user.Active, nil
}
