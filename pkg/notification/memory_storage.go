package notification

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// MemoryStorage is an in-memory implementation of Storage. Suitable for
// development and testing.
type MemoryStorage struct {
	types         map[string]NoticeType
	settings      map[string]Setting
	notices       []Notice
	subscriptions []Subscription
	mu            sync.RWMutex
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		types:    make(map[string]NoticeType),
		settings: make(map[string]Setting),
	}
}

func settingKey(userID, label string, channel Channel) string {
	return userID + "\x00" + label + "\x00" + string(channel)
}

func (s *MemoryStorage) CreateType(ctx context.Context, nt NoticeType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if nt.Label == "" {
		return errors.New("notice type label is required")
	}
	s.types[nt.Label] = nt
	return nil
}

func (s *MemoryStorage) GetType(ctx context.Context, label string) (*NoticeType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nt, ok := s.types[label]
	if !ok {
		return nil, ErrNoticeTypeNotFound
	}
	return &nt, nil
}

func (s *MemoryStorage) UpdateType(ctx context.Context, nt NoticeType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.types[nt.Label]; !ok {
		return ErrNoticeTypeNotFound
	}
	s.types[nt.Label] = nt
	return nil
}

func (s *MemoryStorage) GetSetting(ctx context.Context, userID, label string, channel Channel) (*Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.settings[settingKey(userID, label, channel)]
	if !ok {
		return nil, ErrSettingNotFound
	}
	return &st, nil
}

func (s *MemoryStorage) CreateSetting(ctx context.Context, st Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := settingKey(st.UserID, st.Label, st.Channel)
	if _, ok := s.settings[key]; ok {
		return ErrSettingExists
	}
	s.settings[key] = st
	return nil
}

func (s *MemoryStorage) UpdateSetting(ctx context.Context, st Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := settingKey(st.UserID, st.Label, st.Channel)
	if _, ok := s.settings[key]; !ok {
		return ErrSettingNotFound
	}
	s.settings[key] = st
	return nil
}

func (s *MemoryStorage) CreateNotice(ctx context.Context, n Notice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		return errors.New("notice ID is required")
	}
	if n.RecipientID == "" {
		return errors.New("notice recipient is required")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	s.notices = append(s.notices, n)
	return nil
}

func (s *MemoryStorage) GetNotice(ctx context.Context, id string) (*Notice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, n := range s.notices {
		if n.ID == id {
			notice := n
			return &notice, nil
		}
	}
	return nil, ErrNoticeNotFound
}

func (s *MemoryStorage) ListNotices(ctx context.Context, userID string, opts ListOptions) ([]Notice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []Notice
	for _, n := range s.notices {
		if opts.Sent {
			if n.SenderID != userID {
				continue
			}
		} else if n.RecipientID != userID {
			continue
		}
		if !opts.Archived && n.Archived {
			continue
		}
		if opts.Unseen != nil && n.Unseen != *opts.Unseen {
			continue
		}
		if opts.OnSite != nil && n.OnSite != *opts.OnSite {
			continue
		}
		filtered = append(filtered, n)
	}

	// Newest first.
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	start := opts.Offset
	if start > len(filtered) {
		return []Notice{}, nil
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], nil
}

func (s *MemoryStorage) UnseenCount(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.notices {
		if n.RecipientID == userID && n.Unseen && !n.Archived {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStorage) MarkSeen(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notices {
		if s.notices[i].ID == id {
			if s.notices[i].Unseen {
				s.notices[i].Unseen = false
				return true, nil
			}
			return false, nil
		}
	}
	return false, ErrNoticeNotFound
}

func (s *MemoryStorage) ArchiveNotice(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notices {
		if s.notices[i].ID == id {
			s.notices[i].Archived = true
			return nil
		}
	}
	return ErrNoticeNotFound
}

func (s *MemoryStorage) DeleteNotices(ctx context.Context, userID string, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}

	var kept []Notice
	for _, n := range s.notices {
		if n.RecipientID == userID && idSet[n.ID] {
			continue
		}
		kept = append(kept, n)
	}
	s.notices = kept
	return nil
}

func (s *MemoryStorage) CreateSubscription(ctx context.Context, sub Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub.ID == "" {
		return errors.New("subscription ID is required")
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	s.subscriptions = append(s.subscriptions, sub)
	return nil
}

func (s *MemoryStorage) DeleteSubscription(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subscriptions {
		if sub.ID == id {
			s.subscriptions = append(s.subscriptions[:i], s.subscriptions[i+1:]...)
			return nil
		}
	}
	return ErrSubscriptionNotFound
}

func (s *MemoryStorage) FindAll(ctx context.Context, observed ObjectRef, signal string) ([]Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Subscription
	for _, sub := range s.subscriptions {
		if sub.Observed == observed && sub.Signal == signal {
			matched = append(matched, sub)
		}
	}
	return matched, nil
}

func (s *MemoryStorage) FindFor(ctx context.Context, observed ObjectRef, observerID, signal string) ([]Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Subscription
	for _, sub := range s.subscriptions {
		if sub.Observed == observed && sub.ObserverID == observerID && sub.Signal == signal {
			matched = append(matched, sub)
		}
	}
	return matched, nil
}
