package notification

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSubscriptionStore wraps a SubscriptionStore and counts every call
// that reaches storage.
type countingSubscriptionStore struct {
	SubscriptionStore
	calls atomic.Int64
}

func (s *countingSubscriptionStore) CreateSubscription(ctx context.Context, sub Subscription) error {
	s.calls.Add(1)
	return s.SubscriptionStore.CreateSubscription(ctx, sub)
}

func (s *countingSubscriptionStore) DeleteSubscription(ctx context.Context, id string) error {
	s.calls.Add(1)
	return s.SubscriptionStore.DeleteSubscription(ctx, id)
}

func (s *countingSubscriptionStore) FindAll(ctx context.Context, observed ObjectRef, signal string) ([]Subscription, error) {
	s.calls.Add(1)
	return s.SubscriptionStore.FindAll(ctx, observed, signal)
}

func (s *countingSubscriptionStore) FindFor(ctx context.Context, observed ObjectRef, observerID, signal string) ([]Subscription, error) {
	s.calls.Add(1)
	return s.SubscriptionStore.FindFor(ctx, observed, observerID, signal)
}

// mapDirectory resolves users from a fixed map.
type mapDirectory map[string]User

func (d mapDirectory) User(ctx context.Context, id string) (User, error) {
	user, ok := d[id]
	if !ok {
		return User{}, errors.New("unknown user " + id)
	}
	return user, nil
}

type staticResolver struct {
	value any
	err   error
}

func (r *staticResolver) Resolve(ctx context.Context, ref ObjectRef) (any, error) {
	return r.value, r.err
}

type observersFixture struct {
	observers *Observers
	store     *countingSubscriptionStore
	fixture   *engineFixture
}

func newObserversFixture(t *testing.T, directory Directory, opts ...ObserversOption) *observersFixture {
	t.Helper()

	f := newEngineFixture(t, testConfig(), testTemplates())
	store := &countingSubscriptionStore{SubscriptionStore: f.storage}
	return &observersFixture{
		observers: NewObservers(store, f.engine, directory, opts...),
		store:     store,
		fixture:   f,
	}
}

func TestObservers_Observe(t *testing.T) {
	t.Parallel()

	doc := ObjectRef{Kind: "document", ID: "42"}
	alice := User{ID: "alice", Email: "alice@example.com", Active: true}

	t.Run("registers and reports the watch", func(t *testing.T) {
		t.Parallel()

		f := newObserversFixture(t, mapDirectory{"alice": alice})

		sub, err := f.observers.Observe(context.Background(), doc, alice, "friends_invite", "")
		require.NoError(t, err)
		require.NotNil(t, sub)
		assert.NotEmpty(t, sub.ID)
		assert.Equal(t, "alice", sub.ObserverID)
		assert.Equal(t, doc, sub.Observed)
		assert.Equal(t, DefaultSignal, sub.Signal)

		observing, err := f.observers.IsObserving(context.Background(), doc, alice, "")
		require.NoError(t, err)
		assert.True(t, observing)
	})

	t.Run("rejects anonymous observers", func(t *testing.T) {
		t.Parallel()

		f := newObserversFixture(t, mapDirectory{})
		_, err := f.observers.Observe(context.Background(), doc, User{}, "friends_invite", "")
		assert.ErrorIs(t, err, ErrAnonymousObserver)
	})

	t.Run("rejects unregistered labels", func(t *testing.T) {
		t.Parallel()

		f := newObserversFixture(t, mapDirectory{})
		_, err := f.observers.Observe(context.Background(), doc, alice, "no_such_label", "")
		assert.ErrorIs(t, err, ErrNoticeTypeNotFound)
	})

	t.Run("signals are independent watches", func(t *testing.T) {
		t.Parallel()

		f := newObserversFixture(t, mapDirectory{"alice": alice})
		_, err := f.observers.Observe(context.Background(), doc, alice, "friends_invite", "comment_added")
		require.NoError(t, err)

		observing, err := f.observers.IsObserving(context.Background(), doc, alice, "comment_added")
		require.NoError(t, err)
		assert.True(t, observing)

		observing, err = f.observers.IsObserving(context.Background(), doc, alice, "")
		require.NoError(t, err)
		assert.False(t, observing)
	})
}

func TestObservers_StopObserving(t *testing.T) {
	t.Parallel()

	doc := ObjectRef{Kind: "document", ID: "42"}
	alice := User{ID: "alice", Email: "alice@example.com", Active: true}

	t.Run("removes the watch", func(t *testing.T) {
		t.Parallel()

		f := newObserversFixture(t, mapDirectory{"alice": alice})
		_, err := f.observers.Observe(context.Background(), doc, alice, "friends_invite", "")
		require.NoError(t, err)

		require.NoError(t, f.observers.StopObserving(context.Background(), doc, alice, ""))

		observing, err := f.observers.IsObserving(context.Background(), doc, alice, "")
		require.NoError(t, err)
		assert.False(t, observing)
	})

	t.Run("duplicate registrations are all removed", func(t *testing.T) {
		t.Parallel()

		f := newObserversFixture(t, mapDirectory{"alice": alice})
		for i := 0; i < 3; i++ {
			_, err := f.observers.Observe(context.Background(), doc, alice, "friends_invite", "")
			require.NoError(t, err)
		}

		require.NoError(t, f.observers.StopObserving(context.Background(), doc, alice, ""))

		observing, err := f.observers.IsObserving(context.Background(), doc, alice, "")
		require.NoError(t, err)
		assert.False(t, observing)
	})

	t.Run("nothing to remove", func(t *testing.T) {
		t.Parallel()

		f := newObserversFixture(t, mapDirectory{"alice": alice})
		err := f.observers.StopObserving(context.Background(), doc, alice, "")
		assert.ErrorIs(t, err, ErrSubscriptionNotFound)
	})
}

func TestObservers_IsObserving_Anonymous(t *testing.T) {
	t.Parallel()

	f := newObserversFixture(t, mapDirectory{})

	observing, err := f.observers.IsObserving(context.Background(), ObjectRef{Kind: "document", ID: "42"}, User{}, "")
	require.NoError(t, err)
	assert.False(t, observing)
	// Anonymous short-circuits before storage.
	assert.Zero(t, f.store.calls.Load())
}

func TestObservers_NotifyObservers(t *testing.T) {
	t.Parallel()

	doc := ObjectRef{Kind: "document", ID: "42"}
	alice := User{ID: "alice", Email: "alice@example.com", Active: true}
	bob := User{ID: "bob", Email: "bob@example.com", Active: true}

	t.Run("fans out to every observer", func(t *testing.T) {
		t.Parallel()

		f := newObserversFixture(t, mapDirectory{"alice": alice, "bob": bob})
		for _, user := range []User{alice, bob} {
			_, err := f.observers.Observe(context.Background(), doc, user, "friends_invite", "")
			require.NoError(t, err)
		}

		matched, err := f.observers.NotifyObservers(context.Background(), doc, "", map[string]any{"comment": "hi"})
		require.NoError(t, err)
		assert.Len(t, matched, 2)

		for _, id := range []string{"alice", "bob"} {
			notices, listErr := f.fixture.storage.ListNotices(context.Background(), id, ListOptions{})
			require.NoError(t, listErr)
			assert.Len(t, notices, 1, "notice for %s", id)
		}
		assert.Equal(t, 2, f.fixture.sender.sent())
	})

	t.Run("resolver output lands in the render context", func(t *testing.T) {
		t.Parallel()

		fsys := testTemplates()
		fsys["notification/notice.html"] = &fstest.MapFile{Data: []byte(`<p>{{.observed}}</p>`)}

		ef := newEngineFixture(t, testConfig(), fsys)
		store := &countingSubscriptionStore{SubscriptionStore: ef.storage}
		observers := NewObservers(store, ef.engine, mapDirectory{"alice": alice},
			WithObjectResolver(&staticResolver{value: "Annual Report"}))

		_, err := observers.Observe(context.Background(), doc, alice, "friends_invite", "")
		require.NoError(t, err)

		_, err = observers.NotifyObservers(context.Background(), doc, "", nil)
		require.NoError(t, err)

		notices, err := ef.storage.ListNotices(context.Background(), "alice", ListOptions{})
		require.NoError(t, err)
		require.Len(t, notices, 1)
		assert.Equal(t, "<p>Annual Report</p>", notices[0].Message)
	})

	t.Run("resolver failure falls back to the raw reference", func(t *testing.T) {
		t.Parallel()

		f := newObserversFixture(t, mapDirectory{"alice": alice},
			WithObjectResolver(&staticResolver{err: errors.New("gone")}))
		_, err := f.observers.Observe(context.Background(), doc, alice, "friends_invite", "")
		require.NoError(t, err)

		matched, err := f.observers.NotifyObservers(context.Background(), doc, "", nil)
		require.NoError(t, err)
		assert.Len(t, matched, 1)
	})

	t.Run("one broken observer does not block the rest", func(t *testing.T) {
		t.Parallel()

		// bob is missing from the directory.
		f := newObserversFixture(t, mapDirectory{"alice": alice})
		for _, user := range []User{alice, bob} {
			_, err := f.observers.Observe(context.Background(), doc, user, "friends_invite", "")
			require.NoError(t, err)
		}

		matched, err := f.observers.NotifyObservers(context.Background(), doc, "", nil)
		require.Error(t, err)
		assert.Len(t, matched, 2)

		notices, listErr := f.fixture.storage.ListNotices(context.Background(), "alice", ListOptions{})
		require.NoError(t, listErr)
		assert.Len(t, notices, 1)
	})

	t.Run("no observers is a no-op", func(t *testing.T) {
		t.Parallel()

		f := newObserversFixture(t, mapDirectory{})
		matched, err := f.observers.NotifyObservers(context.Background(), doc, "", nil)
		require.NoError(t, err)
		assert.Empty(t, matched)
		assert.Equal(t, 0, f.fixture.sender.sent())
	})
}
