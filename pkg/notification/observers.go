package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// ObjectResolver materializes the domain object behind an ObjectRef. It is
// an optional capability of the host application; when configured, the
// resolved object replaces the raw reference in the render context handed
// to observer notifications.
type ObjectResolver interface {
	Resolve(ctx context.Context, ref ObjectRef) (any, error)
}

// Observers maintains the subscription registry and fans a single domain
// event out to every interested user through the dispatch engine.
type Observers struct {
	subscriptions SubscriptionStore
	registry      *Registry
	directory     Directory
	engine        *Engine
	resolver      ObjectResolver
	logger        *slog.Logger
}

// ObserversOption configures an Observers registry.
type ObserversOption func(*Observers)

// WithObserversLogger sets the logger for the registry.
func WithObserversLogger(logger *slog.Logger) ObserversOption {
	return func(o *Observers) {
		o.logger = logger
	}
}

// WithObjectResolver configures domain object resolution for the render
// context of observer notifications.
func WithObjectResolver(resolver ObjectResolver) ObserversOption {
	return func(o *Observers) {
		o.resolver = resolver
	}
}

// NewObservers creates a subscription registry. The directory resolves
// observer IDs to deliverable users when notifications fan out.
func NewObservers(subscriptions SubscriptionStore, engine *Engine, directory Directory, opts ...ObserversOption) *Observers {
	o := &Observers{
		subscriptions: subscriptions,
		registry:      engine.Registry(),
		directory:     directory,
		engine:        engine,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Observe registers the user as an observer of the object for the signal.
// The notification type label must already be registered.
func (o *Observers) Observe(ctx context.Context, observed ObjectRef, observer User, label, signal string) (*Subscription, error) {
	if observer.IsAnonymous() {
		return nil, ErrAnonymousObserver
	}
	if signal == "" {
		signal = DefaultSignal
	}

	nt, err := o.registry.Get(ctx, label)
	if err != nil {
		return nil, err
	}

	sub := Subscription{
		ID:         uuid.New().String(),
		ObserverID: observer.ID,
		Observed:   observed,
		Label:      nt.Label,
		Signal:     signal,
		CreatedAt:  time.Now(),
	}
	if err := o.subscriptions.CreateSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	return &sub, nil
}

// StopObserving removes the user's subscriptions on the object for the
// signal. Every matching record is deleted so a duplicate registration
// cannot keep the watch alive. Returns ErrSubscriptionNotFound when
// nothing matches.
func (o *Observers) StopObserving(ctx context.Context, observed ObjectRef, observer User, signal string) error {
	if signal == "" {
		signal = DefaultSignal
	}

	matched, err := o.subscriptions.FindFor(ctx, observed, observer.ID, signal)
	if err != nil {
		return fmt.Errorf("failed to find subscriptions: %w", err)
	}
	if len(matched) == 0 {
		return ErrSubscriptionNotFound
	}

	for _, sub := range matched {
		if err := o.subscriptions.DeleteSubscription(ctx, sub.ID); err != nil {
			// A concurrent delete of the same record is not a failure.
			if errors.Is(err, ErrSubscriptionNotFound) {
				continue
			}
			return fmt.Errorf("failed to delete subscription %s: %w", sub.ID, err)
		}
	}
	return nil
}

// IsObserving reports whether the user observes the object for the signal.
// Anonymous users are never observing; the check short-circuits without
// touching storage. One or more matching subscriptions both count as
// observing.
func (o *Observers) IsObserving(ctx context.Context, observed ObjectRef, observer User, signal string) (bool, error) {
	if observer.IsAnonymous() {
		return false, nil
	}
	if signal == "" {
		signal = DefaultSignal
	}

	matched, err := o.subscriptions.FindFor(ctx, observed, observer.ID, signal)
	if err != nil {
		return false, fmt.Errorf("failed to find subscriptions: %w", err)
	}
	return len(matched) > 0, nil
}

// NotifyObservers dispatches one notification per subscription on the
// object for the signal, with the render context augmented by an
// "observed" key. The full matched set is returned regardless of
// individual delivery outcomes; per-subscription failures are joined into
// the returned error.
func (o *Observers) NotifyObservers(ctx context.Context, observed ObjectRef, signal string, extra map[string]any) ([]Subscription, error) {
	if signal == "" {
		signal = DefaultSignal
	}

	matched, err := o.subscriptions.FindAll(ctx, observed, signal)
	if err != nil {
		return nil, fmt.Errorf("failed to find subscriptions: %w", err)
	}

	var observedValue any = observed
	if o.resolver != nil {
		resolved, err := o.resolver.Resolve(ctx, observed)
		if err != nil {
			o.logger.LogAttrs(ctx, slog.LevelWarn, "Failed to resolve observed object",
				slog.String("observed", observed.String()),
				logger.Signal(signal),
				logger.Error(err),
			)
		} else {
			observedValue = resolved
		}
	}

	var errs []error
	for _, sub := range matched {
		if err := o.notifyOne(ctx, sub, observedValue, extra); err != nil {
			o.logger.LogAttrs(ctx, slog.LevelError, "Observer notification failed",
				logger.UserID(sub.ObserverID),
				logger.Label(sub.Label),
				logger.Signal(signal),
				logger.Error(err),
			)
			errs = append(errs, fmt.Errorf("subscription %s: %w", sub.ID, err))
		}
	}
	return matched, errors.Join(errs...)
}

func (o *Observers) notifyOne(ctx context.Context, sub Subscription, observedValue any, extra map[string]any) error {
	observer, err := o.directory.User(ctx, sub.ObserverID)
	if err != nil {
		return fmt.Errorf("failed to resolve observer: %w", err)
	}

	data := make(map[string]any, len(extra)+1)
	for k, v := range extra {
		data[k] = v
	}
	data["observed"] = observedValue

	return o.engine.Send(ctx, []User{observer}, sub.Label, data)
}
