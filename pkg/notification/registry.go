package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Registry maintains notification type metadata. Register is an idempotent
// upsert intended to be called at startup by every collaborator that emits
// a notification type.
type Registry struct {
	types  TypeStore
	logger *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger for the Registry.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates a type registry backed by the given store.
func NewRegistry(types TypeStore, opts ...RegistryOption) *Registry {
	r := &Registry{
		types:  types,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register creates the notice type if it is absent, or updates it when any
// field differs from the stored record. Matching records are left untouched,
// so repeated registration performs no writes.
func (r *Registry) Register(ctx context.Context, nt NoticeType) error {
	if nt.Label == "" {
		return fmt.Errorf("%w: empty label", ErrNoticeTypeNotFound)
	}

	existing, err := r.types.GetType(ctx, nt.Label)
	if err != nil {
		if !errors.Is(err, ErrNoticeTypeNotFound) {
			return fmt.Errorf("failed to look up notice type %q: %w", nt.Label, err)
		}
		if err := r.types.CreateType(ctx, nt); err != nil {
			return fmt.Errorf("failed to create notice type %q: %w", nt.Label, err)
		}
		r.logger.LogAttrs(ctx, slog.LevelInfo, "Created notice type",
			slog.String("label", nt.Label),
		)
		return nil
	}

	if existing.Display == nt.Display &&
		existing.Description == nt.Description &&
		existing.Default == nt.Default {
		return nil
	}

	if err := r.types.UpdateType(ctx, nt); err != nil {
		return fmt.Errorf("failed to update notice type %q: %w", nt.Label, err)
	}
	r.logger.LogAttrs(ctx, slog.LevelInfo, "Updated notice type",
		slog.String("label", nt.Label),
	)
	return nil
}

// Get returns the notice type registered under label.
func (r *Registry) Get(ctx context.Context, label string) (*NoticeType, error) {
	return r.types.GetType(ctx, label)
}
