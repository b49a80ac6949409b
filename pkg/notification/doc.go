// Package notification is a user-notification dispatch layer: given a set
// of recipients, a notification label, and contextual data, it renders
// multi-format messages (short text, long text, HTML, in-site record) and
// delivers them through configured channels, subject to per-user
// per-channel opt-in preferences and optional deferred execution.
//
// # Architecture
//
//   - Registry: idempotent upsert of notification type metadata
//   - Preferences: per-user per-channel opt-in with lazily created defaults
//   - Renderer: per-format template rendering with locale-aware context
//   - Engine: the dispatch orchestrator with inline and queued entry points
//   - Observers: subscription registry fanning domain events out to users
//   - Storage: pluggable persistence (in-memory and Postgres included)
//
// # Basic usage
//
//	storage := notification.NewMemoryStorage()
//	templates := notification.NewFSEngine(os.DirFS("templates"))
//	engine := notification.NewEngine(storage, templates, sender, cfg)
//
//	_ = engine.Registry().Register(ctx, notification.NoticeType{
//	    Label:       "friends_invite",
//	    Display:     "Invitation Received",
//	    Description: "you received an invitation",
//	    Default:     2,
//	})
//
//	err := engine.Send(ctx, []notification.User{user}, "friends_invite", map[string]any{
//	    "invitation": invite,
//	})
//
// Every notice is persisted regardless of channel permission; only email
// delivery is gated by preferences. Recipients in a batch are processed
// independently: one recipient's transport failure never blocks the rest.
//
// # Deferred dispatch
//
// Wire a queue enqueuer and worker to defer execution; Send then honors
// the configured queue policy and per-call overrides:
//
//	enq, _ := queue.NewEnqueuer(repo)
//	engine := notification.NewEngine(storage, templates, sender, cfg,
//	    notification.WithQueuedDeliverer(notification.NewQueuedDeliverer(enq, cfg.QueuePerRecipient)),
//	)
//	worker.RegisterHandlers(engine.TaskHandler())
package notification
