package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/mail"
)

// Engine orchestrates a dispatch: resolve the recipient's locale, render
// the format set, persist the in-site notice, evaluate channel permission,
// and deliver email. Send defers to the asynchronous executor when the
// queue policy says so; SendNow always runs inline. Both entry points have
// identical observable effect.
type Engine struct {
	registry *Registry
	prefs    *Preferences
	renderer *Renderer
	notices  NoticeStore
	mailer   mail.Sender
	locales  LocaleStore
	queued   *QueuedDeliverer
	inliner  func(string) (string, error)
	cfg      Config
	logger   *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the logger for the Engine.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLocaleStore configures per-user notification locales. Without a
// store every render keeps the caller's locale.
func WithLocaleStore(store LocaleStore) EngineOption {
	return func(e *Engine) {
		e.locales = store
	}
}

// WithQueuedDeliverer enables the deferred dispatch path.
func WithQueuedDeliverer(d *QueuedDeliverer) EngineOption {
	return func(e *Engine) {
		e.queued = d
	}
}

// WithInliner overrides the CSS inlining transform applied to HTML bodies
// when Config.UseInliner is set. Defaults to mail.InlineCSS.
func WithInliner(inliner func(string) (string, error)) EngineOption {
	return func(e *Engine) {
		if inliner != nil {
			e.inliner = inliner
		}
	}
}

// NewEngine creates a dispatch engine over the given storage, template
// engine, and mail transport.
func NewEngine(storage Storage, templates TemplateEngine, mailer mail.Sender, cfg Config, opts ...EngineOption) *Engine {
	e := &Engine{
		registry: NewRegistry(storage),
		prefs:    NewPreferences(storage, cfg.Thresholds()),
		renderer: NewRenderer(templates, SiteLinksFromConfig(cfg)),
		notices:  storage,
		mailer:   mailer,
		inliner:  mail.InlineCSS,
		cfg:      cfg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the notification type registry bound to the engine's
// storage.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Preferences returns the preference store bound to the engine's storage.
func (e *Engine) Preferences() *Preferences {
	return e.prefs
}

// DispatchTask is the unit handed to the asynchronous executor. Extra
// context must be JSON-marshalable when the queued path is used.
type DispatchTask struct {
	Users   []User            `json:"users"`
	Label   string            `json:"label"`
	Extra   map[string]any    `json:"extra,omitempty"`
	OnSite  bool              `json:"on_site"`
	Sender  *User             `json:"sender,omitempty"`
	From    string            `json:"from,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

type sendOptions struct {
	sender  *User
	onSite  bool
	from    string
	headers map[string]string
	queue   *bool
}

// SendOption configures a single dispatch.
type SendOption func(*sendOptions)

// WithSender attributes the notification to a sending user.
func WithSender(sender User) SendOption {
	return func(o *sendOptions) { o.sender = &sender }
}

// WithOnSite controls the on-site display flag stored on the notice. It is
// display metadata only and never gates notice creation.
func WithOnSite(onSite bool) SendOption {
	return func(o *sendOptions) { o.onSite = onSite }
}

// WithFrom overrides the configured default from address.
func WithFrom(from string) SendOption {
	return func(o *sendOptions) { o.from = from }
}

// WithHeaders adds custom headers to outgoing email.
func WithHeaders(headers map[string]string) SendOption {
	return func(o *sendOptions) { o.headers = headers }
}

// WithQueue forces this dispatch through the asynchronous executor,
// overriding the configured policy.
func WithQueue() SendOption {
	queue := true
	return func(o *sendOptions) { o.queue = &queue }
}

// WithNow forces this dispatch inline, overriding the configured policy.
func WithNow() SendOption {
	queue := false
	return func(o *sendOptions) { o.queue = &queue }
}

func buildTask(users []User, label string, extra map[string]any, o *sendOptions) DispatchTask {
	return DispatchTask{
		Users:   users,
		Label:   label,
		Extra:   extra,
		OnSite:  o.onSite,
		Sender:  o.sender,
		From:    o.from,
		Headers: o.headers,
	}
}

// Send dispatches the notification, deferring to the asynchronous executor
// when the per-call override or the configured queue policy asks for it
// and a queued deliverer is available. Otherwise it behaves exactly like
// SendNow.
func (e *Engine) Send(ctx context.Context, users []User, label string, extra map[string]any, opts ...SendOption) error {
	o := &sendOptions{onSite: true}
	for _, opt := range opts {
		opt(o)
	}
	task := buildTask(users, label, extra, o)

	if e.shouldQueue(o) {
		return e.queued.Deliver(ctx, task)
	}
	return e.runTask(ctx, task)
}

// SendNow dispatches the notification synchronously, regardless of the
// queue policy.
func (e *Engine) SendNow(ctx context.Context, users []User, label string, extra map[string]any, opts ...SendOption) error {
	o := &sendOptions{onSite: true}
	for _, opt := range opts {
		opt(o)
	}
	return e.runTask(ctx, buildTask(users, label, extra, o))
}

func (e *Engine) shouldQueue(o *sendOptions) bool {
	if e.queued == nil {
		return false
	}
	if o.queue != nil {
		return *o.queue
	}
	return e.cfg.UseQueue.Allows(dispatchTaskName)
}

// runTask processes the batch. Recipients are handled independently and in
// caller order: a failure for one user is recorded and does not abort the
// remaining iterations. The joined per-user errors are returned after the
// whole batch completes.
func (e *Engine) runTask(ctx context.Context, task DispatchTask) error {
	nt, err := e.registry.Get(ctx, task.Label)
	if err != nil {
		return err
	}

	var errs []error
	for _, user := range task.Users {
		if err := e.dispatchOne(ctx, user, *nt, task); err != nil {
			e.logger.LogAttrs(ctx, slog.LevelError, "Dispatch failed for recipient",
				logger.UserID(user.ID),
				logger.Label(task.Label),
				logger.Error(err),
			)
			errs = append(errs, fmt.Errorf("user %s: %w", user.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) dispatchOne(ctx context.Context, user User, nt NoticeType, task DispatchTask) error {
	if user.IsAnonymous() {
		return ErrAnonymousObserver
	}

	// The recipient's locale is carried on a derived context; the caller's
	// context and its locale are untouched.
	uctx := ctx
	if e.locales != nil {
		if tag, err := e.locales.Lookup(ctx, user.ID); err == nil {
			uctx = WithLocale(ctx, tag)
		}
	}

	data := e.renderer.Context(user, task.Sender, task.Extra)
	messages, err := e.renderer.Formats(uctx, task.Label, DefaultFormats(), data)
	if err != nil {
		return err
	}

	// The notice is persisted unconditionally; channel permission only
	// gates email delivery.
	notice := Notice{
		ID:          uuid.New().String(),
		RecipientID: user.ID,
		Message:     messages[FormatNoticeHTML],
		Label:       nt.Label,
		CreatedAt:   time.Now(),
		Unseen:      true,
		OnSite:      task.OnSite,
	}
	if task.Sender != nil {
		notice.SenderID = task.Sender.ID
	}
	if err := e.notices.CreateNotice(uctx, notice); err != nil {
		return fmt.Errorf("failed to store notice: %w", err)
	}

	allowed, err := e.prefs.CanSend(uctx, user, nt, ChannelEmail)
	if err != nil {
		return err
	}
	if !allowed {
		e.logger.LogAttrs(uctx, slog.LevelDebug, "Email delivery not permitted",
			logger.UserID(user.ID),
			logger.Label(nt.Label),
			logger.Channel(string(ChannelEmail)),
		)
		return nil
	}

	return e.deliverEmail(uctx, user, messages, data, task)
}

func (e *Engine) deliverEmail(ctx context.Context, user User, messages map[Format]string, data map[string]any, task DispatchTask) error {
	subject, err := e.renderer.EmailSubject(ctx, e.cfg.SubjectPrefix, messages[FormatShortText], data)
	if err != nil {
		return fmt.Errorf("failed to render email subject: %w", err)
	}
	body, err := e.renderer.EmailBody(ctx, messages[FormatFullText], data)
	if err != nil {
		return fmt.Errorf("failed to render email body: %w", err)
	}

	from := task.From
	if from == "" {
		from = e.cfg.DefaultFrom
	}
	msg := mail.Message{
		From:    from,
		To:      []string{user.Email},
		Subject: subject,
		Text:    body,
		Headers: task.Headers,
		Tag:     task.Label,
	}

	html, ok := messages[FormatFullHTML]
	if !ok || html == "" {
		return e.mailer.SendPlain(ctx, msg)
	}

	if e.cfg.UseInliner {
		inlined, err := e.inliner(html)
		if err != nil {
			// A broken stylesheet degrades to the raw HTML body.
			e.logger.LogAttrs(ctx, slog.LevelWarn, "CSS inlining failed",
				logger.UserID(user.ID),
				logger.Label(task.Label),
				logger.Error(err),
			)
		} else {
			html = inlined
		}
	}
	msg.HTML = html
	return e.mailer.SendMultipart(ctx, msg)
}
