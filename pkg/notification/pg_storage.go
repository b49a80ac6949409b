package notification

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the reference DDL for the Postgres storage. Migration tooling
// is owned by the host application; this is what PGStorage expects to find.
const Schema = `
CREATE TABLE IF NOT EXISTS notification_types (
    label       TEXT PRIMARY KEY,
    display     TEXT NOT NULL,
    description TEXT NOT NULL,
    sensitivity INT  NOT NULL
);

CREATE TABLE IF NOT EXISTS notification_settings (
    user_id TEXT NOT NULL,
    label   TEXT NOT NULL REFERENCES notification_types (label),
    channel TEXT NOT NULL,
    send    BOOLEAN NOT NULL,
    PRIMARY KEY (user_id, label, channel)
);

CREATE TABLE IF NOT EXISTS notices (
    id           UUID PRIMARY KEY,
    recipient_id TEXT NOT NULL,
    sender_id    TEXT,
    message      TEXT NOT NULL,
    label        TEXT NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL,
    unseen       BOOLEAN NOT NULL DEFAULT TRUE,
    archived     BOOLEAN NOT NULL DEFAULT FALSE,
    on_site      BOOLEAN NOT NULL
);
CREATE INDEX IF NOT EXISTS notices_recipient_idx ON notices (recipient_id, created_at DESC);

CREATE TABLE IF NOT EXISTS notification_subscriptions (
    id            UUID PRIMARY KEY,
    observer_id   TEXT NOT NULL,
    observed_kind TEXT NOT NULL,
    observed_id   TEXT NOT NULL,
    label         TEXT NOT NULL REFERENCES notification_types (label),
    signal        TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS subscriptions_observed_idx
    ON notification_subscriptions (observed_kind, observed_id, signal);
`

// PGStorage is a Postgres implementation of Storage on a pgx connection
// pool. Unique constraints at the database are the sole arbiter of
// setting uniqueness: a duplicate insert surfaces as ErrSettingExists and
// callers recover by re-reading.
type PGStorage struct {
	pool *pgxpool.Pool
}

// NewPGStorage creates a Postgres-backed storage.
func NewPGStorage(pool *pgxpool.Pool) *PGStorage {
	return &PGStorage{pool: pool}
}

// uniqueViolation is the SQLSTATE for a unique constraint violation.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (s *PGStorage) CreateType(ctx context.Context, nt NoticeType) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notification_types (label, display, description, sensitivity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (label) DO UPDATE
		SET display = EXCLUDED.display,
		    description = EXCLUDED.description,
		    sensitivity = EXCLUDED.sensitivity`,
		nt.Label, nt.Display, nt.Description, nt.Default)
	if err != nil {
		return fmt.Errorf("failed to insert notice type: %w", err)
	}
	return nil
}

func (s *PGStorage) GetType(ctx context.Context, label string) (*NoticeType, error) {
	var nt NoticeType
	err := s.pool.QueryRow(ctx, `
		SELECT label, display, description, sensitivity
		FROM notification_types WHERE label = $1`,
		label).Scan(&nt.Label, &nt.Display, &nt.Description, &nt.Default)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoticeTypeNotFound
		}
		return nil, fmt.Errorf("failed to load notice type: %w", err)
	}
	return &nt, nil
}

func (s *PGStorage) UpdateType(ctx context.Context, nt NoticeType) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notification_types
		SET display = $2, description = $3, sensitivity = $4
		WHERE label = $1`,
		nt.Label, nt.Display, nt.Description, nt.Default)
	if err != nil {
		return fmt.Errorf("failed to update notice type: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoticeTypeNotFound
	}
	return nil
}

func (s *PGStorage) GetSetting(ctx context.Context, userID, label string, channel Channel) (*Setting, error) {
	var st Setting
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, label, channel, send
		FROM notification_settings
		WHERE user_id = $1 AND label = $2 AND channel = $3`,
		userID, label, string(channel)).Scan(&st.UserID, &st.Label, &st.Channel, &st.Send)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSettingNotFound
		}
		return nil, fmt.Errorf("failed to load setting: %w", err)
	}
	return &st, nil
}

func (s *PGStorage) CreateSetting(ctx context.Context, st Setting) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notification_settings (user_id, label, channel, send)
		VALUES ($1, $2, $3, $4)`,
		st.UserID, st.Label, string(st.Channel), st.Send)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSettingExists
		}
		return fmt.Errorf("failed to insert setting: %w", err)
	}
	return nil
}

func (s *PGStorage) UpdateSetting(ctx context.Context, st Setting) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notification_settings SET send = $4
		WHERE user_id = $1 AND label = $2 AND channel = $3`,
		st.UserID, st.Label, string(st.Channel), st.Send)
	if err != nil {
		return fmt.Errorf("failed to update setting: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSettingNotFound
	}
	return nil
}

func (s *PGStorage) CreateNotice(ctx context.Context, n Notice) error {
	var senderID *string
	if n.SenderID != "" {
		senderID = &n.SenderID
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notices (id, recipient_id, sender_id, message, label, created_at, unseen, archived, on_site)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		n.ID, n.RecipientID, senderID, n.Message, n.Label, n.CreatedAt, n.Unseen, n.Archived, n.OnSite)
	if err != nil {
		return fmt.Errorf("failed to insert notice: %w", err)
	}
	return nil
}

func scanNotice(row pgx.Row) (*Notice, error) {
	var n Notice
	var senderID *string
	err := row.Scan(&n.ID, &n.RecipientID, &senderID, &n.Message, &n.Label,
		&n.CreatedAt, &n.Unseen, &n.Archived, &n.OnSite)
	if err != nil {
		return nil, err
	}
	if senderID != nil {
		n.SenderID = *senderID
	}
	return &n, nil
}

const noticeColumns = "id, recipient_id, sender_id, message, label, created_at, unseen, archived, on_site"

func (s *PGStorage) GetNotice(ctx context.Context, id string) (*Notice, error) {
	n, err := scanNotice(s.pool.QueryRow(ctx,
		"SELECT "+noticeColumns+" FROM notices WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoticeNotFound
		}
		return nil, fmt.Errorf("failed to load notice: %w", err)
	}
	return n, nil
}

func (s *PGStorage) ListNotices(ctx context.Context, userID string, opts ListOptions) ([]Notice, error) {
	var sb strings.Builder
	sb.WriteString("SELECT " + noticeColumns + " FROM notices WHERE ")
	if opts.Sent {
		sb.WriteString("sender_id = $1")
	} else {
		sb.WriteString("recipient_id = $1")
	}
	args := []any{userID}

	if !opts.Archived {
		sb.WriteString(" AND NOT archived")
	}
	if opts.Unseen != nil {
		args = append(args, *opts.Unseen)
		sb.WriteString(" AND unseen = $" + strconv.Itoa(len(args)))
	}
	if opts.OnSite != nil {
		args = append(args, *opts.OnSite)
		sb.WriteString(" AND on_site = $" + strconv.Itoa(len(args)))
	}
	sb.WriteString(" ORDER BY created_at DESC")
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		sb.WriteString(" LIMIT $" + strconv.Itoa(len(args)))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		sb.WriteString(" OFFSET $" + strconv.Itoa(len(args)))
	}

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notices: %w", err)
	}
	defer rows.Close()

	notices := []Notice{}
	for rows.Next() {
		n, err := scanNotice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notice: %w", err)
		}
		notices = append(notices, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list notices: %w", err)
	}
	return notices, nil
}

func (s *PGStorage) UnseenCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notices
		WHERE recipient_id = $1 AND unseen AND NOT archived`,
		userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unseen notices: %w", err)
	}
	return count, nil
}

func (s *PGStorage) MarkSeen(ctx context.Context, id string) (bool, error) {
	// The WHERE clause makes the flip atomic: only the first caller
	// observes unseen = true.
	tag, err := s.pool.Exec(ctx,
		"UPDATE notices SET unseen = FALSE WHERE id = $1 AND unseen", id)
	if err != nil {
		return false, fmt.Errorf("failed to mark notice seen: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM notices WHERE id = $1)", id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check notice: %w", err)
	}
	if !exists {
		return false, ErrNoticeNotFound
	}
	return false, nil
}

func (s *PGStorage) ArchiveNotice(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE notices SET archived = TRUE WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to archive notice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoticeNotFound
	}
	return nil
}

func (s *PGStorage) DeleteNotices(ctx context.Context, userID string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		"DELETE FROM notices WHERE recipient_id = $1 AND id = ANY($2)",
		userID, ids)
	if err != nil {
		return fmt.Errorf("failed to delete notices: %w", err)
	}
	return nil
}

func (s *PGStorage) CreateSubscription(ctx context.Context, sub Subscription) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notification_subscriptions (id, observer_id, observed_kind, observed_id, label, signal, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sub.ID, sub.ObserverID, sub.Observed.Kind, sub.Observed.ID, sub.Label, sub.Signal, sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert subscription: %w", err)
	}
	return nil
}

func (s *PGStorage) DeleteSubscription(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM notification_subscriptions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

const subscriptionColumns = "id, observer_id, observed_kind, observed_id, label, signal, created_at"

func scanSubscriptions(rows pgx.Rows) ([]Subscription, error) {
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		var sub Subscription
		if err := rows.Scan(&sub.ID, &sub.ObserverID, &sub.Observed.Kind, &sub.Observed.ID,
			&sub.Label, &sub.Signal, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

func (s *PGStorage) FindAll(ctx context.Context, observed ObjectRef, signal string) ([]Subscription, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+subscriptionColumns+` FROM notification_subscriptions
		WHERE observed_kind = $1 AND observed_id = $2 AND signal = $3
		ORDER BY created_at`,
		observed.Kind, observed.ID, signal)
	if err != nil {
		return nil, fmt.Errorf("failed to find subscriptions: %w", err)
	}
	return scanSubscriptions(rows)
}

func (s *PGStorage) FindFor(ctx context.Context, observed ObjectRef, observerID, signal string) ([]Subscription, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+subscriptionColumns+` FROM notification_subscriptions
		WHERE observed_kind = $1 AND observed_id = $2 AND observer_id = $3 AND signal = $4
		ORDER BY created_at`,
		observed.Kind, observed.ID, observerID, signal)
	if err != nil {
		return nil, fmt.Errorf("failed to find subscriptions: %w", err)
	}
	return scanSubscriptions(rows)
}
