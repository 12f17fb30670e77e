package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStorage is a PostgreSQL implementation of the Storage interface.
// ClaimDue relies on FOR UPDATE SKIP LOCKED so concurrent scheduler ticks
// never claim the same notification twice.
type PgStorage struct {
	pool *pgxpool.Pool
}

// NewPgStorage creates a Postgres-backed notification storage.
// The schema is applied by the goose migrations under migrations/.
func NewPgStorage(pool *pgxpool.Pool) *PgStorage {
	return &PgStorage{pool: pool}
}

const notificationColumns = `id, recipient_id, type, priority, batch_tier, title, body,
	data, actions, related_kind, related_id, deep_link, deadline, channels,
	status, scheduled_send, sent_at, retried_at, read, read_at, actioned,
	actioned_at, created_at`

func (s *PgStorage) Create(ctx context.Context, n Notification) error {
	if n.ID == "" {
		return ErrMissingID
	}
	if n.RecipientID == "" {
		return ErrMissingRecipient
	}
	if n.Status == "" {
		n.Status = StatusPending
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	data, err := json.Marshal(n.Data)
	if err != nil {
		return fmt.Errorf("marshal notification data: %w", err)
	}
	actions, err := json.Marshal(n.Actions)
	if err != nil {
		return fmt.Errorf("marshal notification actions: %w", err)
	}

	var relatedKind, relatedID *string
	if n.Related != nil {
		relatedKind, relatedID = &n.Related.Kind, &n.Related.ID
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)`,
		n.ID, n.RecipientID, n.Type, n.Priority, n.BatchTier, n.Title, n.Body,
		data, actions, relatedKind, relatedID, nilIfEmpty(n.DeepLink), n.Deadline,
		channelStrings(n.Channels), n.Status, n.ScheduledSend, n.SentAt, n.RetriedAt,
		n.Read, n.ReadAt, n.Actioned, n.ActionedAt, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *PgStorage) Get(ctx context.Context, recipientID, id string) (*Notification, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE id = $1 AND recipient_id = $2`,
		id, recipientID)

	n, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return n, nil
}

func (s *PgStorage) List(ctx context.Context, recipientID string, opts ListOptions) ([]Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE recipient_id = $1`
	args := []any{recipientID}

	if opts.OnlyUnread {
		query += ` AND read = false`
	}
	if len(opts.Statuses) > 0 {
		args = append(args, statusStrings(opts.Statuses))
		query += fmt.Sprintf(` AND status = ANY($%d)`, len(args))
	}
	if len(opts.Types) > 0 {
		args = append(args, typeStrings(opts.Types))
		query += fmt.Sprintf(` AND type = ANY($%d)`, len(args))
	}
	if opts.Since != nil {
		args = append(args, *opts.Since)
		query += fmt.Sprintf(` AND created_at >= $%d`, len(args))
	}

	query += ` ORDER BY created_at`
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	return collectNotifications(rows)
}

func (s *PgStorage) ClaimDue(ctx context.Context, now time.Time, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 100
	}

	// The inner SELECT ... FOR UPDATE SKIP LOCKED plus the status guard in
	// the UPDATE makes the pending -> dispatching transition at-most-once
	// across concurrent workers.
	rows, err := s.pool.Query(ctx, `
		UPDATE notifications SET status = $1
		WHERE id IN (
			SELECT id FROM notifications
			WHERE status = $2 AND scheduled_send <= $3
			ORDER BY created_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+notificationColumns,
		StatusDispatching, StatusPending, now, limit)
	if err != nil {
		return nil, fmt.Errorf("claim due notifications: %w", err)
	}
	defer rows.Close()

	claimed, err := collectNotifications(rows)
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (s *PgStorage) MarkSent(ctx context.Context, id string, sentAt time.Time, channels []Channel) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET status = $1, sent_at = $2, channels = $3
		WHERE id = $4 AND sent_at IS NULL`,
		StatusSent, sentAt, channelStrings(channels), id)
	if err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.sentGuardError(ctx, id)
	}
	return nil
}

func (s *PgStorage) MarkSuppressed(ctx context.Context, id string, at time.Time) error {
	return s.setStatus(ctx, id, StatusSuppressed)
}

func (s *PgStorage) MarkFailed(ctx context.Context, id string, at time.Time) error {
	return s.setStatus(ctx, id, StatusFailed)
}

func (s *PgStorage) Cancel(ctx context.Context, recipientID string, ids ...string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notifications SET status = $1
		WHERE recipient_id = $2 AND id = ANY($3) AND sent_at IS NULL`,
		StatusCancelled, recipientID, ids)
	if err != nil {
		return fmt.Errorf("cancel notifications: %w", err)
	}
	return nil
}

func (s *PgStorage) Reschedule(ctx context.Context, id string, at time.Time, channels []Channel) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET status = $1, scheduled_send = $2, channels = $3, retried_at = now()
		WHERE id = $4 AND sent_at IS NULL`,
		StatusPending, at, channelStrings(channels), id)
	if err != nil {
		return fmt.Errorf("reschedule notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.sentGuardError(ctx, id)
	}
	return nil
}

func (s *PgStorage) MarkRead(ctx context.Context, recipientID string, ids ...string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notifications SET read = true, read_at = now()
		WHERE recipient_id = $1 AND id = ANY($2) AND read = false`,
		recipientID, ids)
	if err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}

func (s *PgStorage) MarkActioned(ctx context.Context, recipientID, id string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications SET actioned = true, actioned_at = now()
		WHERE recipient_id = $1 AND id = $2`,
		recipientID, id)
	if err != nil {
		return fmt.Errorf("mark notification actioned: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *PgStorage) CountUnread(ctx context.Context, recipientID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM notifications
		WHERE recipient_id = $1 AND status = $2 AND read = false`,
		recipientID, StatusSent).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func (s *PgStorage) ListDelivered(ctx context.Context, since time.Time) ([]Notification, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE status = ANY($1) AND created_at >= $2
		ORDER BY created_at`,
		[]string{string(StatusSent), string(StatusCancelled)}, since)
	if err != nil {
		return nil, fmt.Errorf("list delivered notifications: %w", err)
	}
	defer rows.Close()

	return collectNotifications(rows)
}

func (s *PgStorage) setStatus(ctx context.Context, id string, status Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update notification status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// sentGuardError distinguishes "row missing" from "row frozen by SentAt"
// after a guarded update touched no rows.
func (s *PgStorage) sentGuardError(ctx context.Context, id string) error {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM notifications WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check notification existence: %w", err)
	}
	if exists {
		return ErrAlreadyDelivered
	}
	return ErrNotificationNotFound
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (*Notification, error) {
	var (
		n                      Notification
		data, actions          []byte
		relatedKind, relatedID *string
		deepLink               *string
		channels               []string
	)

	err := row.Scan(
		&n.ID, &n.RecipientID, &n.Type, &n.Priority, &n.BatchTier, &n.Title, &n.Body,
		&data, &actions, &relatedKind, &relatedID, &deepLink, &n.Deadline, &channels,
		&n.Status, &n.ScheduledSend, &n.SentAt, &n.RetriedAt, &n.Read, &n.ReadAt,
		&n.Actioned, &n.ActionedAt, &n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return nil, fmt.Errorf("unmarshal notification data: %w", err)
		}
	}
	if len(actions) > 0 {
		if err := json.Unmarshal(actions, &n.Actions); err != nil {
			return nil, fmt.Errorf("unmarshal notification actions: %w", err)
		}
	}
	if relatedKind != nil && relatedID != nil {
		n.Related = &Entity{Kind: *relatedKind, ID: *relatedID}
	}
	if deepLink != nil {
		n.DeepLink = *deepLink
	}
	for _, c := range channels {
		n.Channels = append(n.Channels, Channel(c))
	}
	return &n, nil
}

func collectNotifications(rows pgx.Rows) ([]Notification, error) {
	var out []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}

func channelStrings(channels []Channel) []string {
	out := make([]string, len(channels))
	for i, c := range channels {
		out[i] = string(c)
	}
	return out
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func typeStrings(types []Type) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
