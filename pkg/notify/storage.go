package notify

import (
	"context"
	"time"
)

// Storage handles notification persistence and the lifecycle transitions
// the engine depends on. Implementations must make ClaimDue an atomic
// pending -> dispatching transition so each notification is claimed by at
// most one worker.
type Storage interface {
	// Create stores a new notification.
	Create(ctx context.Context, n Notification) error

	// Get retrieves a single notification.
	Get(ctx context.Context, recipientID, id string) (*Notification, error)

	// List returns notifications for a recipient.
	List(ctx context.Context, recipientID string, opts ListOptions) ([]Notification, error)

	// ClaimDue atomically moves up to limit pending notifications whose
	// scheduled send has elapsed into the dispatching state and returns
	// them in arrival order.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]Notification, error)

	// MarkSent finalizes delivery: records sent time and the channel set
	// actually used. Both are frozen afterwards.
	MarkSent(ctx context.Context, id string, sentAt time.Time, channels []Channel) error

	// MarkSuppressed records that delivery was intentionally withheld
	// (vacation, quiet hours). Suppressed notifications stay in the audit
	// trail but are invisible to the recipient.
	MarkSuppressed(ctx context.Context, id string, at time.Time) error

	// MarkFailed records a permanent delivery failure.
	MarkFailed(ctx context.Context, id string, at time.Time) error

	// Cancel marks notifications cancelled. Cancelled members are skipped
	// at flush time without erroring the rest of the batch.
	Cancel(ctx context.Context, recipientID string, ids ...string) error

	// Reschedule re-enqueues a failed notification for a single retry
	// cycle: back to pending with a future scheduled send and a narrowed
	// channel set. Returns ErrAlreadyDelivered once SentAt is set.
	Reschedule(ctx context.Context, id string, at time.Time, channels []Channel) error

	// MarkRead marks notification(s) as read.
	MarkRead(ctx context.Context, recipientID string, ids ...string) error

	// MarkActioned marks a notification as actioned by the recipient.
	MarkActioned(ctx context.Context, recipientID, id string) error

	// CountUnread returns the unread count for a recipient.
	CountUnread(ctx context.Context, recipientID string) (int, error)

	// ListDelivered returns sent and cancelled notifications created
	// since the given time, across recipients, for escalation
	// evaluation.
	ListDelivered(ctx context.Context, since time.Time) ([]Notification, error)
}

// ListOptions provides filtering and pagination for listing notifications.
type ListOptions struct {
	Limit      int        // Maximum number to return (0 = no limit)
	Offset     int        // Number to skip for pagination
	OnlyUnread bool       // Only return unread notifications
	Statuses   []Status   // If set, only return notifications in these states
	Types      []Type     // If set, only return notifications of these types
	Since      *time.Time // If set, only return notifications created after this time
}

// PreferencesSource supplies the read-only per-recipient preferences
// snapshot. The record is owned and edited outside this engine; a nil
// result with no error means the recipient has no preferences on file.
type PreferencesSource interface {
	Preferences(ctx context.Context, recipientID string) (*Preferences, error)
}

// StatusSource supplies the transient recipient status consulted at
// channel-selection time, typically backed by the recipient's profile.
type StatusSource interface {
	Status(ctx context.Context, recipientID string) (RecipientStatus, error)
}
