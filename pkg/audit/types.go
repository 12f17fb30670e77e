package audit

import (
	"fmt"
	"time"

	"github.com/verzuimdesk/notifykit/pkg/notify"
)

// Status is the recorded outcome of one delivery decision or attempt.
type Status string

const (
	StatusSent       Status = "sent"
	StatusSuppressed Status = "suppressed"
	StatusThrottled  Status = "throttled"
	StatusFailed     Status = "failed"
	StatusRetried    Status = "retried"
	StatusCancelled  Status = "cancelled"
	StatusEscalated  Status = "escalated"
)

// Entry is a single delivery/audit log record. Entries are appended and
// never mutated in place: suppressed notifications are invisible to the
// recipient but stay traceable here for compliance.
type Entry struct {
	ID             string         `json:"id" bson:"_id"`
	NotificationID string         `json:"notification_id" bson:"notification_id"`
	RecipientID    string         `json:"recipient_id" bson:"recipient_id"`
	Channel        notify.Channel `json:"channel,omitempty" bson:"channel,omitempty"`
	Status         Status         `json:"status" bson:"status"`
	Error          string         `json:"error,omitempty" bson:"error,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
	At             time.Time      `json:"at" bson:"at"`
}

// Validate checks the entry carries the required fields.
func (e *Entry) Validate() error {
	if e.NotificationID == "" {
		return fmt.Errorf("%w: notification id is required", ErrEntryValidation)
	}
	if e.Status == "" {
		return fmt.Errorf("%w: status is required", ErrEntryValidation)
	}
	return nil
}

// EntryOption applies optional fields to an Entry during logging.
type EntryOption func(*Entry)

// WithChannel records the channel the entry is about.
func WithChannel(c notify.Channel) EntryOption {
	return func(e *Entry) { e.Channel = c }
}

// WithError records the failure cause.
func WithError(err error) EntryOption {
	return func(e *Entry) {
		if err != nil {
			e.Error = err.Error()
		}
	}
}

// WithMetadata attaches extra context to the entry.
func WithMetadata(md map[string]any) EntryOption {
	return func(e *Entry) { e.Metadata = md }
}
