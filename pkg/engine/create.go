package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/verzuimdesk/notifykit/pkg/audit"
	"github.com/verzuimdesk/notifykit/pkg/logger"
	"github.com/verzuimdesk/notifykit/pkg/notify"
)

// CreateInput is what a producer supplies. Title and body are rendered
// from the typed data payload; priority is the producer's declaration and
// may be overridden by recipient preferences and deadline proximity.
type CreateInput struct {
	RecipientID string
	Type        notify.Type
	Priority    notify.Priority
	Data        map[string]any
	Actions     []notify.Action
	Related     *notify.Entity
	DeepLink    string
	Deadline    *time.Time
}

func (in CreateInput) validate() error {
	if in.RecipientID == "" {
		return fmt.Errorf("%w: recipient id is required", ErrInvalidInput)
	}
	if !in.Type.Valid() {
		return fmt.Errorf("%w: unknown notification type %q", ErrInvalidInput, in.Type)
	}
	if in.Priority != "" && !in.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, in.Priority)
	}
	return nil
}

// Create renders, classifies, and persists a notification in the pending
// state. Nothing is delivered here; the scheduled send computed from the
// effective batch tier decides when a Tick picks it up.
//
// When the recipient is on vacation with a delegate configured, the
// delegate receives their own copy so the recipient's suppressed original
// still reaches someone who can act on it.
func (e *Engine) Create(ctx context.Context, in CreateInput) (*notify.Notification, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	prefs := e.preferencesFor(ctx, in.RecipientID)
	n, err := e.create(ctx, in, prefs)
	if err != nil {
		return nil, err
	}

	status := e.statusFor(ctx, in.RecipientID, prefs)
	if status.Vacation && status.DelegateID != "" && status.DelegateID != in.RecipientID {
		if err := e.createDelegateCopy(ctx, in, *n, status.DelegateID); err != nil {
			e.log.LogAttrs(ctx, slog.LevelError, "failed to create delegate copy",
				logger.NotificationID(n.ID),
				logger.RecipientID(status.DelegateID),
				logger.Error(err),
			)
		}
	}
	return n, nil
}

func (e *Engine) create(ctx context.Context, in CreateInput, prefs *notify.Preferences) (*notify.Notification, error) {
	now := e.clock()

	n := notify.Notification{
		ID:          uuid.New().String(),
		RecipientID: in.RecipientID,
		Type:        in.Type,
		Priority:    in.Priority,
		Data:        in.Data,
		Actions:     in.Actions,
		Related:     in.Related,
		DeepLink:    in.DeepLink,
		Deadline:    in.Deadline,
		Status:      notify.StatusPending,
		CreatedAt:   now,
	}

	title, body, err := e.formatter.Render(n)
	if err != nil {
		// Fail-soft: the fallback strings are usable, a broken template is
		// a configuration error to fix, not a reason to drop the event.
		e.log.LogAttrs(ctx, slog.LevelWarn, "template render fell back",
			logger.NotificationType(n.Type), logger.Error(err))
	}
	n.Title = title
	n.Body = body

	if prefs != nil {
		n.Priority = prefs.PriorityFor(n.Type, n.Priority)
	}

	priority, tier := e.classifier.Classify(n)
	n.Priority = priority
	n.BatchTier = e.batcher.EffectiveTier(tier, prefs)
	n.ScheduledSend = e.batcher.ScheduleFor(n.BatchTier)

	if err := e.storage.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("store notification: %w", err)
	}

	e.log.LogAttrs(ctx, slog.LevelDebug, "notification created",
		logger.NotificationID(n.ID),
		logger.RecipientID(n.RecipientID),
		logger.NotificationType(n.Type),
		logger.BatchTier(n.BatchTier),
	)
	return &n, nil
}

// createDelegateCopy re-addresses the notification to the vacation
// delegate. The copy is classified against the delegate's own preferences
// and never cascades further.
func (e *Engine) createDelegateCopy(ctx context.Context, in CreateInput, original notify.Notification, delegateID string) error {
	data := make(map[string]any, len(in.Data)+1)
	for k, v := range in.Data {
		data[k] = v
	}
	data["delegated_from"] = original.RecipientID

	copyIn := in
	copyIn.RecipientID = delegateID
	copyIn.Data = data

	prefs := e.preferencesFor(ctx, delegateID)
	_, err := e.create(ctx, copyIn, prefs)
	return err
}

// MarkRead marks notifications read for a recipient.
func (e *Engine) MarkRead(ctx context.Context, recipientID string, ids ...string) error {
	return e.storage.MarkRead(ctx, recipientID, ids...)
}

// MarkActioned records that the recipient acted on a notification and
// resolves any escalation rules armed against it.
func (e *Engine) MarkActioned(ctx context.Context, recipientID, id string) error {
	if err := e.storage.MarkActioned(ctx, recipientID, id); err != nil {
		return err
	}

	if e.escalator != nil {
		n, err := e.storage.Get(ctx, recipientID, id)
		if err != nil {
			return err
		}
		if err := e.escalator.Resolve(ctx, *n); err != nil {
			e.log.LogAttrs(ctx, slog.LevelError, "failed to resolve escalation state",
				logger.NotificationID(id), logger.Error(err))
		}
	}
	return nil
}

// Cancel withdraws pending notifications, typically because the underlying
// case was closed before delivery. Cancelled members are skipped at flush
// time; already delivered ones are left untouched by storage.
func (e *Engine) Cancel(ctx context.Context, recipientID string, ids ...string) error {
	if err := e.storage.Cancel(ctx, recipientID, ids...); err != nil {
		return err
	}
	for _, id := range ids {
		e.auditLog(ctx, notify.Notification{ID: id, RecipientID: recipientID}, audit.StatusCancelled)
	}
	return nil
}

// Unread returns the recipient's unread notification count.
func (e *Engine) Unread(ctx context.Context, recipientID string) (int, error) {
	return e.storage.CountUnread(ctx, recipientID)
}

// List returns the recipient's notifications.
func (e *Engine) List(ctx context.Context, recipientID string, opts notify.ListOptions) ([]notify.Notification, error) {
	return e.storage.List(ctx, recipientID, opts)
}
