package notify

import (
	"time"
)

// Channel represents a delivery medium.
type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

// AllChannels returns every supported channel in preference order.
func AllChannels() []Channel {
	return []Channel{ChannelInApp, ChannelEmail, ChannelSMS, ChannelPush}
}

// Valid checks if the channel is one of the supported delivery media.
func (c Channel) Valid() bool {
	switch c {
	case ChannelInApp, ChannelEmail, ChannelSMS, ChannelPush:
		return true
	}
	return false
}

// Priority represents the notification priority tier.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityNormal   Priority = "normal"
	PriorityLow      Priority = "low"
)

// Valid checks if the priority is a known tier.
func (p Priority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityNormal, PriorityLow:
		return true
	}
	return false
}

// BatchTier determines how long a notification may wait before delivery.
// It doubles as the recipient's digest preference value.
type BatchTier string

const (
	TierInstant BatchTier = "instant"
	TierHourly  BatchTier = "hourly"
	TierDaily   BatchTier = "daily"
	TierWeekly  BatchTier = "weekly"
)

// Valid checks if the tier is a known batch tier.
func (t BatchTier) Valid() bool {
	switch t {
	case TierInstant, TierHourly, TierDaily, TierWeekly:
		return true
	}
	return false
}

// Type represents the business event kind behind a notification.
type Type string

const (
	TypeDeadlineReminder  Type = "deadline_reminder"
	TypePoortwachterWeek6 Type = "poortwachter_week6"
	TypePoortwachterW42   Type = "poortwachter_week42"
	TypeLeaveRequest      Type = "leave_request"
	TypeLeaveDecided      Type = "leave_decided"
	TypeApprovalRequest   Type = "approval_request"
	TypeTaskAssigned      Type = "task_assigned"
	TypeTaskUpdated       Type = "task_updated"
	TypeDocumentSignature Type = "document_signature"
	TypeDocumentExpiring  Type = "document_expiring"
	TypeBirthdayToday     Type = "birthday_today"
	TypeWorkAnniversary   Type = "work_anniversary"
)

// AllTypes returns every known notification type.
func AllTypes() []Type {
	return []Type{
		TypeDeadlineReminder,
		TypePoortwachterWeek6,
		TypePoortwachterW42,
		TypeLeaveRequest,
		TypeLeaveDecided,
		TypeApprovalRequest,
		TypeTaskAssigned,
		TypeTaskUpdated,
		TypeDocumentSignature,
		TypeDocumentExpiring,
		TypeBirthdayToday,
		TypeWorkAnniversary,
	}
}

// Valid checks if the type is a known business event kind.
func (t Type) Valid() bool {
	for _, known := range AllTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// DeadlineDriven reports whether notifications of this type concern a
// deadline, so the classifier may promote their urgency based on
// deadline proximity.
func (t Type) DeadlineDriven() bool {
	switch t {
	case TypeDeadlineReminder, TypePoortwachterWeek6, TypePoortwachterW42,
		TypeDocumentSignature, TypeDocumentExpiring:
		return true
	}
	return false
}

// ActionKind represents what tapping a notification action does.
type ActionKind string

const (
	ActionOpenLink    ActionKind = "open_link"
	ActionApprove     ActionKind = "approve"
	ActionDecline     ActionKind = "decline"
	ActionAcknowledge ActionKind = "acknowledge"
)

// Action represents a call-to-action button attached to a notification.
type Action struct {
	Label string     `json:"label"`
	Kind  ActionKind `json:"kind"`
	Style string     `json:"style"` // primary, secondary, danger
}

// Entity references the business record a notification is about.
type Entity struct {
	Kind string `json:"kind"` // e.g. "absence_case", "leave_request", "document"
	ID   string `json:"id"`
}

// Status represents where a notification is in its delivery lifecycle.
type Status string

const (
	StatusPending     Status = "pending"
	StatusDispatching Status = "dispatching"
	StatusSent        Status = "sent"
	StatusSuppressed  Status = "suppressed"
	StatusCancelled   Status = "cancelled"
	StatusFailed      Status = "failed"
)

// Notification is the core domain model. It is immutable once created:
// after delivery the engine only ever touches the read/actioned timestamps.
type Notification struct {
	ID          string   `json:"id"`
	RecipientID string   `json:"recipient_id"`
	Type        Type     `json:"type"`
	Priority    Priority `json:"priority"`

	Title   string         `json:"title"`
	Body    string         `json:"body"`
	Data    map[string]any `json:"data,omitempty"`
	Actions []Action       `json:"actions,omitempty"`

	Related  *Entity `json:"related,omitempty"`
	DeepLink string  `json:"deep_link,omitempty"`

	// Deadline is the authoritative deadline when the producer can supply
	// one. When absent the classifier falls back to a free-text heuristic.
	Deadline *time.Time `json:"deadline,omitempty"`

	BatchTier     BatchTier  `json:"batch_tier"`
	Channels      []Channel  `json:"channels,omitempty"`
	Status        Status     `json:"status"`
	ScheduledSend time.Time  `json:"scheduled_send"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	RetriedAt     *time.Time `json:"retried_at,omitempty"`

	Read       bool       `json:"read"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
	Actioned   bool       `json:"actioned"`
	ActionedAt *time.Time `json:"actioned_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Delivered reports whether the notification has gone out. Once true,
// channels and scheduled send are frozen.
func (n *Notification) Delivered() bool {
	return n.SentAt != nil
}

// Retried reports whether the notification has already consumed its single
// retry cycle.
func (n *Notification) Retried() bool {
	return n.RetriedAt != nil
}

// MarkAsRead marks the notification as read at the given time.
func (n *Notification) MarkAsRead(at time.Time) {
	n.Read = true
	n.ReadAt = &at
}

// MarkActioned marks the notification as actioned at the given time.
func (n *Notification) MarkActioned(at time.Time) {
	n.Actioned = true
	n.ActionedAt = &at
}

// DispatchRequest is the per-channel output handed to the external
// delivery layer. One request is produced per selected channel.
type DispatchRequest struct {
	NotificationID string   `json:"notification_id"`
	RecipientID    string   `json:"recipient_id"`
	Channel        Channel  `json:"channel"`
	Title          string   `json:"title"`
	Body           string   `json:"body"`
	Actions        []Action `json:"actions,omitempty"`
	DeepLink       string   `json:"deep_link,omitempty"`
}
