package logger

import (
	"log/slog"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// NotificationID records the notification identifier under the key
// "notification_id".
func NotificationID(id string) slog.Attr {
	return slog.String("notification_id", id)
}

// RecipientID records the recipient identifier under the key "recipient_id".
func RecipientID(id string) slog.Attr {
	return slog.String("recipient_id", id)
}

// Channel records the delivery channel under the key "channel".
func Channel(channel any) slog.Attr {
	return slog.Any("channel", channel)
}

// BatchTier records the batch tier under the key "batch_tier".
func BatchTier(tier any) slog.Attr {
	return slog.Any("batch_tier", tier)
}

// RuleID records an escalation rule identifier under the key "rule_id".
func RuleID(id string) slog.Attr {
	return slog.String("rule_id", id)
}

// NotificationType records the business event kind under the key "type".
func NotificationType(t any) slog.Attr {
	return slog.Any("type", t)
}

// Count records an item count under the key "count".
func Count(n int) slog.Attr {
	return slog.Int("count", n)
}
