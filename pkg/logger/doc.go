// Package logger provides the slog factory and the typed attribute
// constructors used across the engine, so log records carry consistent
// keys (notification_id, recipient_id, channel, batch_tier, rule_id).
package logger
