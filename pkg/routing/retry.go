package routing

import (
	"time"

	"github.com/verzuimdesk/notifykit/pkg/notify"
)

// ShouldRetry reports whether a failed delivery attempt earns a retry:
// the notification's tier must define a retry policy, at least one channel
// must have failed, and the single retry cycle must not be spent yet.
// A second failure is surfaced to the escalation evaluator instead of
// being retried again.
func (c Config) ShouldRetry(n notify.Notification, failed []notify.Channel) bool {
	if len(failed) == 0 || n.Retried() {
		return false
	}
	return c.Rule(n.Priority).Retry != nil
}

// RetryChannels returns the narrowed channel subset for the retry attempt.
// Narrowing models "escalate to higher-signal channels on failure" rather
// than blindly repeating the original fan-out.
func (c Config) RetryChannels(n notify.Notification) []notify.Channel {
	policy := c.Rule(n.Priority).Retry
	if policy == nil {
		return nil
	}
	return cloneChannels(policy.Channels)
}

// RetryDelay returns how long to wait before the retry attempt.
func (c Config) RetryDelay(n notify.Notification) time.Duration {
	policy := c.Rule(n.Priority).Retry
	if policy == nil {
		return 0
	}
	return policy.Delay
}
