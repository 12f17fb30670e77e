package classify

import (
	"regexp"
	"strconv"
	"time"

	"github.com/verzuimdesk/notifykit/pkg/notify"
)

// DefaultDeadlineWindow is assumed when a deadline-driven notification
// carries no structured deadline and none can be parsed from its body.
// Confirmed business default for the absence-management product.
const DefaultDeadlineWindow = 72 * time.Hour

// Thresholds below which deadline proximity promotes the batch tier.
const (
	instantDeadlineWindow = 24 * time.Hour
	hourlyDeadlineWindow  = 72 * time.Hour
)

// daysPattern extracts "N day(s)" (or Dutch "N dag(en)") from free text.
// Best-effort fallback only; producers should set Notification.Deadline
// whenever they can.
var daysPattern = regexp.MustCompile(`(?i)(\d+)\s*(?:days?|dag(?:en)?)`)

// Option configures a Classifier.
type Option func(*Classifier)

// WithClock injects the time source used for deadline proximity. Defaults
// to time.Now.
func WithClock(clock func() time.Time) Option {
	return func(c *Classifier) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithDefaultDeadlineWindow overrides the window assumed for deadline-driven
// notifications whose deadline cannot be determined.
func WithDefaultDeadlineWindow(d time.Duration) Option {
	return func(c *Classifier) {
		if d > 0 {
			c.defaultWindow = d
		}
	}
}

// Classifier assigns a priority tier and a batch tier to a notification.
// Pure and deterministic given the injected clock; classifying an already
// classified notification with unchanged input yields the same pair.
type Classifier struct {
	clock         func() time.Time
	defaultWindow time.Duration
}

// New creates a Classifier.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		clock:         time.Now,
		defaultWindow: DefaultDeadlineWindow,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns the effective priority and batch tier for a
// notification draft. Rule precedence, first match wins:
//
//  1. critical declared priority is always instant
//  2. deadline-driven and under 24h out: instant
//  3. deadline-driven and under 72h out: hourly
//  4. high declared priority: hourly
//  5. low declared priority: weekly
//  6. everything else: daily
func (c *Classifier) Classify(n notify.Notification) (notify.Priority, notify.BatchTier) {
	priority := n.Priority
	if !priority.Valid() {
		priority = notify.PriorityNormal
	}

	if priority == notify.PriorityCritical {
		return priority, notify.TierInstant
	}

	if n.Type.DeadlineDriven() {
		until := c.untilDeadline(n)
		if until < instantDeadlineWindow {
			return priority, notify.TierInstant
		}
		if until < hourlyDeadlineWindow {
			return priority, notify.TierHourly
		}
	}

	switch priority {
	case notify.PriorityHigh:
		return priority, notify.TierHourly
	case notify.PriorityLow:
		return priority, notify.TierWeekly
	default:
		return priority, notify.TierDaily
	}
}

// untilDeadline estimates the time remaining before the notification's
// deadline. The structured Deadline field is authoritative; the body text
// heuristic is a fallback, and the default window applies when neither
// yields an answer.
func (c *Classifier) untilDeadline(n notify.Notification) time.Duration {
	if n.Deadline != nil {
		return n.Deadline.Sub(c.clock())
	}
	if days, ok := parseDays(n.Body); ok {
		return time.Duration(days) * 24 * time.Hour
	}
	return c.defaultWindow
}

// parseDays extracts the first "N day(s)" figure from free text.
func parseDays(text string) (int, bool) {
	m := daysPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	days, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return days, true
}
