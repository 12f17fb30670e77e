package batch

import (
	"fmt"
	"time"

	"github.com/verzuimdesk/notifykit/pkg/notify"
)

// Batch is a transient grouping of notifications sharing one recipient and
// one batch tier, flushed together at a single scheduled send time. It is
// rebuilt from storage on every scheduling pass, never persisted itself.
type Batch struct {
	RecipientID   string
	Tier          notify.BatchTier
	ScheduledSend time.Time
	Notifications []notify.Notification
}

// append adds a member, guarding the recipient/tier invariants. A batch
// mixing recipients is a programming error, not a runtime condition, so it
// panics rather than being silently corrected.
func (b *Batch) append(n notify.Notification) {
	if n.RecipientID != b.RecipientID {
		panic(fmt.Sprintf("batch: recipient mismatch: batch %s, notification %s (%s)",
			b.RecipientID, n.RecipientID, n.ID))
	}
	if n.BatchTier != b.Tier {
		panic(fmt.Sprintf("batch: tier mismatch: batch %s, notification %s (%s)",
			b.Tier, n.BatchTier, n.ID))
	}
	if b.ScheduledSend.IsZero() || n.ScheduledSend.Before(b.ScheduledSend) {
		b.ScheduledSend = n.ScheduledSend
	}
	b.Notifications = append(b.Notifications, n)
}

// Option configures a Batcher.
type Option func(*Batcher)

// WithSchedule overrides the digest schedule used for tier send times.
func WithSchedule(s Schedule) Option {
	return func(b *Batcher) {
		b.schedule = s
	}
}

// WithClock injects the time source. Defaults to time.Now.
func WithClock(clock func() time.Time) Option {
	return func(b *Batcher) {
		if clock != nil {
			b.clock = clock
		}
	}
}

// Batcher groups notifications into per-recipient, per-tier batches and
// computes scheduled send times.
type Batcher struct {
	schedule Schedule
	clock    func() time.Time
}

// New creates a Batcher.
func New(opts ...Option) *Batcher {
	b := &Batcher{
		schedule: DefaultSchedule(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// EffectiveTier reconciles the classified tier with the recipient's digest
// preference. An instant preference bypasses batching entirely. A weekly
// preference defers daily traffic to weekly. Every other combination keeps
// the classified tier: instant and hourly never slow down, and a daily
// preference never speeds up a classified-weekly notification.
func (b *Batcher) EffectiveTier(classified notify.BatchTier, prefs *notify.Preferences) notify.BatchTier {
	if prefs == nil || !prefs.Digest.Valid() {
		return classified
	}
	switch prefs.Digest {
	case notify.TierInstant:
		return notify.TierInstant
	case notify.TierWeekly:
		if classified == notify.TierDaily {
			return notify.TierWeekly
		}
	}
	return classified
}

// ScheduleFor returns the send time for a notification entering the given
// tier now.
func (b *Batcher) ScheduleFor(tier notify.BatchTier) time.Time {
	return b.schedule.For(tier, b.clock())
}

// Group partitions notifications into batches keyed by recipient. Each
// (recipient, tier) pair forms one batch; members keep arrival order and
// the batch inherits its earliest member's scheduled send. Critical
// notifications are never grouped: each becomes a singleton instant batch.
func (b *Batcher) Group(notifs []notify.Notification) map[string][]*Batch {
	out := make(map[string][]*Batch)
	open := make(map[string]map[notify.BatchTier]*Batch)

	for _, n := range notifs {
		if n.Priority == notify.PriorityCritical || n.BatchTier == notify.TierInstant {
			singleton := &Batch{
				RecipientID: n.RecipientID,
				Tier:        notify.TierInstant,
			}
			instant := n
			instant.BatchTier = notify.TierInstant
			singleton.append(instant)
			out[n.RecipientID] = append(out[n.RecipientID], singleton)
			continue
		}

		tiers, ok := open[n.RecipientID]
		if !ok {
			tiers = make(map[notify.BatchTier]*Batch)
			open[n.RecipientID] = tiers
		}
		grp, ok := tiers[n.BatchTier]
		if !ok {
			grp = &Batch{RecipientID: n.RecipientID, Tier: n.BatchTier}
			tiers[n.BatchTier] = grp
			out[n.RecipientID] = append(out[n.RecipientID], grp)
		}
		grp.append(n)
	}

	return out
}
