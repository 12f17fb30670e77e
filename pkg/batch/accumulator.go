package batch

import (
	"sync"
	"time"

	"github.com/verzuimdesk/notifykit/pkg/notify"
)

// Accumulator collects notifications into open batches across a time
// window until they come due. It backs in-memory deployments; the engine's
// storage-driven tick rebuilds batches from the database instead and does
// not need it.
type Accumulator struct {
	batcher *Batcher

	mu   sync.Mutex
	open map[string]map[notify.BatchTier]*Batch
}

// NewAccumulator creates an Accumulator over the given Batcher.
func NewAccumulator(b *Batcher) *Accumulator {
	return &Accumulator{
		batcher: b,
		open:    make(map[string]map[notify.BatchTier]*Batch),
	}
}

// Add folds a notification into its open (recipient, tier) batch, creating
// the batch with a fresh schedule when none is open. Critical and instant
// notifications are returned immediately as singleton batches instead of
// being held. A notification belongs to at most one open batch at a time.
func (a *Accumulator) Add(n notify.Notification) *Batch {
	if n.Priority == notify.PriorityCritical || n.BatchTier == notify.TierInstant {
		instant := n
		instant.BatchTier = notify.TierInstant
		instant.ScheduledSend = a.batcher.ScheduleFor(notify.TierInstant)
		b := &Batch{RecipientID: n.RecipientID, Tier: notify.TierInstant}
		b.append(instant)
		return b
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	tiers, ok := a.open[n.RecipientID]
	if !ok {
		tiers = make(map[notify.BatchTier]*Batch)
		a.open[n.RecipientID] = tiers
	}
	b, ok := tiers[n.BatchTier]
	if !ok {
		b = &Batch{
			RecipientID:   n.RecipientID,
			Tier:          n.BatchTier,
			ScheduledSend: a.batcher.ScheduleFor(n.BatchTier),
		}
		tiers[n.BatchTier] = b
	}
	if n.ScheduledSend.IsZero() {
		n.ScheduledSend = b.ScheduledSend
	}
	b.Notifications = append(b.Notifications, n)
	return nil
}

// Due removes and returns every open batch whose scheduled send has
// elapsed, in no particular cross-recipient order.
func (a *Accumulator) Due(now time.Time) []*Batch {
	a.mu.Lock()
	defer a.mu.Unlock()

	var due []*Batch
	for recipient, tiers := range a.open {
		for tier, b := range tiers {
			if !b.ScheduledSend.After(now) {
				due = append(due, b)
				delete(tiers, tier)
			}
		}
		if len(tiers) == 0 {
			delete(a.open, recipient)
		}
	}
	return due
}

// Pending returns the number of notifications currently held in open
// batches.
func (a *Accumulator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	count := 0
	for _, tiers := range a.open {
		for _, b := range tiers {
			count += len(b.Notifications)
		}
	}
	return count
}
