package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/verzuimdesk/notifykit/pkg/audit"
	"github.com/verzuimdesk/notifykit/pkg/batch"
	"github.com/verzuimdesk/notifykit/pkg/digest"
	"github.com/verzuimdesk/notifykit/pkg/escalation"
	"github.com/verzuimdesk/notifykit/pkg/logger"
	"github.com/verzuimdesk/notifykit/pkg/notify"
)

// digestChannels is where digests can land: a digest is a rendered
// document, not something SMS or a push banner can carry.
var digestChannels = []notify.Channel{notify.ChannelInApp, notify.ChannelEmail}

// Tick is the engine's single scheduling entry point, invoked by the
// external scheduler (cron, worker loop). One tick claims due
// notifications, flushes them grouped per recipient, and then runs the
// escalation sweep. Ticks are safe to run concurrently across processes:
// the claim is an atomic status transition, so each notification is
// flushed by at most one tick.
func (e *Engine) Tick(ctx context.Context) error {
	now := e.clock()

	claimed, err := e.storage.ClaimDue(ctx, now, e.claimLimit)
	if err != nil {
		return fmt.Errorf("claim due notifications: %w", err)
	}

	if len(claimed) > 0 {
		e.log.LogAttrs(ctx, slog.LevelDebug, "claimed due notifications", logger.Count(len(claimed)))
		e.flushAll(ctx, e.batcher.Group(claimed))
	}

	if e.escalator != nil {
		if err := e.sweepEscalations(ctx); err != nil {
			return fmt.Errorf("escalation sweep: %w", err)
		}
	}
	return nil
}

// flushAll drains the claimed batches with a bounded worker pool. All
// batches of one recipient stay on one worker so a recipient's flushes
// never race each other.
func (e *Engine) flushAll(ctx context.Context, byRecipient map[string][]*batch.Batch) {
	var g errgroup.Group
	g.SetLimit(e.workers)

	for recipientID, batches := range byRecipient {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					e.log.LogAttrs(ctx, slog.LevelError, "panic while flushing recipient batches",
						logger.RecipientID(recipientID),
						slog.Any("panic", r),
					)
				}
			}()
			for _, b := range batches {
				e.flushBatch(ctx, b)
			}
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers report per-notification outcomes themselves
}

// flushBatch delivers one (recipient, tier) batch: instant batches go out
// as individual per-channel dispatches, digest tiers as one rendered
// digest document.
func (e *Engine) flushBatch(ctx context.Context, b *batch.Batch) {
	members := e.liveMembers(ctx, b)
	if len(members) == 0 {
		return
	}

	prefs := e.preferencesFor(ctx, b.RecipientID)
	status := e.statusFor(ctx, b.RecipientID, prefs)

	if b.Tier == notify.TierInstant {
		for _, n := range members {
			e.dispatchOne(ctx, n, prefs, status)
		}
		return
	}
	e.dispatchDigest(ctx, b, members, prefs, status)
}

// liveMembers re-reads the batch members and drops the ones withdrawn
// between claim and flush.
func (e *Engine) liveMembers(ctx context.Context, b *batch.Batch) []notify.Notification {
	live := make([]notify.Notification, 0, len(b.Notifications))
	for _, n := range b.Notifications {
		current, err := e.storage.Get(ctx, n.RecipientID, n.ID)
		if err != nil {
			if !errors.Is(err, notify.ErrNotificationNotFound) {
				e.log.LogAttrs(ctx, slog.LevelError, "failed to re-read batch member",
					logger.NotificationID(n.ID), logger.Error(err))
			}
			continue
		}
		if current.Status == notify.StatusCancelled || current.Delivered() {
			continue
		}
		live = append(live, n)
	}
	return live
}

// channelsFor resolves the channel set to attempt for one notification. A
// rescheduled retry carries its narrowed channel set and bypasses
// re-selection; everything else goes through the preference evaluation.
func (e *Engine) channelsFor(n notify.Notification, prefs *notify.Preferences, status notify.RecipientStatus) []notify.Channel {
	if n.Retried() && len(n.Channels) > 0 {
		return n.Channels
	}
	return e.selector.Select(n, prefs, status)
}

// throttled splits the candidate channels into allowed and throttled.
// Critical notifications are never throttled: a rate cap must not hide a
// safety-relevant alert.
func (e *Engine) throttled(ctx context.Context, n notify.Notification, channels []notify.Channel) (allowed []notify.Channel) {
	if e.limiter == nil || n.Priority == notify.PriorityCritical {
		return channels
	}

	for _, c := range channels {
		ok, err := e.limiter.Allow(ctx, n.RecipientID, c)
		if err != nil {
			// A broken counter store degrades to delivery, not silence.
			e.log.LogAttrs(ctx, slog.LevelWarn, "throttle check failed, allowing send",
				logger.NotificationID(n.ID), logger.Channel(c), logger.Error(err))
			allowed = append(allowed, c)
			continue
		}
		if !ok {
			e.auditLog(ctx, n, audit.StatusThrottled, audit.WithChannel(c))
			continue
		}
		allowed = append(allowed, c)
	}
	return allowed
}

// dispatchOne fans one notification out across its channels, each attempt
// under its own timeout, and settles the outcome: sent when at least one
// channel landed, rescheduled for the single retry cycle when all failed
// transiently, failed otherwise.
func (e *Engine) dispatchOne(ctx context.Context, n notify.Notification, prefs *notify.Preferences, status notify.RecipientStatus) {
	channels := e.channelsFor(n, prefs, status)
	if len(channels) == 0 {
		e.suppress(ctx, n)
		return
	}

	channels = e.throttled(ctx, n, channels)
	if len(channels) == 0 {
		e.suppress(ctx, n)
		return
	}

	var (
		mu        sync.Mutex
		succeeded []notify.Channel
		failed    []notify.Channel
		failures  []error
	)

	var g errgroup.Group
	for _, c := range channels {
		req := notify.DispatchRequest{
			NotificationID: n.ID,
			RecipientID:    n.RecipientID,
			Channel:        c,
			Title:          n.Title,
			Body:           n.Body,
			Actions:        n.Actions,
			DeepLink:       n.DeepLink,
		}
		g.Go(func() error {
			sendCtx, cancel := context.WithTimeout(ctx, e.channelTimeout)
			defer cancel()

			err := e.dispatcher.Dispatch(sendCtx, req)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, c)
				failures = append(failures, fmt.Errorf("channel %s: %w", c, err))
				return nil
			}
			succeeded = append(succeeded, c)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // per-channel outcomes collected above

	for i, c := range failed {
		e.log.LogAttrs(ctx, slog.LevelWarn, "channel delivery failed",
			logger.NotificationID(n.ID), logger.Channel(c), logger.Error(failures[i]))
	}

	if len(succeeded) > 0 {
		e.finalizeSent(ctx, n, succeeded)
		return
	}
	e.settleFailure(ctx, n, failed, failures)
}

// dispatchDigest renders the batch into one digest document and delivers
// it on the union of the members' digest-capable channels. Members whose
// own channel selection comes up empty are suppressed individually and
// never ride the digest.
func (e *Engine) dispatchDigest(ctx context.Context, b *batch.Batch, members []notify.Notification, prefs *notify.Preferences, status notify.RecipientStatus) {
	selected := make(map[notify.Channel]bool)
	var riders []notify.Notification
	for _, n := range members {
		reachable := false
		for _, c := range e.channelsFor(n, prefs, status) {
			for _, dc := range digestChannels {
				if c == dc {
					selected[c] = true
					reachable = true
				}
			}
		}
		if !reachable {
			e.suppress(ctx, n)
			continue
		}
		riders = append(riders, n)
	}

	var channels []notify.Channel
	for _, c := range digestChannels {
		if selected[c] {
			channels = append(channels, c)
		}
	}
	if len(channels) == 0 {
		return
	}

	flushed := *b
	flushed.Notifications = riders
	payload := digest.BuildPayload(&flushed)

	var (
		mu        sync.Mutex
		succeeded []notify.Channel
		failures  []error
	)

	var g errgroup.Group
	for _, c := range channels {
		g.Go(func() error {
			sendCtx, cancel := context.WithTimeout(ctx, e.channelTimeout)
			defer cancel()

			err := e.dispatcher.DispatchDigest(sendCtx, payload, c)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, fmt.Errorf("digest channel %s: %w", c, err))
				e.log.LogAttrs(ctx, slog.LevelWarn, "digest delivery failed",
					logger.RecipientID(b.RecipientID), logger.Channel(c), logger.Error(err))
				return nil
			}
			succeeded = append(succeeded, c)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // per-channel outcomes collected above

	if len(succeeded) > 0 {
		for _, n := range riders {
			e.finalizeSent(ctx, n, succeeded)
		}
		return
	}
	for _, n := range riders {
		e.settleFailure(ctx, n, channels, failures)
	}
}

func (e *Engine) suppress(ctx context.Context, n notify.Notification) {
	if err := e.storage.MarkSuppressed(ctx, n.ID, e.clock()); err != nil {
		e.log.LogAttrs(ctx, slog.LevelError, "failed to mark suppressed",
			logger.NotificationID(n.ID), logger.Error(err))
		return
	}
	e.auditLog(ctx, n, audit.StatusSuppressed)
}

func (e *Engine) finalizeSent(ctx context.Context, n notify.Notification, channels []notify.Channel) {
	if err := e.storage.MarkSent(ctx, n.ID, e.clock(), channels); err != nil {
		e.log.LogAttrs(ctx, slog.LevelError, "failed to mark sent",
			logger.NotificationID(n.ID), logger.Error(err))
		return
	}
	for _, c := range channels {
		e.auditLog(ctx, n, audit.StatusSent, audit.WithChannel(c))
	}
}

// settleFailure decides between the single retry cycle and a permanent
// failure. Permanent delivery errors (bad address, recipient gone) never
// earn a retry; neither does a notification that already spent its cycle.
func (e *Engine) settleFailure(ctx context.Context, n notify.Notification, failed []notify.Channel, failures []error) {
	permanent := len(failures) > 0
	for _, err := range failures {
		if !errors.Is(err, notify.ErrPermanentDelivery) {
			permanent = false
			break
		}
	}

	if !permanent && e.routing.ShouldRetry(n, failed) {
		at := e.clock().Add(e.routing.RetryDelay(n))
		channels := e.routing.RetryChannels(n)
		if err := e.storage.Reschedule(ctx, n.ID, at, channels); err != nil {
			e.log.LogAttrs(ctx, slog.LevelError, "failed to reschedule retry",
				logger.NotificationID(n.ID), logger.Error(err))
			return
		}
		e.auditLog(ctx, n, audit.StatusRetried, audit.WithError(errors.Join(failures...)))
		return
	}

	if err := e.storage.MarkFailed(ctx, n.ID, e.clock()); err != nil {
		e.log.LogAttrs(ctx, slog.LevelError, "failed to mark failed",
			logger.NotificationID(n.ID), logger.Error(err))
		return
	}
	e.auditLog(ctx, n, audit.StatusFailed, audit.WithError(errors.Join(failures...)))
}

// sweepEscalations evaluates the escalation rules against recently
// delivered notifications. notify_target firings become new high-priority
// notifications that re-enter the pipeline; reassign and auto_approve are
// recorded for the consuming product to execute.
func (e *Engine) sweepEscalations(ctx context.Context) error {
	since := e.clock().Add(-e.escalationLookback)
	delivered, err := e.storage.ListDelivered(ctx, since)
	if err != nil {
		return fmt.Errorf("list delivered notifications: %w", err)
	}

	firings, err := e.escalator.Sweep(ctx, delivered)
	if err != nil {
		return err
	}

	for _, f := range firings {
		e.auditLog(ctx, f.Original, audit.StatusEscalated, audit.WithMetadata(map[string]any{
			"rule_id": f.Rule.ID,
			"action":  string(f.Rule.Action),
			"target":  f.TargetID,
		}))

		if f.Rule.Action != escalation.ActionNotifyTarget {
			e.log.LogAttrs(ctx, slog.LevelInfo, "escalation action recorded",
				logger.NotificationID(f.Original.ID),
				logger.RuleID(f.Rule.ID),
				slog.String("action", string(f.Rule.Action)),
			)
			continue
		}

		if err := e.createEscalation(ctx, f.Notification()); err != nil {
			e.log.LogAttrs(ctx, slog.LevelError, "failed to create escalation notification",
				logger.NotificationID(f.Original.ID),
				logger.RuleID(f.Rule.ID),
				logger.Error(err),
			)
		}
	}
	return nil
}

// createEscalation persists a firing's notification draft. The draft
// carries its own title and body, so it skips template rendering and goes
// straight through classification and scheduling.
func (e *Engine) createEscalation(ctx context.Context, n notify.Notification) error {
	prefs := e.preferencesFor(ctx, n.RecipientID)

	n.ID = uuid.New().String()
	n.Status = notify.StatusPending
	n.CreatedAt = e.clock()
	if prefs != nil {
		n.Priority = prefs.PriorityFor(n.Type, n.Priority)
	}

	priority, tier := e.classifier.Classify(n)
	n.Priority = priority
	n.BatchTier = e.batcher.EffectiveTier(tier, prefs)
	n.ScheduledSend = e.batcher.ScheduleFor(n.BatchTier)

	if err := e.storage.Create(ctx, n); err != nil {
		return fmt.Errorf("store escalation notification: %w", err)
	}
	return nil
}
