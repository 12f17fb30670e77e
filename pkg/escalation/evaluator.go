package escalation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/verzuimdesk/notifykit/pkg/logger"
	"github.com/verzuimdesk/notifykit/pkg/notify"
)

// RoleResolver maps an escalation target role to a concrete recipient,
// relative to the original recipient (e.g. "the manager of employee X").
// Supplied by the integrating product's org chart.
type RoleResolver interface {
	Resolve(ctx context.Context, recipientID string, role Role) (string, error)
}

// Firing is one rule that fired for one notification during a sweep.
// Action semantics beyond notify_target (reassign, auto_approve) are
// executed by the consuming product; the engine only reports them.
type Firing struct {
	Rule     Rule
	Original notify.Notification
	TargetID string
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithClock injects the time source. Defaults to time.Now.
func WithClock(clock func() time.Time) Option {
	return func(e *Evaluator) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Evaluator) {
		if log != nil {
			e.log = log
		}
	}
}

// Evaluator checks escalation rules against unacknowledged notifications.
// Firing is idempotent per (notification id, rule id): the atomic
// not_fired -> fired transition in the Store is the only gate, so sweeps
// may run on every scheduler tick without double-firing.
type Evaluator struct {
	rules    []Rule
	store    Store
	resolver RoleResolver
	clock    func() time.Time
	log      *slog.Logger
}

// NewEvaluator creates an Evaluator over the given rule set.
func NewEvaluator(rules []Rule, store Store, resolver RoleResolver, opts ...Option) (*Evaluator, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if resolver == nil {
		return nil, ErrResolverRequired
	}
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}

	e := &Evaluator{
		rules:    rules,
		store:    store,
		resolver: resolver,
		clock:    time.Now,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Sweep evaluates every enabled rule against the given notifications and
// returns the rules that fired this pass. A resolver failure skips that
// pair and rolls its state back so a later sweep can retry it.
func (e *Evaluator) Sweep(ctx context.Context, notifs []notify.Notification) ([]Firing, error) {
	now := e.clock()

	var fired []Firing
	for _, n := range notifs {
		if n.Actioned || n.Status == notify.StatusCancelled {
			if err := e.resolve(ctx, n); err != nil {
				return fired, err
			}
			continue
		}

		for _, rule := range e.rules {
			if !rule.Enabled || !rule.Matches(n.Type) {
				continue
			}
			if !e.triggered(rule, n, now) {
				continue
			}

			ok, err := e.store.Transition(ctx, n.ID, rule.ID, StateNotFired, StateFired)
			if err != nil {
				return fired, fmt.Errorf("fire rule %s for notification %s: %w", rule.ID, n.ID, err)
			}
			if !ok {
				continue // already fired on an earlier tick
			}

			target, err := e.resolver.Resolve(ctx, n.RecipientID, rule.Target)
			if err != nil {
				// Roll back so the rule can fire once the org chart answers.
				if _, rbErr := e.store.Transition(ctx, n.ID, rule.ID, StateFired, StateNotFired); rbErr != nil {
					e.log.LogAttrs(ctx, slog.LevelError, "failed to roll back escalation state",
						logger.NotificationID(n.ID),
						logger.RuleID(rule.ID),
						logger.Error(rbErr),
					)
				}
				e.log.LogAttrs(ctx, slog.LevelWarn, "could not resolve escalation target",
					logger.NotificationID(n.ID),
					logger.RuleID(rule.ID),
					logger.RecipientID(n.RecipientID),
					logger.Error(err),
				)
				continue
			}

			fired = append(fired, Firing{Rule: rule, Original: n, TargetID: target})
		}
	}
	return fired, nil
}

// Resolve marks every fired rule for the notification resolved, typically
// because the recipient actioned it or the producer cancelled it.
func (e *Evaluator) Resolve(ctx context.Context, n notify.Notification) error {
	return e.resolve(ctx, n)
}

func (e *Evaluator) resolve(ctx context.Context, n notify.Notification) error {
	for _, rule := range e.rules {
		if !rule.Matches(n.Type) {
			continue
		}
		if _, err := e.store.Transition(ctx, n.ID, rule.ID, StateFired, StateResolved); err != nil {
			return fmt.Errorf("resolve rule %s for notification %s: %w", rule.ID, n.ID, err)
		}
	}
	return nil
}

// triggered evaluates the rule's trigger condition against one
// notification at the given instant.
func (e *Evaluator) triggered(rule Rule, n notify.Notification, now time.Time) bool {
	threshold := time.Duration(rule.ThresholdHours) * time.Hour

	switch rule.Trigger {
	case TriggerNoResponse:
		return n.SentAt != nil && now.Sub(*n.SentAt) >= threshold
	case TriggerDeadlineApproaches:
		return n.Deadline != nil && n.Deadline.After(now) && n.Deadline.Sub(now) <= threshold
	case TriggerSLABreach:
		return n.Deadline != nil && now.Sub(*n.Deadline) >= threshold
	default:
		return false
	}
}

// Notification builds the escalation notification for a firing: a new,
// differently-addressed notification that re-enters the pipeline.
func (f Firing) Notification() notify.Notification {
	return notify.Notification{
		RecipientID: f.TargetID,
		Type:        f.Original.Type,
		Priority:    notify.PriorityHigh,
		Title:       "Escalated: " + f.Original.Title,
		Body: fmt.Sprintf("%s has not been handled by the assigned recipient (%s). Rule: %s.",
			f.Original.Title, f.Original.RecipientID, f.Rule.Name),
		Related:  f.Original.Related,
		DeepLink: f.Original.DeepLink,
		Deadline: f.Original.Deadline,
		Data: map[string]any{
			"escalated_from": f.Original.ID,
			"rule_id":        f.Rule.ID,
		},
	}
}
