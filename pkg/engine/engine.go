package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/verzuimdesk/notifykit/pkg/audit"
	"github.com/verzuimdesk/notifykit/pkg/batch"
	"github.com/verzuimdesk/notifykit/pkg/classify"
	"github.com/verzuimdesk/notifykit/pkg/digest"
	"github.com/verzuimdesk/notifykit/pkg/escalation"
	"github.com/verzuimdesk/notifykit/pkg/logger"
	"github.com/verzuimdesk/notifykit/pkg/notify"
	"github.com/verzuimdesk/notifykit/pkg/routing"
	"github.com/verzuimdesk/notifykit/pkg/template"
	"github.com/verzuimdesk/notifykit/pkg/throttle"
)

// Dispatcher is the boundary to the external delivery layer. Transport
// (how an email or SMS actually goes out) lives behind it. Errors
// wrapping notify.ErrPermanentDelivery are never retried.
type Dispatcher interface {
	// Dispatch delivers one per-channel request.
	Dispatch(ctx context.Context, req notify.DispatchRequest) error

	// DispatchDigest delivers a rendered digest on one channel.
	DispatchDigest(ctx context.Context, payload digest.Payload, channel notify.Channel) error
}

// Config is the env-driven engine configuration.
type Config struct {
	Workers            int           `env:"NOTIFY_ENGINE_WORKERS" envDefault:"4"`
	ClaimLimit         int           `env:"NOTIFY_ENGINE_CLAIM_LIMIT" envDefault:"200"`
	ChannelTimeout     time.Duration `env:"NOTIFY_ENGINE_CHANNEL_TIMEOUT" envDefault:"10s"`
	EscalationLookback time.Duration `env:"NOTIFY_ENGINE_ESCALATION_LOOKBACK" envDefault:"720h"`
	DigestHour         int           `env:"NOTIFY_ENGINE_DIGEST_HOUR" envDefault:"9"`
	DigestWeekday      time.Weekday  `env:"NOTIFY_ENGINE_DIGEST_WEEKDAY" envDefault:"1"`
	ThrottleLimit      int           `env:"NOTIFY_ENGINE_THROTTLE_LIMIT" envDefault:"0"`
	ThrottleWindow     time.Duration `env:"NOTIFY_ENGINE_THROTTLE_WINDOW" envDefault:"1h"`
}

// Engine wires classification, channel selection, batching, digest
// rendering, throttling, escalation, and auditing behind two entry
// points: Create for producers and Tick for the external scheduler.
//
// All dependencies are passed in at construction; the engine holds no
// package-level state and is safely instantiable multiple times.
type Engine struct {
	storage    notify.Storage
	prefs      notify.PreferencesSource
	status     notify.StatusSource
	dispatcher Dispatcher

	classifier *classify.Classifier
	selector   *routing.Selector
	routing    routing.Config
	batcher    *batch.Batcher
	formatter  *template.Formatter
	escalator  *escalation.Evaluator
	auditor    audit.Logger
	limiter    *throttle.Limiter

	log   *slog.Logger
	clock func() time.Time

	workers            int
	claimLimit         int
	channelTimeout     time.Duration
	escalationLookback time.Duration

	digestSchedule *batch.Schedule
	customBatcher  bool
	throttleLimit  int
	throttleWindow time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithRoutingConfig replaces the default routing table.
func WithRoutingConfig(cfg routing.Config) Option {
	return func(e *Engine) {
		e.routing = cfg
		e.selector = nil // rebuilt against the new table in New
	}
}

// WithClassifier replaces the default classifier.
func WithClassifier(c *classify.Classifier) Option {
	return func(e *Engine) {
		if c != nil {
			e.classifier = c
		}
	}
}

// WithBatcher replaces the default batcher. A batcher supplied here is
// used as-is; it is the caller's job to align its clock with WithClock.
func WithBatcher(b *batch.Batcher) Option {
	return func(e *Engine) {
		if b != nil {
			e.batcher = b
			e.customBatcher = true
		}
	}
}

// WithFormatter replaces the default template formatter.
func WithFormatter(f *template.Formatter) Option {
	return func(e *Engine) {
		if f != nil {
			e.formatter = f
		}
	}
}

// WithEscalation enables the escalation sweep during Tick.
func WithEscalation(ev *escalation.Evaluator) Option {
	return func(e *Engine) {
		e.escalator = ev
	}
}

// WithAudit sets the delivery audit logger.
func WithAudit(l audit.Logger) Option {
	return func(e *Engine) {
		e.auditor = l
	}
}

// WithThrottle caps per-recipient per-channel sends.
func WithThrottle(l *throttle.Limiter) Option {
	return func(e *Engine) {
		e.limiter = l
	}
}

// WithStatusSource supplies live transient recipient status. Without it,
// status derives from the stored preferences.
func WithStatusSource(s notify.StatusSource) Option {
	return func(e *Engine) {
		e.status = s
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithClock injects the time source. Defaults to time.Now.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithConfig applies the env-driven tunables.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		if cfg.Workers > 0 {
			e.workers = cfg.Workers
		}
		if cfg.ClaimLimit > 0 {
			e.claimLimit = cfg.ClaimLimit
		}
		if cfg.ChannelTimeout > 0 {
			e.channelTimeout = cfg.ChannelTimeout
		}
		if cfg.EscalationLookback > 0 {
			e.escalationLookback = cfg.EscalationLookback
		}
		if cfg.DigestHour >= 0 && cfg.DigestHour < 24 {
			s := batch.NewSchedule(cfg.DigestHour, 0, cfg.DigestWeekday)
			e.digestSchedule = &s
		}
		if cfg.ThrottleLimit > 0 {
			e.throttleLimit = cfg.ThrottleLimit
			e.throttleWindow = cfg.ThrottleWindow
		}
	}
}

// New creates an Engine. Storage, preferences source, and dispatcher are
// required; everything else has working defaults.
func New(storage notify.Storage, prefs notify.PreferencesSource, dispatcher Dispatcher, opts ...Option) (*Engine, error) {
	if storage == nil {
		return nil, ErrStorageRequired
	}
	if prefs == nil {
		return nil, ErrPreferencesRequired
	}
	if dispatcher == nil {
		return nil, ErrDispatcherRequired
	}

	e := &Engine{
		storage:            storage,
		prefs:              prefs,
		dispatcher:         dispatcher,
		routing:            routing.DefaultConfig(),
		classifier:         classify.New(),
		batcher:            batch.New(),
		formatter:          template.New(),
		log:                slog.Default(),
		clock:              time.Now,
		workers:            4,
		claimLimit:         200,
		channelTimeout:     10 * time.Second,
		escalationLookback: 30 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.routing.Validate(); err != nil {
		return nil, err
	}
	if e.selector == nil {
		e.selector = routing.NewSelector(e.routing, routing.WithClock(e.clock))
	}
	if !e.customBatcher {
		// The default batcher must compute schedules from the same clock
		// the engine claims with.
		batchOpts := []batch.Option{batch.WithClock(e.clock)}
		if e.digestSchedule != nil {
			batchOpts = append(batchOpts, batch.WithSchedule(*e.digestSchedule))
		}
		e.batcher = batch.New(batchOpts...)
	}
	if e.limiter == nil && e.throttleLimit > 0 {
		limiter, err := throttle.NewLimiter(throttle.NewMemoryStore(), e.throttleLimit, e.throttleWindow, throttle.WithClock(e.clock))
		if err != nil {
			return nil, err
		}
		e.limiter = limiter
	}
	return e, nil
}

// preferencesFor loads the recipient's preferences, degrading to "none on
// file" on malformed records or source failures so a broken preferences
// row falls back to default routing instead of blocking delivery.
func (e *Engine) preferencesFor(ctx context.Context, recipientID string) *notify.Preferences {
	prefs, err := e.prefs.Preferences(ctx, recipientID)
	if err != nil {
		e.log.LogAttrs(ctx, slog.LevelWarn, "failed to load preferences, using default routing",
			logger.RecipientID(recipientID), logger.Error(err))
		return nil
	}
	if prefs == nil {
		return nil
	}
	if err := prefs.Validate(); err != nil {
		e.log.LogAttrs(ctx, slog.LevelWarn, "malformed preferences, using default routing",
			logger.RecipientID(recipientID), logger.Error(err))
		return nil
	}
	return prefs
}

// statusFor resolves the transient recipient status.
func (e *Engine) statusFor(ctx context.Context, recipientID string, prefs *notify.Preferences) notify.RecipientStatus {
	if e.status != nil {
		st, err := e.status.Status(ctx, recipientID)
		if err == nil {
			return st
		}
		e.log.LogAttrs(ctx, slog.LevelWarn, "failed to load recipient status",
			logger.RecipientID(recipientID), logger.Error(err))
	}
	if prefs != nil {
		return prefs.Status()
	}
	return notify.RecipientStatus{}
}

// auditLog writes an audit entry when auditing is configured.
func (e *Engine) auditLog(ctx context.Context, n notify.Notification, status audit.Status, opts ...audit.EntryOption) {
	if e.auditor == nil {
		return
	}
	if err := e.auditor.Log(ctx, n, status, opts...); err != nil {
		e.log.LogAttrs(ctx, slog.LevelError, "failed to write audit entry",
			logger.NotificationID(n.ID), logger.Error(err))
	}
}
