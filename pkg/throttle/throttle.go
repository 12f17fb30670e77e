package throttle

import (
	"context"
	"errors"
	"time"

	"github.com/verzuimdesk/notifykit/pkg/notify"
)

var (
	// ErrStoreRequired is returned when no counter store is provided.
	ErrStoreRequired = errors.New("throttle store cannot be nil")

	// ErrInvalidLimit is returned for a non-positive limit.
	ErrInvalidLimit = errors.New("throttle limit must be positive")

	// ErrInvalidWindow is returned for a non-positive window.
	ErrInvalidWindow = errors.New("throttle window must be positive")
)

// Store is the injected counter backend. Keeping the counters behind an
// interface (instead of a process-global map) keeps the engine
// instantiable multiple times and testable.
type Store interface {
	// RecordIfAllowed atomically checks whether another send fits within
	// the window for the key and records it if so. Returns whether the
	// send was recorded and the resulting count.
	RecordIfAllowed(ctx context.Context, key string, at time.Time, window time.Duration, limit int) (bool, int64, error)

	// CountInWindow returns the number of sends recorded for the key
	// within the window ending at now.
	CountInWindow(ctx context.Context, key string, now time.Time, window time.Duration) (int64, error)

	// Reset clears the counter for the key.
	Reset(ctx context.Context, key string) error
}

// Limiter caps how many notifications one recipient receives per channel
// within a sliding window, defending recipients against producer storms.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
	clock  func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock injects the time source. Defaults to time.Now.
func WithClock(clock func() time.Time) Option {
	return func(l *Limiter) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// NewLimiter creates a sliding-window limiter over the given store.
func NewLimiter(store Store, limit int, window time.Duration, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if window <= 0 {
		return nil, ErrInvalidWindow
	}

	l := &Limiter{
		store:  store,
		limit:  limit,
		window: window,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Allow reports whether another send to the recipient on the channel fits
// the cap, consuming one slot when it does.
func (l *Limiter) Allow(ctx context.Context, recipientID string, channel notify.Channel) (bool, error) {
	allowed, _, err := l.store.RecordIfAllowed(ctx, Key(recipientID, channel), l.clock(), l.window, l.limit)
	return allowed, err
}

// Remaining returns how many sends are left in the current window without
// consuming a slot.
func (l *Limiter) Remaining(ctx context.Context, recipientID string, channel notify.Channel) (int, error) {
	count, err := l.store.CountInWindow(ctx, Key(recipientID, channel), l.clock(), l.window)
	if err != nil {
		return 0, err
	}
	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Reset clears the counter for the recipient and channel.
func (l *Limiter) Reset(ctx context.Context, recipientID string, channel notify.Channel) error {
	return l.store.Reset(ctx, Key(recipientID, channel))
}

// Key builds the counter key for a recipient and channel.
func Key(recipientID string, channel notify.Channel) string {
	return recipientID + ":" + string(channel)
}
