package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/verzuimdesk/notifykit/pkg/notify"
)

// Logger records delivery outcomes into an append-only storage.
type Logger interface {
	// Log appends one entry for a notification outcome.
	Log(ctx context.Context, n notify.Notification, status Status, opts ...EntryOption) error

	// Close flushes buffered entries and releases the logger. With an
	// async buffer it blocks until the background writer drains.
	Close() error
}

// Option configures a logger.
type Option func(*auditLogger)

// WithAsyncBuffer wraps the storage in an async writer with the given
// buffer size, so audit writes never block the dispatch path.
func WithAsyncBuffer(size int) Option {
	return func(l *auditLogger) {
		l.asyncBufferSize = size
	}
}

type auditLogger struct {
	storage         Storage
	asyncBufferSize int
}

// NewLogger creates an audit logger over the given storage.
func NewLogger(storage Storage, opts ...Option) Logger {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}

	l := &auditLogger{storage: storage}
	for _, opt := range opts {
		opt(l)
	}

	if l.asyncBufferSize > 0 {
		l.storage = newAsyncStorage(l.storage, l.asyncBufferSize)
	}
	return l
}

func (l *auditLogger) Log(ctx context.Context, n notify.Notification, status Status, opts ...EntryOption) error {
	entry := Entry{
		ID:             uuid.New().String(),
		NotificationID: n.ID,
		RecipientID:    n.RecipientID,
		Status:         status,
		At:             time.Now(),
	}
	for _, opt := range opts {
		opt(&entry)
	}

	if err := entry.Validate(); err != nil {
		return err
	}
	return l.storage.Store(ctx, entry)
}

func (l *auditLogger) Close() error {
	if s, ok := l.storage.(*asyncStorage); ok {
		s.Close()
	}
	return nil
}
