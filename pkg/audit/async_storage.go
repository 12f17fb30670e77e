package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// asyncStorage decouples audit writes from the dispatch path: Store
// enqueues and a single background goroutine drains into the wrapped
// storage. A full buffer drops the entry and logs, favoring delivery
// throughput over audit completeness under extreme load.
type asyncStorage struct {
	wrapped Storage
	queue   chan Entry
	wg      sync.WaitGroup
	once    sync.Once
}

const asyncWriteTimeout = 5 * time.Second

func newAsyncStorage(wrapped Storage, bufferSize int) *asyncStorage {
	s := &asyncStorage{
		wrapped: wrapped,
		queue:   make(chan Entry, bufferSize),
	}
	s.wg.Add(1)
	go s.drain()
	return s
}

func (s *asyncStorage) Store(ctx context.Context, entry Entry) error {
	select {
	case s.queue <- entry:
		return nil
	default:
		slog.Warn("audit buffer full, dropping entry",
			slog.String("notification_id", entry.NotificationID),
			slog.String("status", string(entry.Status)))
		return ErrBufferFull
	}
}

func (s *asyncStorage) ByNotification(ctx context.Context, notificationID string) ([]Entry, error) {
	return s.wrapped.ByNotification(ctx, notificationID)
}

func (s *asyncStorage) ByRecipient(ctx context.Context, recipientID string, since time.Time) ([]Entry, error) {
	return s.wrapped.ByRecipient(ctx, recipientID, since)
}

// Close stops accepting entries and waits for the queue to drain.
func (s *asyncStorage) Close() {
	s.once.Do(func() {
		close(s.queue)
	})
	s.wg.Wait()
}

func (s *asyncStorage) drain() {
	defer s.wg.Done()
	for entry := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), asyncWriteTimeout)
		if err := s.wrapped.Store(ctx, entry); err != nil {
			slog.Error("failed to persist audit entry",
				slog.String("notification_id", entry.NotificationID),
				slog.Any("error", err))
		}
		cancel()
	}
}
