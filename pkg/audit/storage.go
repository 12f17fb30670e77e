package audit

import (
	"context"
	"sync"
	"time"
)

// Storage persists audit entries. Implementations are append-only: there
// is deliberately no update or delete operation.
type Storage interface {
	// Store appends an entry.
	Store(ctx context.Context, entry Entry) error

	// ByNotification returns every entry for a notification, oldest first.
	ByNotification(ctx context.Context, notificationID string) ([]Entry, error)

	// ByRecipient returns entries for a recipient since the given time,
	// oldest first.
	ByRecipient(ctx context.Context, recipientID string, since time.Time) ([]Entry, error)
}

// MemoryStorage is an in-memory append-only audit storage for development
// and tests.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewMemoryStorage creates an in-memory audit storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Store(ctx context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *MemoryStorage) ByNotification(ctx context.Context, notificationID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entry
	for _, e := range s.entries {
		if e.NotificationID == notificationID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStorage) ByRecipient(ctx context.Context, recipientID string, since time.Time) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entry
	for _, e := range s.entries {
		if e.RecipientID == recipientID && !e.At.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns a copy of every stored entry. Test helper.
func (s *MemoryStorage) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
