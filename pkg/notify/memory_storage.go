package notify

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage is an in-memory implementation of the Storage interface.
// Suitable for development and testing.
type MemoryStorage struct {
	mu    sync.RWMutex
	byID  map[string]*Notification
	order []string // insertion order, drives arrival-order guarantees
}

// NewMemoryStorage creates a new in-memory notification storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		byID: make(map[string]*Notification),
	}
}

func (s *MemoryStorage) Create(ctx context.Context, n Notification) error {
	if n.ID == "" {
		return ErrMissingID
	}
	if n.RecipientID == "" {
		return ErrMissingRecipient
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if n.Status == "" {
		n.Status = StatusPending
	}

	stored := n
	s.byID[n.ID] = &stored
	s.order = append(s.order, n.ID)
	return nil
}

func (s *MemoryStorage) Get(ctx context.Context, recipientID, id string) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.byID[id]
	if !ok || n.RecipientID != recipientID {
		return nil, ErrNotificationNotFound
	}
	cp := *n
	return &cp, nil
}

func (s *MemoryStorage) List(ctx context.Context, recipientID string, opts ListOptions) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []Notification
	for _, id := range s.order {
		n := s.byID[id]
		if n.RecipientID != recipientID {
			continue
		}
		if opts.OnlyUnread && n.Read {
			continue
		}
		if len(opts.Statuses) > 0 && !containsStatus(opts.Statuses, n.Status) {
			continue
		}
		if len(opts.Types) > 0 && !containsType(opts.Types, n.Type) {
			continue
		}
		if opts.Since != nil && n.CreatedAt.Before(*opts.Since) {
			continue
		}
		filtered = append(filtered, *n)
	}

	start := opts.Offset
	if start > len(filtered) {
		return []Notification{}, nil
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], nil
}

func (s *MemoryStorage) ClaimDue(ctx context.Context, now time.Time, limit int) ([]Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var claimed []Notification
	for _, id := range s.order {
		if limit > 0 && len(claimed) >= limit {
			break
		}
		n := s.byID[id]
		if n.Status != StatusPending || n.ScheduledSend.After(now) {
			continue
		}
		n.Status = StatusDispatching
		claimed = append(claimed, *n)
	}
	return claimed, nil
}

func (s *MemoryStorage) MarkSent(ctx context.Context, id string, sentAt time.Time, channels []Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.byID[id]
	if !ok {
		return ErrNotificationNotFound
	}
	if n.Delivered() {
		return ErrAlreadyDelivered
	}
	n.Status = StatusSent
	n.SentAt = &sentAt
	n.Channels = channels
	return nil
}

func (s *MemoryStorage) MarkSuppressed(ctx context.Context, id string, at time.Time) error {
	return s.setStatus(id, StatusSuppressed)
}

func (s *MemoryStorage) MarkFailed(ctx context.Context, id string, at time.Time) error {
	return s.setStatus(id, StatusFailed)
}

func (s *MemoryStorage) Cancel(ctx context.Context, recipientID string, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		n, ok := s.byID[id]
		if !ok || n.RecipientID != recipientID {
			continue
		}
		if n.Delivered() {
			continue // delivery already happened, nothing to cancel
		}
		n.Status = StatusCancelled
	}
	return nil
}

func (s *MemoryStorage) Reschedule(ctx context.Context, id string, at time.Time, channels []Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.byID[id]
	if !ok {
		return ErrNotificationNotFound
	}
	if n.Delivered() {
		return ErrAlreadyDelivered
	}
	now := time.Now()
	n.Status = StatusPending
	n.ScheduledSend = at
	n.Channels = channels
	n.RetriedAt = &now
	return nil
}

func (s *MemoryStorage) MarkRead(ctx context.Context, recipientID string, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, id := range ids {
		if n, ok := s.byID[id]; ok && n.RecipientID == recipientID {
			n.MarkAsRead(now)
		}
	}
	return nil
}

func (s *MemoryStorage) MarkActioned(ctx context.Context, recipientID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.byID[id]
	if !ok || n.RecipientID != recipientID {
		return ErrNotificationNotFound
	}
	n.MarkActioned(time.Now())
	return nil
}

func (s *MemoryStorage) CountUnread(ctx context.Context, recipientID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.byID {
		if n.RecipientID == recipientID && n.Status == StatusSent && !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStorage) ListDelivered(ctx context.Context, since time.Time) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Notification
	for _, id := range s.order {
		n := s.byID[id]
		if n.CreatedAt.Before(since) {
			continue
		}
		if n.Status == StatusSent || n.Status == StatusCancelled {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (s *MemoryStorage) setStatus(id string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.byID[id]
	if !ok {
		return ErrNotificationNotFound
	}
	n.Status = status
	return nil
}

func containsStatus(statuses []Status, s Status) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

func containsType(types []Type, t Type) bool {
	for _, tt := range types {
		if tt == t {
			return true
		}
	}
	return false
}

// StaticPreferences is a fixed in-memory PreferencesSource, keyed by
// recipient. Recipients without an entry report no preferences on file.
type StaticPreferences struct {
	mu    sync.RWMutex
	prefs map[string]*Preferences
}

// NewStaticPreferences creates a PreferencesSource from the given records.
func NewStaticPreferences(prefs ...Preferences) *StaticPreferences {
	s := &StaticPreferences{prefs: make(map[string]*Preferences, len(prefs))}
	for i := range prefs {
		p := prefs[i]
		s.prefs[p.RecipientID] = &p
	}
	return s
}

// Set stores or replaces the preferences for a recipient.
func (s *StaticPreferences) Set(p Preferences) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[p.RecipientID] = &p
}

func (s *StaticPreferences) Preferences(ctx context.Context, recipientID string) (*Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.prefs[recipientID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}
