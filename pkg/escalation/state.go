package escalation

import (
	"context"
	"sync"
	"time"
)

// State of one (notification, rule) pair. The explicit state machine
// replaces recomputing "has this fired before" from log scans.
type State string

const (
	StateNotFired State = "not_fired"
	StateFired    State = "fired"
	StateResolved State = "resolved"
)

// Store persists escalation state per (notification id, rule id). The
// Transition operation must be an atomic compare-and-set: rule firing
// rides on the not_fired -> fired transition, which makes firing
// idempotent across scheduler ticks and across workers.
type Store interface {
	// State returns the current state of the pair. Pairs never seen
	// before are StateNotFired.
	State(ctx context.Context, notificationID, ruleID string) (State, error)

	// Transition moves the pair from one state to another atomically.
	// It returns false when the pair was not in the expected from state.
	Transition(ctx context.Context, notificationID, ruleID string, from, to State) (bool, error)
}

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]State
}

// NewMemoryStore creates an in-memory escalation state store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]State)}
}

func (s *MemoryStore) State(ctx context.Context, notificationID, ruleID string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.states[stateKey(notificationID, ruleID)]; ok {
		return st, nil
	}
	return StateNotFired, nil
}

func (s *MemoryStore) Transition(ctx context.Context, notificationID, ruleID string, from, to State) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := stateKey(notificationID, ruleID)
	current, ok := s.states[key]
	if !ok {
		current = StateNotFired
	}
	if current != from {
		return false, nil
	}
	s.states[key] = to
	return true, nil
}

func stateKey(notificationID, ruleID string) string {
	return notificationID + ":" + ruleID
}

// stateTTL keeps escalation state around for the audit retention period,
// after which the underlying notification is gone too.
const stateTTL = 90 * 24 * time.Hour
