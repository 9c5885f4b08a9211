package memory

import (
	"context"
	"sort"
	"sync"

	"solana-sentinel/internal/domain"
	"solana-sentinel/internal/storage"
)

// TransactionEventStore is an in-memory implementation of
// storage.TransactionEventStore.
type TransactionEventStore struct {
	mu      sync.RWMutex
	byToken map[string][]*domain.ObservedTransaction // newest first
}

// NewTransactionEventStore creates a new in-memory transaction event store.
func NewTransactionEventStore() *TransactionEventStore {
	return &TransactionEventStore{
		byToken: make(map[string][]*domain.ObservedTransaction),
	}
}

var _ storage.TransactionEventStore = (*TransactionEventStore)(nil)

// Insert adds one observed transaction. Returns ErrDuplicateKey if
// (token_address, signature) exists.
func (s *TransactionEventStore) Insert(_ context.Context, e *domain.ObservedTransaction) error {
	if e == nil || e.TokenAddress == "" || e.Signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(e)
}

// InsertBulk adds multiple events. Fails the entire batch on any duplicate.
func (s *TransactionEventStore) InsertBulk(_ context.Context, events []*domain.ObservedTransaction) error {
	for _, e := range events {
		if e == nil || e.TokenAddress == "" || e.Signature == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before mutating.
	seen := make(map[[2]string]struct{})
	for _, e := range events {
		k := [2]string{e.TokenAddress, e.Signature}
		if _, dup := seen[k]; dup {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
		if s.existsLocked(e.TokenAddress, e.Signature) {
			return storage.ErrDuplicateKey
		}
	}

	for _, e := range events {
		if err := s.insertLocked(e); err != nil {
			return err
		}
	}
	return nil
}

// GetByToken retrieves up to limit events for a token, newest first.
func (s *TransactionEventStore) GetByToken(_ context.Context, address string, limit int) ([]*domain.ObservedTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.byToken[address]
	if limit > 0 && limit < len(events) {
		events = events[:limit]
	}
	return copyEvents(events), nil
}

// GetByTimeRange retrieves events within [start, end] inclusive,
// ordered by timestamp ASC.
func (s *TransactionEventStore) GetByTimeRange(_ context.Context, address string, start, end int64) ([]*domain.ObservedTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*domain.ObservedTransaction
	for _, e := range s.byToken[address] {
		if e.Timestamp >= start && e.Timestamp <= end {
			matched = append(matched, e)
		}
	}

	out := copyEvents(matched)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out, nil
}

func (s *TransactionEventStore) insertLocked(e *domain.ObservedTransaction) error {
	if s.existsLocked(e.TokenAddress, e.Signature) {
		return storage.ErrDuplicateKey
	}

	eventCopy := *e
	events := append(s.byToken[e.TokenAddress], &eventCopy)
	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp > events[j].Timestamp
	})
	s.byToken[e.TokenAddress] = events
	return nil
}

func (s *TransactionEventStore) existsLocked(address, signature string) bool {
	for _, e := range s.byToken[address] {
		if e.Signature == signature {
			return true
		}
	}
	return false
}

func copyEvents(events []*domain.ObservedTransaction) []*domain.ObservedTransaction {
	out := make([]*domain.ObservedTransaction, len(events))
	for i, e := range events {
		eventCopy := *e
		out[i] = &eventCopy
	}
	return out
}
