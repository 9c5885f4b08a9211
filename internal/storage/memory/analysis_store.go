package memory

import (
	"context"
	"sort"
	"sync"

	"solana-sentinel/internal/domain"
	"solana-sentinel/internal/storage"
)

// AnalysisStore is an in-memory implementation of storage.AnalysisStore.
type AnalysisStore struct {
	mu        sync.RWMutex
	byAddress map[string][]*domain.CompositeAnalysis // newest first
}

// NewAnalysisStore creates a new in-memory analysis store.
func NewAnalysisStore() *AnalysisStore {
	return &AnalysisStore{
		byAddress: make(map[string][]*domain.CompositeAnalysis),
	}
}

var _ storage.AnalysisStore = (*AnalysisStore)(nil)

// Insert adds a completed analysis. Returns ErrDuplicateKey if
// (address, analyzed_at) exists.
func (s *AnalysisStore) Insert(_ context.Context, a *domain.CompositeAnalysis) error {
	if a == nil || a.Facts.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.byAddress[a.Facts.Address]
	for _, existing := range history {
		if existing.AnalyzedAt.Equal(a.AnalyzedAt) {
			return storage.ErrDuplicateKey
		}
	}

	analysisCopy := *a
	history = append(history, &analysisCopy)
	sort.Slice(history, func(i, j int) bool {
		return history[i].AnalyzedAt.After(history[j].AnalyzedAt)
	})
	s.byAddress[a.Facts.Address] = history
	return nil
}

// GetLatest retrieves the most recent analysis. Returns ErrNotFound if
// the address was never analyzed.
func (s *AnalysisStore) GetLatest(_ context.Context, address string) (*domain.CompositeAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.byAddress[address]
	if len(history) == 0 {
		return nil, storage.ErrNotFound
	}

	analysisCopy := *history[0]
	return &analysisCopy, nil
}

// GetHistory retrieves up to limit analyses, newest first.
func (s *AnalysisStore) GetHistory(_ context.Context, address string, limit int) ([]*domain.CompositeAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.byAddress[address]
	if limit > 0 && limit < len(history) {
		history = history[:limit]
	}

	out := make([]*domain.CompositeAnalysis, len(history))
	for i, a := range history {
		analysisCopy := *a
		out[i] = &analysisCopy
	}
	return out, nil
}
