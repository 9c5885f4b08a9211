package storage

import (
	"context"

	"solana-sentinel/internal/domain"
)

// AnalysisStore provides access to completed analysis storage. Records
// are append-only: each refresh of a token produces a new row.
type AnalysisStore interface {
	// Insert adds a completed analysis. Returns ErrDuplicateKey if
	// (address, analyzed_at) exists.
	Insert(ctx context.Context, a *domain.CompositeAnalysis) error

	// GetLatest retrieves the most recent analysis for an address.
	// Returns ErrNotFound if the address was never analyzed.
	GetLatest(ctx context.Context, address string) (*domain.CompositeAnalysis, error)

	// GetHistory retrieves up to limit analyses for an address, newest
	// first. A limit <= 0 returns all.
	GetHistory(ctx context.Context, address string, limit int) ([]*domain.CompositeAnalysis, error)
}

// TransactionEventStore provides access to observed transaction storage.
type TransactionEventStore interface {
	// Insert adds one observed transaction. Returns ErrDuplicateKey if
	// (token_address, signature) exists.
	Insert(ctx context.Context, e *domain.ObservedTransaction) error

	// InsertBulk adds multiple events. Fails the entire batch on any duplicate.
	InsertBulk(ctx context.Context, events []*domain.ObservedTransaction) error

	// GetByToken retrieves up to limit events for a token, newest first.
	// A limit <= 0 returns all.
	GetByToken(ctx context.Context, address string, limit int) ([]*domain.ObservedTransaction, error)

	// GetByTimeRange retrieves events for a token within [start, end]
	// (inclusive, unix seconds), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, address string, start, end int64) ([]*domain.ObservedTransaction, error)
}
