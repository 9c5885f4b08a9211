package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-sentinel/internal/domain"
	"solana-sentinel/internal/observability"
	"solana-sentinel/internal/storage"
)

// TransactionEventStore implements storage.TransactionEventStore using
// ClickHouse.
type TransactionEventStore struct {
	conn *Conn
}

// NewTransactionEventStore creates a new TransactionEventStore.
func NewTransactionEventStore(conn *Conn) *TransactionEventStore {
	return &TransactionEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TransactionEventStore = (*TransactionEventStore)(nil)

// Insert adds one observed transaction. Returns ErrDuplicateKey if
// (token_address, signature) exists.
func (s *TransactionEventStore) Insert(ctx context.Context, e *domain.ObservedTransaction) error {
	if e == nil {
		return storage.ErrInvalidInput
	}
	return s.InsertBulk(ctx, []*domain.ObservedTransaction{e})
}

// InsertBulk adds multiple events. Fails the entire batch on any duplicate.
func (s *TransactionEventStore) InsertBulk(ctx context.Context, events []*domain.ObservedTransaction) error {
	if len(events) == 0 {
		return nil
	}

	type key struct {
		token     string
		signature string
	}
	seen := make(map[key]struct{})
	for _, e := range events {
		if e == nil || e.TokenAddress == "" || e.Signature == "" {
			return storage.ErrInvalidInput
		}
		k := key{e.TokenAddress, e.Signature}
		if _, dup := seen[k]; dup {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, e := range events {
		exists, err := s.exists(ctx, e.TokenAddress, e.Signature)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO transaction_events (
			token_address, signature, ts, tx_type, amount, from_address, to_address, description, source
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		err = batch.Append(
			e.TokenAddress, e.Signature, e.Timestamp, e.Type,
			e.Amount, e.FromAddress, e.ToAddress, e.Description, e.Source,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	started := time.Now()
	err = batch.Send()
	observability.RecordDBQuery("clickhouse", "insert_events", time.Since(started).Seconds(), err)
	if err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByToken retrieves up to limit events for a token, newest first.
func (s *TransactionEventStore) GetByToken(ctx context.Context, address string, limit int) ([]*domain.ObservedTransaction, error) {
	query := `
		SELECT token_address, signature, ts, tx_type, amount, from_address, to_address, description, source
		FROM transaction_events
		WHERE token_address = ?
		ORDER BY ts DESC
	`
	args := []any{address}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	started := time.Now()
	rows, err := s.conn.Query(ctx, query, args...)
	observability.RecordDBQuery("clickhouse", "get_events_by_token", time.Since(started).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("query by token: %w", err)
	}
	defer rows.Close()

	return scanTransactionEvents(rows)
}

// GetByTimeRange retrieves events within [start, end] inclusive,
// ordered by timestamp ASC.
func (s *TransactionEventStore) GetByTimeRange(ctx context.Context, address string, start, end int64) ([]*domain.ObservedTransaction, error) {
	query := `
		SELECT token_address, signature, ts, tx_type, amount, from_address, to_address, description, source
		FROM transaction_events
		WHERE token_address = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC
	`

	started := time.Now()
	rows, err := s.conn.Query(ctx, query, address, start, end)
	observability.RecordDBQuery("clickhouse", "get_events_by_time_range", time.Since(started).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanTransactionEvents(rows)
}

// exists checks whether an event with this (token_address, signature)
// is already stored.
func (s *TransactionEventStore) exists(ctx context.Context, address, signature string) (bool, error) {
	query := `
		SELECT count() FROM transaction_events
		WHERE token_address = ? AND signature = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, address, signature).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// chRows abstracts clickhouse driver rows for scanning.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanTransactionEvents scans all rows into ObservedTransactions.
func scanTransactionEvents(rows chRows) ([]*domain.ObservedTransaction, error) {
	var out []*domain.ObservedTransaction
	for rows.Next() {
		var e domain.ObservedTransaction
		err := rows.Scan(
			&e.TokenAddress, &e.Signature, &e.Timestamp, &e.Type,
			&e.Amount, &e.FromAddress, &e.ToAddress, &e.Description, &e.Source,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}
