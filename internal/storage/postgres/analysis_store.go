package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-sentinel/internal/domain"
	"solana-sentinel/internal/observability"
	"solana-sentinel/internal/storage"
)

// AnalysisStore implements storage.AnalysisStore using PostgreSQL.
type AnalysisStore struct {
	pool *Pool
}

// NewAnalysisStore creates a new AnalysisStore.
func NewAnalysisStore(pool *Pool) *AnalysisStore {
	return &AnalysisStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AnalysisStore = (*AnalysisStore)(nil)

// Insert adds a completed analysis. Returns ErrDuplicateKey if
// (address, analyzed_at) exists.
func (s *AnalysisStore) Insert(ctx context.Context, a *domain.CompositeAnalysis) error {
	if a == nil || a.Facts.Address == "" {
		return storage.ErrInvalidInput
	}

	factsJSON, err := json.Marshal(a.Facts)
	if err != nil {
		return fmt.Errorf("marshal facts: %w", err)
	}
	factorsJSON, err := json.Marshal(a.RiskFactors)
	if err != nil {
		return fmt.Errorf("marshal risk factors: %w", err)
	}
	var llmJSON []byte
	if a.LLM != nil {
		llmJSON, err = json.Marshal(a.LLM)
		if err != nil {
			return fmt.Errorf("marshal llm verdict: %w", err)
		}
	}

	query := `
		INSERT INTO analyses (
			address, analyzed_at, risk_score, risk_level, risk_factors, facts, llm_verdict
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	started := time.Now()
	_, err = s.pool.Exec(ctx, query,
		a.Facts.Address,
		a.AnalyzedAt,
		a.RiskScore,
		a.RiskLevel,
		factorsJSON,
		factsJSON,
		llmJSON,
	)
	observability.RecordDBQuery("postgres", "insert_analysis", time.Since(started).Seconds(), err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

// GetLatest retrieves the most recent analysis for an address.
// Returns ErrNotFound if the address was never analyzed.
func (s *AnalysisStore) GetLatest(ctx context.Context, address string) (*domain.CompositeAnalysis, error) {
	query := `
		SELECT analyzed_at, risk_score, risk_level, risk_factors, facts, llm_verdict
		FROM analyses
		WHERE address = $1
		ORDER BY analyzed_at DESC
		LIMIT 1
	`

	started := time.Now()
	row := s.pool.QueryRow(ctx, query, address)
	a, err := scanAnalysis(row)
	if isNotFoundError(err) {
		observability.RecordDBQuery("postgres", "get_latest_analysis", time.Since(started).Seconds(), nil)
		return nil, storage.ErrNotFound
	}
	observability.RecordDBQuery("postgres", "get_latest_analysis", time.Since(started).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("get latest analysis: %w", err)
	}
	return a, nil
}

// GetHistory retrieves up to limit analyses for an address, newest first.
func (s *AnalysisStore) GetHistory(ctx context.Context, address string, limit int) ([]*domain.CompositeAnalysis, error) {
	query := `
		SELECT analyzed_at, risk_score, risk_level, risk_factors, facts, llm_verdict
		FROM analyses
		WHERE address = $1
		ORDER BY analyzed_at DESC
	`
	args := []any{address}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	started := time.Now()
	rows, err := s.pool.Query(ctx, query, args...)
	observability.RecordDBQuery("postgres", "get_analysis_history", time.Since(started).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("query analysis history: %w", err)
	}
	defer rows.Close()

	var out []*domain.CompositeAnalysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analyses: %w", err)
	}
	return out, nil
}

// scanAnalysis scans a single row into CompositeAnalysis.
func scanAnalysis(row pgx.Row) (*domain.CompositeAnalysis, error) {
	var a domain.CompositeAnalysis
	var factorsJSON, factsJSON []byte
	var llmJSON []byte

	err := row.Scan(
		&a.AnalyzedAt,
		&a.RiskScore,
		&a.RiskLevel,
		&factorsJSON,
		&factsJSON,
		&llmJSON,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(factorsJSON, &a.RiskFactors); err != nil {
		return nil, fmt.Errorf("unmarshal risk factors: %w", err)
	}
	if err := json.Unmarshal(factsJSON, &a.Facts); err != nil {
		return nil, fmt.Errorf("unmarshal facts: %w", err)
	}
	if len(llmJSON) > 0 {
		a.LLM = &domain.LLMVerdict{}
		if err := json.Unmarshal(llmJSON, a.LLM); err != nil {
			return nil, fmt.Errorf("unmarshal llm verdict: %w", err)
		}
	}

	return &a, nil
}
