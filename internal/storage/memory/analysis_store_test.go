package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-sentinel/internal/domain"
	"solana-sentinel/internal/storage"
)

func analysisAt(address string, score int, at time.Time) *domain.CompositeAnalysis {
	return &domain.CompositeAnalysis{
		Facts:      domain.TokenFacts{Address: address, Name: "Test", Symbol: "TST", Supply: "1000"},
		RiskScore:  score,
		RiskLevel:  domain.LevelCaution,
		AnalyzedAt: at,
	}
}

func TestAnalysisStoreInsertAndGetLatest(t *testing.T) {
	s := NewAnalysisStore()
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Insert(ctx, analysisAt("TokenA", 30, base)))
	require.NoError(t, s.Insert(ctx, analysisAt("TokenA", 75, base.Add(time.Hour))))

	latest, err := s.GetLatest(ctx, "TokenA")
	require.NoError(t, err)
	assert.Equal(t, 75, latest.RiskScore)
}

func TestAnalysisStoreDuplicateKey(t *testing.T) {
	s := NewAnalysisStore()
	ctx := context.Background()
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Insert(ctx, analysisAt("TokenA", 30, at)))
	err := s.Insert(ctx, analysisAt("TokenA", 40, at))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestAnalysisStoreInvalidInput(t *testing.T) {
	s := NewAnalysisStore()
	assert.ErrorIs(t, s.Insert(context.Background(), nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, s.Insert(context.Background(), &domain.CompositeAnalysis{}), storage.ErrInvalidInput)
}

func TestAnalysisStoreGetLatestNotFound(t *testing.T) {
	s := NewAnalysisStore()
	_, err := s.GetLatest(context.Background(), "Missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAnalysisStoreGetHistory(t *testing.T) {
	s := NewAnalysisStore()
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Insert(ctx, analysisAt("TokenA", i*10, base.Add(time.Duration(i)*time.Hour))))
	}

	history, err := s.GetHistory(ctx, "TokenA", 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, 40, history[0].RiskScore)
	assert.Equal(t, 20, history[2].RiskScore)

	all, err := s.GetHistory(ctx, "TokenA", 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestAnalysisStoreReturnsCopies(t *testing.T) {
	s := NewAnalysisStore()
	ctx := context.Background()
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Insert(ctx, analysisAt("TokenA", 30, at)))

	got, err := s.GetLatest(ctx, "TokenA")
	require.NoError(t, err)
	got.RiskScore = 99

	again, err := s.GetLatest(ctx, "TokenA")
	require.NoError(t, err)
	assert.Equal(t, 30, again.RiskScore)
}
