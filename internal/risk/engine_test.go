package risk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-sentinel/internal/domain"
	"solana-sentinel/internal/tokenlist"
)

// fakeVerifier marks configured addresses as verified; allow-list
// membership comes from the real fixed list.
type fakeVerifier struct {
	verified map[string]bool
}

func (f *fakeVerifier) IsAllowListed(address string) bool {
	_, ok := tokenlist.AllowList[address]
	return ok
}

func (f *fakeVerifier) IsVerified(_ context.Context, address string) bool {
	return f.verified[address]
}

func (f *fakeVerifier) VerifiedInfo(_ context.Context, address string) *domain.VerifiedToken {
	if !f.verified[address] {
		return nil
	}
	return &domain.VerifiedToken{Address: address}
}

func ptr[T any](v T) *T { return &v }

func TestScoreCleanToken(t *testing.T) {
	e := NewEngine(&fakeVerifier{})

	// No authorities, old enough, reasonable supply: Safe with no factors.
	verdict := e.Score(context.Background(), domain.TokenFacts{
		Address:      "CleanMint1111111111111111111111111111111111",
		Supply:       "1000000",
		TokenAgeDays: ptr(30),
	}, domain.AnalysisContext{})

	assert.Equal(t, 0, verdict.Score)
	assert.Equal(t, domain.LevelSafe, verdict.Level)
	assert.Empty(t, verdict.Factors)
}

func TestScoreMintAuthorityAndRecentCreation(t *testing.T) {
	e := NewEngine(&fakeVerifier{})

	verdict := e.Score(context.Background(), domain.TokenFacts{
		Address:       "SusMint111111111111111111111111111111111111",
		Supply:        "500",
		TokenAgeDays:  ptr(3),
		MintAuthority: ptr("Auth111111111111111111111111111111111111111"),
	}, domain.AnalysisContext{})

	assert.Equal(t, 45, verdict.Score)
	assert.Equal(t, domain.LevelCaution, verdict.Level)
	require.Len(t, verdict.Factors, 2)
	assert.Equal(t, "Mint authority is not revoked - Owner can create unlimited tokens", verdict.Factors[0])
	assert.Equal(t, "Token was created only 3 days ago", verdict.Factors[1])
}

func TestScoreAllRules(t *testing.T) {
	e := NewEngine(&fakeVerifier{})

	verdict := e.Score(context.Background(), domain.TokenFacts{
		Address:         "WorstMint11111111111111111111111111111111111",
		Supply:          "2000000000000",
		TokenAgeDays:    ptr(0),
		MintAuthority:   ptr("AuthA"),
		FreezeAuthority: ptr("AuthB"),
	}, domain.AnalysisContext{})

	assert.Equal(t, 75, verdict.Score)
	assert.Equal(t, domain.LevelHighRisk, verdict.Level)
	assert.Len(t, verdict.Factors, 4)
}

func TestScoreAllowListedShortCircuit(t *testing.T) {
	e := NewEngine(&fakeVerifier{})

	// USDC with every red flag set still returns the Safe sentinel.
	verdict := e.Score(context.Background(), domain.TokenFacts{
		Address:         "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		Supply:          "9999999999999",
		TokenAgeDays:    ptr(1),
		MintAuthority:   ptr("AuthA"),
		FreezeAuthority: ptr("AuthB"),
	}, domain.AnalysisContext{})

	assert.Equal(t, 0, verdict.Score)
	assert.Equal(t, domain.LevelSafe, verdict.Level)
	assert.Empty(t, verdict.Factors)
}

func TestScoreVerifiedShortCircuit(t *testing.T) {
	e := NewEngine(&fakeVerifier{verified: map[string]bool{"VerifiedMint": true}})

	verdict := e.Score(context.Background(), domain.TokenFacts{
		Address:       "VerifiedMint",
		MintAuthority: ptr("AuthA"),
	}, domain.AnalysisContext{})

	assert.Equal(t, domain.LevelSafe, verdict.Level)
	assert.Equal(t, 0, verdict.Score)
}

func TestScoreUnparsableSupply(t *testing.T) {
	e := NewEngine(&fakeVerifier{})

	// "Unknown" supply never trips the supply rule.
	verdict := e.Score(context.Background(), domain.TokenFacts{
		Address: "Mint",
		Supply:  "Unknown",
	}, domain.AnalysisContext{})

	assert.Equal(t, 0, verdict.Score)
	assert.Equal(t, domain.LevelSafe, verdict.Level)
}

func TestLevelForScore(t *testing.T) {
	tests := []struct {
		score int
		level string
	}{
		{0, domain.LevelSafe},
		{29, domain.LevelSafe},
		{30, domain.LevelCaution},
		{59, domain.LevelCaution},
		{60, domain.LevelHighRisk},
		{79, domain.LevelHighRisk},
		{80, domain.LevelLikelyScam},
		{120, domain.LevelLikelyScam},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.level, LevelForScore(tt.score), "score %d", tt.score)
	}
}
