package domain

import "time"

// TokenFacts holds normalized on-chain attributes of a token used as
// scoring input. Immutable per fetch except for the creator-derived
// annotations set by the orchestrator before scoring.
type TokenFacts struct {
	Address         string
	Name            string
	Symbol          string
	Decimals        int
	Supply          string // formatted in token units, "Unknown" when unavailable
	CreatedAt       *time.Time
	CreatorAddress  *string
	MintAuthority   *string // base58, nil when revoked
	FreezeAuthority *string // base58, nil when absent
	TokenAgeDays    *int

	Description string
	Image       string
	ExternalURL string

	// Annotations from creator wallet analysis.
	CreatorTokenCount        *int
	CreatorHasRugPullHistory bool
}

// UnknownTokenFacts returns the fully-populated placeholder used when
// metadata retrieval fails. All string fields are "Unknown", all
// nullable fields nil, so downstream scoring still produces a result.
func UnknownTokenFacts(address string) TokenFacts {
	return TokenFacts{
		Address: address,
		Name:    "Unknown",
		Symbol:  "Unknown",
		Supply:  "Unknown",
	}
}

// CompositeAnalysis is the full per-address result combining the
// heuristic verdict, the optional LLM verdict, and the facts they were
// derived from. One entry exists per monitored address at a time.
type CompositeAnalysis struct {
	Facts       TokenFacts
	RiskScore   int
	RiskLevel   string
	RiskFactors []string
	AnalyzedAt  time.Time
	LLM         *LLMVerdict
}
