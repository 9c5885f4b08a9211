// Package risk scores token facts with additive, order-independent
// heuristic rules. Scoring is pure: no failure path, best-effort on
// partial input.
package risk

import (
	"context"
	"fmt"
	"strconv"

	"solana-sentinel/internal/domain"
	"solana-sentinel/internal/tokenlist"
)

// Score thresholds for level mapping. Lower bound inclusive, upper
// bound exclusive: a score of exactly 30 maps to Caution.
const (
	ThresholdSafe     = 30
	ThresholdCaution  = 60
	ThresholdHighRisk = 80
)

// Point contributions per rule.
const (
	PointsMintAuthorityActive   = 30
	PointsFreezeAuthorityActive = 20
	PointsRecentCreation        = 15
	PointsExtremeSupply         = 10
)

// recentCreationDays is the age below which a token counts as recent.
const recentCreationDays = 7

// extremeSupplyUnits is the supply above which a token is flagged.
const extremeSupplyUnits = 1_000_000_000_000

// Engine evaluates heuristic risk rules over token facts.
type Engine struct {
	verifier tokenlist.Verifier
}

// NewEngine creates an engine using verifier for the safe short-circuit.
func NewEngine(verifier tokenlist.Verifier) *Engine {
	return &Engine{verifier: verifier}
}

// Score derives a RiskVerdict from facts and optional context.
// Allow-listed or verified tokens short-circuit to the Safe sentinel
// without evaluating any rule. Rules are independent and additive;
// each contribution appends exactly one factor.
func (e *Engine) Score(ctx context.Context, facts domain.TokenFacts, actx domain.AnalysisContext) domain.RiskVerdict {
	if e.verifier != nil {
		if e.verifier.IsAllowListed(facts.Address) || e.verifier.IsVerified(ctx, facts.Address) {
			return domain.RiskVerdict{Score: 0, Level: domain.LevelSafe, Factors: []string{}}
		}
	}

	score := 0
	factors := []string{}

	if facts.MintAuthority != nil {
		score += PointsMintAuthorityActive
		factors = append(factors, "Mint authority is not revoked - Owner can create unlimited tokens")
	}

	if facts.FreezeAuthority != nil {
		score += PointsFreezeAuthorityActive
		factors = append(factors, "Freeze authority is active - Owner can freeze user tokens")
	}

	if facts.TokenAgeDays != nil && *facts.TokenAgeDays < recentCreationDays {
		score += PointsRecentCreation
		factors = append(factors, fmt.Sprintf("Token was created only %d days ago", *facts.TokenAgeDays))
	}

	if supply, err := strconv.ParseFloat(facts.Supply, 64); err == nil && supply > extremeSupplyUnits {
		score += PointsExtremeSupply
		factors = append(factors, "Extremely high total supply - common in low-quality tokens")
	}

	return domain.RiskVerdict{
		Score:   score,
		Level:   LevelForScore(score),
		Factors: factors,
	}
}

// LevelForScore maps a total score to its risk level.
func LevelForScore(score int) string {
	switch {
	case score < ThresholdSafe:
		return domain.LevelSafe
	case score < ThresholdCaution:
		return domain.LevelCaution
	case score < ThresholdHighRisk:
		return domain.LevelHighRisk
	default:
		return domain.LevelLikelyScam
	}
}
