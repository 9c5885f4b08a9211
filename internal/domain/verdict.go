package domain

// Risk levels in ascending severity. LevelUnknown is reserved for the
// degraded verdict produced when scoring itself fails.
const (
	LevelSafe       = "Safe"
	LevelCaution    = "Caution"
	LevelHighRisk   = "High Risk"
	LevelLikelyScam = "Likely Scam"
	LevelUnknown    = "Unknown"
)

// RiskVerdict is the heuristic engine output: an additive score, the
// level derived from it, and one descriptive factor per rule that fired.
type RiskVerdict struct {
	Score   int
	Level   string
	Factors []string
}

// LLMVerdict is the model judgment: a free-form assessment label
// (conventionally one of the risk levels), confidence 0-100, red flags,
// and a short explanation.
type LLMVerdict struct {
	Assessment  string   `json:"riskAssessment"`
	Confidence  int      `json:"confidenceScore"`
	RedFlags    []string `json:"redFlags"`
	Explanation string   `json:"explanation"`
}

// AnalysisContext carries optional creator/transaction context into
// scoring and judgment.
type AnalysisContext struct {
	Creator            *CreatorProfile
	RecentTransactions []TokenTransaction
	// TriggerTransaction is set when a judgment is requested in response
	// to a significant transaction; its signature is part of the LLM
	// cache key so new activity forces a fresh entry.
	TriggerTransaction *TokenTransaction
}
