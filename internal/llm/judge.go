package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"solana-sentinel/internal/cache"
	"solana-sentinel/internal/domain"
	"solana-sentinel/internal/observability"
	"solana-sentinel/internal/tokenlist"
)

// DefaultVerdictTTL is how long a judgment stays valid for unchanged
// token state.
const DefaultVerdictTTL = time.Hour

// maxAttempts is the total number of completion attempts per judgment.
const maxAttempts = 3

// fallbackConfidence is reported when the model is unavailable and the
// verdict is synthesized from basic token properties instead.
const fallbackConfidence = 60

// fallbackRecentDays is the age below which the fallback flags a token
// as recently created.
const fallbackRecentDays = 7

const systemPrompt = `You are a Solana token fraud analyst. Given token facts and context,
judge whether the token is likely a scam. Respond with ONLY a JSON object:

{"riskAssessment": "Safe" | "Caution" | "High Risk" | "Likely Scam",
 "confidenceScore": 0-100,
 "redFlags": ["..."],
 "explanation": "one or two sentences"}

Examples:

Facts: mint authority revoked, freeze authority absent, token age 400 days, verified listing.
{"riskAssessment": "Safe", "confidenceScore": 95, "redFlags": [], "explanation": "Established token with revoked authorities and a verified listing."}

Facts: mint authority active, created 2 days ago, creator launched 8 tokens.
{"riskAssessment": "Likely Scam", "confidenceScore": 90, "redFlags": ["Active mint authority", "Serial token creator"], "explanation": "Fresh token from a serial creator who can mint unlimited supply."}`

// cacheKeyInput fixes the field order of the judgment cache key. Two
// assessments share a cache entry only when every input that can change
// the judgment is identical.
type cacheKeyInput struct {
	Address                  string  `json:"address"`
	MintAuthority            *string `json:"mintAuthority"`
	FreezeAuthority          *string `json:"freezeAuthority"`
	TokenAgeDays             *int    `json:"tokenAgeDays"`
	CreatorTokenCount        *int    `json:"creatorTokenCount"`
	CreatorHasRugPullHistory bool    `json:"creatorHasRugPullHistory"`
	NewTransaction           string  `json:"newTransaction"`
}

// Judge produces cached model judgments for tokens.
type Judge struct {
	llm      ChatCompleter
	verifier tokenlist.Verifier
	cache    *cache.TTL[domain.LLMVerdict]
	sleep    func(time.Duration)
}

// JudgeOption configures a Judge.
type JudgeOption func(*Judge)

// WithVerdictTTL overrides the judgment cache TTL.
func WithVerdictTTL(ttl time.Duration) JudgeOption {
	return func(j *Judge) {
		j.cache = cache.NewTTL[domain.LLMVerdict](ttl)
	}
}

// NewJudge creates a judge.
func NewJudge(llm ChatCompleter, verifier tokenlist.Verifier, opts ...JudgeOption) *Judge {
	j := &Judge{
		llm:      llm,
		verifier: verifier,
		cache:    cache.NewTTL[domain.LLMVerdict](DefaultVerdictTTL),
		sleep:    time.Sleep,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Assess returns a judgment for the token, serving from cache when the
// inputs are unchanged. It never returns an error: provider failure
// degrades to a verdict synthesized from basic token properties.
func (j *Judge) Assess(ctx context.Context, facts domain.TokenFacts, heuristic domain.RiskVerdict, actx *domain.AnalysisContext) domain.LLMVerdict {
	if v, ok := j.knownGood(ctx, facts); ok {
		return v
	}

	key := j.cacheKey(facts, actx)
	if entry, ok := j.cache.GetIfFresh(key); ok {
		observability.DefaultMetrics.ModelCacheHits.Inc()
		return entry.Value
	}

	verdict, err := j.complete(ctx, facts, heuristic, actx)
	if err != nil {
		// The fallback is never cached: the next assessment with the
		// same inputs retries the model.
		log.Printf("[llm] judgment for %s failed, using fallback: %v", facts.Address, err)
		observability.RecordModelFallback()
		return fallbackVerdict(facts)
	}

	j.cache.Put(key, verdict)
	return verdict
}

// knownGood short-circuits allow-listed and registry-verified tokens
// without any model call.
func (j *Judge) knownGood(ctx context.Context, facts domain.TokenFacts) (domain.LLMVerdict, bool) {
	label := facts.Name
	if label == "" || label == "Unknown" {
		label = facts.Address
	} else if facts.Symbol != "" && facts.Symbol != "Unknown" {
		label = fmt.Sprintf("%s (%s)", facts.Name, facts.Symbol)
	}

	if j.verifier.IsAllowListed(facts.Address) {
		return domain.LLMVerdict{
			Assessment:  domain.LevelSafe,
			Confidence:  100,
			RedFlags:    []string{},
			Explanation: fmt.Sprintf("%s is a verified token on Solana with established history and reputation. It is considered safe for transactions.", label),
		}, true
	}
	if j.verifier.IsVerified(ctx, facts.Address) {
		return domain.LLMVerdict{
			Assessment:  domain.LevelSafe,
			Confidence:  100,
			RedFlags:    []string{},
			Explanation: fmt.Sprintf("%s is a verified token listed in the official Solana token list. It has been validated by the community and is considered safe for transactions.", label),
		}, true
	}
	return domain.LLMVerdict{}, false
}

// cacheKey serializes the judgment-relevant inputs in a fixed order.
func (j *Judge) cacheKey(facts domain.TokenFacts, actx *domain.AnalysisContext) string {
	in := cacheKeyInput{
		Address:                  facts.Address,
		MintAuthority:            facts.MintAuthority,
		FreezeAuthority:          facts.FreezeAuthority,
		TokenAgeDays:             facts.TokenAgeDays,
		CreatorTokenCount:        facts.CreatorTokenCount,
		CreatorHasRugPullHistory: facts.CreatorHasRugPullHistory,
	}
	if actx != nil && actx.TriggerTransaction != nil {
		in.NewTransaction = actx.TriggerTransaction.Signature
	}

	key, err := json.Marshal(in)
	if err != nil {
		// Struct of scalars, cannot fail.
		return facts.Address
	}
	return string(key)
}

// complete calls the model with linear backoff between attempts.
func (j *Judge) complete(ctx context.Context, facts domain.TokenFacts, heuristic domain.RiskVerdict, actx *domain.AnalysisContext) (domain.LLMVerdict, error) {
	user := buildPrompt(facts, heuristic, actx)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			j.sleep(time.Duration(attempt-1) * time.Second)
		}

		started := time.Now()
		reply, err := j.llm.Complete(ctx, systemPrompt, user)
		if err != nil {
			observability.RecordModelCall("error", time.Since(started).Seconds())
			lastErr = err
			continue
		}

		verdict, err := parseVerdict(reply)
		if err != nil {
			observability.RecordModelCall("parse_error", time.Since(started).Seconds())
			lastErr = err
			continue
		}
		observability.RecordModelCall("success", time.Since(started).Seconds())
		return verdict, nil
	}

	return domain.LLMVerdict{}, fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
}

// buildPrompt renders the token facts, heuristic result and context
// into the user message.
func buildPrompt(facts domain.TokenFacts, heuristic domain.RiskVerdict, actx *domain.AnalysisContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Token: %s (%s)\nAddress: %s\n", facts.Name, facts.Symbol, facts.Address)
	fmt.Fprintf(&b, "Supply: %s, decimals %d\n", facts.Supply, facts.Decimals)
	fmt.Fprintf(&b, "Mint authority: %s\n", describeAuthority(facts.MintAuthority))
	fmt.Fprintf(&b, "Freeze authority: %s\n", describeAuthority(facts.FreezeAuthority))
	if facts.TokenAgeDays != nil {
		fmt.Fprintf(&b, "Token age: %d days\n", *facts.TokenAgeDays)
	} else {
		b.WriteString("Token age: unknown\n")
	}
	if facts.CreatorTokenCount != nil {
		fmt.Fprintf(&b, "Creator has launched %d tokens\n", *facts.CreatorTokenCount)
	}
	if facts.CreatorHasRugPullHistory {
		b.WriteString("Creator wallet shows rug pull patterns\n")
	}

	fmt.Fprintf(&b, "\nHeuristic score: %d (%s)\n", heuristic.Score, heuristic.Level)
	for _, f := range heuristic.Factors {
		fmt.Fprintf(&b, "- %s\n", f)
	}

	if actx != nil {
		if actx.TriggerTransaction != nil {
			tx := actx.TriggerTransaction
			fmt.Fprintf(&b, "\nNew transaction observed: type=%s amount=%s from=%s to=%s\n",
				tx.Type, tx.Amount, tx.FromAddress, tx.ToAddress)
		}
		if len(actx.RecentTransactions) > 0 {
			fmt.Fprintf(&b, "\nRecent transactions (%d):\n", len(actx.RecentTransactions))
			for _, tx := range actx.RecentTransactions {
				fmt.Fprintf(&b, "- %s amount=%s\n", tx.Type, tx.Amount)
			}
		}
	}

	return b.String()
}

func describeAuthority(authority *string) string {
	if authority == nil {
		return "revoked"
	}
	return "ACTIVE (" + *authority + ")"
}

// parseVerdict extracts the JSON object from a model reply and
// backfills any field the model omitted.
func parseVerdict(reply string) (domain.LLMVerdict, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return domain.LLMVerdict{}, fmt.Errorf("no JSON object in reply")
	}

	var v domain.LLMVerdict
	if err := json.Unmarshal([]byte(reply[start:end+1]), &v); err != nil {
		return domain.LLMVerdict{}, fmt.Errorf("parse verdict: %w", err)
	}

	if v.Assessment == "" {
		v.Assessment = domain.LevelUnknown
	}
	if v.Confidence == 0 {
		v.Confidence = 50
	}
	if v.RedFlags == nil {
		v.RedFlags = []string{}
	}
	if v.Explanation == "" {
		v.Explanation = "No explanation provided"
	}
	return v, nil
}

// fallbackVerdict synthesizes a judgment from basic token properties
// when the model is unavailable: mint authority and recent creation
// each raise the level one step, both together raise it to High Risk.
// The disclosure in the explanation lets consumers tell it apart from
// a real judgment.
func fallbackVerdict(facts domain.TokenFacts) domain.LLMVerdict {
	flags := []string{}
	level := domain.LevelSafe

	if facts.MintAuthority != nil {
		flags = append(flags, "Mint authority not revoked")
		level = domain.LevelCaution
	}
	if facts.TokenAgeDays != nil && *facts.TokenAgeDays < fallbackRecentDays {
		flags = append(flags, "Token created very recently")
		level = domain.LevelCaution
	}
	if len(flags) >= 2 {
		level = domain.LevelHighRisk
	}

	return domain.LLMVerdict{
		Assessment:  level,
		Confidence:  fallbackConfidence,
		RedFlags:    flags,
		Explanation: "This is a fallback analysis based on basic token properties. Model analysis was not available.",
	}
}
