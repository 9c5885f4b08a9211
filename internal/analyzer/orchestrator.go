// Package analyzer orchestrates the full token analysis pipeline:
// facts gathering, creator profiling, heuristic scoring, model
// judgment, caching and live monitoring. Each stage is individually
// fault-isolated so one failing collaborator degrades the result
// instead of failing the request.
package analyzer

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"solana-sentinel/internal/cache"
	"solana-sentinel/internal/domain"
	"solana-sentinel/internal/eventbus"
	"solana-sentinel/internal/helius"
	"solana-sentinel/internal/observability"
	"solana-sentinel/internal/storage"
)

// DefaultAnalysisTTL is how long a composite analysis stays fresh.
const DefaultAnalysisTTL = 30 * time.Minute

// significantAmountThreshold marks a transaction as significant when
// its amount exceeds this many token units.
const significantAmountThreshold = 1000

// serialCreatorThreshold is the launched-token count above which the
// creator's count is surfaced to scoring and judgment.
const serialCreatorThreshold = 5

// recentTxLimit bounds how many recent transactions feed the analysis
// context.
const recentTxLimit = 10

// FactsGatherer assembles token facts for an address.
type FactsGatherer interface {
	Gather(ctx context.Context, address string) (domain.TokenFacts, error)
}

// CreatorProfiler profiles a creator wallet. It never fails: a failed
// lookup yields a zero profile.
type CreatorProfiler interface {
	Profile(ctx context.Context, creator string) domain.CreatorProfile
}

// Scorer produces a heuristic risk verdict.
type Scorer interface {
	Score(ctx context.Context, facts domain.TokenFacts, actx domain.AnalysisContext) domain.RiskVerdict
}

// Judge produces a model judgment. It never fails: provider failure
// degrades to a fallback verdict.
type Judge interface {
	Assess(ctx context.Context, facts domain.TokenFacts, heuristic domain.RiskVerdict, actx *domain.AnalysisContext) domain.LLMVerdict
}

// TransactionLister fetches enriched transactions for an address.
type TransactionLister interface {
	AddressTransactions(ctx context.Context, address string, limit int) ([]helius.EnrichedTransaction, error)
}

// Monitor controls live account monitoring.
type Monitor interface {
	Start(ctx context.Context, address string) error
	Stop(ctx context.Context, address string) error
	IsActive(address string) bool
	Active() []string
}

// Options configures an Orchestrator. Facts, Profiler, Scorer, Judge,
// Transactions, Monitor and Bus are required; the stores are optional
// supplemental persistence.
type Options struct {
	Facts        FactsGatherer
	Profiler     CreatorProfiler
	Scorer       Scorer
	Judge        Judge
	Transactions TransactionLister
	Monitor      Monitor
	Bus          *eventbus.Bus

	AnalysisStore storage.AnalysisStore
	EventStore    storage.TransactionEventStore

	AnalysisTTL time.Duration
}

// Orchestrator runs analyses and reacts to monitored transactions.
type Orchestrator struct {
	facts    FactsGatherer
	profiler CreatorProfiler
	scorer   Scorer
	judge    Judge
	txs      TransactionLister
	monitor  Monitor
	bus      *eventbus.Bus

	store  storage.AnalysisStore
	events storage.TransactionEventStore

	cache *cache.TTL[domain.CompositeAnalysis]
	group singleflight.Group
	now   func() time.Time
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(opts Options) *Orchestrator {
	ttl := opts.AnalysisTTL
	if ttl <= 0 {
		ttl = DefaultAnalysisTTL
	}

	return &Orchestrator{
		facts:    opts.Facts,
		profiler: opts.Profiler,
		scorer:   opts.Scorer,
		judge:    opts.Judge,
		txs:      opts.Transactions,
		monitor:  opts.Monitor,
		bus:      opts.Bus,
		store:    opts.AnalysisStore,
		events:   opts.EventStore,
		cache:    cache.NewTTL[domain.CompositeAnalysis](ttl),
		now:      time.Now,
	}
}

// Analyze returns the composite analysis for a token, serving a fresh
// cached result unless forceFresh is set. Concurrent requests for the
// same address share one pipeline run.
func (o *Orchestrator) Analyze(ctx context.Context, address string, forceFresh bool) (*domain.CompositeAnalysis, error) {
	if !forceFresh {
		if entry, ok := o.cache.GetIfFresh(address); ok {
			observability.RecordCacheLookup(true)
			result := entry.Value
			return &result, nil
		}
		observability.RecordCacheLookup(false)
	}

	v, err, _ := o.group.Do(address, func() (any, error) {
		return o.refresh(ctx, address)
	})
	if err != nil {
		return nil, err
	}

	result := v.(domain.CompositeAnalysis)
	return &result, nil
}

// refresh runs the full pipeline for one address.
func (o *Orchestrator) refresh(ctx context.Context, address string) (domain.CompositeAnalysis, error) {
	started := o.now()

	// Monitoring starts before the facts fetch so activity during the
	// first, model-bound analysis is already observed.
	o.startMonitoring(ctx, address)

	facts, err := o.facts.Gather(ctx, address)
	if err != nil {
		if stopErr := o.monitor.Stop(ctx, address); stopErr != nil {
			log.Printf("[analyzer] stop monitoring %s: %v", address, stopErr)
		}
		return domain.CompositeAnalysis{}, err
	}

	actx := domain.AnalysisContext{}

	if facts.CreatorAddress != nil {
		profile := o.profiler.Profile(ctx, *facts.CreatorAddress)
		actx.Creator = &profile
		if profile.NumTokensCreated > serialCreatorThreshold {
			count := profile.NumTokensCreated
			facts.CreatorTokenCount = &count
		}
		facts.CreatorHasRugPullHistory = profile.HasRugPullHistory
	}

	if recent, err := o.txs.AddressTransactions(ctx, address, recentTxLimit); err != nil {
		log.Printf("[analyzer] recent transactions for %s: %v", address, err)
	} else {
		for _, tx := range recent {
			actx.RecentTransactions = append(actx.RecentTransactions, helius.MapTransaction(tx))
		}
	}

	verdict := o.scoreSafely(ctx, facts, actx)
	judgment := o.judgeSafely(ctx, facts, verdict, &actx)

	ts := o.now()
	analysis := domain.CompositeAnalysis{
		Facts:       facts,
		RiskScore:   verdict.Score,
		RiskLevel:   verdict.Level,
		RiskFactors: verdict.Factors,
		AnalyzedAt:  ts,
		LLM:         &judgment,
	}
	o.cache.PutIfNewer(address, analysis, ts)

	o.publishAnalysis(address, &analysis, eventbus.TriggerRequest)
	o.persistAnalysis(ctx, &analysis)

	observability.RecordAnalysis(eventbus.TriggerRequest, analysis.RiskLevel, o.now().Sub(started).Seconds())
	return analysis, nil
}

// HandleTransaction reacts to one observed transaction on a monitored
// token. Significant activity refreshes the model judgment in place;
// minor activity back-dates the cached analysis so the next request
// recomputes it.
func (o *Orchestrator) HandleTransaction(address string, tx domain.TokenTransaction) {
	ctx := context.Background()

	o.bus.Publish(eventbus.TransactionObserved{Address: address, Transaction: tx})
	observability.RecordEventPublished("transaction_observed")

	significant := isSignificant(tx)
	observability.RecordTransactionObserved(significant)
	o.persistEvent(ctx, address, tx)

	entry, ok := o.cache.Get(address)
	if !ok {
		return
	}

	if !significant {
		o.cache.Backdate(address)
		observability.RecordSoftInvalidation()
		return
	}

	analysis := entry.Value
	heuristic := domain.RiskVerdict{
		Score:   analysis.RiskScore,
		Level:   analysis.RiskLevel,
		Factors: analysis.RiskFactors,
	}
	actx := domain.AnalysisContext{TriggerTransaction: &tx}

	judgment := o.judgeSafely(ctx, analysis.Facts, heuristic, &actx)
	ts := o.now()
	analysis.LLM = &judgment
	analysis.AnalyzedAt = ts

	if !o.cache.PutIfNewer(address, analysis, ts) {
		return
	}

	o.publishAnalysis(address, &analysis, eventbus.TriggerTransaction)
	o.persistAnalysis(ctx, &analysis)
	observability.RecordAnalysis(eventbus.TriggerTransaction, analysis.RiskLevel, 0)
}

// CachedAnalysis returns the cached analysis for an address regardless
// of freshness.
func (o *Orchestrator) CachedAnalysis(address string) (*domain.CompositeAnalysis, bool) {
	entry, ok := o.cache.Get(address)
	if !ok {
		return nil, false
	}
	result := entry.Value
	return &result, true
}

// History returns persisted analyses for an address, newest first.
// Without a configured store the history is empty.
func (o *Orchestrator) History(ctx context.Context, address string, limit int) ([]*domain.CompositeAnalysis, error) {
	if o.store == nil {
		return nil, nil
	}
	return o.store.GetHistory(ctx, address, limit)
}

// RecentEvents returns persisted observed transactions for an address,
// newest first. Without a configured event store the list is empty.
func (o *Orchestrator) RecentEvents(ctx context.Context, address string, limit int) ([]*domain.ObservedTransaction, error) {
	if o.events == nil {
		return nil, nil
	}
	return o.events.GetByToken(ctx, address, limit)
}

// StopMonitoring ends live monitoring for an address. The cached
// analysis stays available until it expires.
func (o *Orchestrator) StopMonitoring(ctx context.Context, address string) error {
	err := o.monitor.Stop(ctx, address)
	observability.UpdateActiveSubscriptions(len(o.monitor.Active()))
	return err
}

// Monitored returns the currently monitored addresses.
func (o *Orchestrator) Monitored() []string {
	return o.monitor.Active()
}

// scoreSafely runs the heuristic engine, converting a panic into the
// degraded verdict so the pipeline continues.
func (o *Orchestrator) scoreSafely(ctx context.Context, facts domain.TokenFacts, actx domain.AnalysisContext) (verdict domain.RiskVerdict) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[analyzer] scoring %s panicked: %v", facts.Address, r)
			observability.DefaultMetrics.DegradedScorings.Inc()
			verdict = domain.RiskVerdict{
				Score:   0,
				Level:   domain.LevelUnknown,
				Factors: []string{"Could not analyze risk factors"},
			}
		}
	}()

	return o.scorer.Score(ctx, facts, actx)
}

// judgeSafely obtains the model judgment, converting a panic into the
// degraded verdict.
func (o *Orchestrator) judgeSafely(ctx context.Context, facts domain.TokenFacts, heuristic domain.RiskVerdict, actx *domain.AnalysisContext) (judgment domain.LLMVerdict) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[analyzer] judgment for %s panicked: %v", facts.Address, r)
			judgment = domain.LLMVerdict{
				Assessment:  domain.LevelUnknown,
				Confidence:  0,
				RedFlags:    []string{"LLM analysis failed"},
				Explanation: "Model judgment was unavailable for this analysis.",
			}
		}
	}()

	return o.judge.Assess(ctx, facts, heuristic, actx)
}

func (o *Orchestrator) publishAnalysis(address string, analysis *domain.CompositeAnalysis, trigger string) {
	o.bus.Publish(eventbus.AnalysisUpdated{
		Address:  address,
		Analysis: analysis,
		Trigger:  trigger,
	})
	observability.RecordEventPublished("analysis_updated")
}

func (o *Orchestrator) startMonitoring(ctx context.Context, address string) {
	if err := o.monitor.Start(ctx, address); err != nil {
		log.Printf("[analyzer] start monitoring %s: %v", address, err)
		return
	}
	observability.UpdateActiveSubscriptions(len(o.monitor.Active()))
}

func (o *Orchestrator) persistAnalysis(ctx context.Context, analysis *domain.CompositeAnalysis) {
	if o.store == nil {
		return
	}
	if err := o.store.Insert(ctx, analysis); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		log.Printf("[analyzer] persist analysis for %s: %v", analysis.Facts.Address, err)
	}
}

func (o *Orchestrator) persistEvent(ctx context.Context, address string, tx domain.TokenTransaction) {
	if o.events == nil {
		return
	}
	event := &domain.ObservedTransaction{TokenAddress: address, TokenTransaction: tx}
	if err := o.events.Insert(ctx, event); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		log.Printf("[analyzer] persist transaction %s: %v", tx.Signature, err)
	}
}

// isSignificant reports whether a transaction warrants an immediate
// judgment refresh: a large amount or a high-severity type.
func isSignificant(tx domain.TokenTransaction) bool {
	if tx.Type == domain.TxTypeRugPull || tx.Type == domain.TxTypeLargeWithdrawal {
		return true
	}
	amount, err := strconv.ParseFloat(tx.Amount, 64)
	return err == nil && amount > significantAmountThreshold
}
