package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-sentinel/internal/domain"
	"solana-sentinel/internal/eventbus"
	"solana-sentinel/internal/facts"
)

type fakeService struct {
	mu        sync.Mutex
	analyses  map[string]*domain.CompositeAnalysis
	history   map[string][]*domain.CompositeAnalysis
	events    map[string][]*domain.ObservedTransaction
	monitored map[string]bool
	analyzed  []string
}

func newFakeService() *fakeService {
	return &fakeService{
		analyses:  make(map[string]*domain.CompositeAnalysis),
		history:   make(map[string][]*domain.CompositeAnalysis),
		events:    make(map[string][]*domain.ObservedTransaction),
		monitored: make(map[string]bool),
	}
}

func (f *fakeService) Analyze(_ context.Context, address string, _ bool) (*domain.CompositeAnalysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyzed = append(f.analyzed, address)
	a, ok := f.analyses[address]
	if !ok {
		return nil, fmt.Errorf("%w: %s", facts.ErrInvalidAddress, address)
	}
	f.monitored[address] = true
	return a, nil
}

func (f *fakeService) CachedAnalysis(address string) (*domain.CompositeAnalysis, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.analyses[address]
	return a, ok
}

func (f *fakeService) History(_ context.Context, address string, limit int) ([]*domain.CompositeAnalysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	records := f.history[address]
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (f *fakeService) RecentEvents(_ context.Context, address string, limit int) ([]*domain.ObservedTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	records := f.events[address]
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (f *fakeService) StopMonitoring(_ context.Context, address string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.monitored, address)
	return nil
}

func (f *fakeService) Monitored() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.monitored))
	for a := range f.monitored {
		out = append(out, a)
	}
	return out
}

func testAnalysis(address string) *domain.CompositeAnalysis {
	return &domain.CompositeAnalysis{
		Facts: domain.TokenFacts{
			Address: address, Name: "Test Token", Symbol: "TST", Supply: "1000000",
		},
		RiskScore:   45,
		RiskLevel:   domain.LevelCaution,
		RiskFactors: []string{"Mint authority is not revoked - Owner can create unlimited tokens"},
		AnalyzedAt:  time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		LLM: &domain.LLMVerdict{
			Assessment: domain.LevelCaution, Confidence: 80,
			RedFlags: []string{}, Explanation: "Young token.",
		},
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeService, *eventbus.Bus) {
	t.Helper()
	svc := newFakeService()
	bus := eventbus.NewBus()
	srv := httptest.NewServer(NewMux(svc, NewWSHub(svc, bus)))
	t.Cleanup(srv.Close)
	return srv, svc, bus
}

func TestGetTokenAnalysis(t *testing.T) {
	srv, svc, _ := newTestServer(t)
	svc.analyses["TokenA"] = testAnalysis("TokenA")

	resp, err := http.Get(srv.URL + "/api/tokens/TokenA")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body AnalysisResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "TokenA", body.Address)
	assert.Equal(t, 45, body.RiskScore)
	assert.Equal(t, domain.LevelCaution, body.RiskLevel)
	require.NotNil(t, body.LLMVerdict)
	assert.Equal(t, 80, body.LLMVerdict.Confidence)
}

func TestGetTokenAnalysisInvalidAddress(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/tokens/bogus")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetTokenHistory(t *testing.T) {
	srv, svc, _ := newTestServer(t)
	older := testAnalysis("TokenA")
	older.RiskScore = 60
	older.AnalyzedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.history["TokenA"] = []*domain.CompositeAnalysis{testAnalysis("TokenA"), older}

	resp, err := http.Get(srv.URL + "/api/tokens/TokenA/history")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body []AnalysisResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body, 2)
	assert.Equal(t, 45, body[0].RiskScore)
	assert.Equal(t, 60, body[1].RiskScore)
}

func TestGetTokenHistoryHonorsLimit(t *testing.T) {
	srv, svc, _ := newTestServer(t)
	svc.history["TokenA"] = []*domain.CompositeAnalysis{
		testAnalysis("TokenA"), testAnalysis("TokenA"), testAnalysis("TokenA"),
	}

	resp, err := http.Get(srv.URL + "/api/tokens/TokenA/history?limit=2")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body []AnalysisResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body, 2)
}

func TestGetTokenTransactions(t *testing.T) {
	srv, svc, _ := newTestServer(t)
	svc.events["TokenA"] = []*domain.ObservedTransaction{
		{
			TokenAddress: "TokenA",
			TokenTransaction: domain.TokenTransaction{
				Signature: "sig1", Timestamp: 1717243200, Type: "TRANSFER",
				Amount: "100", FromAddress: "Alice", ToAddress: "Bob",
			},
		},
	}

	resp, err := http.Get(srv.URL + "/api/tokens/TokenA/transactions")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body []TransactionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body, 1)
	assert.Equal(t, "sig1", body[0].Signature)
	assert.Equal(t, int64(1717243200), body[0].Timestamp)
	assert.Equal(t, "TRANSFER", body[0].Type)
}

func TestGetTokenTransactionsEmpty(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/tokens/TokenA/transactions")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body []TransactionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Empty(t, body)
}

func TestGetMonitored(t *testing.T) {
	srv, svc, _ := newTestServer(t)
	svc.analyses["TokenA"] = testAnalysis("TokenA")

	_, err := http.Get(srv.URL + "/api/tokens/TokenA")
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/api/monitored")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string][]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"TokenA"}, body["addresses"])
}

func TestStopMonitoring(t *testing.T) {
	srv, svc, _ := newTestServer(t)
	svc.analyses["TokenA"] = testAnalysis("TokenA")
	_, err := http.Get(srv.URL + "/api/tokens/TokenA")
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/tokens/TokenA/monitor", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, svc.Monitored())
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
