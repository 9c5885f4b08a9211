// Package tokenlist resolves token verification status: a fixed
// allow-list of unconditionally safe tokens plus the community Solana
// token list fetched over HTTP. Both bypass scoring entirely.
package tokenlist

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"solana-sentinel/internal/domain"
)

// DefaultListURL is the community token list location.
const DefaultListURL = "https://cdn.jsdelivr.net/gh/solana-labs/token-list@main/src/tokens/solana.tokenlist.json"

// solanaMainnetChainID filters list entries to mainnet tokens.
const solanaMainnetChainID = 101

// listRefreshInterval bounds how often the full list is refetched.
// Membership is treated as effectively static, so a long interval is fine.
const listRefreshInterval = 24 * time.Hour

// AllowListedToken describes a fixed allow-list entry.
type AllowListedToken struct {
	Name        string
	Symbol      string
	Description string
}

// AllowList contains addresses treated as unconditionally safe.
// Heuristic and model paths are never invoked for these.
var AllowList = map[string]AllowListedToken{
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": {
		Name:        "USD Coin",
		Symbol:      "USDC",
		Description: "USDC is a fully collateralized US dollar stablecoin developed by CENTRE.",
	},
	"So11111111111111111111111111111111111111112": {
		Name:        "Wrapped SOL",
		Symbol:      "wSOL",
		Description: "Wrapped SOL (wSOL) is the wrapped version of SOL, the native token of the Solana blockchain.",
	},
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB": {
		Name:   "USDT",
		Symbol: "USDT",
	},
	"DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263": {
		Name:   "Bonk",
		Symbol: "BONK",
	},
}

// Verifier answers allow-list and verified-token queries. Lookups are
// memoized and treated as cheap by callers.
type Verifier interface {
	// IsAllowListed reports whether address is on the fixed allow-list.
	IsAllowListed(address string) bool

	// IsVerified reports whether address appears in the token list.
	IsVerified(ctx context.Context, address string) bool

	// VerifiedInfo returns the token list entry for address, or nil.
	VerifiedInfo(ctx context.Context, address string) *domain.VerifiedToken
}

// Provider implements Verifier backed by the remote token list.
type Provider struct {
	client  *resty.Client
	listURL string
	logger  *log.Logger

	mu          sync.Mutex
	tokens      map[string]domain.VerifiedToken
	lastFetched time.Time
	now         func() time.Time
}

// Option configures a Provider.
type Option func(*Provider)

// WithListURL overrides the token list URL.
func WithListURL(url string) Option {
	return func(p *Provider) {
		p.listURL = url
	}
}

// WithHTTPTimeout sets the fetch timeout.
func WithHTTPTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.client.SetTimeout(d)
	}
}

// NewProvider creates a token list provider.
func NewProvider(opts ...Option) *Provider {
	p := &Provider{
		client:  resty.New().SetTimeout(10 * time.Second),
		listURL: DefaultListURL,
		logger:  log.New(log.Writer(), "[tokenlist] ", log.LstdFlags),
		tokens:  make(map[string]domain.VerifiedToken),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ Verifier = (*Provider)(nil)

// IsAllowListed reports whether address is on the fixed allow-list.
func (p *Provider) IsAllowListed(address string) bool {
	_, ok := AllowList[address]
	return ok
}

// IsVerified reports whether address appears in the token list.
func (p *Provider) IsVerified(ctx context.Context, address string) bool {
	return p.VerifiedInfo(ctx, address) != nil
}

// VerifiedInfo returns the token list entry for address, or nil.
// A fetch failure degrades to the last loaded list.
func (p *Provider) VerifiedInfo(ctx context.Context, address string) *domain.VerifiedToken {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.tokens) == 0 || p.now().Sub(p.lastFetched) >= listRefreshInterval {
		if err := p.refreshLocked(ctx); err != nil {
			p.logger.Printf("token list refresh failed: %v", err)
		}
	}

	t, ok := p.tokens[address]
	if !ok {
		return nil
	}
	info := t
	return &info
}

// refreshLocked fetches and replaces the cached token list.
// Caller must hold p.mu.
func (p *Provider) refreshLocked(ctx context.Context) error {
	var body struct {
		Tokens []domain.VerifiedToken `json:"tokens"`
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetResult(&body).
		Get(p.listURL)
	if err != nil {
		return fmt.Errorf("fetch token list: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("fetch token list: status %d", resp.StatusCode())
	}
	if len(body.Tokens) == 0 {
		return fmt.Errorf("token list empty or malformed")
	}

	tokens := make(map[string]domain.VerifiedToken, len(body.Tokens))
	for _, t := range body.Tokens {
		if t.ChainID == solanaMainnetChainID {
			tokens[t.Address] = t
		}
	}

	p.tokens = tokens
	p.lastFetched = p.now()
	p.logger.Printf("loaded %d verified tokens", len(tokens))
	return nil
}
