// Package helius provides a client for the Helius enriched transaction
// and token metadata API. It is an external collaborator: callers treat
// every method as individually fallible and degrade on error.
package helius

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"solana-sentinel/internal/domain"
)

// DefaultBaseURL is the Helius API endpoint.
const DefaultBaseURL = "https://api.helius.xyz"

// lamportsPerSol converts native transfer amounts to SOL.
const lamportsPerSol = 1_000_000_000

// EnrichedTransaction is one item from the enriched transactions API.
type EnrichedTransaction struct {
	Signature       string           `json:"signature"`
	Timestamp       int64            `json:"timestamp"`
	Type            string           `json:"type"`
	Description     string           `json:"description"`
	Source          string           `json:"source"`
	FeePayer        string           `json:"feePayer"`
	TokenTransfers  []TokenTransfer  `json:"tokenTransfers"`
	NativeTransfers []NativeTransfer `json:"nativeTransfers"`
}

// TokenTransfer is a token movement within an enriched transaction.
type TokenTransfer struct {
	FromUserAccount string  `json:"fromUserAccount"`
	ToUserAccount   string  `json:"toUserAccount"`
	TokenAmount     float64 `json:"tokenAmount"`
	TokenAddress    string  `json:"mint"`
}

// NativeTransfer is a lamport movement within an enriched transaction.
type NativeTransfer struct {
	FromUserAccount string `json:"fromUserAccount"`
	ToUserAccount   string `json:"toUserAccount"`
	Amount          int64  `json:"amount"`
}

// TokenMetadata is the enriched token metadata record.
type TokenMetadata struct {
	Address     string   `json:"address"`
	Name        string   `json:"name"`
	Symbol      string   `json:"symbol"`
	Decimals    int      `json:"decimals"`
	Supply      *float64 `json:"supply"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
	ExternalURL string   `json:"externalUrl"`
}

// Client calls the Helius HTTP API.
type Client struct {
	client  *resty.Client
	baseURL string
	apiKey  string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint. Intended for tests.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPTimeout sets the per-request timeout.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.client.SetTimeout(d)
	}
}

// NewClient creates a Helius API client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		client:  resty.New().SetTimeout(15 * time.Second),
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddressTransactions fetches recent enriched transactions for an address.
func (c *Client) AddressTransactions(ctx context.Context, address string, limit int) ([]EnrichedTransaction, error) {
	var txs []EnrichedTransaction

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("api-key", c.apiKey).
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetResult(&txs).
		Get(fmt.Sprintf("%s/v0/addresses/%s/transactions", c.baseURL, address))
	if err != nil {
		return nil, fmt.Errorf("fetch transactions for %s: %w", address, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch transactions for %s: status %d", address, resp.StatusCode())
	}

	return txs, nil
}

// TokenMetadataByAddress fetches enriched metadata for one token.
// Returns nil when the token is unknown to the API.
func (c *Client) TokenMetadataByAddress(ctx context.Context, address string) (*TokenMetadata, error) {
	var body struct {
		Tokens []TokenMetadata `json:"tokens"`
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("api-key", c.apiKey).
		SetQueryParam("addresses", address).
		SetResult(&body).
		Get(fmt.Sprintf("%s/v0/tokens", c.baseURL))
	if err != nil {
		return nil, fmt.Errorf("fetch token metadata for %s: %w", address, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch token metadata for %s: status %d", address, resp.StatusCode())
	}

	if len(body.Tokens) == 0 {
		return nil, nil
	}
	meta := body.Tokens[0]
	return &meta, nil
}

// MapTransaction converts an enriched transaction to the domain shape,
// deriving type, amount and counterparties. Token transfers take their
// token-unit amount; native transfers convert lamports to SOL;
// everything else reports "0".
func MapTransaction(tx EnrichedTransaction) domain.TokenTransaction {
	out := domain.TokenTransaction{
		Signature:   tx.Signature,
		Timestamp:   tx.Timestamp,
		Type:        tx.Type,
		Amount:      "0",
		Description: tx.Description,
		Source:      tx.Source,
	}
	if out.Signature == "" {
		out.Signature = "unknown"
	}
	if out.Timestamp == 0 {
		out.Timestamp = time.Now().Unix()
	}

	switch {
	case len(tx.TokenTransfers) > 0:
		t := tx.TokenTransfers[0]
		if out.Type == "" {
			out.Type = domain.TxTypeTransfer
		}
		out.Amount = strconv.FormatFloat(t.TokenAmount, 'f', -1, 64)
		out.FromAddress = t.FromUserAccount
		out.ToAddress = t.ToUserAccount

	case len(tx.NativeTransfers) > 0:
		n := tx.NativeTransfers[0]
		if out.Type == "" {
			out.Type = domain.TxTypeTransfer
		}
		out.Amount = strconv.FormatFloat(float64(n.Amount)/lamportsPerSol, 'f', -1, 64)
		out.FromAddress = n.FromUserAccount
		out.ToAddress = n.ToUserAccount

	default:
		if out.Type == "" {
			out.Type = domain.TxTypeUnknown
		}
		out.FromAddress = tx.FeePayer
	}

	return out
}
