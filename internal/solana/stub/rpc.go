package stub

import (
	"context"
	"errors"

	"solana-sentinel/internal/solana"
)

// ErrNotFound is returned when a transaction is not found.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	Accounts     map[string]*solana.AccountInfo
	Signatures   map[string][]solana.SignatureInfo
	Transactions map[string]*solana.Transaction

	// Errs maps a pubkey or signature to an error to return.
	Errs map[string]error
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Accounts:     make(map[string]*solana.AccountInfo),
		Signatures:   make(map[string][]solana.SignatureInfo),
		Transactions: make(map[string]*solana.Transaction),
		Errs:         make(map[string]error),
	}
}

var _ solana.RPCClient = (*RPCClient)(nil)

// GetAccountInfo retrieves account info from the stub store.
// Returns nil for unknown accounts, matching the real client.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	if err := c.Errs[pubkey]; err != nil {
		return nil, err
	}
	return c.Accounts[pubkey], nil
}

// GetSignaturesForAddress retrieves signatures from the stub store.
func (c *RPCClient) GetSignaturesForAddress(_ context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	if err := c.Errs[address]; err != nil {
		return nil, err
	}

	sigs := c.Signatures[address]
	if opts != nil && opts.Limit > 0 && opts.Limit < len(sigs) {
		return sigs[:opts.Limit], nil
	}
	return sigs, nil
}

// GetTransaction retrieves a transaction from the stub store.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	if err := c.Errs[signature]; err != nil {
		return nil, err
	}

	tx, ok := c.Transactions[signature]
	if !ok {
		return nil, ErrNotFound
	}
	return tx, nil
}
