// Package wallet profiles token creator wallets from their transaction
// history. Profiling never fails: any lookup error yields an empty
// profile so scoring proceeds without creator annotations.
package wallet

import (
	"context"
	"fmt"
	"log"

	"solana-sentinel/internal/domain"
	"solana-sentinel/internal/helius"
	"solana-sentinel/internal/solana"
)

// historyLimit bounds how many enriched transactions are examined per
// creator wallet.
const historyLimit = 100

// serialCreatorThreshold is the distinct-mint count above which a
// creator is flagged as a serial token launcher.
const serialCreatorThreshold = 5

// TransactionLister fetches enriched transactions for an address.
type TransactionLister interface {
	AddressTransactions(ctx context.Context, address string, limit int) ([]helius.EnrichedTransaction, error)
}

// Analyzer builds creator profiles.
type Analyzer struct {
	txs TransactionLister
}

// NewAnalyzer creates a wallet analyzer.
func NewAnalyzer(txs TransactionLister) *Analyzer {
	return &Analyzer{txs: txs}
}

// Profile examines a creator wallet's history and returns a profile.
// An empty or unreachable history produces a zero profile, never an
// error.
func (a *Analyzer) Profile(ctx context.Context, creator string) domain.CreatorProfile {
	profile := domain.CreatorProfile{}

	history, err := a.txs.AddressTransactions(ctx, creator, historyLimit)
	if err != nil {
		log.Printf("[wallet] history for %s: %v", creator, err)
		return profile
	}

	mints := make(map[string]struct{})
	wallets := make(map[string]struct{})
	for _, tx := range history {
		for _, tt := range tx.TokenTransfers {
			if tt.TokenAddress != "" && tt.FromUserAccount == creator {
				mints[tt.TokenAddress] = struct{}{}
			}
			a.collectWallet(wallets, creator, tt.FromUserAccount)
			a.collectWallet(wallets, creator, tt.ToUserAccount)
		}
		for _, nt := range tx.NativeTransfers {
			a.collectWallet(wallets, creator, nt.FromUserAccount)
			a.collectWallet(wallets, creator, nt.ToUserAccount)
		}
	}

	profile.NumTokensCreated = len(mints)
	for w := range wallets {
		profile.AssociatedWallets = append(profile.AssociatedWallets, w)
	}

	if profile.NumTokensCreated > serialCreatorThreshold {
		profile.HasRugPullHistory = true
		profile.SuspiciousPatterns = append(profile.SuspiciousPatterns,
			fmt.Sprintf("Creator has launched %d different tokens", profile.NumTokensCreated))
	}

	return profile
}

// collectWallet records a counterparty if it is a real wallet: a valid
// address on the ed25519 curve, so program-derived accounts are skipped.
func (a *Analyzer) collectWallet(set map[string]struct{}, creator, address string) {
	if address == "" || address == creator {
		return
	}
	if !solana.IsValidAddress(address) || !solana.IsOnCurve(address) {
		return
	}
	set[address] = struct{}{}
}
