// Package facts assembles TokenFacts from on-chain state and enriched
// metadata. Every source is best-effort: a failed lookup degrades the
// corresponding fields rather than failing the assembly.
package facts

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"time"

	"solana-sentinel/internal/domain"
	"solana-sentinel/internal/helius"
	"solana-sentinel/internal/solana"
	"solana-sentinel/internal/tokenlist"
)

// ErrInvalidAddress is returned before any lookup when the address is
// not a valid base58-encoded 32-byte public key.
var ErrInvalidAddress = errors.New("invalid token address")

// verifiedTokenAgeDays is assumed for allow-listed and registry-verified
// tokens whose true creation time is not worth an RPC crawl.
const verifiedTokenAgeDays = 365

// creationScanLimit bounds the signature crawl used to find the mint's
// first transaction.
const creationScanLimit = 1000

// MetadataSource provides enriched off-chain token metadata.
type MetadataSource interface {
	TokenMetadataByAddress(ctx context.Context, address string) (*helius.TokenMetadata, error)
}

// Service gathers token facts from the chain and metadata providers.
type Service struct {
	rpc      solana.RPCClient
	meta     MetadataSource
	verifier tokenlist.Verifier
	now      func() time.Time
}

// NewService creates a facts service.
func NewService(rpc solana.RPCClient, meta MetadataSource, verifier tokenlist.Verifier) *Service {
	return &Service{
		rpc:      rpc,
		meta:     meta,
		verifier: verifier,
		now:      time.Now,
	}
}

// Gather assembles facts for a token address. It fails only on invalid
// input; every downstream failure leaves the affected fields at their
// placeholder values.
func (s *Service) Gather(ctx context.Context, address string) (domain.TokenFacts, error) {
	if !solana.IsValidAddress(address) {
		return domain.TokenFacts{}, fmt.Errorf("%w: %s", ErrInvalidAddress, address)
	}

	f := domain.UnknownTokenFacts(address)

	if s.verifier.IsAllowListed(address) || s.verifier.IsVerified(ctx, address) {
		s.applyVerified(ctx, address, &f)
		return f, nil
	}

	s.applyMintAccount(ctx, address, &f)
	s.applyMetadata(ctx, address, &f)
	s.applyCreationInfo(ctx, address, &f)

	return f, nil
}

// applyVerified fills facts for a known-good token from the registry
// record. Age is assumed rather than crawled.
func (s *Service) applyVerified(ctx context.Context, address string, f *domain.TokenFacts) {
	age := verifiedTokenAgeDays
	f.TokenAgeDays = &age
	createdAt := s.now().AddDate(0, 0, -age)
	f.CreatedAt = &createdAt

	if info := s.verifier.VerifiedInfo(ctx, address); info != nil {
		f.Name = info.Name
		f.Symbol = info.Symbol
		f.Decimals = info.Decimals
		f.Description = info.Extensions.Description
		f.ExternalURL = info.Extensions.Website
		f.Image = info.LogoURI
	} else if entry, ok := tokenlist.AllowList[address]; ok {
		f.Name = entry.Name
		f.Symbol = entry.Symbol
		f.Description = entry.Description
	}

	s.applyMintAccount(ctx, address, f)
}

// applyMintAccount reads the SPL mint account for authorities, supply
// and decimals. Non-mint and missing accounts leave facts unchanged.
func (s *Service) applyMintAccount(ctx context.Context, address string, f *domain.TokenFacts) {
	acc, err := s.rpc.GetAccountInfo(ctx, address)
	if err != nil {
		log.Printf("[facts] account info for %s: %v", address, err)
		return
	}
	if acc == nil || acc.Owner != solana.TokenProgramID {
		return
	}

	mint, err := solana.ParseMintAccount(acc.Data)
	if err != nil {
		log.Printf("[facts] mint parse for %s: %v", address, err)
		return
	}

	f.MintAuthority = mint.MintAuthority
	f.FreezeAuthority = mint.FreezeAuthority
	f.Decimals = mint.Decimals
	f.Supply = formatSupply(mint.Supply, mint.Decimals)
}

// applyMetadata fills name, symbol and descriptive fields from the
// enriched metadata API.
func (s *Service) applyMetadata(ctx context.Context, address string, f *domain.TokenFacts) {
	meta, err := s.meta.TokenMetadataByAddress(ctx, address)
	if err != nil {
		log.Printf("[facts] metadata for %s: %v", address, err)
		return
	}
	if meta == nil {
		return
	}

	if meta.Name != "" {
		f.Name = meta.Name
	}
	if meta.Symbol != "" {
		f.Symbol = meta.Symbol
	}
	f.Description = meta.Description
	f.Image = meta.Image
	f.ExternalURL = meta.ExternalURL
	if f.Supply == "Unknown" && meta.Supply != nil {
		f.Supply = strconv.FormatFloat(*meta.Supply, 'f', -1, 64)
	}
}

// applyCreationInfo crawls the mint's signature history to find its
// first transaction, deriving creation time, creator and age.
func (s *Service) applyCreationInfo(ctx context.Context, address string, f *domain.TokenFacts) {
	sigs, err := s.rpc.GetSignaturesForAddress(ctx, address, &solana.SignaturesOpts{Limit: creationScanLimit})
	if err != nil {
		log.Printf("[facts] signatures for %s: %v", address, err)
		return
	}
	if len(sigs) == 0 {
		return
	}

	// Signatures come newest first; the last one is the earliest known.
	oldest := sigs[len(sigs)-1]
	if oldest.BlockTime != nil {
		createdAt := time.Unix(*oldest.BlockTime, 0).UTC()
		f.CreatedAt = &createdAt
		age := int(s.now().Sub(createdAt).Hours() / 24)
		f.TokenAgeDays = &age
	}

	tx, err := s.rpc.GetTransaction(ctx, oldest.Signature)
	if err != nil {
		log.Printf("[facts] creation tx %s: %v", oldest.Signature, err)
		return
	}
	if tx != nil && tx.Message != nil && len(tx.Message.AccountKeys) > 0 {
		// The fee payer of the first transaction is treated as the creator.
		creator := tx.Message.AccountKeys[0]
		f.CreatorAddress = &creator
	}
}

// formatSupply converts a raw supply to token units using the mint's
// decimals.
func formatSupply(raw uint64, decimals int) string {
	if decimals <= 0 {
		return strconv.FormatUint(raw, 10)
	}
	units := float64(raw) / math.Pow10(decimals)
	return strconv.FormatFloat(units, 'f', -1, 64)
}
