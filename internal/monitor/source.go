// Package monitor watches token accounts over the Solana websocket and
// turns account activity into enriched transaction emissions.
package monitor

import (
	"context"
	"log"
	"sync"

	"solana-sentinel/internal/domain"
	"solana-sentinel/internal/helius"
	"solana-sentinel/internal/solana"
)

// batchLimit bounds how many recent transactions are fetched per
// account notification.
const batchLimit = 5

// Handler receives observed transactions for a monitored token.
// Invocations are fire-and-forget: the source does not wait for or
// inspect the outcome.
type Handler func(address string, tx domain.TokenTransaction)

// TransactionLister fetches enriched transactions for an address.
type TransactionLister interface {
	AddressTransactions(ctx context.Context, address string, limit int) ([]helius.EnrichedTransaction, error)
}

type watch struct {
	subID  int64
	cancel context.CancelFunc
	seen   map[string]struct{}
}

// Source subscribes to token accounts and emits their transactions.
type Source struct {
	ws      solana.WSClient
	txs     TransactionLister
	handler Handler

	mu      sync.Mutex
	watches map[string]*watch
}

// NewSource creates a transaction event source. The handler receives
// every emitted transaction.
func NewSource(ws solana.WSClient, txs TransactionLister, handler Handler) *Source {
	return &Source{
		ws:      ws,
		txs:     txs,
		handler: handler,
		watches: make(map[string]*watch),
	}
}

// Start begins monitoring a token address. Starting an already
// monitored address is a no-op: exactly one subscription exists per
// address at a time.
func (s *Source) Start(ctx context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.watches[address]; ok {
		return nil
	}

	subID, notifications, err := s.ws.SubscribeAccount(ctx, address)
	if err != nil {
		return err
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	w := &watch{subID: subID, cancel: cancel, seen: make(map[string]struct{})}
	s.watches[address] = w

	go s.run(watchCtx, address, w, notifications)
	log.Printf("[monitor] watching %s (sub %d)", address, subID)
	return nil
}

// Stop ends monitoring for a token address. Stopping an address that is
// not monitored succeeds silently.
func (s *Source) Stop(ctx context.Context, address string) error {
	s.mu.Lock()
	w, ok := s.watches[address]
	if ok {
		delete(s.watches, address)
	}
	s.mu.Unlock()

	if !ok {
		return nil
	}

	w.cancel()
	if err := s.ws.UnsubscribeAccount(ctx, w.subID); err != nil {
		log.Printf("[monitor] unsubscribe %s: %v", address, err)
	}
	log.Printf("[monitor] stopped watching %s", address)
	return nil
}

// IsActive reports whether an address is currently monitored.
func (s *Source) IsActive(address string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.watches[address]
	return ok
}

// Active returns the currently monitored addresses.
func (s *Source) Active() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.watches))
	for addr := range s.watches {
		out = append(out, addr)
	}
	return out
}

// Close stops all watches.
func (s *Source) Close(ctx context.Context) {
	for _, addr := range s.Active() {
		if err := s.Stop(ctx, addr); err != nil {
			log.Printf("[monitor] stop %s: %v", addr, err)
		}
	}
}

// run consumes account notifications until the watch is cancelled or
// the subscription channel closes.
func (s *Source) run(ctx context.Context, address string, w *watch, notifications <-chan solana.AccountNotification) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-notifications:
			if !ok {
				return
			}
			s.emitRecent(ctx, address, w)
		}
	}
}

// emitRecent fetches the latest transactions for the account and emits
// the unseen ones in chronological order.
func (s *Source) emitRecent(ctx context.Context, address string, w *watch) {
	batch, err := s.txs.AddressTransactions(ctx, address, batchLimit)
	if err != nil {
		log.Printf("[monitor] fetch transactions for %s: %v", address, err)
		return
	}

	// The API returns newest first.
	for i := len(batch) - 1; i >= 0; i-- {
		tx := helius.MapTransaction(batch[i])
		if _, dup := w.seen[tx.Signature]; dup {
			continue
		}
		w.seen[tx.Signature] = struct{}{}
		s.handler(address, tx)
	}
}
