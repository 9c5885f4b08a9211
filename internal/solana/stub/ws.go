package stub

import (
	"context"
	"sync"

	"solana-sentinel/internal/solana"
)

// WSClient implements solana.WSClient for testing. Notifications are
// pushed through Notify.
type WSClient struct {
	mu     sync.Mutex
	nextID int64
	subs   map[int64]subRecord
	byKey  map[string]int64

	// SubscribeErr, when set, fails every SubscribeAccount call.
	SubscribeErr error
}

type subRecord struct {
	pubkey string
	ch     chan solana.AccountNotification
}

// NewWSClient creates a new stub WebSocket client.
func NewWSClient() *WSClient {
	return &WSClient{
		subs:  make(map[int64]subRecord),
		byKey: make(map[string]int64),
	}
}

var _ solana.WSClient = (*WSClient)(nil)

// SubscribeAccount registers a fake subscription.
func (c *WSClient) SubscribeAccount(_ context.Context, pubkey string) (int64, <-chan solana.AccountNotification, error) {
	if c.SubscribeErr != nil {
		return 0, nil, c.SubscribeErr
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	ch := make(chan solana.AccountNotification, 16)
	c.subs[c.nextID] = subRecord{pubkey: pubkey, ch: ch}
	c.byKey[pubkey] = c.nextID
	return c.nextID, ch, nil
}

// UnsubscribeAccount removes a fake subscription.
func (c *WSClient) UnsubscribeAccount(_ context.Context, subID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub, ok := c.subs[subID]
	if !ok {
		return nil
	}
	delete(c.subs, subID)
	delete(c.byKey, sub.pubkey)
	close(sub.ch)
	return nil
}

// Close drops all subscriptions.
func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, sub := range c.subs {
		close(sub.ch)
		delete(c.subs, id)
	}
	c.byKey = make(map[string]int64)
	return nil
}

// Notify pushes an account change notification for pubkey.
// Returns false if no subscription exists.
func (c *WSClient) Notify(pubkey string) bool {
	c.mu.Lock()
	id, ok := c.byKey[pubkey]
	var sub subRecord
	if ok {
		sub = c.subs[id]
	}
	c.mu.Unlock()

	if !ok {
		return false
	}
	sub.ch <- solana.AccountNotification{Pubkey: pubkey}
	return true
}

// ActiveCount returns the number of live subscriptions.
func (c *WSClient) ActiveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}
