// Package eventbus fans analysis and transaction events out to
// subscribers. Publishing never blocks: a subscriber that cannot keep
// up drops events rather than stalling the publisher.
package eventbus

import (
	"log"
	"sync"

	"solana-sentinel/internal/domain"
)

// Trigger values for AnalysisUpdated events.
const (
	TriggerRequest     = "request"
	TriggerTransaction = "transaction"
)

// subscriberBuffer is the per-subscriber channel depth.
const subscriberBuffer = 64

// Event is anything published on the bus.
type Event interface {
	// TokenAddress identifies the token the event concerns.
	TokenAddress() string
}

// AnalysisUpdated is published whenever a composite analysis is created
// or refreshed.
type AnalysisUpdated struct {
	Address  string
	Analysis *domain.CompositeAnalysis
	Trigger  string
}

func (e AnalysisUpdated) TokenAddress() string { return e.Address }

// TransactionObserved is published for every transaction seen on a
// monitored token account, significant or not.
type TransactionObserved struct {
	Address     string
	Transaction domain.TokenTransaction
}

func (e TransactionObserved) TokenAddress() string { return e.Address }

type subscriber struct {
	address string // empty subscribes to all tokens
	ch      chan Event
}

// Bus is an in-process publish/subscribe hub keyed by token address.
type Bus struct {
	mu     sync.Mutex
	nextID int64
	subs   map[int64]*subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int64]*subscriber)}
}

// Subscribe registers interest in events for one token address. An
// empty address receives events for all tokens. The returned id
// releases the subscription via Unsubscribe.
func (b *Bus) Subscribe(address string) (int64, <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	sub := &subscriber{address: address, ch: make(chan Event, subscriberBuffer)}
	b.subs[id] = sub
	return id, sub.ch
}

// Unsubscribe removes a subscription and closes its channel. Unknown
// ids are a no-op.
func (b *Bus) Unsubscribe(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	close(sub.ch)
}

// Publish delivers an event to every matching subscriber without
// blocking. Full subscriber channels drop the event.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, sub := range b.subs {
		if sub.address != "" && sub.address != event.TokenAddress() {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			log.Printf("[eventbus] subscriber %d full, dropping event for %s", id, event.TokenAddress())
		}
	}
}

// SubscriberCount reports the number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
