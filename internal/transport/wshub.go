package transport

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"solana-sentinel/internal/domain"
	"solana-sentinel/internal/eventbus"
)

const (
	writeTimeout = 10 * time.Second

	// sessionSendBuffer is the per-session outbound queue depth. A
	// session that cannot drain it gets disconnected.
	sessionSendBuffer = 64
)

// AnalysisService is the analyzer surface used by transports.
type AnalysisService interface {
	Analyze(ctx context.Context, address string, forceFresh bool) (*domain.CompositeAnalysis, error)
	CachedAnalysis(address string) (*domain.CompositeAnalysis, bool)
	History(ctx context.Context, address string, limit int) ([]*domain.CompositeAnalysis, error)
	RecentEvents(ctx context.Context, address string, limit int) ([]*domain.ObservedTransaction, error)
	StopMonitoring(ctx context.Context, address string) error
	Monitored() []string
}

// clientCommand is an inbound WebSocket message.
type clientCommand struct {
	Action  string `json:"action"` // "monitor" or "stop"
	Address string `json:"address"`
}

// serverMessage is an outbound WebSocket message.
type serverMessage struct {
	Type        string               `json:"type"`
	Address     string               `json:"address,omitempty"`
	Trigger     string               `json:"trigger,omitempty"`
	Analysis    *AnalysisResponse    `json:"analysis,omitempty"`
	Transaction *TransactionResponse `json:"transaction,omitempty"`
	Error       string               `json:"error,omitempty"`
}

// WSHub upgrades connections and relays analysis events to clients.
type WSHub struct {
	service  AnalysisService
	bus      *eventbus.Bus
	upgrader websocket.Upgrader
}

// NewWSHub creates a WebSocket hub.
func NewWSHub(service AnalysisService, bus *eventbus.Bus) *WSHub {
	return &WSHub{
		service: service,
		bus:     bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and runs the session until the
// client disconnects.
func (h *WSHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[transport] upgrade: %v", err)
		return
	}

	s := &session{
		hub:  h,
		conn: conn,
		send: make(chan serverMessage, sessionSendBuffer),
		subs: make(map[string]int64),
	}
	go s.writeLoop()
	s.readLoop(r.Context())
}

// session is one connected WebSocket client.
type session struct {
	hub  *WSHub
	conn *websocket.Conn
	send chan serverMessage

	mu     sync.Mutex
	closed bool
	subs   map[string]int64 // address -> bus subscription id
}

// readLoop processes client commands until the connection drops.
func (s *session) readLoop(ctx context.Context) {
	defer s.close()

	for {
		var cmd clientCommand
		if err := s.conn.ReadJSON(&cmd); err != nil {
			return
		}

		switch cmd.Action {
		case "monitor":
			s.handleMonitor(ctx, cmd.Address)
		case "stop":
			s.handleStop(ctx, cmd.Address)
		default:
			s.enqueue(serverMessage{Type: "error", Error: "unknown action: " + cmd.Action})
		}
	}
}

// handleMonitor subscribes the session to a token's events and kicks
// off an analysis. The result arrives as an analysisUpdated event.
func (s *session) handleMonitor(ctx context.Context, address string) {
	if address == "" {
		s.enqueue(serverMessage{Type: "error", Error: "address is required"})
		return
	}

	s.mu.Lock()
	_, already := s.subs[address]
	if !already {
		id, events := s.hub.bus.Subscribe(address)
		s.subs[address] = id
		go s.relay(events)
	}
	s.mu.Unlock()

	go func() {
		if _, err := s.hub.service.Analyze(ctx, address, false); err != nil {
			s.enqueue(serverMessage{Type: "error", Address: address, Error: err.Error()})
		}
	}()
}

// handleStop ends monitoring for a token and drops the subscription.
func (s *session) handleStop(ctx context.Context, address string) {
	s.mu.Lock()
	id, ok := s.subs[address]
	if ok {
		delete(s.subs, address)
	}
	s.mu.Unlock()

	if ok {
		s.hub.bus.Unsubscribe(id)
	}
	if err := s.hub.service.StopMonitoring(ctx, address); err != nil {
		s.enqueue(serverMessage{Type: "error", Address: address, Error: err.Error()})
		return
	}
	s.enqueue(serverMessage{Type: "stopped", Address: address})
}

// relay forwards bus events for one subscription to the client.
func (s *session) relay(events <-chan eventbus.Event) {
	for ev := range events {
		switch e := ev.(type) {
		case eventbus.AnalysisUpdated:
			resp := toAnalysisResponse(e.Analysis)
			s.enqueue(serverMessage{
				Type:     "analysisUpdated",
				Address:  e.Address,
				Trigger:  e.Trigger,
				Analysis: &resp,
			})
		case eventbus.TransactionObserved:
			tx := toTransactionResponse(e.Transaction)
			s.enqueue(serverMessage{
				Type:        "transaction",
				Address:     e.Address,
				Transaction: &tx,
			})
		}
	}
}

// enqueue queues a message without blocking. A full queue or a closed
// session drops the message.
func (s *session) enqueue(msg serverMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.send <- msg:
	default:
		log.Printf("[transport] session queue full, dropping %s", msg.Type)
	}
}

// writeLoop serializes all writes to the connection.
func (s *session) writeLoop() {
	for msg := range s.send {
		data, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// close releases the session's bus subscriptions and the connection.
func (s *session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	ids := make([]int64, 0, len(s.subs))
	for _, id := range s.subs {
		ids = append(ids, id)
	}
	s.subs = make(map[string]int64)
	s.mu.Unlock()

	for _, id := range ids {
		s.hub.bus.Unsubscribe(id)
	}
	close(s.send)
	s.conn.Close()
}
