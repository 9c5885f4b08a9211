package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func TestWSClient_Connect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer conn.Close()

		// Keep connection open
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	client, err := NewWSClient(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	if client.closed.Load() {
		t.Error("client should not be closed")
	}
}

func TestWSClient_SubscribeAccount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer c.Close()

		// Read subscribe request
		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}

		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
			return
		}

		if req.Method != "accountSubscribe" {
			t.Errorf("expected accountSubscribe, got %s", req.Method)
		}
		if len(req.Params) < 1 || req.Params[0] != "TestMint" {
			t.Errorf("expected pubkey TestMint in params, got %v", req.Params)
		}

		// Send subscription confirmation
		confirm := fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"result":12345}`, req.ID)
		if err := c.WriteMessage(websocket.TextMessage, []byte(confirm)); err != nil {
			t.Errorf("write confirmation: %v", err)
			return
		}

		// Send an account change notification
		time.Sleep(50 * time.Millisecond)
		notif := `{
			"jsonrpc": "2.0",
			"method": "accountNotification",
			"params": {
				"subscription": 12345,
				"result": {
					"context": {"slot": 100},
					"value": {"lamports": 2039280, "owner": "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA", "data": ["AAAA", "base64"]}
				}
			}
		}`
		if err := c.WriteMessage(websocket.TextMessage, []byte(notif)); err != nil {
			t.Errorf("write notification: %v", err)
			return
		}

		// Keep connection open
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	client, err := NewWSClient(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	subID, ch, err := client.SubscribeAccount(context.Background(), "TestMint")
	if err != nil {
		t.Fatalf("SubscribeAccount: %v", err)
	}
	if subID != 12345 {
		t.Errorf("expected subscription ID 12345, got %d", subID)
	}

	select {
	case n := <-ch:
		if n.Pubkey != "TestMint" {
			t.Errorf("expected pubkey TestMint, got %s", n.Pubkey)
		}
		if n.Slot != 100 {
			t.Errorf("expected slot 100, got %d", n.Slot)
		}
		if n.Lamports != 2039280 {
			t.Errorf("expected lamports 2039280, got %d", n.Lamports)
		}
		if n.Data != "AAAA" {
			t.Errorf("expected data AAAA, got %s", n.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for account notification")
	}
}

func TestWSClient_UnsubscribeAccount(t *testing.T) {
	unsubscribed := make(chan int64, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var req wsRequest
			if err := json.Unmarshal(msg, &req); err != nil {
				continue
			}

			switch req.Method {
			case "accountSubscribe":
				confirm := fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"result":77}`, req.ID)
				c.WriteMessage(websocket.TextMessage, []byte(confirm))
			case "accountUnsubscribe":
				if id, ok := req.Params[0].(float64); ok {
					unsubscribed <- int64(id)
				}
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	client, err := NewWSClient(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	subID, ch, err := client.SubscribeAccount(context.Background(), "Mint")
	if err != nil {
		t.Fatalf("SubscribeAccount: %v", err)
	}

	if err := client.UnsubscribeAccount(context.Background(), subID); err != nil {
		t.Fatalf("UnsubscribeAccount: %v", err)
	}

	// The channel stays open after unsubscribe; no notification is
	// delivered for the removed subscription.
	client.handleMessage([]byte(fmt.Sprintf(
		`{"jsonrpc":"2.0","method":"accountNotification","params":{"subscription":%d,"result":{"value":{"lamports":1,"owner":"o","data":["",""]}}}}`,
		subID)))
	select {
	case <-ch:
		t.Error("expected no notification after unsubscribe")
	default:
	}

	// Server received the unsubscribe for the right ID.
	select {
	case id := <-unsubscribed:
		if id != 77 {
			t.Errorf("expected unsubscribe for 77, got %d", id)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for unsubscribe request")
	}

	// Unsubscribing again is a no-op.
	if err := client.UnsubscribeAccount(context.Background(), subID); err != nil {
		t.Errorf("second unsubscribe should be a no-op, got %v", err)
	}
}

func TestWSClient_UnsubscribeDuringDispatchDoesNotPanic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			var req wsRequest
			if err := json.Unmarshal(msg, &req); err != nil {
				continue
			}
			if req.Method == "accountSubscribe" {
				confirm := fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"result":88}`, req.ID)
				c.WriteMessage(websocket.TextMessage, []byte(confirm))
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	client, err := NewWSClient(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	subID, ch, err := client.SubscribeAccount(context.Background(), "Mint")
	if err != nil {
		t.Fatalf("SubscribeAccount: %v", err)
	}

	// Replay the dispatcher's interleaving: it snapshots the sub under
	// the read lock, the subscription is removed, then it sends. The
	// send must land in the still-open buffered channel, not panic.
	client.subsMu.RLock()
	sub := client.subs[subID]
	client.subsMu.RUnlock()

	if err := client.UnsubscribeAccount(context.Background(), subID); err != nil {
		t.Fatalf("UnsubscribeAccount: %v", err)
	}

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("dispatcher send panicked: %v", r)
		}
	}()
	select {
	case sub.ch <- AccountNotification{Pubkey: "Mint"}:
	case <-time.After(time.Second):
		t.Fatal("send did not complete")
	}

	// The reader that has not yet observed the stop still drains it.
	select {
	case n := <-ch:
		if n.Pubkey != "Mint" {
			t.Errorf("expected notification for Mint, got %q", n.Pubkey)
		}
	default:
		t.Error("expected the buffered notification to be readable")
	}
}

func TestWSClient_CloseIdempotent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	client, err := NewWSClient(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
