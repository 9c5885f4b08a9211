package solana

import "context"

// WSClient defines the Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeAccount subscribes to change notifications for one account.
	// Returns the subscription ID and the notification channel.
	SubscribeAccount(ctx context.Context, pubkey string) (int64, <-chan AccountNotification, error)

	// UnsubscribeAccount cancels an account subscription and closes its channel.
	UnsubscribeAccount(ctx context.Context, subID int64) error

	// Close closes the WebSocket connection.
	Close() error
}

// AccountNotification represents an accountSubscribe message.
type AccountNotification struct {
	Pubkey   string
	Slot     int64
	Lamports uint64
	Owner    string
	Data     string // base64 encoded
}
