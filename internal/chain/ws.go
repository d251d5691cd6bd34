package chain

import "context"

// HeadSubscriber delivers new chain heads.
type HeadSubscriber interface {
	// SubscribeNewHeads subscribes to newHeads notifications.
	SubscribeNewHeads(ctx context.Context) (<-chan Head, error)

	// Close closes the WebSocket connection.
	Close() error
}

// Head is a newHeads notification.
type Head struct {
	Number    uint64
	Hash      string
	Timestamp uint64
}
