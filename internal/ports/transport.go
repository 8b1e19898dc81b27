package ports

import "context"

// MessageHandler receives one inbound message. It runs on the transport's
// delivery goroutine and must not block.
type MessageHandler func(topic string, payload []byte)

// DisconnectHandler is invoked when the broker connection drops, whether
// initiated locally or by the broker.
type DisconnectHandler func(err error)

// Transport wraps a pub/sub connection. Implementations own the connection
// handle and expose no other shared state; all delivery happens through the
// registered handlers.
type Transport interface {
	// Connect establishes the connection, bounded by the implementation's
	// configured timeout. The caller owns retry policy.
	Connect(ctx context.Context) error

	// Subscribe registers interest in the given topics. Subscribing to an
	// already-subscribed topic is a no-op.
	Subscribe(topics []string) error

	// OnMessage registers the single delivery callback. Must be called
	// before Connect.
	OnMessage(h MessageHandler)

	// OnDisconnect registers the connection-loss callback. Must be called
	// before Connect.
	OnDisconnect(h DisconnectHandler)

	// Disconnect releases the connection and its subscriptions. Idempotent.
	Disconnect()
}
