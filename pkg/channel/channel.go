package channel

import "errors"

// ErrNotConnected is returned when publishing without an open connection.
var ErrNotConnected = errors.New("channel is not connected")

// MessageHandler receives the raw payload of a message on a subscribed topic.
type MessageHandler = func(payload []byte)

// Channel is a long-lived publish/subscribe connection.
type Channel interface {
	// Activate starts connecting in the background. Connection failures are
	// retried after a fixed delay until Deactivate.
	Activate() error
	// Deactivate closes the connection and stops reconnecting.
	Deactivate() error
	// Connected reports whether a connection is currently open.
	Connected() bool
	// Publish sends payload to destination. It fails with ErrNotConnected
	// when no connection is open.
	Publish(destination string, payload []byte) error
	// Subscribe registers handler for topic. Subscriptions are re-established
	// on every reconnect and may be registered before Activate.
	Subscribe(topic string, handler MessageHandler) error
}
