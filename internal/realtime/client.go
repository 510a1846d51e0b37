package realtime

import "fanlink/backend/internal/models"

// Client is the interface for one authenticated persistent connection. It
// abstracts the transport so the hub and the gateway can manage connections
// uniformly (production uses WebSockets, tests use in-memory doubles).
type Client interface {
	// Session returns the per-connection context built at handshake time.
	Session() *models.Session

	// SendChannel returns the channel through which the hub delivers
	// outbound events to this connection. It is a send-only channel.
	SendChannel() chan<- models.Event

	// Run starts the connection's read and write pumps.
	Run()
	// Close shuts down the outbound channel and, with it, the write pump.
	Close()
}
