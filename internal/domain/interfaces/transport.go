package interfaces

// Transport carries JSON-encoded frames between the two peers of a run.
// It makes no ordering promise beyond what the underlying channel gives.
type Transport interface {
	// Send transmits one encoded frame. A live transport returns
	// types.ErrNotConnected while its link is down (the caller may retry);
	// types.ErrTransportClosed is permanent.
	Send(frame []byte) error
	// OnMessage registers fn for every inbound frame and returns a function
	// that removes the registration.
	OnMessage(fn func(frame []byte)) (unsubscribe func())
	// Close releases the transport.
	Close() error
}

// LinkNotifier is implemented by transports whose link must be "up" before
// frames can flow, such as a direct peer-to-peer channel.
type LinkNotifier interface {
	Connected() bool
	OnUp(fn func()) (unsubscribe func())
	OnDown(fn func()) (unsubscribe func())
}

// CloseNotifier is implemented by transports that can report the remote end
// going away for good.
type CloseNotifier interface {
	OnClose(fn func(err error)) (unsubscribe func())
}
