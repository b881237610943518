package socketio

import "net/http"

// Transport is the contract Connection consumes from a concrete transport
// implementation (spec §1, §4.3, §6). The two reference transports
// (transport/websocket, transport/xhrpolling) are external collaborators —
// the core treats any Transport the same way.
type Transport interface {
	// Connect dials the transport and begins delivering upcalls to owner.
	// It must not block past the underlying I/O connect; ongoing delivery
	// happens on transport-owned goroutines.
	Connect(owner TransportOwner) error

	// Disconnect closes the transport gracefully (sends a disconnect frame
	// first where the transport supports it).
	Disconnect()

	// Invalidate closes the transport immediately, without a graceful
	// disconnect. Used by Connection.Reconnect (spec §4.6).
	Invalidate()

	// Send writes a single already-encoded frame.
	Send(frame string) error

	// CanSendBulk reports whether SendBulk is implemented and preferred.
	CanSendBulk() bool

	// SendBulk writes multiple already-encoded frames as one unit (e.g.
	// wrapped in the framed-datagram envelope for long-poll). Only called
	// when CanSendBulk reports true.
	SendBulk(frames []string) error
}

// TransportOwner is the fixed set of upcalls a Transport makes into the
// core that owns it (spec §4.3, §6). Connection implements this interface;
// the transport holds it as a non-owning back-reference (spec §9,
// "self-referential lifetime"). The methods are exported so that
// out-of-package transports (transport/websocket, transport/xhrpolling)
// can call them.
type TransportOwner interface {
	// OnTransportConnected signals that the underlying I/O connection is up.
	OnTransportConnected()

	// OnTransportData delivers a raw chunk that may still need framed-
	// wrapper unwrapping (used by transports without message boundaries).
	OnTransportData(text string)

	// OnTransportMessage delivers a single, already-unwrapped frame.
	OnTransportMessage(text string)

	// OnTransportDisconnected signals a clean transport-initiated close.
	OnTransportDisconnected()

	// OnTransportError signals a transport fault; the transport is assumed
	// dead after calling this.
	OnTransportError(cause error)
}

// TransportFactory constructs a Transport bound to origin and headers; the
// owner it reports to is passed later, to Connect. Implementations live in
// transport/websocket and
// transport/xhrpolling; Connection looks one up by name after handshake
// (spec §4.3).
type TransportFactory func(origin string, headers http.Header) Transport
