package socketio

import "net/http"

// Callback is the contract a namespace socket (or the connection's own
// aggregating sink) implements to receive dispatch from a Connection (spec
// §6, "Namespace socket callback contract").
type Callback interface {
	OnConnect()
	OnDisconnect()
	OnMessage(data string, ack *Ack)
	OnMessageJSON(data interface{}, ack *Ack)
	OnEvent(name string, ack *Ack, args []interface{})
	OnError(err error)
	OnSessionID(sessionID string)
	OnState(state State)
}

// NamespaceSocket is the user-facing handle for one multiplexed channel.
// It is created by user code and handed to Register; the empty namespace
// string denotes the default namespace (spec §3).
type NamespaceSocket struct {
	namespace string
	callback  Callback
	headers   *http.Header
	conn      *Connection
}

// NewNamespaceSocket creates a socket for namespace (use "" for the
// default namespace) that dispatches to cb.
func NewNamespaceSocket(namespace string, cb Callback) *NamespaceSocket {
	return &NamespaceSocket{namespace: namespace, callback: cb}
}

// Namespace returns the namespace string this socket was created with.
func (s *NamespaceSocket) Namespace() string {
	return s.namespace
}

// Headers returns the per-connection request headers this socket's
// connection is using, or nil if it has not been registered yet. Socket.IO
// injects the "sessionId" header into this map after handshake (spec §6).
func (s *NamespaceSocket) Headers() http.Header {
	if s.headers == nil {
		return nil
	}
	return *s.headers
}

// Emit sends an EVENT frame. If ack is non-nil, it is stored and invoked
// with the server's positional reply arguments when the server acks (spec
// §4.8, scenario S5).
func (s *NamespaceSocket) Emit(name string, ack func([]interface{}), args ...interface{}) error {
	return s.conn.sendEvent(s.namespace, name, args, ack)
}

// Send sends a plain-text MESSAGE frame.
func (s *NamespaceSocket) Send(data string, ack func([]interface{})) error {
	return s.conn.sendData(s.namespace, MessageMessage, data, ack)
}

// SendJSON sends a JSON_MESSAGE frame, JSON-encoding data with the
// connection's configured Codec.
func (s *NamespaceSocket) SendJSON(data interface{}, ack func([]interface{})) error {
	encoded, err := s.conn.cfg.Codec.Marshal(data)
	if err != nil {
		return newFault("failed to encode json message", err)
	}
	return s.conn.sendData(s.namespace, MessageJSON, string(encoded), ack)
}

// Reconnect delegates to the owning Connection's Reconnect.
func (s *NamespaceSocket) Reconnect() error {
	return s.conn.Reconnect()
}

// Close unregisters this socket from its connection (spec §4.9).
func (s *NamespaceSocket) Close() {
	s.conn.unregister(s)
}
