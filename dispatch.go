package socketio

import "strings"

// dispatchSafe runs dispatch and turns any callback panic into a fault
// instead of letting it escape onto the transport's goroutine (spec §4.7,
// "callback exceptions never propagate").
func (c *Connection) dispatchSafe(msg *Message) {
	defer func() {
		if r := recover(); r != nil {
			c.fault("callback panic", nil)
			Log.warnf("connection %s: recovered dispatch panic: %v", c.origin, r)
		}
	}()
	c.dispatch(msg)
}

// callbackFor resolves the target Callback for an inbound frame's
// endpoint: the empty endpoint dispatches to the connection's own
// aggregating sink, which fans out to every namespace unconditionally;
// any other endpoint dispatches to that namespace's socket only (spec
// §4.7, §9 open question — resolved as "fan out unconditionally").
func (c *Connection) callbackFor(endpoint string) (Callback, bool) {
	if endpoint == "" {
		return connAggregate{c}, true
	}
	c.mu.Lock()
	ns, ok := c.namespaces[endpoint]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}
	return ns.callback, true
}

func (c *Connection) dispatch(msg *Message) {
	switch msg.Type {
	case MessageDisconnect:
		c.dispatchDisconnect(msg)
	case MessageConnect:
		c.dispatchConnect(msg)
	case MessageHeartbeat:
		_ = c.sendPlain(EncodeMessage(&Message{Type: MessageHeartbeat}))
	case MessageMessage:
		cb, ok := c.callbackFor(msg.Endpoint)
		if !ok {
			c.fault("no socket registered for namespace "+msg.Endpoint, nil)
			return
		}
		cb.OnMessage(msg.Data, c.ackFor(msg))
	case MessageJSON:
		cb, ok := c.callbackFor(msg.Endpoint)
		if !ok {
			c.fault("no socket registered for namespace "+msg.Endpoint, nil)
			return
		}
		var v interface{}
		if msg.Data != "null" && msg.Data != "" {
			if err := c.cfg.Codec.Unmarshal([]byte(msg.Data), &v); err != nil {
				c.fault("malformed json message", err)
				return
			}
		}
		cb.OnMessageJSON(v, c.ackFor(msg))
	case MessageEvent:
		c.dispatchEvent(msg)
	case MessageACK:
		c.dispatchACK(msg)
	case MessageError:
		c.dispatchError(msg)
	case MessageNOOP:
		// ignored (spec §4.7, §7)
	default:
		Log.warnf("connection %s: unknown message type %d", c.origin, msg.Type)
	}
}

// dispatchDisconnect delivers a server-initiated DISCONNECT to its target
// namespace and, like dispatchError, cleans up the whole connection when
// the payload carries the "+0" disconnect-advice suffix (spec §3
// Lifecycle, §4.4).
func (c *Connection) dispatchDisconnect(msg *Message) {
	cb, ok := c.callbackFor(msg.Endpoint)
	if ok {
		cb.OnDisconnect()
	}
	if strings.HasSuffix(msg.Data, "+0") {
		c.cleanup()
	}
}

// dispatchConnect implements the first-socket short-circuit from spec §4.7
// and scenarios S2/S3: the server's unsolicited initial CONNECT (always on
// the default namespace) is matched to the first socket directly if it is
// itself on the default namespace; if the first socket is on a non-default
// namespace, that initial CONNECT instead triggers an explicit CONNECT
// request for it, and only the reply to that request fires OnConnect.
func (c *Connection) dispatchConnect(msg *Message) {
	c.mu.Lock()
	fs := c.firstSocket
	c.mu.Unlock()

	if fs != nil {
		switch {
		case msg.Endpoint == "" && fs.namespace == "":
			c.clearFirstSocket()
			fs.callback.OnConnect()
			return
		case msg.Endpoint == "" && fs.namespace != "":
			_ = c.sendPlain(EncodeMessage(&Message{Type: MessageConnect, Endpoint: fs.namespace}))
			return
		case msg.Endpoint == fs.namespace:
			c.clearFirstSocket()
			fs.callback.OnConnect()
			return
		}
	}

	cb, ok := c.callbackFor(msg.Endpoint)
	if !ok {
		c.fault("no socket registered for namespace "+msg.Endpoint, nil)
		return
	}
	cb.OnConnect()
}

func (c *Connection) clearFirstSocket() {
	c.mu.Lock()
	c.firstSocket = nil
	c.mu.Unlock()
}

func (c *Connection) dispatchEvent(msg *Message) {
	cb, ok := c.callbackFor(msg.Endpoint)
	if !ok {
		c.fault("no socket registered for namespace "+msg.Endpoint, nil)
		return
	}
	var e event
	if msg.Data != "" {
		if err := c.cfg.Codec.Unmarshal([]byte(msg.Data), &e); err != nil {
			c.fault("malformed event payload", err)
			return
		}
	}
	cb.OnEvent(e.Name, c.ackFor(msg), e.Args)
}

// ackFor builds the remote-ack handle for an inbound frame, normalizing a
// server-omitted "+" the way spec §4.8 requires: the handle is live
// whenever an id is present at all, whether or not the frame carried the
// "+", and Ack.Send always writes the id followed by "+". Without an id the
// handle is a zero Ack, whose Send is a no-op.
func (c *Connection) ackFor(msg *Message) *Ack {
	if msg.ID == "" {
		return &Ack{}
	}
	return &Ack{conn: c, endpoint: msg.Endpoint, id: msg.ID}
}

// dispatchACK handles an inbound ACK for a local ack this client
// previously requested (spec §4.8, scenario S5). A missing id is logged
// and discarded; a missing data half (id with no payload) causes a bare
// ack echo (spec §4.7).
func (c *Connection) dispatchACK(msg *Message) {
	id, rawArgs, hasPayload := strings.Cut(msg.Data, "+")
	if id == "" {
		Log.warnf("connection %s: ack frame missing id: %s", c.origin, msg.Data)
		return
	}

	if !hasPayload {
		_ = c.sendPlain(EncodeMessage(&Message{Type: MessageACK, Data: id}))
		return
	}

	cb, ok := c.acks.take(id)
	if !ok {
		Log.warnf("connection %s: unknown ack id %s", c.origin, id)
		return
	}

	var args []interface{}
	if rawArgs != "" {
		if err := c.cfg.Codec.Unmarshal([]byte(rawArgs), &args); err != nil {
			c.fault("malformed ack payload", err)
			return
		}
	}
	cb(args)
}

// dispatchError handles an inbound ERROR frame, cleaning up on the server's
// disconnect advisory ("+0" suffix, spec §3 glossary, §4.7).
func (c *Connection) dispatchError(msg *Message) {
	err := newFault(msg.Data, nil)
	for _, ns := range c.namespacesSnapshot() {
		c.invokeOnError(ns, err)
	}
	if strings.HasSuffix(msg.Data, "+0") {
		c.cleanup()
	}
}

// connAggregate is the connection's own Callback implementation: it fans
// out every call to all registered namespace sockets (spec §9, "callback
// fan-out without inheritance" — modeled as a second Callback
// implementation rather than subclassing).
type connAggregate struct {
	c *Connection
}

func (a connAggregate) OnConnect() {
	for _, ns := range a.c.namespacesSnapshot() {
		ns.callback.OnConnect()
	}
}

func (a connAggregate) OnDisconnect() {
	for _, ns := range a.c.namespacesSnapshot() {
		ns.callback.OnDisconnect()
	}
}

func (a connAggregate) OnMessage(data string, ack *Ack) {
	for _, ns := range a.c.namespacesSnapshot() {
		ns.callback.OnMessage(data, ack)
	}
}

func (a connAggregate) OnMessageJSON(data interface{}, ack *Ack) {
	for _, ns := range a.c.namespacesSnapshot() {
		ns.callback.OnMessageJSON(data, ack)
	}
}

func (a connAggregate) OnEvent(name string, ack *Ack, args []interface{}) {
	for _, ns := range a.c.namespacesSnapshot() {
		ns.callback.OnEvent(name, ack, args)
	}
}

func (a connAggregate) OnError(err error) {
	for _, ns := range a.c.namespacesSnapshot() {
		ns.callback.OnError(err)
	}
}

func (a connAggregate) OnSessionID(sessionID string) {
	for _, ns := range a.c.namespacesSnapshot() {
		ns.callback.OnSessionID(sessionID)
	}
}

func (a connAggregate) OnState(state State) {
	for _, ns := range a.c.namespacesSnapshot() {
		ns.callback.OnState(state)
	}
}

var _ Callback = connAggregate{}
