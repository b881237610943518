package socketio

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Connection is a single long-lived Socket.IO session: it performs the
// handshake, owns a transport, multiplexes namespace sockets over it, and
// runs the heartbeat/reconnect state machine (spec §2 item 5, the hard
// part). Its mutable state is guarded by mu, the "connection monitor" the
// spec refers to throughout §4–§5, except the send buffer (bufMu, below)
// and the ack table (which carries its own lock).
type Connection struct {
	origin string
	cfg    Config
	reg    *Registry

	mu               sync.Mutex
	state            State
	sessionID        string
	heartbeatTimeout time.Duration
	closingTimeout   time.Duration
	transportNames   []string
	transport        Transport
	namespaces       map[string]*NamespaceSocket
	firstSocket      *NamespaceSocket
	keepaliveQueued  bool
	lastErr          error
	headers          http.Header
	reconnectCount   int

	heartbeatTimer *time.Timer
	reconnectTimer *time.Timer

	acks *ackTable

	// bufMu guards sendBuffer independently of mu so that a goroutine
	// appending a frame mid-flush never has to wait on the same lock the
	// flush itself holds (spec §5, "the send buffer is additionally safe
	// for lock-free append").
	bufMu      sync.Mutex
	sendBuffer []string
}

func newConnection(origin string, cfg Config, reg *Registry) *Connection {
	return &Connection{
		origin:     origin,
		cfg:        cfg.withDefaults(),
		reg:        reg,
		state:      StateInit,
		namespaces: make(map[string]*NamespaceSocket),
		headers:    make(http.Header),
		acks:       newAckTable(),
	}
}

// State returns the current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the server-assigned session id, or "" before handshake.
func (c *Connection) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Stats is a read-only diagnostic snapshot (SPEC_FULL §5).
type Stats struct {
	State          State
	SessionID      string
	ReconnectCount int
	BufferedFrames int
}

// Stats returns a point-in-time snapshot for liveness probes.
func (c *Connection) Stats() Stats {
	c.mu.Lock()
	s := Stats{State: c.state, SessionID: c.sessionID, ReconnectCount: c.reconnectCount}
	c.mu.Unlock()
	c.bufMu.Lock()
	s.BufferedFrames = len(c.sendBuffer)
	c.bufMu.Unlock()
	return s
}

// ---- registration (spec §4.9) ----

// register stores socket under its namespace, refusing if that namespace
// is already taken. The very first successful registration on a freshly
// created connection (state still StateInit) becomes the "first socket"
// and starts the connect worker instead of emitting an explicit CONNECT
// frame — the server's initial, unsolicited CONNECT reply is matched to it
// directly (spec §3 "first socket" slot, §4.7 CONNECT dispatch, scenarios
// S2/S3).
func (c *Connection) register(socket *NamespaceSocket) bool {
	c.mu.Lock()
	if _, exists := c.namespaces[socket.namespace]; exists {
		c.mu.Unlock()
		return false
	}
	c.namespaces[socket.namespace] = socket
	socket.conn = c
	socket.headers = &c.headers
	first := c.state == StateInit && c.firstSocket == nil
	if first {
		c.firstSocket = socket
		c.state = StateHandshake
	}
	c.mu.Unlock()

	if first {
		go c.connectWorker()
	} else {
		_ = c.sendPlain(EncodeMessage(&Message{Type: MessageConnect, Endpoint: socket.namespace}))
	}
	return true
}

// unregister emits a disconnect frame for socket's namespace, removes it,
// fires its OnDisconnect, and cleans the whole connection up once no
// namespace remains (spec §4.9).
func (c *Connection) unregister(socket *NamespaceSocket) {
	c.mu.Lock()
	if _, ok := c.namespaces[socket.namespace]; !ok {
		c.mu.Unlock()
		return
	}
	delete(c.namespaces, socket.namespace)
	empty := len(c.namespaces) == 0
	c.mu.Unlock()

	_ = c.sendPlain(EncodeMessage(&Message{Type: MessageDisconnect, Endpoint: socket.namespace}))
	socket.callback.OnDisconnect()

	if empty {
		c.cleanup()
	}
}

// Reconnect invalidates the current transport and schedules a fresh
// transport-selection attempt after cfg.ReconnectDelay (spec §4.6). The
// core never calls this on its own initiative; callers drive it (e.g. in
// response to a platform network-change notification).
func (c *Connection) Reconnect() error {
	c.mu.Lock()
	if c.state == StateInvalid {
		c.mu.Unlock()
		return newFault("connection is invalid", nil)
	}
	if c.transport != nil {
		c.transport.Invalidate()
	}
	c.setStateLocked(StateInterrupted)
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
	}
	delay := c.cfg.ReconnectDelay
	c.reconnectTimer = time.AfterFunc(delay, c.onReconnectTimer)
	c.mu.Unlock()
	return nil
}

func (c *Connection) onReconnectTimer() {
	c.mu.Lock()
	c.reconnectCount++
	queued := c.keepaliveQueued
	if !queued {
		c.keepaliveQueued = true
	}
	c.mu.Unlock()

	if !queued {
		_ = c.sendPlain(EncodeMessage(&Message{Type: MessageHeartbeat}))
	}

	if err := c.selectAndConnectTransport(); err != nil {
		c.fault("reconnect failed", err)
	}
}

// ---- handshake & transport selection (spec §4.2, §4.3) ----

func (c *Connection) connectWorker() {
	if err := c.handshake(); err != nil {
		c.fault("handshake failed", err)
		return
	}
	c.mu.Lock()
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()
	if err := c.selectAndConnectTransport(); err != nil {
		c.fault("transport connect failed", err)
	}
}

func (c *Connection) handshake() error {
	u, err := url.Parse(c.origin)
	if err != nil {
		return newFault("invalid origin", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/socket.io/1/"

	// The connect and read timeouts bound distinct phases rather than a
	// single combined deadline: DialContext's net.Dialer bounds the TCP
	// connect and TLSHandshakeTimeout the TLS handshake (both with the
	// connect timeout), ResponseHeaderTimeout bounds the wait for the
	// response status line, and the read timer below separately bounds
	// reading the handshake body (spec §2/§6, "connect and read timeouts
	// ... configurable" as independent knobs).
	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: c.cfg.HandshakeConnectTimeout}).DialContext,
		TLSHandshakeTimeout:   c.cfg.HandshakeConnectTimeout,
		ResponseHeaderTimeout: c.cfg.HandshakeReadTimeout,
	}
	if u.Scheme == "https" {
		if tc := getTLSConfig(); tc != nil {
			transport.TLSClientConfig = tc.Clone()
		}
	}
	client := &http.Client{Transport: transport}

	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return newFault("building handshake request", err)
	}
	c.mu.Lock()
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	c.mu.Unlock()

	resp, err := client.Do(req)
	if err != nil {
		return newFault("handshake request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return newFault(fmt.Sprintf("handshake returned status %s", resp.Status), nil)
	}

	readTimer := time.AfterFunc(c.cfg.HandshakeReadTimeout, func() { resp.Body.Close() })
	defer readTimer.Stop()

	line, err := readFirstLine(resp.Body)
	if err != nil {
		return newFault("reading handshake response", err)
	}

	parts := strings.SplitN(line, ":", 4)
	if len(parts) != 4 {
		return newFault("malformed handshake line: "+line, nil)
	}
	heartbeatSec, err := strconv.Atoi(parts[1])
	if err != nil {
		return newFault("malformed handshake heartbeat timeout: "+line, err)
	}
	closeSec, err := strconv.Atoi(parts[2])
	if err != nil {
		return newFault("malformed handshake close timeout: "+line, err)
	}

	c.mu.Lock()
	c.sessionID = parts[0]
	c.heartbeatTimeout = time.Duration(heartbeatSec) * time.Second
	c.closingTimeout = time.Duration(closeSec) * time.Second
	if parts[3] != "" {
		c.transportNames = strings.Split(parts[3], ",")
	}
	c.headers.Set("sessionId", c.sessionID)
	c.mu.Unlock()

	for _, ns := range c.namespacesSnapshot() {
		ns.callback.OnSessionID(parts[0])
	}

	return nil
}

func readFirstLine(r io.Reader) (string, error) {
	buf := make([]byte, 0, 256)
	b := make([]byte, 1)
	for {
		n, err := r.Read(b)
		if n == 1 {
			if b[0] == '\n' {
				break
			}
			buf = append(buf, b[0])
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return "", err
		}
	}
	return strings.TrimRight(string(buf), "\r"), nil
}

// selectAndConnectTransport prefers "websocket", falls back to
// "xhr-polling", else fails (spec §4.3).
func (c *Connection) selectAndConnectTransport() error {
	c.mu.Lock()
	names := c.transportNames
	factories := c.cfg.TransportFactories
	origin := c.origin
	headers := c.headers.Clone()
	c.mu.Unlock()

	name, factory, err := pickTransport(names, factories)
	if err != nil {
		return err
	}

	t := factory(origin, headers)
	c.mu.Lock()
	c.transport = t
	c.mu.Unlock()

	Log.debugf("connection %s: selecting transport %s", origin, name)
	return t.Connect(c)
}

func pickTransport(serverNames []string, factories map[string]TransportFactory) (string, TransportFactory, error) {
	preferred := []string{"websocket", "xhr-polling"}
	advertised := make(map[string]bool, len(serverNames))
	for _, n := range serverNames {
		advertised[strings.TrimSpace(n)] = true
	}
	for _, name := range preferred {
		if !advertised[name] {
			continue
		}
		if f, ok := factories[name]; ok {
			return name, f, nil
		}
	}
	return "", nil, newFault("server supports no available transports", nil)
}

func (c *Connection) namespacesSnapshot() []*NamespaceSocket {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*NamespaceSocket, 0, len(c.namespaces))
	for _, ns := range c.namespaces {
		out = append(out, ns)
	}
	return out
}

// ---- state machine (spec §4.4) ----

// setStateLocked must be called with mu held. It is a no-op once the
// connection is INVALID (terminal absorption, spec §3).
func (c *Connection) setStateLocked(s State) {
	if c.state == StateInvalid {
		return
	}
	c.state = s
	sockets := make([]*NamespaceSocket, 0, len(c.namespaces))
	for _, ns := range c.namespaces {
		sockets = append(sockets, ns)
	}
	for _, ns := range sockets {
		cb := ns.callback
		go cb.OnState(s)
	}
}

// ---- transport upcalls (spec §4.3, §4.4) ----

func (c *Connection) OnTransportConnected() {
	c.mu.Lock()
	c.setStateLocked(StateReady)
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
	}
	c.keepaliveQueued = false
	c.mu.Unlock()

	c.resetHeartbeatTimeout()
	c.flush()
}

func (c *Connection) OnTransportDisconnected() {
	c.mu.Lock()
	c.setStateLocked(StateInterrupted)
	c.mu.Unlock()
}

func (c *Connection) OnTransportError(cause error) {
	c.mu.Lock()
	c.lastErr = cause
	c.setStateLocked(StateInterrupted)
	c.mu.Unlock()
}

func (c *Connection) OnTransportData(text string) {
	frames, err := UnwrapFrames(text)
	if err != nil {
		c.fault("garbage from server", err)
		return
	}
	for _, f := range frames {
		c.OnTransportMessage(f)
	}
}

func (c *Connection) OnTransportMessage(text string) {
	c.resetHeartbeatTimeout()

	msg, err := DecodeMessage(text)
	if err != nil {
		c.fault("garbage from server", err)
		return
	}
	c.dispatchSafe(msg)
}

// ---- heartbeat (spec §4.4) ----

func (c *Connection) resetHeartbeatTimeout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateInvalid {
		return
	}
	if c.heartbeatTimer != nil {
		c.heartbeatTimer.Stop()
	}
	timeout := c.closingTimeout + c.heartbeatTimeout
	if timeout <= 0 {
		return
	}
	c.heartbeatTimer = time.AfterFunc(timeout, c.onHeartbeatTimeout)
}

func (c *Connection) onHeartbeatTimeout() {
	c.fault("no heartbeat within lifetime", nil)
}

// ---- send path (spec §4.5) ----

// sendPlain is the single internal send primitive. Once INVALID it drops
// the frame and returns an error. If READY, it hands the frame straight to
// the transport; otherwise (or on transport failure) it appends to the
// buffer (spec §4.5).
func (c *Connection) sendPlain(frame string) error {
	c.mu.Lock()
	ready := c.state == StateReady
	invalid := c.state == StateInvalid
	t := c.transport
	c.mu.Unlock()

	if invalid {
		return newFault("connection is invalid", nil)
	}

	if ready && t != nil {
		if err := t.Send(frame); err != nil {
			c.appendBuffer(frame)
			return nil
		}
		return nil
	}

	c.appendBuffer(frame)
	return nil
}

func (c *Connection) appendBuffer(frame string) {
	c.bufMu.Lock()
	c.sendBuffer = append(c.sendBuffer, frame)
	c.bufMu.Unlock()
}

// flush drains the send buffer once the transport becomes READY (spec
// §4.5). If the transport can send bulk, the buffer is swapped out
// atomically and sent as one unit; on failure it is restored, with any
// frames appended during the flush landing at the tail rather than
// perfectly interleaved (spec §9, "bulk-flush restore race" — documented,
// not fixed).
func (c *Connection) flush() {
	c.mu.Lock()
	t := c.transport
	c.mu.Unlock()
	if t == nil {
		return
	}

	if t.CanSendBulk() {
		c.bufMu.Lock()
		frames := c.sendBuffer
		c.sendBuffer = nil
		c.bufMu.Unlock()

		if len(frames) == 0 {
			return
		}
		if err := t.SendBulk(frames); err != nil {
			c.bufMu.Lock()
			c.sendBuffer = append(frames, c.sendBuffer...)
			c.bufMu.Unlock()
		}
		return
	}

	for {
		c.bufMu.Lock()
		if len(c.sendBuffer) == 0 {
			c.bufMu.Unlock()
			return
		}
		frame := c.sendBuffer[0]
		c.sendBuffer = c.sendBuffer[1:]
		c.bufMu.Unlock()

		if err := t.Send(frame); err != nil {
			c.appendBuffer(frame)
			return
		}
	}
}

// ---- faults & cleanup (spec §7, §4.10) ----

func (c *Connection) fault(message string, cause error) {
	err := newFault(message, cause)
	Log.warnf("connection %s: %s", c.origin, err.Error())
	for _, ns := range c.namespacesSnapshot() {
		c.invokeOnError(ns, err)
	}
	c.cleanup()
}

func (c *Connection) invokeOnError(ns *NamespaceSocket, err error) {
	defer c.recoverCallback()
	ns.callback.OnError(err)
}

func (c *Connection) recoverCallback() {
	if r := recover(); r != nil {
		Log.warnf("connection %s: callback panic: %v", c.origin, r)
	}
}

// cleanup is idempotent: it moves the connection to INVALID, tears down
// the transport and timers, clears the namespace table, and removes itself
// from the registry (spec §4.10).
func (c *Connection) cleanup() {
	c.mu.Lock()
	if c.state == StateInvalid {
		c.mu.Unlock()
		return
	}
	c.state = StateInvalid
	t := c.transport
	c.transport = nil
	if c.heartbeatTimer != nil {
		c.heartbeatTimer.Stop()
	}
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
	}
	c.namespaces = make(map[string]*NamespaceSocket)
	c.mu.Unlock()

	if t != nil {
		t.Disconnect()
	}
	if c.reg != nil {
		c.reg.removeConnection(c.origin, c)
	}
}

var _ TransportOwner = (*Connection)(nil)
