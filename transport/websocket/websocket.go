// Package websocket provides a socketio.Transport over a persistent
// Gorilla websocket connection, the preferred transport whenever the
// server advertises it (spec §4.3).
//
// Grounded in the teacher's client.go Dial/Receive loop (plain
// golang.org/x/net/websocket, pre-Go1) and in the retrieval pack's
// gorilla/websocket usage pattern (other_examples' go-iex transport:
// a read-loop goroutine pushing frames to the owner, writes serialized
// behind a mutex).
package websocket

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	socketio "github.com/coinme/socket.io-go-client"
)

// Factory is a socketio.TransportFactory for this transport, suitable for
// Config.TransportFactories["websocket"].
func Factory(origin string, headers http.Header) socketio.Transport {
	return &transport{origin: origin, headers: headers}
}

type transport struct {
	origin  string
	headers http.Header

	writeMu sync.Mutex
	conn    *websocket.Conn

	closeOnce sync.Once
}

func (t *transport) Connect(owner socketio.TransportOwner) error {
	u, err := dialURL(t.origin, t.headers.Get("sessionId"))
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{TLSClientConfig: socketio.TLSConfig()}
	conn, _, err := dialer.Dial(u, t.headers)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	t.conn = conn

	go t.readLoop(owner)
	owner.OnTransportConnected()
	return nil
}

// dialURL rewrites an http(s):// origin into the ws(s)://.../socket.io/1/
// websocket/<sessionId> URL the server expects (spec §4.3; grounded in the
// teacher's client.go Dial, "wsurl := \"ws\" + url_[4:]").
func dialURL(origin, sessionID string) (string, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("invalid origin: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/socket.io/1/websocket/" + sessionID
	return u.String(), nil
}

func (t *transport) readLoop(owner socketio.TransportOwner) {
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			owner.OnTransportError(fmt.Errorf("websocket read: %w", err))
			return
		}
		owner.OnTransportMessage(string(data))
	}
}

func (t *transport) Send(frame string) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if t.conn == nil {
		return fmt.Errorf("websocket: not connected")
	}
	return t.conn.WriteMessage(websocket.TextMessage, []byte(frame))
}

// CanSendBulk is false: the websocket transport has message boundaries, so
// each frame is its own message rather than a framed-wrapper envelope
// (spec §4.3, glossary "framed datagram": "used over transports without
// native message boundaries").
func (t *transport) CanSendBulk() bool { return false }

func (t *transport) SendBulk(frames []string) error {
	for _, f := range frames {
		if err := t.Send(f); err != nil {
			return err
		}
	}
	return nil
}

func (t *transport) Disconnect() {
	t.closeOnce.Do(func() {
		t.writeMu.Lock()
		if t.conn != nil {
			_ = t.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		}
		t.writeMu.Unlock()
		t.Invalidate()
	})
}

func (t *transport) Invalidate() {
	if t.conn != nil {
		_ = t.conn.Close()
	}
}
