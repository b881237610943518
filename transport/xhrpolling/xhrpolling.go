// Package xhrpolling provides a socketio.Transport that long-polls the
// handshake origin with plain net/http, the fallback transport used when
// the server does not advertise websocket support (spec §4.3).
//
// Grounded in the teacher's transport_xhrpolling.go (one frame per
// connection, framed with a length-prefixed envelope) adapted to the
// client direction: POST to send, long-lived GET to receive, with the
// framed-datagram wrapper carrying multiple frames per response body
// (spec glossary, "framed datagram").
package xhrpolling

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	socketio "github.com/coinme/socket.io-go-client"
)

// Factory is a socketio.TransportFactory for this transport, suitable for
// Config.TransportFactories["xhr-polling"].
func Factory(origin string, headers http.Header) socketio.Transport {
	return &transport{origin: origin, headers: headers, client: &http.Client{}}
}

type transport struct {
	origin  string
	headers http.Header
	client  *http.Client

	mu     sync.Mutex
	cancel context.CancelFunc
	closed bool
}

func (t *transport) endpointURL(sessionID string) (string, error) {
	u, err := url.Parse(t.origin)
	if err != nil {
		return "", fmt.Errorf("invalid origin: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/socket.io/1/xhr-polling/" + sessionID
	return u.String(), nil
}

func (t *transport) Connect(owner socketio.TransportOwner) error {
	ctx, cancel := context.WithCancel(context.Background())
	t.mu.Lock()
	t.cancel = cancel
	t.mu.Unlock()

	go t.pollLoop(ctx, owner)
	owner.OnTransportConnected()
	return nil
}

// pollLoop issues a fresh long-lived GET as soon as the previous one
// returns, the standard xhr-polling cadence (spec §4.3: "one logical
// connection per request").
func (t *transport) pollLoop(ctx context.Context, owner socketio.TransportOwner) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		u, err := t.endpointURL(t.headers.Get("sessionId"))
		if err != nil {
			owner.OnTransportError(err)
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			owner.OnTransportError(err)
			return
		}
		for k, vs := range t.headers {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, err := t.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			owner.OnTransportError(fmt.Errorf("xhr-polling get: %w", err))
			return
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			owner.OnTransportError(fmt.Errorf("xhr-polling read: %w", err))
			return
		}
		if resp.StatusCode/100 != 2 {
			owner.OnTransportError(fmt.Errorf("xhr-polling get returned status %s", resp.Status))
			return
		}
		if len(body) > 0 {
			owner.OnTransportData(string(body))
		}
	}
}

func (t *transport) post(frame string) error {
	u, err := t.endpointURL(t.headers.Get("sessionId"))
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, u, bytes.NewReader([]byte(frame)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain; charset=UTF-8")
	for k, vs := range t.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("xhr-polling post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("xhr-polling post returned status %s", resp.Status)
	}
	return nil
}

func (t *transport) Send(frame string) error {
	return t.post(frame)
}

// CanSendBulk is true: xhr-polling has no message boundaries of its own,
// so multiple buffered frames are sent as one framed-wrapper envelope in a
// single POST body (spec §4.5, §4.3).
func (t *transport) CanSendBulk() bool { return true }

func (t *transport) SendBulk(frames []string) error {
	return t.post(socketio.WrapFrames(frames))
}

func (t *transport) Disconnect() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	cancel := t.cancel
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (t *transport) Invalidate() {
	t.Disconnect()
}
