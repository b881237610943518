package socketio

import (
	"strconv"
	"sync"
)

// ackTable holds this client's outstanding local acks, keyed by the id the
// client itself allocated when it asked the server for one (spec §3, §4.8).
// Ids are strictly increasing within a connection's lifetime.
type ackTable struct {
	mu     sync.Mutex
	nextID int
	funcs  map[int]func([]interface{})
}

func newAckTable() *ackTable {
	return &ackTable{nextID: 1, funcs: make(map[int]func([]interface{}))}
}

// register allocates the next id, stores cb under it, and returns the id as
// a string ready to go into Message.ID.
func (t *ackTable) register(cb func([]interface{})) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	t.funcs[id] = cb
	return strconv.Itoa(id)
}

// take removes and returns the callback for id, if any.
func (t *ackTable) take(id string) (func([]interface{}), bool) {
	n, err := strconv.Atoi(id)
	if err != nil {
		return nil, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	cb, ok := t.funcs[n]
	if ok {
		delete(t.funcs, n)
	}
	return cb, ok
}

// Ack is the remote-ack handle delivered alongside an inbound MESSAGE,
// JSON_MESSAGE or EVENT frame that carried a non-empty id (spec §4.8). The
// handler invokes it with positional reply arguments; invoking it emits a
// MessageACK frame. A zero-value Ack's Send is a no-op, so a handler can be
// invoked uniformly whether or not the server actually asked for an ack.
type Ack struct {
	conn     *Connection
	endpoint string
	id       string
}

// Wanted reports whether the peer actually asked for an ack (a zero Ack
// still exists so dispatch never has to pass a nil interface).
func (a *Ack) Wanted() bool {
	return a != nil && a.id != ""
}

// Send emits the ACK frame "6::<endpoint>:<id>+<jsonArgs>" with args JSON
// encoded as a positional array. It is a no-op if the server did not
// request an ack for this message.
func (a *Ack) Send(args ...interface{}) error {
	if !a.Wanted() {
		return nil
	}
	data, err := a.conn.cfg.Codec.Marshal(args)
	if err != nil {
		return newFault("failed to encode ack args", err)
	}
	frame := EncodeMessage(&Message{
		Type:     MessageACK,
		Endpoint: a.endpoint,
		Data:     a.id + "+" + string(data),
	})
	return a.conn.sendPlain(frame)
}
