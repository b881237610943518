package socketio

import "testing"

// setReady installs ft as the transport and marks the connection READY,
// the state dispatch assumes once handshake/transport-connect already ran.
func setReady(c *Connection, ft *fakeTransport) {
	c.mu.Lock()
	c.transport = ft
	c.state = StateReady
	c.mu.Unlock()
}

func TestDispatchFirstSocketDefaultNamespaceShortCircuit(t *testing.T) {
	// spec S2: first socket on the default namespace gets no explicit
	// outbound CONNECT and fires OnConnect on the server's unsolicited 1::.
	c := newTestConnection()
	cb := &recordingCallback{}
	ns := NewNamespaceSocket("", cb)
	c.mu.Lock()
	c.namespaces[ns.namespace] = ns
	c.firstSocket = ns
	c.state = StateConnecting
	c.mu.Unlock()
	ns.conn = c

	ft := &fakeTransport{}
	setReady(c, ft)

	c.dispatch(&Message{Type: MessageConnect})

	if cb.connected != 1 {
		t.Errorf("OnConnect fired %d times, want 1", cb.connected)
	}
	ft.mu.Lock()
	sent := ft.sent
	ft.mu.Unlock()
	if len(sent) != 0 {
		t.Errorf("expected no explicit CONNECT frame sent, got %v", sent)
	}
}

func TestDispatchFirstSocketNonDefaultNamespace(t *testing.T) {
	// spec S3: first socket on /chat; the server's default-namespace 1::
	// triggers an explicit 1::/chat, and only its reply fires OnConnect.
	c := newTestConnection()
	cb := &recordingCallback{}
	ns := NewNamespaceSocket("/chat", cb)
	c.mu.Lock()
	c.namespaces[ns.namespace] = ns
	c.firstSocket = ns
	c.state = StateConnecting
	c.mu.Unlock()
	ns.conn = c

	ft := &fakeTransport{}
	setReady(c, ft)

	c.dispatch(&Message{Type: MessageConnect})
	if cb.connected != 0 {
		t.Fatalf("OnConnect fired before reply, want 0 got %d", cb.connected)
	}
	ft.mu.Lock()
	sent := append([]string(nil), ft.sent...)
	ft.mu.Unlock()
	if len(sent) != 1 || sent[0] != "1::/chat" {
		t.Fatalf("expected explicit 1::/chat request, got %v", sent)
	}

	c.dispatch(&Message{Type: MessageConnect, Endpoint: "/chat"})
	if cb.connected != 1 {
		t.Errorf("OnConnect fired %d times after reply, want 1", cb.connected)
	}
}

func TestDispatchEventWithAck(t *testing.T) {
	// spec S4: inbound 5:42+:/chat:{"name":"ping","args":[1,"x"]} invokes
	// the callback with a live Ack; invoking it sends 6::/chat:42+[true].
	c := newTestConnection()
	cb := &recordingCallback{}
	ns := NewNamespaceSocket("/chat", cb)
	c.namespaces[ns.namespace] = ns
	ns.conn = c

	ft := &fakeTransport{}
	setReady(c, ft)

	var gotName string
	var gotArgs []interface{}
	var gotAck *Ack
	cb2 := &captureEventCallback{recordingCallback: cb, onEvent: func(name string, ack *Ack, args []interface{}) {
		gotName, gotArgs, gotAck = name, args, ack
	}}
	ns.callback = cb2

	c.dispatch(&Message{Type: MessageEvent, ID: "42", AckWanted: true, Endpoint: "/chat",
		Data: `{"name":"ping","args":[1,"x"]}`})

	if gotName != "ping" {
		t.Fatalf("event name = %q, want ping", gotName)
	}
	if len(gotArgs) != 2 {
		t.Fatalf("event args = %v, want 2 elements", gotArgs)
	}
	if !gotAck.Wanted() {
		t.Fatal("ack should be wanted")
	}

	if err := gotAck.Send(true); err != nil {
		t.Fatalf("Ack.Send: %v", err)
	}
	ft.mu.Lock()
	sent := append([]string(nil), ft.sent...)
	ft.mu.Unlock()
	if len(sent) != 1 || sent[0] != "6::/chat:42+[true]" {
		t.Errorf("ack frame = %v, want [6::/chat:42+[true]]", sent)
	}
}

type captureEventCallback struct {
	*recordingCallback
	onEvent func(name string, ack *Ack, args []interface{})
}

func (c *captureEventCallback) OnEvent(name string, ack *Ack, args []interface{}) {
	c.onEvent(name, ack, args)
}

func TestDispatchClientAckRequest(t *testing.T) {
	// spec S5: emit("hello", ack, "world") with no prior acks produces
	// 5:1+:<ns>:{...} (here 5:1+::{...}, <ns> being the default namespace);
	// server reply 6:::1+[42] invokes the stored ack.
	c := newTestConnection()
	cb := &recordingCallback{}
	ns := NewNamespaceSocket("", cb)
	c.namespaces[ns.namespace] = ns
	ns.conn = c

	ft := &fakeTransport{}
	setReady(c, ft)

	var gotArgs []interface{}
	if err := ns.Emit("hello", func(args []interface{}) { gotArgs = args }, "world"); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	ft.mu.Lock()
	sent := append([]string(nil), ft.sent...)
	ft.mu.Unlock()
	if len(sent) != 1 || sent[0] != `5:1+::{"name":"hello","args":["world"]}` {
		t.Fatalf("sent frames = %v", sent)
	}

	c.dispatch(&Message{Type: MessageACK, Data: "1+[42]"})

	if len(gotArgs) != 1 || gotArgs[0] != float64(42) {
		t.Errorf("ack callback args = %v, want [42]", gotArgs)
	}

	if _, ok := c.acks.take("1"); ok {
		t.Error("ack should have been removed from the table after firing")
	}
}

func TestDispatchDisconnectAdvisoryInvalidates(t *testing.T) {
	// spec S6: inbound 7:::msg+0 fires one OnError per namespace and
	// cleans up; subsequent sends are dropped.
	c := newTestConnection()
	cb1 := &recordingCallback{}
	cb2 := &recordingCallback{}
	ns1 := NewNamespaceSocket("", cb1)
	ns2 := NewNamespaceSocket("/chat", cb2)
	c.namespaces[ns1.namespace] = ns1
	c.namespaces[ns2.namespace] = ns2
	ns1.conn, ns2.conn = c, c

	ft := &fakeTransport{}
	setReady(c, ft)

	c.dispatch(&Message{Type: MessageError, Data: "msg+0"})

	if cb1.errCount() != 1 || cb2.errCount() != 1 {
		t.Fatalf("expected exactly one OnError per namespace, got %d and %d", cb1.errCount(), cb2.errCount())
	}
	if c.State() != StateInvalid {
		t.Fatalf("State() = %v, want invalid", c.State())
	}
	if err := c.sendPlain("3:::too late"); err == nil {
		t.Error("sendPlain after disconnect advisory should fail")
	}
}

func TestDispatchDisconnectFrameWithAdviceInvalidates(t *testing.T) {
	// spec §3 Lifecycle, §4.4: a server DISCONNECT frame itself, not just
	// an ERROR frame, invalidates the connection when its payload carries
	// the "+0" disconnect-advice suffix.
	c := newTestConnection()
	cb := &recordingCallback{}
	ns := NewNamespaceSocket("", cb)
	c.namespaces[ns.namespace] = ns
	ns.conn = c

	ft := &fakeTransport{}
	setReady(c, ft)

	c.dispatch(&Message{Type: MessageDisconnect, Data: "+0"})

	if cb.disconnectCount() != 1 {
		t.Errorf("OnDisconnect fired %d times, want 1", cb.disconnectCount())
	}
	if c.State() != StateInvalid {
		t.Fatalf("State() = %v, want invalid", c.State())
	}
	if err := c.sendPlain("3:::too late"); err == nil {
		t.Error("sendPlain after a DISCONNECT+advice frame should fail")
	}
}

func TestDispatchDisconnectFrameWithoutAdviceDoesNotInvalidate(t *testing.T) {
	// a plain per-namespace DISCONNECT (no "+0") must not tear down the
	// whole connection.
	c := newTestConnection()
	cb := &recordingCallback{}
	ns := NewNamespaceSocket("/chat", cb)
	c.namespaces[ns.namespace] = ns
	ns.conn = c

	ft := &fakeTransport{}
	setReady(c, ft)

	c.dispatch(&Message{Type: MessageDisconnect, Endpoint: "/chat"})

	if cb.disconnectCount() != 1 {
		t.Errorf("OnDisconnect fired %d times, want 1", cb.disconnectCount())
	}
	if c.State() != StateReady {
		t.Errorf("State() = %v, want ready (no advice suffix, no cleanup)", c.State())
	}
}
