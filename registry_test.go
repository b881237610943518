package socketio

import (
	"sync"
	"testing"
)

type noopCallback struct{}

func (noopCallback) OnConnect()                                    {}
func (noopCallback) OnDisconnect()                                 {}
func (noopCallback) OnMessage(data string, ack *Ack)                {}
func (noopCallback) OnMessageJSON(data interface{}, ack *Ack)       {}
func (noopCallback) OnEvent(name string, ack *Ack, args []interface{}) {}
func (noopCallback) OnError(err error)                              {}
func (noopCallback) OnSessionID(sessionID string)                   {}
func (noopCallback) OnState(state State)                            {}

var _ Callback = noopCallback{}

func TestRegistryDedupSameOrigin(t *testing.T) {
	reg := NewRegistry(DefaultConfig)

	s1 := NewNamespaceSocket("", noopCallback{})
	s2 := NewNamespaceSocket("/chat", noopCallback{})

	c1 := reg.Register("http://example.test", s1)
	c2 := reg.Register("http://example.test", s2)

	if c1 != c2 {
		t.Error("distinct namespaces on the same origin should share one Connection")
	}

	conns := reg.Connections("http://example.test")
	if len(conns) != 1 {
		t.Errorf("Connections() = %d entries, want 1", len(conns))
	}
}

func TestRegistrySameNamespaceTwiceGetsDistinctConnection(t *testing.T) {
	reg := NewRegistry(DefaultConfig)

	s1 := NewNamespaceSocket("/chat", noopCallback{})
	s2 := NewNamespaceSocket("/chat", noopCallback{})

	c1 := reg.Register("http://example.test", s1)
	c2 := reg.Register("http://example.test", s2)

	if c1 == c2 {
		t.Error("registering the same namespace twice should not join the first connection")
	}

	conns := reg.Connections("http://example.test")
	if len(conns) != 2 {
		t.Errorf("Connections() = %d entries, want 2", len(conns))
	}
}

func TestRegistryConcurrentRegisterOnFreshOriginCollapses(t *testing.T) {
	// two goroutines racing to register distinct namespaces against a
	// brand-new origin must observe and share a single Connection rather
	// than each constructing its own (spec §3, "exactly one connection
	// exists per (origin, live handshake) tuple").
	reg := NewRegistry(DefaultConfig)

	const n = 32
	sockets := make([]*NamespaceSocket, n)
	for i := range sockets {
		sockets[i] = NewNamespaceSocket(string(rune('a'+i)), noopCallback{})
	}

	results := make([]*Connection, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			results[i] = reg.Register("http://fresh.test", sockets[i])
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if results[i] != results[0] {
			t.Fatalf("goroutine %d got a different Connection than goroutine 0; registration did not collapse", i)
		}
	}

	conns := reg.Connections("http://fresh.test")
	if len(conns) != 1 {
		t.Errorf("Connections() = %d entries, want 1", len(conns))
	}
}

func TestRegistryRemoveConnectionClearsEmptyOrigin(t *testing.T) {
	reg := NewRegistry(DefaultConfig)
	s1 := NewNamespaceSocket("", noopCallback{})
	c1 := reg.Register("http://example.test", s1)

	reg.removeConnection("http://example.test", c1)

	if conns := reg.Connections("http://example.test"); len(conns) != 0 {
		t.Errorf("Connections() after removing only connection = %d, want 0", len(conns))
	}
	reg.mu.Lock()
	_, exists := reg.byOrg["http://example.test"]
	reg.mu.Unlock()
	if exists {
		t.Error("origin entry should be deleted once its connection list is empty")
	}
}
