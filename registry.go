package socketio

import (
	"sync"
)

// Registry is the process-wide mapping from origin to the set of live
// connections against it, with registration deduplication (spec §4.9).
// DefaultRegistry is the package-level instance NamespaceSocket registration
// uses unless a caller wires a dedicated Registry in (spec §9, "prefer a
// dependency-injected registry instance with a default global").
type Registry struct {
	mu    sync.Mutex
	byOrg map[string][]*Connection
	cfg   Config
}

// NewRegistry creates an empty registry that uses cfg for every Connection
// it creates.
func NewRegistry(cfg Config) *Registry {
	return &Registry{byOrg: make(map[string][]*Connection), cfg: cfg}
}

// DefaultRegistry is the global registry used by Register when no explicit
// Registry is supplied.
var DefaultRegistry = NewRegistry(DefaultConfig)

// Register resolves or creates the Connection for origin and registers
// socket on it (spec §4.9). For a single origin and distinct namespaces,
// Register returns the same connection; for the same namespace twice, it
// returns two distinct connections, since the second cannot join the
// first's namespace table.
//
// The whole join-or-create decision runs under a single r.mu acquisition
// so that two goroutines racing to register distinct namespaces against a
// brand-new origin are serialized into seeing and sharing the same
// Connection, rather than each independently observing an empty snapshot
// and constructing its own (spec §3, "exactly one connection exists per
// (origin, live handshake) tuple").
func (r *Registry) Register(origin string, socket *NamespaceSocket) *Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, conn := range r.byOrg[origin] {
		if conn.register(socket) {
			return conn
		}
	}

	conn := newConnection(origin, r.cfg, r)
	r.byOrg[origin] = append(r.byOrg[origin], conn)
	conn.register(socket)
	return conn
}

// removeConnection removes conn from origin's list; if the list becomes
// empty, the whole origin entry is removed (spec §9, resolving the open
// question on registry-entry lifetime: "remove the origin entry when the
// list becomes empty").
func (r *Registry) removeConnection(origin string, conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conns := r.byOrg[origin]
	for i, c := range conns {
		if c == conn {
			conns = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(conns) == 0 {
		delete(r.byOrg, origin)
	} else {
		r.byOrg[origin] = conns
	}
}

// Connections returns a snapshot of the live connections for origin.
func (r *Registry) Connections(origin string) []*Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Connection(nil), r.byOrg[origin]...)
}

// Register registers socket against origin using DefaultRegistry.
func Register(origin string, socket *NamespaceSocket) *Connection {
	return DefaultRegistry.Register(origin, socket)
}
