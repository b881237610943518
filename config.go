package socketio

import (
	"crypto/tls"
	"encoding/json"
	"sync"
	"time"
)

// Codec is the pluggable JSON encoder/decoder consumed by the connection
// for MessageJSON and MessageEvent payloads (spec §1: "out of scope ... the
// JSON encoder/decoder (pluggable)"). The default implementation wraps
// encoding/json; a caller may substitute a faster or stricter codec.
type Codec interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

// stdCodec is the default Codec, backed by the standard library. The spec
// requires the codec stay swappable at the interface boundary; a faster
// third-party encoder (e.g. segmentio/encoding/json, also present in this
// retrieval pack) can be substituted by implementing Codec without
// touching the connection.
type stdCodec struct{}

func (stdCodec) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (stdCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

// Config holds the tunables for a Connection. Zero-value fields fall back
// to DefaultConfig's values inside newConnection.
type Config struct {
	// HandshakeConnectTimeout bounds establishing the connection (TCP dial
	// and TLS handshake) for the initial GET {origin}/socket.io/1/.
	HandshakeConnectTimeout time.Duration

	// HandshakeReadTimeout bounds the wait for the handshake response
	// headers and, separately, reading the handshake response body.
	HandshakeReadTimeout time.Duration

	// ReconnectDelay is how long Connection.Reconnect() waits before
	// retrying transport selection (spec §4.6).
	ReconnectDelay time.Duration

	// Codec (de)serializes JSON payloads for MessageJSON/MessageEvent.
	Codec Codec

	// Transports by name, consulted by transport selection (spec §4.3).
	// Only the names present here AND in the handshake's transport list are
	// eligible; "websocket" is preferred over "xhr-polling" regardless of
	// the order either list gives them.
	TransportFactories map[string]TransportFactory
}

// DefaultConfig is used for any zero-valued Config field.
var DefaultConfig = Config{
	HandshakeConnectTimeout: 10 * time.Second,
	HandshakeReadTimeout:    10 * time.Second,
	ReconnectDelay:          1 * time.Second,
	Codec:                   stdCodec{},
}

func (c Config) withDefaults() Config {
	if c.HandshakeConnectTimeout == 0 {
		c.HandshakeConnectTimeout = DefaultConfig.HandshakeConnectTimeout
	}
	if c.HandshakeReadTimeout == 0 {
		c.HandshakeReadTimeout = DefaultConfig.HandshakeReadTimeout
	}
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = DefaultConfig.ReconnectDelay
	}
	if c.Codec == nil {
		c.Codec = DefaultConfig.Codec
	}
	return c
}

// tlsConfig is the process-wide TLS parameter consumed by the handshake
// and by secure transports (spec §3, §5: "the TLS context is process-wide
// and read-only after set").
var (
	tlsConfigMu sync.RWMutex
	tlsConfig   *tls.Config
)

// SetTLSConfig installs the process-wide TLS configuration used for any
// subsequent handshake or transport connect against a secure origin.
func SetTLSConfig(cfg *tls.Config) {
	tlsConfigMu.Lock()
	defer tlsConfigMu.Unlock()
	tlsConfig = cfg
}

func getTLSConfig() *tls.Config {
	tlsConfigMu.RLock()
	defer tlsConfigMu.RUnlock()
	return tlsConfig
}

// TLSConfig returns the process-wide TLS configuration set by
// SetTLSConfig, for use by out-of-tree Transport implementations (e.g.
// transport/websocket) that need the same secure-origin parameters the
// handshake uses.
func TLSConfig() *tls.Config {
	return getTLSConfig()
}
