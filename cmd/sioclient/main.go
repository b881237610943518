// Command sioclient is a minimal interactive client demo: it connects to a
// Socket.IO 0.9 origin, joins a namespace, echoes inbound messages to
// stdout, and sends each stdin line as an EVENT (spec §5 supplemented
// features — grounded in the teacher's cli/ package and example/example.go,
// adapted from the server direction to the client direction this module
// implements).
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	socketio "github.com/coinme/socket.io-go-client"
	"github.com/coinme/socket.io-go-client/transport/websocket"
	"github.com/coinme/socket.io-go-client/transport/xhrpolling"
)

func main() {
	origin := flag.String("origin", "http://localhost:8080", "Socket.IO origin, e.g. http://localhost:8080")
	namespace := flag.String("namespace", "", "namespace to join (empty for default)")
	flag.Parse()

	cfg := socketio.DefaultConfig
	cfg.TransportFactories = map[string]socketio.TransportFactory{
		"websocket":   websocket.Factory,
		"xhr-polling": xhrpolling.Factory,
	}

	cb := &printingCallback{name: *namespace}
	socket := socketio.NewNamespaceSocket(*namespace, cb)
	conn := socketio.NewRegistry(cfg)
	conn.Register(*origin, socket)

	go readStdin(socket)
	select {}
}

func readStdin(socket *socketio.NamespaceSocket) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if err := socket.Emit("message", nil, line); err != nil {
			fmt.Fprintln(os.Stderr, "emit failed:", err)
		}
	}
}

// printingCallback renders every dispatch to stdout/stderr; it implements
// socketio.Callback (spec §6).
type printingCallback struct {
	name string
}

func (p *printingCallback) OnConnect() {
	fmt.Printf("[%s] connected\n", p.label())
}

func (p *printingCallback) OnDisconnect() {
	fmt.Printf("[%s] disconnected\n", p.label())
}

func (p *printingCallback) OnMessage(data string, ack *socketio.Ack) {
	fmt.Printf("[%s] message: %s\n", p.label(), data)
	if ack.Wanted() {
		_ = ack.Send()
	}
}

func (p *printingCallback) OnMessageJSON(data interface{}, ack *socketio.Ack) {
	fmt.Printf("[%s] json: %v\n", p.label(), data)
	if ack.Wanted() {
		_ = ack.Send()
	}
}

func (p *printingCallback) OnEvent(name string, ack *socketio.Ack, args []interface{}) {
	fmt.Printf("[%s] event %s: %v\n", p.label(), name, args)
	if ack.Wanted() {
		_ = ack.Send()
	}
}

func (p *printingCallback) OnError(err error) {
	fmt.Fprintf(os.Stderr, "[%s] error: %v\n", p.label(), err)
}

func (p *printingCallback) OnSessionID(sessionID string) {
	fmt.Printf("[%s] session id: %s\n", p.label(), sessionID)
}

func (p *printingCallback) OnState(state socketio.State) {
	fmt.Printf("[%s] state: %s\n", p.label(), state)
}

func (p *printingCallback) label() string {
	if p.name == "" {
		return "/"
	}
	return p.name
}

var _ socketio.Callback = (*printingCallback)(nil)
