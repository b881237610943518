package socketio

import "fmt"

// MessageType is one of the nine Socket.IO 0.9 frame types (spec §3, §6).
type MessageType uint8

const (
	MessageDisconnect MessageType = 0
	MessageConnect    MessageType = 1
	MessageHeartbeat  MessageType = 2
	MessageMessage    MessageType = 3
	MessageJSON       MessageType = 4
	MessageEvent      MessageType = 5
	MessageACK        MessageType = 6
	MessageError      MessageType = 7
	MessageNOOP       MessageType = 8
)

func (t MessageType) String() string {
	switch t {
	case MessageDisconnect:
		return "disconnect"
	case MessageConnect:
		return "connect"
	case MessageHeartbeat:
		return "heartbeat"
	case MessageMessage:
		return "message"
	case MessageJSON:
		return "json"
	case MessageEvent:
		return "event"
	case MessageACK:
		return "ack"
	case MessageError:
		return "error"
	case MessageNOOP:
		return "noop"
	default:
		return "unknown"
	}
}

// Message is one decoded Socket.IO 0.9 frame: "type:id:endpoint:data".
//
// Id is kept as the raw string (without the trailing "+") rather than an
// int so an absent id and an id of zero stay distinguishable, and
// AckWanted records whether the "+" suffix was present.
type Message struct {
	Type      MessageType
	ID        string
	AckWanted bool
	Endpoint  string
	Data      string
}

// String renders the frame the way it goes on the wire, for logging.
func (m *Message) String() string {
	return fmt.Sprintf("%d:%s%s:%s:%s", m.Type, m.ID, ackSuffix(m.AckWanted), m.Endpoint, m.Data)
}

func ackSuffix(wanted bool) string {
	if wanted {
		return "+"
	}
	return ""
}

// event is the JSON body of a MessageEvent frame.
type event struct {
	Name string        `json:"name"`
	Args []interface{} `json:"args,omitempty"`
}
