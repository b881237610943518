package socketio

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// replacementChar is the U+FFFD sentinel that opens a framed-datagram
// wrapper entry (spec §4.1, §6).
const replacementChar = '�'

// EncodeMessage renders a Message in the wire grammar:
//
//	type ":" [id ["+"]] ":" endpoint ":" data
//
// Missing fields serialize as empty between their colons. No JSON
// interpretation happens here — MessageJSON/MessageEvent carry already
// JSON-encoded opaque strings in Data.
func EncodeMessage(m *Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d:", m.Type)
	b.WriteString(m.ID)
	if m.AckWanted {
		b.WriteByte('+')
	}
	b.WriteByte(':')
	b.WriteString(m.Endpoint)
	if m.Data != "" {
		b.WriteByte(':')
		b.WriteString(m.Data)
	}
	return b.String()
}

// DecodeMessage parses one frame of the wire grammar described above.
// Splitting happens on at most three colons, so Data may itself contain
// colons (spec §4.1).
func DecodeMessage(frame string) (*Message, error) {
	parts := strings.SplitN(frame, ":", 4)
	if len(parts) < 3 {
		return nil, &SocketIOError{Message: "garbage from server: invalid frame: " + frame}
	}

	typ, err := strconv.Atoi(parts[0])
	if err != nil || typ < 0 || typ > 8 {
		return nil, &SocketIOError{Message: "garbage from server: invalid type: " + frame}
	}

	m := &Message{Type: MessageType(typ), Endpoint: parts[2]}

	if id := parts[1]; id != "" {
		if strings.HasSuffix(id, "+") {
			m.AckWanted = true
			id = id[:len(id)-1]
		}
		if _, err := strconv.Atoi(id); err != nil {
			return nil, &SocketIOError{Message: "garbage from server: invalid id: " + frame}
		}
		m.ID = id
	}

	if len(parts) == 4 {
		m.Data = parts[3]
	}

	return m, nil
}

// WrapFrames builds the framed-datagram wrapper used over transports that
// cannot preserve message boundaries (e.g. long-poll): a concatenation of
// U+FFFD <decimal length> U+FFFD <payload>, repeated once per frame.
//
// Length is measured in runes (Unicode code points), not bytes — this is
// the code-unit convention the spec calls out as implementation-defined;
// keep it consistent with whatever server this client talks to.
func WrapFrames(frames []string) string {
	var b strings.Builder
	for _, f := range frames {
		fmt.Fprintf(&b, "%c%d%c%s", replacementChar, utf8.RuneCountInString(f), replacementChar, f)
	}
	return b.String()
}

// UnwrapFrames splits a framed-datagram payload back into its component
// frames. A payload that does not begin with the U+FFFD sentinel is a
// single, unwrapped message and is returned as-is.
func UnwrapFrames(payload string) ([]string, error) {
	if !strings.HasPrefix(payload, string(replacementChar)) {
		return []string{payload}, nil
	}

	var frames []string
	r := []rune(payload)
	i := 0
	for i < len(r) {
		if r[i] != replacementChar {
			return nil, &SocketIOError{Message: "garbage from server: expected frame sentinel"}
		}
		i++
		start := i
		for i < len(r) && r[i] != replacementChar {
			i++
		}
		if i >= len(r) {
			return nil, &SocketIOError{Message: "garbage from server: truncated frame length"}
		}
		length, err := strconv.Atoi(string(r[start:i]))
		if err != nil || length < 0 {
			return nil, &SocketIOError{Message: "garbage from server: frame length is not a non-negative integer"}
		}
		i++ // skip closing sentinel
		if i+length > len(r) {
			return nil, &SocketIOError{Message: "garbage from server: frame length is overflowing"}
		}
		frames = append(frames, string(r[i:i+length]))
		i += length
	}
	return frames, nil
}
