package socketio

// sendData builds and sends a MESSAGE or JSON_MESSAGE frame for namespace,
// optionally requesting a server ack (spec §4.8, "outbound ack request").
func (c *Connection) sendData(namespace string, typ MessageType, data string, ack func([]interface{})) error {
	msg := &Message{Type: typ, Endpoint: namespace, Data: data}
	if ack != nil {
		msg.ID = c.acks.register(ack)
		msg.AckWanted = true
	}
	return c.sendPlain(EncodeMessage(msg))
}

// sendEvent builds and sends an EVENT frame (spec §4.8, scenario S5: emit
// with an ack callback produces 5:1+:<ns>:{...}).
func (c *Connection) sendEvent(namespace, name string, args []interface{}, ack func([]interface{})) error {
	data, err := c.cfg.Codec.Marshal(&event{Name: name, Args: args})
	if err != nil {
		return newFault("failed to encode event", err)
	}
	msg := &Message{Type: MessageEvent, Endpoint: namespace, Data: string(data)}
	if ack != nil {
		msg.ID = c.acks.register(ack)
		msg.AckWanted = true
	}
	return c.sendPlain(EncodeMessage(msg))
}
