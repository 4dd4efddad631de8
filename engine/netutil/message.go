package netutil

// Message is one wire envelope: a named event with a packed payload.
// The payload is packed with the same packer as the envelope itself.
type Message struct {
	Event string `msgpack:"event" json:"event"`
	Data  []byte `msgpack:"data" json:"data"`
}

// PackMessage packs an event name and payload into envelope bytes
func PackMessage(p MsgPacker, event string, payload interface{}) ([]byte, error) {
	data, err := p.PackMsg(payload, nil)
	if err != nil {
		return nil, err
	}
	return p.PackMsg(Message{Event: event, Data: data}, nil)
}

// UnpackMessage unpacks envelope bytes into a Message
func UnpackMessage(p MsgPacker, data []byte) (Message, error) {
	var msg Message
	err := p.UnpackMsg(data, &msg)
	return msg, err
}

// UnpackPayload unpacks a message's payload into the given value
func UnpackPayload(p MsgPacker, msg Message, payload interface{}) error {
	return p.UnpackMsg(msg.Data, payload)
}
