package netutil

import (
	"bytes"
	"encoding/json"

	"github.com/vmihailenco/msgpack"
)

// MsgPacker serializes messages to bytes and back
type MsgPacker interface {
	PackMsg(msg interface{}, buf []byte) ([]byte, error)
	UnpackMsg(data []byte, msg interface{}) error
}

// MessagePackMsgPacker packs and unpacks messages in MessagePack format
type MessagePackMsgPacker struct{}

// PackMsg packs a message to bytes in MessagePack format
func (mp MessagePackMsgPacker) PackMsg(msg interface{}, buf []byte) ([]byte, error) {
	buffer := bytes.NewBuffer(buf)
	encoder := msgpack.NewEncoder(buffer)
	if err := encoder.Encode(msg); err != nil {
		return buf, err
	}
	return buffer.Bytes(), nil
}

// UnpackMsg unpacks bytes in MessagePack format to a message
func (mp MessagePackMsgPacker) UnpackMsg(data []byte, msg interface{}) error {
	return msgpack.Unmarshal(data, msg)
}

// JSONMsgPacker packs and unpacks messages in JSON format
type JSONMsgPacker struct{}

// PackMsg packs a message to bytes in JSON format
func (jp JSONMsgPacker) PackMsg(msg interface{}, buf []byte) ([]byte, error) {
	buffer := bytes.NewBuffer(buf)
	encoder := json.NewEncoder(buffer)
	if err := encoder.Encode(msg); err != nil {
		return buf, err
	}
	return buffer.Bytes(), nil
}

// UnpackMsg unpacks bytes in JSON format to a message
func (jp JSONMsgPacker) UnpackMsg(data []byte, msg interface{}) error {
	return json.Unmarshal(data, msg)
}

// PackerByName returns the packer for a wire format name, defaulting to MessagePack
func PackerByName(name string) MsgPacker {
	if name == "json" {
		return JSONMsgPacker{}
	}
	return MessagePackMsgPacker{}
}
