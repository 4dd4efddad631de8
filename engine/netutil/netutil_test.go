package netutil

import (
	"testing"
)

type testPayload struct {
	Name  string `msgpack:"name" json:"name"`
	Count int    `msgpack:"count" json:"count"`
}

func TestPackers(t *testing.T) {
	for _, packer := range []MsgPacker{MessagePackMsgPacker{}, JSONMsgPacker{}} {
		in := testPayload{Name: "goblin", Count: 3}
		data, err := packer.PackMsg(in, nil)
		if err != nil {
			t.Fatalf("%T pack failed: %v", packer, err)
		}
		var out testPayload
		if err := packer.UnpackMsg(data, &out); err != nil {
			t.Fatalf("%T unpack failed: %v", packer, err)
		}
		if out != in {
			t.Fatalf("%T roundtrip got %+v, want %+v", packer, out, in)
		}
	}
}

func TestMessageEnvelope(t *testing.T) {
	packer := PackerByName("msgpack")
	data, err := PackMessage(packer, "testEvent", testPayload{Name: "rat", Count: 1})
	if err != nil {
		t.Fatal(err)
	}

	msg, err := UnpackMessage(packer, data)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Event != "testEvent" {
		t.Fatalf("event = %q, want testEvent", msg.Event)
	}

	var payload testPayload
	if err := UnpackPayload(packer, msg, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Name != "rat" || payload.Count != 1 {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestPackerByName(t *testing.T) {
	if _, ok := PackerByName("json").(JSONMsgPacker); !ok {
		t.Fatalf("json name did not select JSON packer")
	}
	if _, ok := PackerByName("msgpack").(MessagePackMsgPacker); !ok {
		t.Fatalf("msgpack name did not select MessagePack packer")
	}
	if _, ok := PackerByName("").(MessagePackMsgPacker); !ok {
		t.Fatalf("default packer is not MessagePack")
	}
}
