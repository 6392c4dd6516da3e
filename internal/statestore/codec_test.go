package statestore

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestJSONCodecEncodesNilAsObject(t *testing.T) {
	payload, err := JSONCodec{}.Encode(nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if payload != "{}" {
		t.Fatalf("expected {}, got %q", payload)
	}
}

func TestJSONCodecRejectsNonObjects(t *testing.T) {
	for _, payload := range []string{"null", "[]", "1", `"s"`, "{", `{"a":1}x`} {
		if _, err := (JSONCodec{}).Decode(payload); err == nil {
			t.Fatalf("expected error decoding %q", payload)
		}
	}
}

func TestJSONCodecRejectsTrailingDelimiters(t *testing.T) {
	for _, payload := range []string{`{"a":1}}`, `{"a":1}]`, `{"a":1},`, `{"a":1}{}`} {
		if state, err := (JSONCodec{}).Decode(payload); err == nil {
			t.Fatalf("expected error decoding %q, got %v", payload, state)
		}
	}
}

func TestJSONCodecAllowsTrailingWhitespace(t *testing.T) {
	state, err := JSONCodec{}.Decode("{\"a\":\"b\"}\n")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state["a"] != "b" {
		t.Fatalf("unexpected state %v", state)
	}
}

func TestMsgpackCodecRoundTrip(t *testing.T) {
	codec := MsgpackCodec{}
	payload, err := codec.Encode(map[string]any{"name": "todo", "done": false, "tags": []any{"x"}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		t.Fatalf("expected base64 payload: %v", err)
	}
	state, err := codec.Decode(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state["name"] != "todo" || state["done"] != false {
		t.Fatalf("unexpected state %v", state)
	}
	tags, ok := state["tags"].([]any)
	if !ok || len(tags) != 1 || tags[0] != "x" {
		t.Fatalf("unexpected tags %#v", state["tags"])
	}
}

func TestMsgpackCodecIsDeterministic(t *testing.T) {
	state := map[string]any{"b": "2", "a": "1", "c": "3"}
	first, err := MsgpackCodec{}.Encode(state)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, _ := MsgpackCodec{}.Encode(state)
		if again != first {
			t.Fatalf("expected stable encoding")
		}
	}
}

func TestMsgpackCodecRejectsNonObjects(t *testing.T) {
	arr, err := msgpack.Marshal([]string{"a"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	_, err = MsgpackCodec{}.Decode(base64.StdEncoding.EncodeToString(arr))
	if !errors.Is(err, errNotObject) {
		t.Fatalf("expected errNotObject, got %v", err)
	}
	if _, err := (MsgpackCodec{}).Decode("%%%"); err == nil {
		t.Fatalf("expected base64 error")
	}
}

func TestCodecByName(t *testing.T) {
	for name, want := range map[string]string{"": "json", "json": "json", "msgpack": "msgpack"} {
		codec, err := CodecByName(name)
		if err != nil {
			t.Fatalf("CodecByName(%q): %v", name, err)
		}
		if codec.Name() != want {
			t.Fatalf("CodecByName(%q) = %s, want %s", name, codec.Name(), want)
		}
	}
	if _, err := CodecByName("xml"); err == nil {
		t.Fatalf("expected error for unknown codec")
	}
}
