package statestore

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec turns the whole property bag into the single string written to the
// backing store, and back.
type Codec interface {
	Name() string
	Encode(state map[string]any) (string, error)
	Decode(payload string) (map[string]any, error)
}

var errNotObject = errors.New("payload is not an object")

// JSONCodec stores the bag as a JSON object.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Encode(state map[string]any) (string, error) {
	if state == nil {
		state = map[string]any{}
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func (JSONCodec) Decode(payload string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	var state map[string]any
	if err := dec.Decode(&state); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after object")
	}
	// "null" decodes into a nil map without error.
	if state == nil {
		return nil, errNotObject
	}
	return state, nil
}

// MsgpackCodec stores the bag as base64-wrapped MessagePack, which keeps the
// payload a valid string for any backend.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return "msgpack" }

func (MsgpackCodec) Encode(state map[string]any) (string, error) {
	if state == nil {
		state = map[string]any{}
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(state); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (MsgpackCodec) Decode(payload string) (map[string]any, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, err
	}
	var decoded any
	if err := msgpack.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	state, ok := decoded.(map[string]any)
	if !ok || state == nil {
		return nil, errNotObject
	}
	return state, nil
}

// CodecByName resolves a configured codec name.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "msgpack":
		return MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}
