// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

type callArgs struct {
	Receiver string `cbor:"receiver"`
	Memo     string `cbor:"memo,omitempty"`
	Reward   uint64 `cbor:"reward"`
}

// label implements encoding.TextMarshaler the way token.Token does.
type label struct {
	value string
}

func (l label) MarshalText() ([]byte, error) {
	return []byte("label:" + l.value), nil
}

func (l *label) UnmarshalText(text []byte) error {
	value, found := strings.CutPrefix(string(text), "label:")
	if !found {
		return fmt.Errorf("missing label: prefix in %q", text)
	}
	l.value = value
	return nil
}

func TestMarshalDeterministic(t *testing.T) {
	// Map iteration order is random in Go; the encoding must not be.
	first, err := Marshal(map[string]any{"b": 1, "a": "x", "c": []byte{1}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for range 20 {
		again, err := Marshal(map[string]any{"c": []byte{1}, "a": "x", "b": 1})
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("encoding not deterministic: %x != %x", first, again)
		}
	}
}

func TestStructRoundtrip(t *testing.T) {
	original := callArgs{Receiver: "alice", Memo: "done", Reward: 100}
	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded callArgs
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("got %+v, want %+v", decoded, original)
	}
}

func TestTextMarshalerEncodesAsString(t *testing.T) {
	data, err := Marshal(struct {
		Name label `cbor:"name"`
	}{Name: label{value: "x"}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var generic map[string]any
	if err := Unmarshal(data, &generic); err != nil {
		t.Fatalf("Unmarshal into map: %v", err)
	}
	if generic["name"] != "label:x" {
		t.Errorf("name = %#v, want %q", generic["name"], "label:x")
	}

	var decoded struct {
		Name label `cbor:"name"`
	}
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Name.value != "x" {
		t.Errorf("decoded label = %q, want %q", decoded.Name.value, "x")
	}
}

func TestDuplicateMapKeysRejected(t *testing.T) {
	// {"memo": "a", "memo": "b"} hand-encoded: map(2), text(4) "memo",
	// text(1) "a", text(4) "memo", text(1) "b".
	data := []byte{0xa2, 0x64, 'm', 'e', 'm', 'o', 0x61, 'a', 0x64, 'm', 'e', 'm', 'o', 0x61, 'b'}

	var decoded callArgs
	if err := Unmarshal(data, &decoded); err == nil {
		t.Fatalf("expected duplicate key error, decoded %+v", decoded)
	}
}

func TestStreamRoundtrip(t *testing.T) {
	messages := []callArgs{
		{Receiver: "a", Reward: 1},
		{Receiver: "b", Memo: "m", Reward: 2},
	}

	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, message := range messages {
		if err := encoder.Encode(message); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for i, want := range messages {
		var got callArgs
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode %d: %v", i, err)
		}
		if got != want {
			t.Errorf("message %d: got %+v, want %+v", i, got, want)
		}
	}
}

func TestRawMessageDefersDecoding(t *testing.T) {
	inner, err := Marshal(callArgs{Receiver: "x", Reward: 5})
	if err != nil {
		t.Fatalf("Marshal inner: %v", err)
	}
	outer, err := Marshal(struct {
		Args RawMessage `cbor:"args"`
	}{Args: inner})
	if err != nil {
		t.Fatalf("Marshal outer: %v", err)
	}

	var envelope struct {
		Args RawMessage `cbor:"args"`
	}
	if err := Unmarshal(outer, &envelope); err != nil {
		t.Fatalf("Unmarshal outer: %v", err)
	}
	if !bytes.Equal(envelope.Args, inner) {
		t.Errorf("raw args = %x, want %x", []byte(envelope.Args), inner)
	}
}
