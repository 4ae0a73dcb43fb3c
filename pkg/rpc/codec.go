// Package rpc exposes SubmitMessage, SubmitIdRegistryEvent and the sync
// helpers (snapshot, trie nodes, sync-ids and messages by prefix/sync-id)
// over google.golang.org/grpc; the per-type getters and subscribe are
// not served. Requests travel via a hand-written request/response
// wire format and a custom grpc codec (encoding.RegisterCodec) instead
// of protoc-generated messages — no protobuf/flatbuffer compiler is
// available in this environment (see pkg/message/codec.go's note).
package rpc

import (
	"fmt"

	"google.golang.org/grpc/encoding"
)

// wireCodec implements google.golang.org/grpc/encoding.Codec. Every
// request/response type this service uses implements wireMessage so the
// codec can dispatch without reflection.
type wireMessage interface {
	MarshalWire() []byte
	UnmarshalWire([]byte) error
}

type wireCodec struct{}

const codecName = "hub-wire-v1"

func (wireCodec) Marshal(v any) ([]byte, error) {
	m, ok := v.(wireMessage)
	if !ok {
		return nil, fmt.Errorf("rpc: %T does not implement wireMessage", v)
	}
	return m.MarshalWire(), nil
}

func (wireCodec) Unmarshal(data []byte, v any) error {
	m, ok := v.(wireMessage)
	if !ok {
		return fmt.Errorf("rpc: %T does not implement wireMessage", v)
	}
	return m.UnmarshalWire(data)
}

func (wireCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(wireCodec{})
}
