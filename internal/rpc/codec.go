// Package rpc defines the presets.v1.PresetService gRPC contract: request and
// response messages, the service descriptor, and a client stub. Messages are
// plain Go structs carried by a JSON codec registered under CodecName.
package rpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// CodecName is the gRPC content-subtype for JSON-encoded messages
// ("application/grpc+json" on the wire).
const CodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec marshals protobuf messages with protojson and everything else
// with encoding/json.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	if m, ok := v.(proto.Message); ok {
		return protojson.Marshal(m)
	}
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if m, ok := v.(proto.Message); ok {
		return protojson.Unmarshal(data, m)
	}
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return CodecName }
