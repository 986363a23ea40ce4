package grpc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// CodecName is the content-subtype of the JSON codec: application/grpc+json
const CodecName = "json"

func init() {
	encoding.RegisterCodec(JSONCodec{})
}

// JSONCodec encodes messages as JSON. Protobuf messages use protojson, all
// other values encoding/json, so services can use plain Go structs without
// generated code.
type JSONCodec struct{}

// Marshal encodes v
func (JSONCodec) Marshal(v any) ([]byte, error) {
	if m, ok := v.(proto.Message); ok {
		return protojson.Marshal(m)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json codec: %w", err)
	}
	return data, nil
}

// Unmarshal decodes data into v
func (JSONCodec) Unmarshal(data []byte, v any) error {
	if m, ok := v.(proto.Message); ok {
		return protojson.Unmarshal(data, m)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("json codec: %w", err)
	}
	return nil
}

// Name returns the content-subtype
func (JSONCodec) Name() string {
	return CodecName
}

// JSON is the call option selecting the JSON codec
func JSON() grpc.CallOption {
	return grpc.CallContentSubtype(CodecName)
}
