// Package codec serializes invocation batches and their argument values.
//
// Three formats are supported:
//   - JSON:   human-readable, arguments appear as plain JSON values
//   - Binary: compact length-prefixed envelope, arguments as JSON values
//   - CBOR:   compact and self-describing, arguments as CBOR items
package codec

import (
	"fmt"
	"strings"

	"rpc-bridge/invocation"
	"rpc-bridge/message"
)

type CodecType byte

const (
	CodecTypeJSON   CodecType = 0
	CodecTypeBinary CodecType = 1
	CodecTypeCBOR   CodecType = 2
)

func (t CodecType) String() string {
	switch t {
	case CodecTypeJSON:
		return "json"
	case CodecTypeBinary:
		return "binary"
	case CodecTypeCBOR:
		return "cbor"
	}
	return fmt.Sprintf("codec(%d)", byte(t))
}

// Codec encodes whole batches (Encode/Decode take *message.Batch) and the
// individual argument values inside them.
//
// DecodeValue rejects struct fields the target type does not have. IsNull
// reports whether an encoded value is the format's null.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	EncodeValue(v any) ([]byte, error)
	DecodeValue(data []byte, v any) error
	IsNull(data []byte) bool
	Type() CodecType
}

func GetCodec(codecType CodecType) Codec {
	switch codecType {
	case CodecTypeBinary:
		return &BinaryCodec{}
	case CodecTypeCBOR:
		return &CBORCodec{}
	}
	return &JSONCodec{}
}

// ParseCodecType maps a configuration name to a CodecType.
func ParseCodecType(name string) (CodecType, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return CodecTypeJSON, nil
	case "binary":
		return CodecTypeBinary, nil
	case "cbor":
		return CodecTypeCBOR, nil
	}
	return 0, fmt.Errorf("codec: unknown codec %q", name)
}

// EncodeCall turns rec into its wire form, encoding each argument with c.
func EncodeCall(c Codec, rec *invocation.Record) (message.Call, error) {
	call := message.Call{
		TargetID:  rec.TargetID(),
		Interface: rec.Interface(),
		Method:    rec.Method(),
		Args:      make([][]byte, rec.NumArguments()),
	}
	for i := range call.Args {
		raw, err := c.EncodeValue(rec.Argument(i))
		if err != nil {
			return message.Call{}, fmt.Errorf("codec: encode argument %d of %s.%s: %w", i, rec.Interface(), rec.Method(), err)
		}
		call.Args[i] = raw
	}
	return call, nil
}
