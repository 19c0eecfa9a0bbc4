package codec

import (
	"github.com/fxamacker/cbor/v2"
)

// CBORCodec encodes batches and argument values as CBOR (RFC 8949).
// Arguments travel as byte strings holding their own CBOR encoding.
type CBORCodec struct{}

// valueMode decodes argument values; unknown struct fields are an error.
var valueMode = func() cbor.DecMode {
	dm, err := cbor.DecOptions{ExtraReturnErrors: cbor.ExtraDecErrorUnknownField}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}()

const (
	cborNull      = 0xf6
	cborUndefined = 0xf7
)

func (c *CBORCodec) Encode(v any) ([]byte, error) {
	return cbor.Marshal(v)
}

func (c *CBORCodec) Decode(data []byte, v any) error {
	return cbor.Unmarshal(data, v)
}

func (c *CBORCodec) EncodeValue(v any) ([]byte, error) {
	return cbor.Marshal(v)
}

func (c *CBORCodec) DecodeValue(data []byte, v any) error {
	return valueMode.Unmarshal(data, v)
}

func (c *CBORCodec) IsNull(data []byte) bool {
	return len(data) == 1 && (data[0] == cborNull || data[0] == cborUndefined)
}

func (c *CBORCodec) Type() CodecType {
	return CodecTypeCBOR
}
