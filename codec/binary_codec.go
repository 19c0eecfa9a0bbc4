package codec

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"

	"rpc-bridge/message"
)

var (
	errNotBatch    = errors.New("BinaryCodec: v must be *message.Batch")
	errShortBuffer = errors.New("BinaryCodec: truncated input")
	errTooLong     = errors.New("BinaryCodec: field too long")
)

// BinaryCodec writes a batch as big-endian length-prefixed fields:
//
//	calls   uint16
//	per call:
//	  target    uint16 len + bytes
//	  interface uint16 len + bytes
//	  method    uint16 len + bytes
//	  args      uint16 count, per arg uint32 len + bytes
//
// Argument values themselves are JSON.
type BinaryCodec struct{}

func (c *BinaryCodec) Encode(v any) ([]byte, error) {
	batch, ok := v.(*message.Batch)
	if !ok {
		return nil, errNotBatch
	}
	if len(batch.Calls) > math.MaxUint16 {
		return nil, errTooLong
	}
	buf := binary.BigEndian.AppendUint16(nil, uint16(len(batch.Calls)))
	var err error
	for _, call := range batch.Calls {
		for _, s := range []string{call.TargetID, call.Interface, call.Method} {
			if buf, err = appendString(buf, s); err != nil {
				return nil, err
			}
		}
		if len(call.Args) > math.MaxUint16 {
			return nil, errTooLong
		}
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(call.Args)))
		for _, arg := range call.Args {
			if uint64(len(arg)) > math.MaxUint32 {
				return nil, errTooLong
			}
			buf = binary.BigEndian.AppendUint32(buf, uint32(len(arg)))
			buf = append(buf, arg...)
		}
	}
	return buf, nil
}

func appendString(buf []byte, s string) ([]byte, error) {
	if len(s) > math.MaxUint16 {
		return nil, errTooLong
	}
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(s)))
	return append(buf, s...), nil
}

func (c *BinaryCodec) Decode(data []byte, v any) error {
	batch, ok := v.(*message.Batch)
	if !ok {
		return errNotBatch
	}
	r := &reader{data: data}
	n := r.uint16()
	calls := make([]message.Call, 0, n)
	for i := 0; i < int(n) && r.err == nil; i++ {
		call := message.Call{
			TargetID:  r.string(),
			Interface: r.string(),
			Method:    r.string(),
		}
		nargs := r.uint16()
		call.Args = make([][]byte, 0, nargs)
		for j := 0; j < int(nargs) && r.err == nil; j++ {
			call.Args = append(call.Args, r.bytes(int(r.uint32())))
		}
		calls = append(calls, call)
	}
	if r.err != nil {
		return r.err
	}
	batch.Calls = calls
	return nil
}

func (c *BinaryCodec) EncodeValue(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (c *BinaryCodec) DecodeValue(data []byte, v any) error {
	return decodeJSONValue(data, v)
}

func (c *BinaryCodec) IsNull(data []byte) bool {
	return isJSONNull(data)
}

func (c *BinaryCodec) Type() CodecType {
	return CodecTypeBinary
}

// reader consumes data front to back. After the first short read every call
// returns a zero value and err stays set.
type reader struct {
	data   []byte
	offset int
	err    error
}

func (r *reader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.data)-r.offset < n {
		r.err = errShortBuffer
		return nil
	}
	b := r.data[r.offset : r.offset+n]
	r.offset += n
	return b
}

func (r *reader) uint16() uint16 {
	b := r.next(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *reader) uint32() uint32 {
	b := r.next(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *reader) string() string {
	return string(r.next(int(r.uint16())))
}

func (r *reader) bytes(n int) []byte {
	b := r.next(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}
