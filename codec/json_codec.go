package codec

import (
	"bytes"
	"encoding/json"

	"rpc-bridge/message"
)

// JSONCodec uses Go's standard library encoding/json for serialization.
// Batches are rewritten so each argument is embedded as a raw JSON value
// rather than a base64 string.
type JSONCodec struct{}

type jsonCall struct {
	TargetID  string            `json:"target"`
	Interface string            `json:"interface"`
	Method    string            `json:"method"`
	Args      []json.RawMessage `json:"args"`
}

type jsonBatch struct {
	Calls []jsonCall `json:"calls"`
}

func (c *JSONCodec) Encode(v any) ([]byte, error) {
	batch, ok := v.(*message.Batch)
	if !ok {
		return json.Marshal(v)
	}
	out := jsonBatch{Calls: make([]jsonCall, len(batch.Calls))}
	for i, call := range batch.Calls {
		args := make([]json.RawMessage, len(call.Args))
		for j, a := range call.Args {
			args[j] = json.RawMessage(a)
		}
		out.Calls[i] = jsonCall{
			TargetID:  call.TargetID,
			Interface: call.Interface,
			Method:    call.Method,
			Args:      args,
		}
	}
	return json.Marshal(&out)
}

func (c *JSONCodec) Decode(data []byte, v any) error {
	batch, ok := v.(*message.Batch)
	if !ok {
		return json.Unmarshal(data, v)
	}
	var in jsonBatch
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	batch.Calls = make([]message.Call, len(in.Calls))
	for i, call := range in.Calls {
		args := make([][]byte, len(call.Args))
		for j, a := range call.Args {
			args[j] = []byte(a)
		}
		batch.Calls[i] = message.Call{
			TargetID:  call.TargetID,
			Interface: call.Interface,
			Method:    call.Method,
			Args:      args,
		}
	}
	return nil
}

func (c *JSONCodec) EncodeValue(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (c *JSONCodec) DecodeValue(data []byte, v any) error {
	return decodeJSONValue(data, v)
}

func (c *JSONCodec) IsNull(data []byte) bool {
	return isJSONNull(data)
}

// decodeJSONValue decodes one argument value, refusing unknown object fields.
func decodeJSONValue(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func isJSONNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

func (c *JSONCodec) Type() CodecType {
	return CodecTypeJSON
}
