package codec

import (
	"errors"
	"testing"

	"rpc-bridge/invocation"
	"rpc-bridge/message"
)

type point struct {
	X int `json:"x" cbor:"x"`
	Y int `json:"y" cbor:"y"`
}

func sampleBatch(t *testing.T, c Codec) *message.Batch {
	t.Helper()
	click, err := EncodeCall(c, invocation.MustNew("T1", "Clickable", "OnClick", 42))
	if err != nil {
		t.Fatalf("EncodeCall failed: %v", err)
	}
	move, err := EncodeCall(c, invocation.MustNew("T2", "Draggable", "OnMove", point{X: 3, Y: 4}, "fast"))
	if err != nil {
		t.Fatalf("EncodeCall failed: %v", err)
	}
	focus, err := EncodeCall(c, invocation.MustNew("T1", "Focusable", "OnFocus"))
	if err != nil {
		t.Fatalf("EncodeCall failed: %v", err)
	}
	return &message.Batch{Calls: []message.Call{click, move, focus}}
}

func TestCodecsRoundTripBatch(t *testing.T) {
	for _, ct := range []CodecType{CodecTypeJSON, CodecTypeBinary, CodecTypeCBOR} {
		t.Run(ct.String(), func(t *testing.T) {
			c := GetCodec(ct)
			if c.Type() != ct {
				t.Fatalf("GetCodec(%v) returned %v", ct, c.Type())
			}

			data, err := c.Encode(sampleBatch(t, c))
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}

			var got message.Batch
			if err := c.Decode(data, &got); err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if len(got.Calls) != 3 {
				t.Fatalf("Expect 3 calls, get %d", len(got.Calls))
			}

			click := got.Calls[0]
			if click.TargetID != "T1" || click.Interface != "Clickable" || click.Method != "OnClick" {
				t.Fatalf("Unexpected first call: %+v", click)
			}
			var button int
			if err := c.DecodeValue(click.Args[0], &button); err != nil {
				t.Fatalf("DecodeValue failed: %v", err)
			}
			if button != 42 {
				t.Fatalf("Expect button 42, get %d", button)
			}

			move := got.Calls[1]
			var p point
			var speed string
			if err := c.DecodeValue(move.Args[0], &p); err != nil {
				t.Fatalf("DecodeValue failed: %v", err)
			}
			if err := c.DecodeValue(move.Args[1], &speed); err != nil {
				t.Fatalf("DecodeValue failed: %v", err)
			}
			if p != (point{X: 3, Y: 4}) || speed != "fast" {
				t.Fatalf("Unexpected move arguments: %+v %q", p, speed)
			}

			if n := len(got.Calls[2].Args); n != 0 {
				t.Fatalf("Expect no arguments for OnFocus, get %d", n)
			}
		})
	}
}

func TestJSONCodecEmbedsRawArguments(t *testing.T) {
	c := &JSONCodec{}
	data, err := c.Encode(&message.Batch{Calls: []message.Call{{
		TargetID:  "T1",
		Interface: "Clickable",
		Method:    "OnClick",
		Args:      [][]byte{[]byte("42")},
	}}})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	want := `{"calls":[{"target":"T1","interface":"Clickable","method":"OnClick","args":[42]}]}`
	if string(data) != want {
		t.Fatalf("Unexpected JSON:\n got %s\nwant %s", data, want)
	}
}

func TestBinaryCodecTruncatedInput(t *testing.T) {
	c := &BinaryCodec{}
	data, err := c.Encode(sampleBatch(t, c))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	for _, n := range []int{0, 1, 5, len(data) - 1} {
		var got message.Batch
		if err := c.Decode(data[:n], &got); !errors.Is(err, errShortBuffer) {
			t.Errorf("Decode of %d bytes: expect errShortBuffer, got %v", n, err)
		}
	}
}

func TestBinaryCodecRejectsOtherTypes(t *testing.T) {
	c := &BinaryCodec{}
	if _, err := c.Encode("not a batch"); !errors.Is(err, errNotBatch) {
		t.Fatalf("expect errNotBatch, got %v", err)
	}
}

func TestParseCodecType(t *testing.T) {
	cases := map[string]CodecType{
		"":       CodecTypeJSON,
		"json":   CodecTypeJSON,
		"Binary": CodecTypeBinary,
		"cbor":   CodecTypeCBOR,
	}
	for name, want := range cases {
		got, err := ParseCodecType(name)
		if err != nil || got != want {
			t.Errorf("ParseCodecType(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
	if _, err := ParseCodecType("xml"); err == nil {
		t.Error("expect error for unknown codec")
	}
}

func TestDecodeValueIsStrict(t *testing.T) {
	for _, ct := range []CodecType{CodecTypeJSON, CodecTypeBinary, CodecTypeCBOR} {
		c := GetCodec(ct)

		null, err := c.EncodeValue(nil)
		if err != nil {
			t.Fatalf("%s: encode nil: %v", ct, err)
		}
		if !c.IsNull(null) {
			t.Fatalf("%s: expect %x to be null", ct, null)
		}
		zero, err := c.EncodeValue(0)
		if err != nil {
			t.Fatalf("%s: encode 0: %v", ct, err)
		}
		if c.IsNull(zero) {
			t.Fatalf("%s: 0 reported as null", ct)
		}

		extra, err := c.EncodeValue(map[string]int{"x": 1, "y": 2, "z": 3})
		if err != nil {
			t.Fatalf("%s: encode map: %v", ct, err)
		}
		var p point
		if err := c.DecodeValue(extra, &p); err == nil {
			t.Fatalf("%s: expect unknown field z to be rejected, got %+v", ct, p)
		}
	}
}
