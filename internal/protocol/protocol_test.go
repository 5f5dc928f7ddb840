package protocol

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/arqlink/internal/testutil/testlog"
)

func TestMarshalCanonicalShapes(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		msg  Message
		want string
	}{
		{Data(0, []byte("A")), `{"data": "A", "s": 0}`},
		{Data(17, []byte("hi there")), `{"data": "hi there", "s": 17}`},
		{Ack(3), `{"s": 3}`},
		{Nack(), `{}`},
	}
	for _, tc := range cases {
		got, err := Marshal(tc.msg)
		if err != nil {
			t.Fatalf("marshal %s: %v", tc.msg, err)
		}
		if string(got) != tc.want {
			t.Fatalf("marshal %s: got=%q want=%q", tc.msg, got, tc.want)
		}
	}
}

func TestMarshalEscapesBinaryPayload(t *testing.T) {
	testlog.Start(t)
	payload := []byte{'"', '\\', '\n', 0x00, 0x7f, 0x80, 0xff, 'z'}
	got, err := Marshal(Data(1, payload))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"data": "\"\\\n\u0000\u007f\u0080\u00ffz", "s": 1}`
	if string(got) != want {
		t.Fatalf("unexpected body:\n got=%s\nwant=%s", got, want)
	}
	for _, b := range got {
		if b > 0x7e {
			t.Fatalf("body contains non-ascii byte 0x%02x", b)
		}
	}
}

func TestUnmarshalRecoversEveryByteValue(t *testing.T) {
	testlog.Start(t)
	payload := make([]byte, 256)
	for i := range payload {
		payload[i] = byte(i)
	}
	body, err := Marshal(Data(9, payload))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	msg, err := Unmarshal(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Kind != KindData || msg.Seq != 9 {
		t.Fatalf("unexpected message: %s", msg)
	}
	if !bytes.Equal(msg.Payload, payload) {
		t.Fatalf("payload mismatch")
	}
}

func TestUnmarshalKindFromKeySet(t *testing.T) {
	testlog.Start(t)
	if m, err := Unmarshal([]byte(`{}`)); err != nil || m.Kind != KindNack {
		t.Fatalf("expected nack, got=%s err=%v", m, err)
	}
	if m, err := Unmarshal([]byte(`{"s": 5}`)); err != nil || m.Kind != KindAck || m.Seq != 5 {
		t.Fatalf("expected ack 5, got=%s err=%v", m, err)
	}
	m, err := Unmarshal([]byte(`{"s": 2, "data": "xy"}`))
	if err != nil || m.Kind != KindData || m.Seq != 2 || string(m.Payload) != "xy" {
		t.Fatalf("expected data 2, got=%s err=%v", m, err)
	}
}

func TestUnmarshalRejectsMalformedBodies(t *testing.T) {
	testlog.Start(t)
	bodies := []string{
		``,
		`null`,
		`[]`,
		`{"s": -1}`,
		`{"s": 1.5}`,
		`{"s": "1"}`,
		`{"data": "x"}`,
		`{"x": 1}`,
		`{"data": "x", "t": 1}`,
		`{"data": 7, "s": 1}`,
		`{"data": "x", "s": 1, "extra": true}`,
		`{"s": 1`,
	}
	for _, body := range bodies {
		if _, err := Unmarshal([]byte(body)); !errors.Is(err, ErrMalformed) {
			t.Fatalf("body %q: expected ErrMalformed, got %v", body, err)
		}
	}
}

func TestUnmarshalRejectsWideCodePoints(t *testing.T) {
	testlog.Start(t)
	_, err := Unmarshal([]byte(`{"data": "Ā", "s": 0}`))
	if !errors.Is(err, ErrPayloadByte) {
		t.Fatalf("expected ErrPayloadByte, got %v", err)
	}
}

func TestPayloadLimit(t *testing.T) {
	testlog.Start(t)
	if _, err := Marshal(Data(0, make([]byte, MaxPayload))); err != nil {
		t.Fatalf("max payload should marshal: %v", err)
	}
	_, err := Marshal(Data(0, make([]byte, MaxPayload+1)))
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
	if _, err := Marshal(Message{Kind: Kind(42)}); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}
