package ipc

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
)

func TestEnvelopeFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	env, err := NewEnvelope(TypeTap, TapRequest{X: 10, Y: 20})
	if err != nil {
		t.Fatal(err)
	}
	env.ID = "abc"
	if err := WriteEnvelope(&buf, env); err != nil {
		t.Fatal(err)
	}

	length := binary.LittleEndian.Uint32(buf.Bytes()[:4])
	if int(length) != buf.Len()-4 {
		t.Errorf("prefix = %d, want %d", length, buf.Len()-4)
	}

	got, err := ReadEnvelope(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != TypeTap || got.ID != "abc" {
		t.Errorf("ReadEnvelope() = %+v, want tap/abc", got)
	}
	if string(got.Data) != `{"x":10,"y":20}` {
		t.Errorf("data = %s", got.Data)
	}
}

func TestReadEnvelopeRejectsBadLength(t *testing.T) {
	for _, n := range []uint32{0, maxFrame + 1} {
		var buf bytes.Buffer
		binary.Write(&buf, binary.LittleEndian, n)
		_, err := ReadEnvelope(&buf)
		if err == nil || !strings.Contains(err.Error(), "invalid message length") {
			t.Errorf("length %d: err = %v, want invalid length", n, err)
		}
	}
}

func TestNewEnvelopeNilData(t *testing.T) {
	env, err := NewEnvelope(TypeStatus, nil)
	if err != nil {
		t.Fatal(err)
	}
	if env.Data != nil {
		t.Errorf("data = %s, want nil", env.Data)
	}
}
