package transport

import (
	"bufio"
	"bytes"
	"io"
	"math/big"
	"testing"
)

func TestWriteReadFrameRoundtrip(t *testing.T) {
	f := Frame{
		RunID: 7,
		Kind:  KindSignRequest,
		SignRequest: &SignRequestBody{
			Msg:         []byte("hello"),
			T:           []uint64{1, 2, 3},
			PreD:        PointBytes{0x04, 0x01},
			PreE:        PointBytes{0x04, 0x02},
			IsMalicious: true,
		},
	}

	var buf bytes.Buffer
	if err := WriteFrame(&buf, f); err != nil {
		t.Fatal(err)
	}

	got, err := ReadFrame(bufio.NewReader(&buf))
	if err != nil {
		t.Fatal(err)
	}

	if got.RunID != f.RunID || got.Kind != f.Kind {
		t.Fatalf("envelope mismatch: got %+v", got)
	}
	if got.SignRequest == nil || string(got.SignRequest.Msg) != "hello" {
		t.Fatalf("sign request body mismatch: got %+v", got.SignRequest)
	}
	if len(got.SignRequest.T) != 3 || got.SignRequest.T[2] != 3 {
		t.Fatalf("T mismatch: got %v", got.SignRequest.T)
	}
	if !got.SignRequest.IsMalicious {
		t.Errorf("expected is_malicious to round-trip true")
	}
}

func TestZeroLengthFrameIsEOF(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 0, 0, 0})
	_, err := ReadFrame(bufio.NewReader(buf))
	if err != io.EOF {
		t.Errorf("expected io.EOF for zero-length frame, got %v", err)
	}
}

func TestScalarBytesRoundtrip(t *testing.T) {
	x := big.NewInt(123456789)
	b := FromScalar(x)
	back := b.ToScalar()
	if back.Cmp(x) != 0 {
		t.Errorf("scalar roundtrip: got %v want %v", back, x)
	}
}

func TestScalarBytesNilForBottom(t *testing.T) {
	b := ScalarBytes(nil)
	if b.ToScalar() != nil {
		t.Errorf("expected nil scalar to decode as bottom (nil)")
	}
}

func TestMultipleFramesOnOneStream(t *testing.T) {
	var buf bytes.Buffer
	for i := uint64(0); i < 3; i++ {
		if err := WriteFrame(&buf, Frame{RunID: i, Kind: KindInit, Init: &InitBody{I: i}}); err != nil {
			t.Fatal(err)
		}
	}

	r := bufio.NewReader(&buf)
	for i := uint64(0); i < 3; i++ {
		f, err := ReadFrame(r)
		if err != nil {
			t.Fatal(err)
		}
		if f.RunID != i || f.Init == nil || f.Init.I != i {
			t.Fatalf("frame %d mismatch: %+v", i, f)
		}
	}
}
