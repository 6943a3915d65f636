package iio

import (
	"bytes"
	"errors"
	"os"
	"testing"
)

func TestVec3Layout(t *testing.T) {
	b := []byte{
		0x01, 0x00, // x = 1
		0xff, 0xff, // y = -1
		0x00, 0x80, // z = -32768
		0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11,
	}
	v, err := DecodeVec3(b)
	if err != nil {
		t.Fatal(err)
	}
	if v.X != 1 || v.Y != -1 || v.Z != -32768 {
		t.Fatalf("axes = %+v", v)
	}
	if v.Timestamp != 0x1122334455667788 {
		t.Fatalf("timestamp = %#x", v.Timestamp)
	}
	if !bytes.Equal(AppendVec3(nil, v), b) {
		t.Fatal("encode mismatch")
	}
}

func TestVec4Layout(t *testing.T) {
	want := Vec4{X: 100, Y: -200, Z: 300, Status: 3, Timestamp: 987654321}
	b := AppendVec4(nil, want)
	if len(b) != Vec4Size {
		t.Fatalf("len = %d", len(b))
	}
	got, err := ReadVec4(bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestShortRecord(t *testing.T) {
	b := AppendVec3(nil, Vec3{X: 1})
	if _, err := ReadVec3(bytes.NewReader(b[:Vec3Size-1])); !errors.Is(err, ErrShortRecord) {
		t.Fatalf("err = %v", err)
	}
	if _, err := DecodeVec4(make([]byte, Vec4Size-1)); !errors.Is(err, ErrShortRecord) {
		t.Fatalf("decode err = %v", err)
	}
}

func TestWaitReadablePipe(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	if _, err := w.Write(AppendVec3(nil, Vec3{})); err != nil {
		t.Fatal(err)
	}
	if err := WaitReadable(int(r.Fd())); err != nil {
		t.Fatalf("WaitReadable = %v", err)
	}
}
