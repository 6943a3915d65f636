// Package iio reads packed samples from an IIO character device buffer.
//
// Sensors handled here push one record per scan: signed 16-bit channels
// followed by a 64-bit timestamp, packed without padding, little-endian.
package iio

import (
	"encoding/binary"
	"errors"
	"io"
)

// Record sizes in bytes.
const (
	Vec3Size = 3*2 + 8
	Vec4Size = 4*2 + 8
)

// Errors returned by the reader.
var (
	ErrShortRecord = errors.New("iio: short record")
	ErrPoll        = errors.New("iio: poll failed")
	ErrPollTimeout = errors.New("iio: poll timeout")
	ErrNotReadable = errors.New("iio: not readable")
)

// Vec3 is a three-axis record (accelerometer, gyroscope).
type Vec3 struct {
	X, Y, Z   int16
	Timestamp int64
}

// Vec4 is a three-axis record with a status channel (magnetometer).
type Vec4 struct {
	X, Y, Z, Status int16
	Timestamp       int64
}

func DecodeVec3(b []byte) (Vec3, error) {
	if len(b) < Vec3Size {
		return Vec3{}, ErrShortRecord
	}
	return Vec3{
		X:         int16(binary.LittleEndian.Uint16(b[0:2])),
		Y:         int16(binary.LittleEndian.Uint16(b[2:4])),
		Z:         int16(binary.LittleEndian.Uint16(b[4:6])),
		Timestamp: int64(binary.LittleEndian.Uint64(b[6:14])),
	}, nil
}

func DecodeVec4(b []byte) (Vec4, error) {
	if len(b) < Vec4Size {
		return Vec4{}, ErrShortRecord
	}
	return Vec4{
		X:         int16(binary.LittleEndian.Uint16(b[0:2])),
		Y:         int16(binary.LittleEndian.Uint16(b[2:4])),
		Z:         int16(binary.LittleEndian.Uint16(b[4:6])),
		Status:    int16(binary.LittleEndian.Uint16(b[6:8])),
		Timestamp: int64(binary.LittleEndian.Uint64(b[8:16])),
	}, nil
}

// AppendVec3 encodes v in buffer layout.
func AppendVec3(b []byte, v Vec3) []byte {
	b = binary.LittleEndian.AppendUint16(b, uint16(v.X))
	b = binary.LittleEndian.AppendUint16(b, uint16(v.Y))
	b = binary.LittleEndian.AppendUint16(b, uint16(v.Z))
	return binary.LittleEndian.AppendUint64(b, uint64(v.Timestamp))
}

// AppendVec4 encodes v in buffer layout.
func AppendVec4(b []byte, v Vec4) []byte {
	b = binary.LittleEndian.AppendUint16(b, uint16(v.X))
	b = binary.LittleEndian.AppendUint16(b, uint16(v.Y))
	b = binary.LittleEndian.AppendUint16(b, uint16(v.Z))
	b = binary.LittleEndian.AppendUint16(b, uint16(v.Status))
	return binary.LittleEndian.AppendUint64(b, uint64(v.Timestamp))
}

// ReadVec3 performs one read of exactly Vec3Size bytes.
func ReadVec3(r io.Reader) (Vec3, error) {
	var buf [Vec3Size]byte
	if err := readOnce(r, buf[:]); err != nil {
		return Vec3{}, err
	}
	return DecodeVec3(buf[:])
}

// ReadVec4 performs one read of exactly Vec4Size bytes.
func ReadVec4(r io.Reader) (Vec4, error) {
	var buf [Vec4Size]byte
	if err := readOnce(r, buf[:]); err != nil {
		return Vec4{}, err
	}
	return DecodeVec4(buf[:])
}

func readOnce(r io.Reader, buf []byte) error {
	n, err := r.Read(buf)
	if n == len(buf) {
		return nil
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return ErrShortRecord
}
