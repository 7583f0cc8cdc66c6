package romloader

import (
	"bytes"
	"testing"
)

func TestDetectByteOrder(t *testing.T) {
	tests := []struct {
		data []byte
		want ByteOrder
	}{
		{[]byte{0x80, 0x37, 0x12, 0x40}, OrderBigEndian},
		{[]byte{0x37, 0x80, 0x40, 0x12}, OrderByteSwapped},
		{[]byte{0x40, 0x12, 0x37, 0x80}, OrderLittleEndian},
		{[]byte{0x00, 0x00, 0x00, 0x00}, OrderUnknown},
		{[]byte{0x80, 0x37}, OrderUnknown},
	}
	for _, tt := range tests {
		if got := DetectByteOrder(tt.data); got != tt.want {
			t.Errorf("DetectByteOrder(%x) = %s, want %s", tt.data, got, tt.want)
		}
	}
}

func TestToBigEndian(t *testing.T) {
	want := []byte{0x80, 0x37, 0x12, 0x40, 0x01, 0x02, 0x03, 0x04}
	tests := []struct {
		name string
		in   []byte
	}{
		{"z64", []byte{0x80, 0x37, 0x12, 0x40, 0x01, 0x02, 0x03, 0x04}},
		{"v64", []byte{0x37, 0x80, 0x40, 0x12, 0x02, 0x01, 0x04, 0x03}},
		{"n64", []byte{0x40, 0x12, 0x37, 0x80, 0x04, 0x03, 0x02, 0x01}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToBigEndian(tt.in)
			if !bytes.Equal(got, want) {
				t.Errorf("got %x, want %x", got, want)
			}
		})
	}
}

func TestToBigEndianCopies(t *testing.T) {
	in := []byte{0x37, 0x80, 0x40, 0x12}
	ToBigEndian(in)
	if in[0] != 0x37 {
		t.Error("input was modified")
	}
}
