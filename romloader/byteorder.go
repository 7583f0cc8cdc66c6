package romloader

// ByteOrder is the on-disk word layout of an N64 image.
type ByteOrder int

const (
	OrderUnknown      ByteOrder = iota
	OrderBigEndian              // .z64
	OrderByteSwapped            // .v64
	OrderLittleEndian           // .n64
)

func (o ByteOrder) String() string {
	switch o {
	case OrderBigEndian:
		return "z64"
	case OrderByteSwapped:
		return "v64"
	case OrderLittleEndian:
		return "n64"
	}
	return "unknown"
}

// DetectByteOrder inspects the first word of the image header.
func DetectByteOrder(data []byte) ByteOrder {
	if len(data) < 4 {
		return OrderUnknown
	}
	switch {
	case data[0] == 0x80 && data[1] == 0x37 && data[2] == 0x12 && data[3] == 0x40:
		return OrderBigEndian
	case data[0] == 0x37 && data[1] == 0x80 && data[2] == 0x40 && data[3] == 0x12:
		return OrderByteSwapped
	case data[0] == 0x40 && data[1] == 0x12 && data[2] == 0x37 && data[3] == 0x80:
		return OrderLittleEndian
	}
	return OrderUnknown
}

// ToBigEndian returns a copy of data in native (z64) order. Unknown layouts
// are copied through unchanged; the core does its own swapping on open.
func ToBigEndian(data []byte) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	switch DetectByteOrder(data) {
	case OrderByteSwapped:
		for i := 0; i+1 < len(out); i += 2 {
			out[i], out[i+1] = out[i+1], out[i]
		}
	case OrderLittleEndian:
		for i := 0; i+3 < len(out); i += 4 {
			out[i], out[i+1], out[i+2], out[i+3] = out[i+3], out[i+2], out[i+1], out[i]
		}
	}
	return out
}
