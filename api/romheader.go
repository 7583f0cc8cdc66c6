package m64p

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// ROMHeaderSize is the size of the header filled in by CmdROMGetHeader.
const ROMHeaderSize = 0x40

// ROMHeader is the decoded m64p_rom_header. Multi-byte fields are read in
// host (little endian) order exactly as the core writes them, so CRC1 and
// CRC2 hold byte-swapped values on every supported host.
type ROMHeader struct {
	ClockRate      uint32
	PC             uint32
	Release        uint32
	CRC1           uint32
	CRC2           uint32
	Name           [20]byte
	ManufacturerID uint32
	CartridgeID    uint16
	CountryCode    uint16
}

// ParseROMHeader decodes the raw header buffer returned by the core.
func ParseROMHeader(buf []byte) (ROMHeader, error) {
	var h ROMHeader
	if len(buf) < ROMHeaderSize {
		return h, fmt.Errorf("rom header too short: %d bytes", len(buf))
	}
	le := binary.LittleEndian
	h.ClockRate = le.Uint32(buf[0x04:])
	h.PC = le.Uint32(buf[0x08:])
	h.Release = le.Uint32(buf[0x0C:])
	h.CRC1 = le.Uint32(buf[0x10:])
	h.CRC2 = le.Uint32(buf[0x14:])
	copy(h.Name[:], buf[0x20:0x34])
	h.ManufacturerID = le.Uint32(buf[0x38:])
	h.CartridgeID = le.Uint16(buf[0x3C:])
	h.CountryCode = le.Uint16(buf[0x3E:])
	return h, nil
}

// Title returns the internal ROM name with padding removed.
func (h ROMHeader) Title() string {
	name := h.Name[:]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(string(name))
}

// Country returns the low byte of the country code field.
func (h ROMHeader) Country() byte {
	return byte(h.CountryCode & 0xff)
}
