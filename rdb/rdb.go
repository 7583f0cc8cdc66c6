// Package rdb reads libretro RDB game databases. An RDB file is a 16 byte
// "RARCHDB" header followed by one MessagePack map per game and a nil
// terminator.
package rdb

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrCorrupt reports a database that ends early or holds an unexpected
// value where a game entry should be.
var ErrCorrupt = errors.New("corrupt RDB")

const headerSize = 0x10

// Game is one database entry
type Game struct {
	Name         string // No-Intro name, e.g. "Super Mario 64 (USA)"
	Description  string
	Genre        string
	Developer    string
	Publisher    string
	Franchise    string
	ESRBRating   string
	ROMName      string
	Serial       string
	ReleaseMonth uint
	ReleaseYear  uint
	Size         uint64
	CRC32        uint32 // Of the big-endian (.z64) image
	MD5          string
}

// DB is a parsed database indexed by CRC32.
type DB struct {
	games   []Game
	byCRC32 map[uint32]*Game
}

// Load reads and parses the database at path.
func Load(path string) (*DB, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read RDB: %w", err)
	}
	return Parse(data)
}

// Parse decodes a whole database.
func Parse(data []byte) (*DB, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: short header", ErrCorrupt)
	}

	d := &decoder{data: data, pos: headerSize}
	var games []Game
	for d.pos < len(d.data) {
		v, err := d.value()
		if err != nil {
			return nil, err
		}
		if v.kind == kindNil {
			break
		}
		if v.kind != kindMap {
			return nil, fmt.Errorf("%w: entry at %#x is not a map", ErrCorrupt, d.pos)
		}
		g, err := d.game(v.n)
		if err != nil {
			return nil, err
		}
		if g.Name != "" || g.CRC32 != 0 {
			games = append(games, g)
		}
	}

	db := &DB{games: games, byCRC32: make(map[uint32]*Game, len(games))}
	for i := range db.games {
		if crc := db.games[i].CRC32; crc != 0 {
			db.byCRC32[crc] = &db.games[i]
		}
	}
	return db, nil
}

// FindByCRC32 returns the entry for a big-endian image checksum, or nil.
func (db *DB) FindByCRC32(crc uint32) *Game {
	if db == nil {
		return nil
	}
	return db.byCRC32[crc]
}

// GameCount returns the number of entries.
func (db *DB) GameCount() int {
	return len(db.games)
}

// DisplayName strips the region and revision tags from a No-Intro name.
func DisplayName(name string) string {
	if idx := strings.Index(name, " ("); idx > 0 {
		return strings.TrimSpace(name[:idx])
	}
	return name
}

// game reads n key/value pairs into a Game.
func (d *decoder) game(n int) (Game, error) {
	var g Game
	for i := 0; i < n; i++ {
		k, err := d.value()
		if err != nil {
			return g, err
		}
		v, err := d.value()
		if err != nil {
			return g, err
		}
		if v.kind == kindMap || v.kind == kindArray {
			if err := d.skip(v); err != nil {
				return g, err
			}
			continue
		}
		if k.kind == kindStr {
			setField(&g, string(k.raw), v)
		}
	}
	return g, nil
}

func setField(g *Game, key string, v value) {
	switch key {
	case "name":
		g.Name = v.str()
	case "description":
		g.Description = v.str()
	case "genre":
		g.Genre = v.str()
	case "developer":
		g.Developer = v.str()
	case "publisher":
		g.Publisher = v.str()
	case "franchise":
		g.Franchise = v.str()
	case "esrb_rating":
		g.ESRBRating = v.str()
	case "rom_name":
		g.ROMName = v.str()
	case "serial":
		g.Serial = v.str()
	case "size":
		g.Size = v.uint()
	case "releasemonth":
		g.ReleaseMonth = uint(v.uint())
	case "releaseyear":
		g.ReleaseYear = uint(v.uint())
	case "crc":
		g.CRC32 = uint32(v.uint())
	case "md5":
		if v.kind == kindBin {
			g.MD5 = hex.EncodeToString(v.raw)
		} else {
			g.MD5 = strings.ToLower(v.str())
		}
	}
}

type kind int

const (
	kindNil kind = iota
	kindBool
	kindUint
	kindInt
	kindStr
	kindBin
	kindArray
	kindMap
)

// value is one decoded MessagePack item. Containers carry their element
// count in n; their contents follow in the stream.
type value struct {
	kind kind
	n    int
	u    uint64
	raw  []byte
}

func (v value) str() string {
	if v.kind == kindStr || v.kind == kindBin {
		return string(v.raw)
	}
	return ""
}

// uint reads integers directly and binary values as big-endian numbers,
// which is how RDB stores checksums.
func (v value) uint() uint64 {
	switch v.kind {
	case kindUint, kindInt:
		return v.u
	case kindBin:
		var u uint64
		for _, b := range v.raw {
			u = u<<8 | uint64(b)
		}
		return u
	}
	return 0
}

type decoder struct {
	data []byte
	pos  int
}

func (d *decoder) take(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.data) {
		return nil, fmt.Errorf("%w: truncated at %#x", ErrCorrupt, d.pos)
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

// length reads a big-endian length field of size bytes.
func (d *decoder) length(size int) (int, error) {
	b, err := d.take(size)
	if err != nil {
		return 0, err
	}
	switch size {
	case 1:
		return int(b[0]), nil
	case 2:
		return int(binary.BigEndian.Uint16(b)), nil
	}
	return int(binary.BigEndian.Uint32(b)), nil
}

func (d *decoder) bytesOf(k kind, size int) (value, error) {
	n, err := d.length(size)
	if err != nil {
		return value{}, err
	}
	raw, err := d.take(n)
	return value{kind: k, raw: raw}, err
}

func (d *decoder) number(k kind, size int) (value, error) {
	b, err := d.take(size)
	if err != nil {
		return value{}, err
	}
	var u uint64
	for _, x := range b {
		u = u<<8 | uint64(x)
	}
	return value{kind: k, u: u}, nil
}

func (d *decoder) container(k kind, size int) (value, error) {
	n, err := d.length(size)
	return value{kind: k, n: n}, err
}

func (d *decoder) value() (value, error) {
	hdr, err := d.take(1)
	if err != nil {
		return value{}, err
	}
	b := hdr[0]

	switch {
	case b <= 0x7f:
		return value{kind: kindUint, u: uint64(b)}, nil
	case b <= 0x8f:
		return value{kind: kindMap, n: int(b & 0x0f)}, nil
	case b <= 0x9f:
		return value{kind: kindArray, n: int(b & 0x0f)}, nil
	case b <= 0xbf:
		raw, err := d.take(int(b & 0x1f))
		return value{kind: kindStr, raw: raw}, err
	case b >= 0xe0:
		return value{kind: kindInt, u: uint64(int8(b))}, nil
	}

	switch b {
	case 0xc0:
		return value{kind: kindNil}, nil
	case 0xc2, 0xc3:
		return value{kind: kindBool, u: uint64(b & 1)}, nil
	case 0xc4:
		return d.bytesOf(kindBin, 1)
	case 0xc5:
		return d.bytesOf(kindBin, 2)
	case 0xc6:
		return d.bytesOf(kindBin, 4)
	case 0xcc:
		return d.number(kindUint, 1)
	case 0xcd:
		return d.number(kindUint, 2)
	case 0xce:
		return d.number(kindUint, 4)
	case 0xcf:
		return d.number(kindUint, 8)
	case 0xd0:
		return d.number(kindInt, 1)
	case 0xd1:
		return d.number(kindInt, 2)
	case 0xd2:
		return d.number(kindInt, 4)
	case 0xd3:
		return d.number(kindInt, 8)
	case 0xd9:
		return d.bytesOf(kindStr, 1)
	case 0xda:
		return d.bytesOf(kindStr, 2)
	case 0xdb:
		return d.bytesOf(kindStr, 4)
	case 0xdc:
		return d.container(kindArray, 2)
	case 0xdd:
		return d.container(kindArray, 4)
	case 0xde:
		return d.container(kindMap, 2)
	case 0xdf:
		return d.container(kindMap, 4)
	}
	return value{}, fmt.Errorf("%w: unsupported type %#02x at %#x", ErrCorrupt, b, d.pos-1)
}

// skip consumes the contents of a container already read.
func (d *decoder) skip(v value) error {
	items := v.n
	if v.kind == kindMap {
		items *= 2
	}
	for i := 0; i < items; i++ {
		inner, err := d.value()
		if err != nil {
			return err
		}
		if inner.kind == kindMap || inner.kind == kindArray {
			if err := d.skip(inner); err != nil {
				return err
			}
		}
	}
	return nil
}
