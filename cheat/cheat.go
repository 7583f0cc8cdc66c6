// Package cheat is a parser for mupencheat.txt, the text database of cheat
// codes shipped with the mupen64plus core, and turns enabled entries into the
// address/value pairs handed to the core.
package cheat

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	m64p "github.com/user-none/m64ui/api"
)

// DefaultFile is the database file name inside the core's data directory.
const DefaultFile = "mupencheat.txt"

// ErrNoSuchCheat is returned when a selection names a cheat the ROM lacks.
var ErrNoSuchCheat = errors.New("cheat not found")

// ErrOptionRequired is returned when a cheat with variable codes is enabled
// without picking one of its options.
var ErrOptionRequired = errors.New("cheat needs an option")

// Option is one of the values a variable code can take.
type Option struct {
	Value uint16
	Name  string
}

// Code is one address/value line. Variable codes take their value from the
// option chosen when the cheat is enabled.
type Code struct {
	Address  uint32
	Value    uint16
	Variable bool
}

// Cheat is a named group of codes applied together
type Cheat struct {
	Name        string // Backslash separated folders, e.g. "Players\Infinite Lives"
	Description string
	Codes       []Code
	Options     []Option
}

// Section holds every cheat for one ROM
type Section struct {
	Key      string // CRC1-CRC2-C:country
	GameName string
	Cheats   []Cheat
}

// Database contains all sections of a parsed cheat file
type Database struct {
	sections []Section
	byKey    map[string]*Section
}

// Selection enables one cheat by name, with the option index to use for its
// variable codes. Option is ignored for cheats without options.
type Selection struct {
	Name   string `json:"name"`
	Option int    `json:"option"`
}

// SectionKey builds the database key for a ROM from the CRCs and country
// code found in its header. The CRCs are byte swapped relative to the
// header's host order.
func SectionKey(crc1, crc2 uint32, country uint16) string {
	return fmt.Sprintf("%08X-%08X-C:%X", swap32(crc1), swap32(crc2), country&0xff)
}

// HeaderKey is SectionKey for a decoded ROM header.
func HeaderKey(h m64p.ROMHeader) string {
	return SectionKey(h.CRC1, h.CRC2, h.CountryCode)
}

func swap32(v uint32) uint32 {
	return v>>24 | (v>>8)&0xff00 | (v<<8)&0xff0000 | v<<24
}

// LoadDatabase loads and parses a cheat file from disk
func LoadDatabase(path string) (*Database, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cheat file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a cheat database. A cheat with a malformed code line is
// dropped with a logged warning and the rest of the file is kept; unknown
// line types are skipped. Only read failures are returned.
func Parse(r io.Reader) (*Database, error) {
	db := &Database{byKey: make(map[string]*Section)}

	var sec *Section
	var cur *Cheat
	broken := false
	flush := func() {
		if sec != nil && cur != nil && !broken {
			sec.Cheats = append(sec.Cheats, *cur)
		}
		cur = nil
		broken = false
	}

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}

		switch {
		case strings.HasPrefix(line, "crc "):
			flush()
			if sec != nil {
				db.sections = append(db.sections, *sec)
			}
			sec = &Section{Key: strings.ToUpper(strings.TrimSpace(line[4:]))}
		case sec == nil:
			// Anything before the first section is a file header.
		case strings.HasPrefix(line, "gn "):
			sec.GameName = strings.TrimSpace(line[3:])
		case strings.HasPrefix(line, "cn "):
			flush()
			cur = &Cheat{Name: strings.TrimSpace(line[3:])}
		case strings.HasPrefix(line, "cd "):
			if cur != nil {
				cur.Description = strings.TrimSpace(line[3:])
			}
		case cur != nil && !broken:
			if err := parseCode(cur, line); err != nil {
				log.Printf("Warning: cheat file line %d: dropping %q in %s: %v", lineNo, cur.Name, sec.Key, err)
				broken = true
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cheat file: %w", err)
	}
	flush()
	if sec != nil {
		db.sections = append(db.sections, *sec)
	}

	for i := range db.sections {
		db.byKey[db.sections[i].Key] = &db.sections[i]
	}
	return db, nil
}

// parseCode handles "AAAAAAAA VVVV" and "AAAAAAAA ???? VVVV:name,VVVV:name".
func parseCode(c *Cheat, line string) error {
	addrStr, rest, ok := strings.Cut(line, " ")
	if !ok {
		return fmt.Errorf("malformed code line %q", line)
	}
	addr, err := strconv.ParseUint(addrStr, 16, 32)
	if err != nil {
		return fmt.Errorf("bad address %q: %w", addrStr, err)
	}
	rest = strings.TrimSpace(rest)
	valStr, opts, _ := strings.Cut(rest, " ")

	if valStr == "????" {
		c.Codes = append(c.Codes, Code{Address: uint32(addr), Variable: true})
		if len(c.Options) == 0 {
			o, err := parseOptions(strings.TrimSpace(opts))
			if err != nil {
				return err
			}
			c.Options = o
		}
		return nil
	}

	val, err := strconv.ParseUint(valStr, 16, 16)
	if err != nil {
		return fmt.Errorf("bad value %q: %w", valStr, err)
	}
	c.Codes = append(c.Codes, Code{Address: uint32(addr), Value: uint16(val)})
	return nil
}

// parseOptions reads VVVV:name pairs. Names may be quoted, and quoted names
// may contain commas.
func parseOptions(s string) ([]Option, error) {
	if s == "" {
		return nil, errors.New("variable code without options")
	}
	var out []Option
	for _, part := range splitOptions(s) {
		valStr, name, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("malformed option %q", part)
		}
		val, err := strconv.ParseUint(strings.TrimSpace(valStr), 16, 16)
		if err != nil {
			return nil, fmt.Errorf("bad option value %q: %w", valStr, err)
		}
		name = strings.TrimSpace(name)
		if len(name) >= 2 && name[0] == '"' && name[len(name)-1] == '"' {
			name = name[1 : len(name)-1]
		}
		out = append(out, Option{Value: uint16(val), Name: name})
	}
	return out, nil
}

// splitOptions splits on commas outside double quotes.
func splitOptions(s string) []string {
	var parts []string
	quoted := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			quoted = !quoted
		case ',':
			if !quoted {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// Lookup returns the section for a ROM key, or nil when the database has no
// cheats for it.
func (db *Database) Lookup(key string) *Section {
	if db == nil {
		return nil
	}
	return db.byKey[strings.ToUpper(key)]
}

// SectionCount returns the number of ROM sections in the database
func (db *Database) SectionCount() int {
	return len(db.sections)
}

// Find returns the named cheat in the section
func (s *Section) Find(name string) (*Cheat, bool) {
	for i := range s.Cheats {
		if s.Cheats[i].Name == name {
			return &s.Cheats[i], true
		}
	}
	return nil, false
}

// Resolve produces the core's code list for this cheat with the given option.
func (c *Cheat) Resolve(option int) ([]m64p.CheatCode, error) {
	var optVal uint16
	if len(c.Options) > 0 {
		if option < 0 || option >= len(c.Options) {
			return nil, fmt.Errorf("%w: %s (option %d of %d)", ErrOptionRequired, c.Name, option, len(c.Options))
		}
		optVal = c.Options[option].Value
	}

	codes := make([]m64p.CheatCode, len(c.Codes))
	for i, code := range c.Codes {
		v := code.Value
		if code.Variable {
			v = optVal
		}
		codes[i] = m64p.CheatCode{Address: code.Address, Value: int32(v)}
	}
	return codes, nil
}

// Enabled is a resolved cheat ready for the core.
type Enabled struct {
	Name  string
	Codes []m64p.CheatCode
}

// Select resolves the chosen cheats of a section in selection order. Every
// selection that cannot be resolved is reported; the valid ones are still
// returned.
func (s *Section) Select(sel []Selection) ([]Enabled, error) {
	var out []Enabled
	var errs []error
	for _, want := range sel {
		c, ok := s.Find(want.Name)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrNoSuchCheat, want.Name))
			continue
		}
		codes, err := c.Resolve(want.Option)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, Enabled{Name: c.Name, Codes: codes})
	}
	return out, errors.Join(errs...)
}
