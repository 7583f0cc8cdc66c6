package cheat

import (
	"bytes"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	m64p "github.com/user-none/m64ui/api"
)

const sampleDB = `// mupen64plus cheat code database

crc 635A2BFF-8B022326-C:45
gn Super Mario 64 (U)
 cn Infinite Lives
  cd Never lose a life
  8033B21D 0064
 cn Star Select
  8033B4AB ???? 0001:Bob-omb Battlefield,0002:Whomp's Fortress
  8033B4AC ????

crc 78563412-F0DEBC9A-C:45
gn Test Game
 cn Moon Jump
  D033AFA1 0020
  8033B1BC 0050
`

func TestSectionKey(t *testing.T) {
	tests := []struct {
		name    string
		crc1    uint32
		crc2    uint32
		country uint16
		want    string
	}{
		{"swapped", 0x12345678, 0x9ABCDEF0, 0x45, "78563412-F0DEBC9A-C:45"},
		{"leading zeros", 0x00000001, 0x00000100, 0x4A, "01000000-00010000-C:4A"},
		{"high byte dropped", 0x12345678, 0x9ABCDEF0, 0x0150, "78563412-F0DEBC9A-C:50"},
		{"single digit country", 0, 0, 0x07, "00000000-00000000-C:7"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := SectionKey(tc.crc1, tc.crc2, tc.country)
			if got != tc.want {
				t.Errorf("SectionKey = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestHeaderKey(t *testing.T) {
	h := m64p.ROMHeader{CRC1: 0x12345678, CRC2: 0x9ABCDEF0, CountryCode: 0x45}
	if got := HeaderKey(h); got != "78563412-F0DEBC9A-C:45" {
		t.Errorf("HeaderKey = %q", got)
	}
}

func TestParse(t *testing.T) {
	db, err := Parse(strings.NewReader(sampleDB))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if db.SectionCount() != 2 {
		t.Fatalf("SectionCount = %d, want 2", db.SectionCount())
	}

	sec := db.Lookup("635a2bff-8b022326-c:45")
	if sec == nil {
		t.Fatal("section not found (lookup should ignore case)")
	}
	if sec.GameName != "Super Mario 64 (U)" {
		t.Errorf("GameName = %q", sec.GameName)
	}
	if len(sec.Cheats) != 2 {
		t.Fatalf("got %d cheats, want 2", len(sec.Cheats))
	}

	lives := sec.Cheats[0]
	if lives.Name != "Infinite Lives" || lives.Description != "Never lose a life" {
		t.Errorf("cheat 0 = %+v", lives)
	}
	if len(lives.Codes) != 1 || lives.Codes[0] != (Code{Address: 0x8033B21D, Value: 0x64}) {
		t.Errorf("codes = %+v", lives.Codes)
	}

	star := sec.Cheats[1]
	if len(star.Options) != 2 || star.Options[1] != (Option{Value: 2, Name: "Whomp's Fortress"}) {
		t.Errorf("options = %+v", star.Options)
	}
	if len(star.Codes) != 2 || !star.Codes[0].Variable || !star.Codes[1].Variable {
		t.Errorf("codes = %+v", star.Codes)
	}
}

func TestLookupMissing(t *testing.T) {
	db, err := Parse(strings.NewReader(sampleDB))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if db.Lookup("00000000-00000000-C:0") != nil {
		t.Error("expected nil for unknown key")
	}

	var nilDB *Database
	if nilDB.Lookup("x") != nil {
		t.Error("nil database should find nothing")
	}
}

func TestParseDropsMalformedCheats(t *testing.T) {
	var logs bytes.Buffer
	log.SetOutput(&logs)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	tests := []struct {
		name string
		line string
	}{
		{"bad address", "ZZZZ 0001"},
		{"bad value", "80000000 XYZW"},
		{"no value", "80000000"},
		{"variable without options", "80000000 ????"},
		{"bad option", "80000000 ???? 0001"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			logs.Reset()
			input := "crc A-B-C:1\n cn Broken\n  80000010 0001\n  " + tc.line +
				"\n  80000020 0002\n cn Good\n  80000030 0003\n"
			db, err := Parse(strings.NewReader(input))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			sec := db.Lookup("A-B-C:1")
			if sec == nil {
				t.Fatal("section dropped with the bad cheat")
			}
			if len(sec.Cheats) != 1 || sec.Cheats[0].Name != "Good" {
				t.Errorf("cheats = %+v, want only Good", sec.Cheats)
			}
			if !strings.Contains(logs.String(), "line 4") {
				t.Errorf("warning = %q, want line number", logs.String())
			}
		})
	}
}

func TestParseQuotedOptions(t *testing.T) {
	input := `crc A-B-C:1
 cn Character
  80000000 ???? 0000:"Mario",0001:"Luigi, Player 2",0002:Wario
`
	db, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sec := db.Lookup("A-B-C:1")
	if sec == nil || len(sec.Cheats) != 1 {
		t.Fatalf("section = %+v", sec)
	}
	want := []Option{{0, "Mario"}, {1, "Luigi, Player 2"}, {2, "Wario"}}
	got := sec.Cheats[0].Options
	if len(got) != len(want) {
		t.Fatalf("options = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("option %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestResolve(t *testing.T) {
	db, _ := Parse(strings.NewReader(sampleDB))
	sec := db.Lookup("635A2BFF-8B022326-C:45")
	star, ok := sec.Find("Star Select")
	if !ok {
		t.Fatal("Star Select not found")
	}

	codes, err := star.Resolve(1)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []m64p.CheatCode{{Address: 0x8033B4AB, Value: 2}, {Address: 0x8033B4AC, Value: 2}}
	if len(codes) != len(want) || codes[0] != want[0] || codes[1] != want[1] {
		t.Errorf("codes = %+v, want %+v", codes, want)
	}

	if _, err := star.Resolve(5); !errors.Is(err, ErrOptionRequired) {
		t.Errorf("out of range option: err = %v", err)
	}
}

func TestSelect(t *testing.T) {
	db, _ := Parse(strings.NewReader(sampleDB))
	sec := db.Lookup("635A2BFF-8B022326-C:45")

	enabled, err := sec.Select([]Selection{
		{Name: "Infinite Lives"},
		{Name: "Does Not Exist"},
		{Name: "Star Select", Option: 0},
	})
	if !errors.Is(err, ErrNoSuchCheat) {
		t.Errorf("err = %v, want ErrNoSuchCheat", err)
	}
	if len(enabled) != 2 {
		t.Fatalf("got %d enabled, want 2", len(enabled))
	}
	if enabled[0].Name != "Infinite Lives" || enabled[0].Codes[0].Value != 0x64 {
		t.Errorf("enabled[0] = %+v", enabled[0])
	}
	if enabled[1].Codes[0].Value != 1 {
		t.Errorf("enabled[1] = %+v", enabled[1])
	}
}

func TestLoadDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	if err := os.WriteFile(path, []byte(sampleDB), 0644); err != nil {
		t.Fatal(err)
	}
	db, err := LoadDatabase(path)
	if err != nil {
		t.Fatalf("LoadDatabase: %v", err)
	}
	if db.Lookup("78563412-F0DEBC9A-C:45") == nil {
		t.Error("test section missing")
	}

	if _, err := LoadDatabase(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}
