package storage

import (
	"github.com/user-none/m64ui/cheat"
	"github.com/user-none/m64ui/coreif"
)

// MaxRecentROMs is the length of the Open Recent list.
const MaxRecentROMs = 5

// Config represents the application configuration stored in config.json
type Config struct {
	Version    int                          `json:"version"`
	Theme      string                       `json:"theme"`    // Theme name: "Default", "Dark", "Light", "Retro"
	FontSize   int                          `json:"fontSize"` // 10-32, default 14
	Core       CoreConfig                   `json:"core"`
	Plugins    PluginConfig                 `json:"plugins"`
	RecentROMs []string                     `json:"recentROMs"` // Most recent first
	SaveSlot   int                          `json:"saveSlot"`   // 0-9
	Window     WindowConfig                 `json:"window"`
	Cheats     map[string][]cheat.Selection `json:"cheats,omitempty"` // Section key -> enabled cheats
}

// CoreConfig locates the core library and its directories. Each field can
// be overridden from the environment.
type CoreConfig struct {
	LibraryPath string `json:"libraryPath" env:"M64UI_CORE_LIB"`
	PluginDir   string `json:"pluginDir" env:"M64UI_PLUGIN_DIR"`
	ConfigDir   string `json:"configDir,omitempty" env:"M64UI_CONFIG_DIR"` // Empty = core default
	DataDir     string `json:"dataDir,omitempty" env:"M64UI_DATA_DIR"`     // Empty = core default
	Verbose     bool   `json:"verbose" env:"M64UI_VERBOSE"`
}

// PluginConfig names the library for each plugin role. Bare names are
// looked up in CoreConfig.PluginDir.
type PluginConfig struct {
	Video string `json:"video"`
	Audio string `json:"audio"`
	Input string `json:"input"`
	RSP   string `json:"rsp"`
}

// WindowConfig contains window position and size
type WindowConfig struct {
	Width  int  `json:"width"`
	Height int  `json:"height"`
	X      *int `json:"x,omitempty"` // nil = OS decides position
	Y      *int `json:"y,omitempty"`
}

// FontSizePresets lists the available font size options
var FontSizePresets = []int{10, 12, 14, 16, 18, 20, 24, 28, 32}

// ValidFontSize returns the nearest valid preset font size.
func ValidFontSize(size int) int {
	best := FontSizePresets[0]
	for _, p := range FontSizePresets {
		if abs(p-size) < abs(best-size) {
			best = p
		}
	}
	return best
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// DefaultPlugins returns the stock mupen64plus plugin set for this platform.
func DefaultPlugins() PluginConfig {
	ext := coreif.LibraryExtension()
	return PluginConfig{
		Video: "mupen64plus-video-GLideN64" + ext,
		Audio: "mupen64plus-audio-sdl" + ext,
		Input: "mupen64plus-input-sdl" + ext,
		RSP:   "mupen64plus-rsp-hle" + ext,
	}
}

// DefaultConfig returns a new Config with default values
func DefaultConfig() *Config {
	return &Config{
		Version:    1,
		Theme:      "Default",
		FontSize:   14,
		Core:       CoreConfig{},
		Plugins:    DefaultPlugins(),
		RecentROMs: []string{},
		SaveSlot:   0,
		Window: WindowConfig{
			Width:  640,
			Height: 480,
			X:      nil,
			Y:      nil,
		},
	}
}

// AddRecentROM moves path to the front of the recent list, dropping any
// older entry for it and anything past MaxRecentROMs.
func (c *Config) AddRecentROM(path string) {
	list := make([]string, 0, MaxRecentROMs)
	list = append(list, path)
	for _, p := range c.RecentROMs {
		if p == path {
			continue
		}
		if len(list) == MaxRecentROMs {
			break
		}
		list = append(list, p)
	}
	c.RecentROMs = list
}

// EnabledCheats returns the cheats enabled for a ROM section key.
func (c *Config) EnabledCheats(key string) []cheat.Selection {
	return c.Cheats[key]
}

// SetCheat enables or disables one cheat for a ROM. Enabling an already
// enabled cheat updates its option.
func (c *Config) SetCheat(key string, sel cheat.Selection, enabled bool) {
	list := c.Cheats[key]
	out := list[:0:0]
	for _, s := range list {
		if s.Name != sel.Name {
			out = append(out, s)
		}
	}
	if enabled {
		out = append(out, sel)
	}

	if len(out) == 0 {
		delete(c.Cheats, key)
		return
	}
	if c.Cheats == nil {
		c.Cheats = make(map[string][]cheat.Selection)
	}
	c.Cheats[key] = out
}

// CheatSnapshot returns a deep copy of the enabled cheats, safe to hand to
// another goroutine while the config keeps changing.
func (c *Config) CheatSnapshot() map[string][]cheat.Selection {
	out := make(map[string][]cheat.Selection, len(c.Cheats))
	for k, v := range c.Cheats {
		out[k] = append([]cheat.Selection(nil), v...)
	}
	return out
}
