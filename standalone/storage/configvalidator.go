package storage

import (
	"encoding/json"
	"fmt"

	m64p "github.com/user-none/m64ui/api"
)

// detectPresentKeys unmarshals JSON bytes to determine which config keys
// are explicitly present in the file. Returns a flat set of dotted-path keys
// (e.g., "plugins.video", "window.width"). Only checks fields that have
// defaults worth restoring.
func detectPresentKeys(jsonBytes []byte) map[string]bool {
	present := make(map[string]bool)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(jsonBytes, &raw); err != nil {
		return present
	}

	for _, k := range []string{"version", "theme", "fontSize", "recentROMs", "saveSlot"} {
		if _, ok := raw[k]; ok {
			present[k] = true
		}
	}

	nested := map[string][]string{
		"plugins": {"video", "audio", "input", "rsp"},
		"window":  {"width", "height"},
	}
	for section, keys := range nested {
		sectionRaw, ok := raw[section]
		if !ok {
			continue
		}
		var fields map[string]json.RawMessage
		if json.Unmarshal(sectionRaw, &fields) != nil {
			continue
		}
		for _, k := range keys {
			if _, ok := fields[k]; ok {
				present[section+"."+k] = true
			}
		}
	}

	return present
}

// ApplyMissingDefaults sets default values for config fields that are absent
// from the JSON file. Only truly missing fields get defaults, preserving
// intentional values such as an empty plugin name.
func ApplyMissingDefaults(config *Config, presentKeys map[string]bool) {
	defaults := DefaultConfig()

	if !presentKeys["version"] {
		config.Version = defaults.Version
	}
	if !presentKeys["theme"] {
		config.Theme = defaults.Theme
	}
	if !presentKeys["fontSize"] {
		config.FontSize = defaults.FontSize
	}
	if !presentKeys["recentROMs"] || config.RecentROMs == nil {
		config.RecentROMs = defaults.RecentROMs
	}
	if !presentKeys["plugins.video"] {
		config.Plugins.Video = defaults.Plugins.Video
	}
	if !presentKeys["plugins.audio"] {
		config.Plugins.Audio = defaults.Plugins.Audio
	}
	if !presentKeys["plugins.input"] {
		config.Plugins.Input = defaults.Plugins.Input
	}
	if !presentKeys["plugins.rsp"] {
		config.Plugins.RSP = defaults.Plugins.RSP
	}
	if !presentKeys["window.width"] {
		config.Window.Width = defaults.Window.Width
	}
	if !presentKeys["window.height"] {
		config.Window.Height = defaults.Window.Height
	}
}

// ValidateConfig checks all config fields against valid ranges and returns
// human-readable error descriptions. An empty slice means the config is valid.
// validThemes should be the list of known theme names.
func ValidateConfig(config *Config, validThemes []string) []string {
	var errors []string

	if config.Version != 1 {
		errors = append(errors, fmt.Sprintf("version: %d (valid: 1)", config.Version))
	}
	if !contains(validThemes, config.Theme) {
		errors = append(errors, fmt.Sprintf("theme: %q (valid: %v)", config.Theme, validThemes))
	}
	if !containsInt(FontSizePresets, config.FontSize) {
		errors = append(errors, fmt.Sprintf("fontSize: %d (valid: %v)", config.FontSize, FontSizePresets))
	}
	if config.SaveSlot < 0 || config.SaveSlot > m64p.MaxSaveSlot {
		errors = append(errors, fmt.Sprintf("saveSlot: %d (valid: 0-%d)", config.SaveSlot, m64p.MaxSaveSlot))
	}
	if len(config.RecentROMs) > MaxRecentROMs {
		errors = append(errors, fmt.Sprintf("recentROMs: %d entries (valid: <= %d)", len(config.RecentROMs), MaxRecentROMs))
	}
	if config.Window.Width < 320 {
		errors = append(errors, fmt.Sprintf("window.width: %d (valid: >= 320)", config.Window.Width))
	}
	if config.Window.Height < 240 {
		errors = append(errors, fmt.Sprintf("window.height: %d (valid: >= 240)", config.Window.Height))
	}

	return errors
}

// CorrectConfig resets any invalid fields to their defaults from DefaultConfig().
// Valid fields are preserved. validThemes should be the list of known theme names.
func CorrectConfig(config *Config, validThemes []string) *Config {
	defaults := DefaultConfig()

	if config.Version != 1 {
		config.Version = defaults.Version
	}
	if !contains(validThemes, config.Theme) {
		config.Theme = defaults.Theme
	}
	if !containsInt(FontSizePresets, config.FontSize) {
		config.FontSize = defaults.FontSize
	}
	if config.SaveSlot < 0 || config.SaveSlot > m64p.MaxSaveSlot {
		config.SaveSlot = defaults.SaveSlot
	}
	if len(config.RecentROMs) > MaxRecentROMs {
		config.RecentROMs = config.RecentROMs[:MaxRecentROMs]
	}
	if config.Window.Width < 320 {
		config.Window.Width = defaults.Window.Width
	}
	if config.Window.Height < 240 {
		config.Window.Height = defaults.Window.Height
	}

	return config
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsInt(list []int, n int) bool {
	for _, v := range list {
		if v == n {
			return true
		}
	}
	return false
}
