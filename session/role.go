package session

import (
	"path/filepath"

	m64p "github.com/user-none/m64ui/api"
)

// Role is one of the four plugin slots of a session.
type Role int

// Attach order. Detach runs in reverse.
const (
	RoleGraphics Role = iota
	RoleAudio
	RoleInput
	RoleRSP
	NumRoles
)

// Roles lists every role in attach order.
var Roles = [NumRoles]Role{RoleGraphics, RoleAudio, RoleInput, RoleRSP}

// PluginType returns the core's plugin type for the role.
func (r Role) PluginType() m64p.PluginType {
	switch r {
	case RoleGraphics:
		return m64p.PluginGfx
	case RoleAudio:
		return m64p.PluginAudio
	case RoleInput:
		return m64p.PluginInput
	case RoleRSP:
		return m64p.PluginRSP
	}
	return m64p.PluginNull
}

func (r Role) String() string {
	switch r {
	case RoleGraphics:
		return "graphics"
	case RoleAudio:
		return "audio"
	case RoleInput:
		return "input"
	case RoleRSP:
		return "RSP"
	}
	return "unknown"
}

// PluginTable holds the loaded plugin for each role.
type PluginTable [NumRoles]m64p.Plugin

// Loaded reports whether every role has a plugin.
func (t *PluginTable) Loaded() bool {
	for _, p := range t {
		if p == nil {
			return false
		}
	}
	return true
}

// Name returns the display name of the role's plugin, or "" when empty.
func (t *PluginTable) Name(r Role) string {
	if t[r] == nil {
		return ""
	}
	return t[r].Name()
}

// PluginPaths names the library file for each role.
type PluginPaths [NumRoles]string

// Resolve joins bare file names with dir. Absolute paths and empty entries
// are left alone.
func (p PluginPaths) Resolve(dir string) PluginPaths {
	var out PluginPaths
	for i, name := range p {
		switch {
		case name == "", filepath.IsAbs(name), dir == "":
			out[i] = name
		default:
			out[i] = filepath.Join(dir, name)
		}
	}
	return out
}
