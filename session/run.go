package session

import (
	"errors"
	"fmt"
	"hash/crc32"
	"sync"

	m64p "github.com/user-none/m64ui/api"
	"github.com/user-none/m64ui/cheat"
	"github.com/user-none/m64ui/romloader"
)

// The cxd4 interpreter and the Angrylion rasterizer only agree on display
// lists when the RSP keeps them. The flag is forced off for the session.
const (
	hleRSPName  = "Static Interpreter"
	hleGfxName  = "Angrylion RDP Plus GFX Plugin"
	hleSection  = "rsp-cxd4"
	hleParamKey = "DisplayListToGraphicsPlugin"
)

// run is the worker body. Any failure before execution unwinds the whole
// core and reports an error matching m64p.ErrInvalidState.
func (c *Context) run(core m64p.Core, req Request) error {
	name, order, crc, err := c.openROM(core, req.ROMPath)
	if err != nil {
		return c.abort(core, false, err)
	}

	plugins, err := c.loadPlugins(core, req.Plugins)
	if err != nil {
		return c.abort(core, true, err)
	}

	restore := c.disableGfxHLE(core, &plugins)

	attached, err := c.attachPlugins(core, &plugins)
	if err != nil {
		c.teardown(core, &plugins, attached, restore)
		return c.abort(core, true, err)
	}

	header, err := core.ROMHeader()
	if err != nil {
		c.message(m64p.MsgWarning, "couldn't get ROM header information from core library")
		c.teardown(core, &plugins, attached, restore)
		return c.abort(core, true, err)
	}

	info := Info{
		ROMPath:  req.ROMPath,
		ROMName:  name,
		Order:    order,
		CRC32:    crc,
		Header:   header,
		CheatKey: cheat.HeaderKey(header),
	}
	for _, r := range Roles {
		info.Plugins[r] = plugins.Name(r)
	}
	c.mu.Lock()
	c.info = &info
	c.mu.Unlock()

	c.addCheats(core, info, req)
	if !c.beginExecute() {
		c.message(m64p.MsgStatus, "stopped before emulation started")
		c.teardown(core, &plugins, attached, restore)
		if err := core.CloseROM(); err != nil {
			c.message(m64p.MsgWarning, "ROM close failed: %v", err)
		}
		return nil
	}
	if c.cfg.OnStart != nil {
		c.cfg.OnStart(info)
	}

	execErr := core.Execute()
	if execErr != nil {
		c.message(m64p.MsgError, "emulation ended with error: %v", execErr)
	}

	c.teardown(core, &plugins, attached, restore)
	if err := core.CloseROM(); err != nil {
		c.message(m64p.MsgWarning, "ROM close failed: %v", err)
	}
	if execErr != nil {
		return fmt.Errorf("execute: %w", execErr)
	}
	return nil
}

// openROM resolves the image and hands it to the core. The buffer does not
// outlive the call; the core keeps its own copy. The returned CRC32 is of
// the big-endian image, matching game databases.
func (c *Context) openROM(core m64p.Core, path string) (string, romloader.ByteOrder, uint32, error) {
	rom, name, err := c.cfg.LoadROM(path)
	if err != nil {
		c.message(m64p.MsgError, "couldn't load ROM image '%s': %v", path, err)
		return "", romloader.OrderUnknown, 0, err
	}
	order := romloader.DetectByteOrder(rom)
	crc := crc32.ChecksumIEEE(romloader.ToBigEndian(rom))
	c.message(m64p.MsgVerbose, "loaded %s (%d bytes, %s, CRC32 %08X)", name, len(rom), order, crc)

	if err := core.OpenROM(rom); err != nil {
		c.message(m64p.MsgError, "core failed to open ROM image file '%s'.", path)
		return "", romloader.OrderUnknown, 0, err
	}
	return name, order, crc, nil
}

// abort closes the ROM when it was accepted, then shuts the core down and
// unloads its library.
func (c *Context) abort(core m64p.Core, romOpen bool, cause error) error {
	if romOpen {
		if err := core.CloseROM(); err != nil {
			c.message(m64p.MsgWarning, "ROM close failed: %v", err)
		}
	}

	c.life.Lock()
	c.mu.Lock()
	if c.core == core {
		c.core = nil
	}
	c.mu.Unlock()
	if err := errors.Join(core.Shutdown(), core.Detach()); err != nil {
		c.message(m64p.MsgWarning, "core unload failed: %v", err)
	}
	c.life.Unlock()

	return fmt.Errorf("%w: %w", m64p.ErrInvalidState, cause)
}

// loadPlugins loads every role or none.
func (c *Context) loadPlugins(core m64p.Core, paths PluginPaths) (PluginTable, error) {
	var t PluginTable
	for _, r := range Roles {
		if c.cfg.Plugins == nil || paths[r] == "" {
			unloadPlugins(&t)
			c.message(m64p.MsgError, "no %s plugin configured", r)
			return PluginTable{}, fmt.Errorf("no %s plugin configured", r)
		}
		p, err := c.cfg.Plugins.Load(core, paths[r])
		if err == nil && p.Type() != r.PluginType() {
			got := p.Type()
			p.Close()
			err = fmt.Errorf("%s is a %s plugin", paths[r], got)
		}
		if err != nil {
			unloadPlugins(&t)
			c.message(m64p.MsgError, "couldn't load %s plugin: %v", r, err)
			return PluginTable{}, fmt.Errorf("load %s plugin: %w", r, err)
		}
		c.message(m64p.MsgInfo, "using %s plugin: '%s' v%d", r, p.Name(), p.Version())
		t[r] = p
	}
	return t, nil
}

// attachPlugins attaches in role order and stops at the first failure. It
// returns how many roles were attached.
func (c *Context) attachPlugins(core m64p.Core, t *PluginTable) (int, error) {
	if !t.Loaded() {
		return 0, fmt.Errorf("attach plugins: %w: plugin table incomplete", m64p.ErrNotInit)
	}
	for i, r := range Roles {
		if err := core.AttachPlugin(r.PluginType(), t[r]); err != nil {
			c.message(m64p.MsgError, "core error while attaching %s plugin.", r)
			return i, fmt.Errorf("attach %s plugin: %w", r, err)
		}
	}
	return len(Roles), nil
}

// teardown restores the HLE flag, detaches the first n roles in reverse and
// unloads every plugin.
func (c *Context) teardown(core m64p.Core, t *PluginTable, n int, restore func()) {
	restore()
	for i := n - 1; i >= 0; i-- {
		r := Roles[i]
		if err := core.DetachPlugin(r.PluginType()); err != nil {
			c.message(m64p.MsgWarning, "detach %s plugin: %v", r, err)
		}
	}
	unloadPlugins(t)
}

func unloadPlugins(t *PluginTable) {
	for i := len(t) - 1; i >= 0; i-- {
		if t[i] != nil {
			t[i].Close()
			t[i] = nil
		}
	}
}

// disableGfxHLE forces the display list hand-off off for the one plugin pair
// that needs it. The returned func puts the old value back and is safe to
// call more than once.
func (c *Context) disableGfxHLE(core m64p.Core, t *PluginTable) func() {
	if t.Name(RoleRSP) != hleRSPName || t.Name(RoleGraphics) != hleGfxName {
		return func() {}
	}
	orig, err := core.ConfigBool(hleSection, hleParamKey)
	if err != nil {
		c.message(m64p.MsgWarning, "couldn't read %s/%s: %v", hleSection, hleParamKey, err)
		return func() {}
	}
	if err := core.SetConfigBool(hleSection, hleParamKey, false); err != nil {
		c.message(m64p.MsgWarning, "couldn't set %s/%s: %v", hleSection, hleParamKey, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := core.SetConfigBool(hleSection, hleParamKey, orig); err != nil {
				c.message(m64p.MsgWarning, "couldn't restore %s/%s: %v", hleSection, hleParamKey, err)
			}
		})
	}
}

// addCheats hands the enabled cheats for the ROM to the core. Missing
// entries are a warning only.
func (c *Context) addCheats(core m64p.Core, info Info, req Request) {
	sec := req.Cheats.Lookup(info.CheatKey)
	if sec == nil || len(sec.Cheats) == 0 {
		c.message(m64p.MsgWarning, "no cheat codes found for ROM image '%s'", info.Header.Title())
		return
	}
	if req.Selections == nil {
		return
	}
	enabled, err := sec.Select(req.Selections(info.CheatKey))
	if err != nil {
		c.message(m64p.MsgWarning, "%v", err)
	}
	for _, e := range enabled {
		if err := core.AddCheat(e.Name, e.Codes); err != nil {
			c.message(m64p.MsgWarning, "couldn't activate cheat '%s': %v", e.Name, err)
			continue
		}
		c.message(m64p.MsgStatus, "activated cheat '%s'", e.Name)
	}
}
