package standalone

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"

	m64p "github.com/user-none/m64ui/api"
	"github.com/user-none/m64ui/cheat"
	"github.com/user-none/m64ui/session"
	"github.com/user-none/m64ui/standalone/storage"
	"github.com/user-none/m64ui/standalone/style"
)

// errSessionActive rejects changes that need the core idle.
var errSessionActive = errors.New("stop emulation first")

// pluginPaths maps the configured plugin names onto session roles.
func pluginPaths(p storage.PluginConfig) session.PluginPaths {
	var paths session.PluginPaths
	paths[session.RoleGraphics] = p.Video
	paths[session.RoleAudio] = p.Audio
	paths[session.RoleInput] = p.Input
	paths[session.RoleRSP] = p.RSP
	return paths
}

// setPlugin stores path as the plugin for role.
func setPlugin(p *storage.PluginConfig, role session.Role, path string) {
	switch role {
	case session.RoleGraphics:
		p.Video = path
	case session.RoleAudio:
		p.Audio = path
	case session.RoleInput:
		p.Input = path
	case session.RoleRSP:
		p.RSP = path
	}
}

// busy reports whether a session is running or winding down.
func (a *App) busy() bool {
	return a.running || a.stopping
}

// report shows err as an error notification prefixed with what failed.
func (a *App) report(what string, err error) {
	if err == nil {
		return
	}
	log.Printf("%s: %v", what, err)
	a.notification.ShowMessage(m64p.MsgError, fmt.Sprintf("%s: %v", what, err))
}

// LaunchROM starts a session for path. Only accepted while the core is
// stopped; the ROM joins the recent list once the session has started.
func (a *App) LaunchROM(path string) {
	if path == "" {
		return
	}
	if a.busy() {
		a.notification.ShowMessage(m64p.MsgWarning, "a ROM is already running")
		return
	}

	core := a.coreConfig()
	cheats := a.config.CheatSnapshot()
	req := session.Request{
		ROMPath: path,
		Plugins: pluginPaths(a.config.Plugins).Resolve(core.PluginDir),
		Cheats:  a.cheats,
		Selections: func(key string) []cheat.Selection {
			return cheats[key]
		},
	}

	done, err := a.emu.Start(req)
	if err != nil {
		a.report("Cannot start "+style.BaseName(path), err)
		return
	}

	a.running = true
	a.muted = false
	a.config.AddRecentROM(path)
	a.saveConfig()
	a.RequestRebuild()

	a.async(func() {
		err := <-done
		a.post(func() { a.sessionEnded(err) })
	})
}

// sessionStarted runs on the ebiten thread once the core has the ROM open
// and plugins attached.
func (a *App) sessionStarted(info session.Info) {
	a.info = &info
	if err := a.emu.SetSaveSlot(a.config.SaveSlot); err != nil {
		log.Printf("Failed to restore save slot %d: %v", a.config.SaveSlot, err)
	}
	a.RequestRebuild()
}

// sessionEnded runs on the ebiten thread with the session's result.
func (a *App) sessionEnded(err error) {
	a.running = false
	a.stopping = false
	a.info = nil
	a.muted = false
	a.report("Emulation ended", err)
	a.RequestRebuild()
}

// OpenROM asks for a ROM file and launches it.
func (a *App) OpenROM() {
	if a.busy() {
		a.notification.ShowMessage(m64p.MsgWarning, "a ROM is already running")
		return
	}
	startDir := ""
	if len(a.config.RecentROMs) > 0 {
		startDir = filepath.Dir(a.config.RecentROMs[0])
	}
	a.choose(
		func() (string, error) { return a.dialogs.OpenROM(startDir) },
		"Open ROM",
		a.LaunchROM,
	)
}

// choose runs a blocking dialog off the ebiten thread and hands a
// non-empty result to apply on it.
func (a *App) choose(dialog func() (string, error), what string, apply func(string)) {
	a.async(func() {
		path, err := dialog()
		a.post(func() {
			if isCancelled(err) {
				return
			}
			if err != nil {
				a.report(what, err)
				return
			}
			if path != "" {
				apply(path)
			}
		})
	})
}

// StopEmulation asks the core to stop. The session result arrives through
// sessionEnded.
func (a *App) StopEmulation() {
	if !a.running || a.stopping {
		return
	}
	a.stopping = true
	a.RequestRebuild()
	a.async(func() {
		err := a.emu.Stop()
		if err != nil {
			a.post(func() {
				a.stopping = false
				a.report("Stop", err)
				a.RequestRebuild()
			})
		}
	})
}

// TogglePause pauses or resumes the running ROM.
func (a *App) TogglePause() {
	if !a.running {
		return
	}
	a.report("Pause", a.emu.TogglePause())
}

// ToggleMute flips audio mute.
func (a *App) ToggleMute() {
	if !a.running {
		return
	}
	muted, err := a.emu.ToggleMute()
	if err != nil {
		a.report("Mute", err)
		return
	}
	a.muted = muted
	if muted {
		a.notification.ShowShort("Audio muted")
	} else {
		a.notification.ShowShort("Audio unmuted")
	}
	a.RequestRebuild()
}

// ToggleFullscreen switches the game window between windowed and
// fullscreen.
func (a *App) ToggleFullscreen() {
	if !a.running {
		return
	}
	a.report("Fullscreen", a.emu.ToggleFullscreen())
}

// Reset resets the console. hard power cycles it.
func (a *App) Reset(hard bool) {
	if !a.running {
		return
	}
	if err := a.emu.Reset(hard); err != nil {
		a.report("Reset", err)
		return
	}
	if hard {
		a.notification.ShowShort("Hard reset")
	} else {
		a.notification.ShowShort("Soft reset")
	}
}

// Screenshot captures the next frame into the core's screenshot directory.
func (a *App) Screenshot() {
	if !a.running {
		return
	}
	if err := a.emu.TakeScreenshot(); err != nil {
		a.report("Screenshot", err)
		return
	}
	a.notification.ShowShort("Screenshot taken")
}

// SaveState saves to the selected slot.
func (a *App) SaveState() {
	if !a.running {
		return
	}
	if err := a.emu.SaveState(); err != nil {
		a.report("Save state", err)
		return
	}
	a.notification.ShowShort(fmt.Sprintf("Saved to slot %d", a.config.SaveSlot))
}

// LoadState loads from the selected slot.
func (a *App) LoadState() {
	if !a.running {
		return
	}
	if err := a.emu.LoadState(); err != nil {
		a.report("Load state", err)
		return
	}
	a.notification.ShowShort(fmt.Sprintf("Loaded slot %d", a.config.SaveSlot))
}

// statesDir is where the state file dialogs open.
func statesDir() string {
	dir, err := storage.GetStatesDir()
	if err != nil {
		return ""
	}
	return dir
}

// SaveStateTo asks for a file and saves a state into it.
func (a *App) SaveStateTo() {
	if !a.running {
		return
	}
	a.choose(
		func() (string, error) { return a.dialogs.SaveStateFile(statesDir()) },
		"Save state",
		func(path string) {
			if !a.running {
				return
			}
			if err := a.emu.SaveStateTo(path); err != nil {
				a.report("Save state", err)
				return
			}
			a.notification.ShowShort("Saved " + style.BaseName(session.StateFileName(path)))
		},
	)
}

// LoadStateFrom asks for a state file and loads it.
func (a *App) LoadStateFrom() {
	if !a.running {
		return
	}
	a.choose(
		func() (string, error) { return a.dialogs.LoadStateFile(statesDir()) },
		"Load state",
		func(path string) {
			if !a.running {
				return
			}
			if err := a.emu.LoadStateFrom(path); err != nil {
				a.report("Load state", err)
				return
			}
			a.notification.ShowShort("Loaded " + style.BaseName(path))
		},
	)
}

// SelectSlot makes slot the target of SaveState and LoadState. The choice
// is saved and sent to the core even when nothing is running.
func (a *App) SelectSlot(slot int) {
	if slot < 0 || slot > m64p.MaxSaveSlot {
		return
	}
	a.config.SaveSlot = slot
	a.saveConfig()
	if err := a.emu.SetSaveSlot(slot); err != nil {
		a.report("Save slot", err)
	}
	a.RequestRebuild()
}

// reconfigure closes the current session owner and builds a new one from
// the config, so core library changes take effect.
func (a *App) reconfigure() {
	if err := a.emu.Close(); err != nil {
		log.Printf("Core shutdown: %v", err)
	}
	a.loadCheats()
	a.emu = a.newEmulator(a)
	a.keys = NewKeyForwarder(a.emu)
}

// ChooseCoreLibrary asks for the mupen64plus core library.
func (a *App) ChooseCoreLibrary() {
	if a.busy() {
		a.report("Core library", errSessionActive)
		return
	}
	startDir := ""
	if a.config.Core.LibraryPath != "" {
		startDir = filepath.Dir(a.config.Core.LibraryPath)
	}
	a.choose(
		func() (string, error) { return a.dialogs.CoreLibrary(startDir) },
		"Core library",
		a.SetCoreLibrary,
	)
}

// SetCoreLibrary records path as the core library and reattaches.
func (a *App) SetCoreLibrary(path string) {
	if a.busy() {
		a.report("Core library", errSessionActive)
		return
	}
	a.config.Core.LibraryPath = path
	a.saveConfig()
	a.reconfigure()
	a.RequestRebuild()
}

// ChoosePluginDir asks for the directory bare plugin names resolve in.
func (a *App) ChoosePluginDir() {
	a.choose(
		func() (string, error) { return a.dialogs.PluginDir(a.config.Core.PluginDir) },
		"Plugin directory",
		func(dir string) {
			a.config.Core.PluginDir = dir
			a.saveConfig()
			a.RequestRebuild()
		},
	)
}

// ChoosePlugin asks for the library of one plugin role. Used by the next
// launch.
func (a *App) ChoosePlugin(role session.Role) {
	a.choose(
		func() (string, error) { return a.dialogs.Plugin(role, a.coreConfig().PluginDir) },
		role.String()+" plugin",
		func(path string) {
			a.SetPlugin(role, path)
		},
	)
}

// SetPlugin stores path for role. Paths inside the plugin directory are
// kept as bare names.
func (a *App) SetPlugin(role session.Role, path string) {
	if dir := a.coreConfig().PluginDir; dir != "" && filepath.Dir(path) == filepath.Clean(dir) {
		path = filepath.Base(path)
	}
	setPlugin(&a.config.Plugins, role, path)
	a.saveConfig()
	a.RequestRebuild()
}

// ResetPlugins restores the stock plugin set.
func (a *App) ResetPlugins() {
	a.config.Plugins = storage.DefaultPlugins()
	a.saveConfig()
	a.RequestRebuild()
}

// ToggleVerbose switches core verbose logging. The core is reattached so
// the new level reaches its debug callback.
func (a *App) ToggleVerbose() {
	if a.busy() {
		a.report("Verbose logging", errSessionActive)
		return
	}
	a.config.Core.Verbose = !a.config.Core.Verbose
	a.saveConfig()
	a.reconfigure()
	a.RequestRebuild()
}

// CycleTheme switches to the next theme.
func (a *App) CycleTheme() {
	a.config.Theme = style.NextThemeName(a.config.Theme)
	style.ApplyThemeByName(a.config.Theme)
	a.saveConfig()
	a.RequestRebuild()
}

// CycleFontSize steps through the font size presets.
func (a *App) CycleFontSize() {
	current := storage.ValidFontSize(a.config.FontSize)
	next := storage.FontSizePresets[0]
	for i, p := range storage.FontSizePresets {
		if p == current && i+1 < len(storage.FontSizePresets) {
			next = storage.FontSizePresets[i+1]
			break
		}
	}
	a.config.FontSize = next
	style.ApplyFontSize(next)
	a.saveConfig()
	a.RequestRebuild()
}

// CopyCheatKey puts the running ROM's cheat database key on the clipboard.
func (a *App) CopyCheatKey() {
	if a.info == nil {
		return
	}
	if err := style.CopyToClipboard(a.info.CheatKey); err != nil {
		a.report("Copy", err)
		return
	}
	a.notification.ShowShort("Copied " + a.info.CheatKey)
}

// cheatState returns whether name is enabled for key and with which option.
func (a *App) cheatState(key, name string) (cheat.Selection, bool) {
	for _, s := range a.config.EnabledCheats(key) {
		if s.Name == name {
			return s, true
		}
	}
	return cheat.Selection{Name: name}, false
}

// ToggleCheat steps a cheat through its states for the next launch: off,
// then on (or each option in turn), then off again.
func (a *App) ToggleCheat(key string, c *cheat.Cheat) {
	sel, enabled := a.cheatState(key, c.Name)
	switch {
	case !enabled:
		a.config.SetCheat(key, cheat.Selection{Name: c.Name}, true)
	case sel.Option+1 < len(c.Options):
		sel.Option++
		a.config.SetCheat(key, sel, true)
	default:
		a.config.SetCheat(key, sel, false)
	}
	a.saveConfig()
	a.RequestRebuild()
}
