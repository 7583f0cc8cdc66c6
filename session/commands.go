package session

import (
	"fmt"
	"strings"

	m64p "github.com/user-none/m64ui/api"
)

// TogglePause pauses a running core and resumes a paused one. It does
// nothing when the core is stopped.
func (c *Context) TogglePause() error {
	return c.withCore(func(core m64p.Core) error {
		state, err := emuState(core)
		if err != nil {
			return err
		}
		switch state {
		case m64p.EmuRunning:
			return core.Pause()
		case m64p.EmuPaused:
			return core.Resume()
		}
		return nil
	})
}

// ToggleMute flips the core's audio mute flag and returns the new value.
func (c *Context) ToggleMute() (bool, error) {
	var muted bool
	err := c.withCore(func(core m64p.Core) error {
		v, err := core.StateQuery(m64p.ParamAudioMute)
		if err != nil {
			return fmt.Errorf("query mute: %w", err)
		}
		muted = v == 0
		next := 0
		if muted {
			next = 1
		}
		return core.StateSet(m64p.ParamAudioMute, next)
	})
	return muted, err
}

// ToggleFullscreen switches the video plugin between windowed and
// fullscreen.
func (c *Context) ToggleFullscreen() error {
	return c.withCore(func(core m64p.Core) error {
		v, err := core.StateQuery(m64p.ParamVideoMode)
		if err != nil {
			return fmt.Errorf("query video mode: %w", err)
		}
		switch m64p.VideoMode(v) {
		case m64p.VideoWindowed:
			return core.StateSet(m64p.ParamVideoMode, int(m64p.VideoFullscreen))
		case m64p.VideoFullscreen:
			return core.StateSet(m64p.ParamVideoMode, int(m64p.VideoWindowed))
		}
		return nil
	})
}

// Reset resets the emulated console. A hard reset power cycles it.
func (c *Context) Reset(hard bool) error {
	return c.withCore(func(core m64p.Core) error {
		return core.Reset(hard)
	})
}

// TakeScreenshot captures the next rendered frame.
func (c *Context) TakeScreenshot() error {
	return c.withCore(func(core m64p.Core) error {
		return core.TakeScreenshot()
	})
}

// SaveState saves to the current slot.
func (c *Context) SaveState() error {
	return c.withCore(func(core m64p.Core) error {
		return core.SaveState("")
	})
}

// LoadState loads from the current slot.
func (c *Context) LoadState() error {
	return c.withCore(func(core m64p.Core) error {
		return core.LoadState("")
	})
}

// StateFileName appends the ".state" extension unless the name already
// carries a ".st" style one.
func StateFileName(name string) string {
	if !strings.Contains(name, ".st") {
		name += ".state"
	}
	return name
}

// SaveStateTo saves to a named file. See StateFileName.
func (c *Context) SaveStateTo(file string) error {
	if file == "" {
		return fmt.Errorf("%w: empty state file name", m64p.ErrInputInvalid)
	}
	file = StateFileName(file)
	return c.withCore(func(core m64p.Core) error {
		return core.SaveState(file)
	})
}

// LoadStateFrom loads a named state file.
func (c *Context) LoadStateFrom(file string) error {
	if file == "" {
		return fmt.Errorf("%w: empty state file name", m64p.ErrInputInvalid)
	}
	return c.withCore(func(core m64p.Core) error {
		return core.LoadState(file)
	})
}

// SetSaveSlot selects the slot used by SaveState and LoadState.
func (c *Context) SetSaveSlot(slot int) error {
	if slot < 0 || slot > m64p.MaxSaveSlot {
		return fmt.Errorf("%w: save slot %d", m64p.ErrInputInvalid, slot)
	}
	return c.withCore(func(core m64p.Core) error {
		return core.SetSaveSlot(slot)
	})
}

// SendKey forwards a key event to the core. Nothing is sent unless a
// session is running.
func (c *Context) SendKey(down bool, scancode, mod int) error {
	if !c.Running() {
		return nil
	}
	key := int32(mod<<16 | scancode)
	return c.withCore(func(core m64p.Core) error {
		return core.SendKey(down, key)
	})
}
