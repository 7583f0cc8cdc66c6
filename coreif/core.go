package coreif

import (
	"fmt"
	"log"
	"sync"
	"unsafe"

	m64p "github.com/user-none/m64ui/api"
)

// Loader attaches a core library.
type Loader struct {
	LibPath   string // Path to libmupen64plus
	ConfigDir string // Empty lets the core pick its default
	DataDir   string // Empty lets the core pick its default
	Logger    *log.Logger
	Verbose   bool
	OnMessage MessageFunc
	OnState   StateFunc
}

// core implements m64p.Core over the exported C functions.
type core struct {
	lib  *library
	sink uintptr

	// cmdMu serializes commands except Execute, which blocks for the whole
	// session and must not hold the lock.
	cmdMu sync.Mutex

	startup      func(api int32, configPath, dataPath *byte, ctx, debugCB, ctx2, stateCB uintptr) int32
	shutdown     func() int32
	doCommand    func(cmd, param int32, ptr unsafe.Pointer) int32
	attachPlugin func(t int32, handle uintptr) int32
	detachPlugin func(t int32) int32
	addCheat     func(name *byte, codes unsafe.Pointer, n int32) int32
	openSection  func(name *byte, handle *uintptr) int32
	getParamBool func(handle uintptr, name *byte) int32
	setParameter func(handle uintptr, name *byte, typ int32, value unsafe.Pointer) int32
}

// Attach loads the core library, binds its exports and calls CoreStartup.
func (ld *Loader) Attach() (m64p.Core, error) {
	lib, err := openLibrary(ld.LibPath)
	if err != nil {
		return nil, err
	}

	c := &core{lib: lib}
	err = lib.bindAll(map[string]any{
		"CoreStartup":        &c.startup,
		"CoreShutdown":       &c.shutdown,
		"CoreDoCommand":      &c.doCommand,
		"CoreAttachPlugin":   &c.attachPlugin,
		"CoreDetachPlugin":   &c.detachPlugin,
		"CoreAddCheat":       &c.addCheat,
		"ConfigOpenSection":  &c.openSection,
		"ConfigGetParamBool": &c.getParamBool,
		"ConfigSetParameter": &c.setParameter,
	})
	if err != nil {
		lib.close()
		return nil, err
	}

	c.sink = registerSink(&sink{
		name:      "Core",
		logger:    ld.Logger,
		verbose:   ld.Verbose,
		onMessage: ld.OnMessage,
		onState:   ld.OnState,
	})
	debugCB, stateCB := trampolines()

	rc := c.startup(m64p.CoreAPIVersion, cString(ld.ConfigDir), cString(ld.DataDir),
		c.sink, debugCB, c.sink, stateCB)
	if err := m64p.Check(rc); err != nil {
		unregisterSink(c.sink)
		lib.close()
		return nil, fmt.Errorf("core startup failed: %w", err)
	}
	return c, nil
}

func (c *core) Handle() uintptr {
	return c.lib.handle
}

func (c *core) do(cmd m64p.Command, param int32, ptr unsafe.Pointer) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return m64p.Check(c.doCommand(int32(cmd), param, ptr))
}

func (c *core) OpenROM(rom []byte) error {
	if len(rom) == 0 {
		return m64p.ErrInputInvalid
	}
	return c.do(m64p.CmdROMOpen, int32(len(rom)), unsafe.Pointer(&rom[0]))
}

func (c *core) CloseROM() error {
	return c.do(m64p.CmdROMClose, 0, nil)
}

func (c *core) ROMHeader() (m64p.ROMHeader, error) {
	var buf [m64p.ROMHeaderSize]byte
	if err := c.do(m64p.CmdROMGetHeader, int32(len(buf)), unsafe.Pointer(&buf[0])); err != nil {
		return m64p.ROMHeader{}, err
	}
	return m64p.ParseROMHeader(buf[:])
}

func (c *core) Execute() error {
	return m64p.Check(c.doCommand(int32(m64p.CmdExecute), 0, nil))
}

func (c *core) Stop() error {
	return c.do(m64p.CmdStop, 0, nil)
}

func (c *core) Pause() error {
	return c.do(m64p.CmdPause, 0, nil)
}

func (c *core) Resume() error {
	return c.do(m64p.CmdResume, 0, nil)
}

func (c *core) Reset(hard bool) error {
	var p int32
	if hard {
		p = 1
	}
	return c.do(m64p.CmdReset, p, nil)
}

func (c *core) SaveState(path string) error {
	return c.do(m64p.CmdStateSave, int32(m64p.StateFormatM64P), unsafe.Pointer(cString(path)))
}

func (c *core) LoadState(path string) error {
	return c.do(m64p.CmdStateLoad, 0, unsafe.Pointer(cString(path)))
}

func (c *core) SetSaveSlot(slot int) error {
	return c.do(m64p.CmdStateSetSlot, int32(slot), nil)
}

func (c *core) TakeScreenshot() error {
	return c.do(m64p.CmdTakeNextScreenshot, 0, nil)
}

func (c *core) SendKey(down bool, key int32) error {
	cmd := m64p.CmdSendSDLKeyUp
	if down {
		cmd = m64p.CmdSendSDLKeyDown
	}
	return c.do(cmd, key, nil)
}

func (c *core) StateQuery(param m64p.CoreParam) (int, error) {
	var v int32
	if err := c.do(m64p.CmdCoreStateQuery, int32(param), unsafe.Pointer(&v)); err != nil {
		return 0, err
	}
	return int(v), nil
}

func (c *core) StateSet(param m64p.CoreParam, value int) error {
	v := int32(value)
	return c.do(m64p.CmdCoreStateSet, int32(param), unsafe.Pointer(&v))
}

func (c *core) AttachPlugin(t m64p.PluginType, p m64p.Plugin) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return m64p.Check(c.attachPlugin(int32(t), p.Handle()))
}

func (c *core) DetachPlugin(t m64p.PluginType) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return m64p.Check(c.detachPlugin(int32(t)))
}

func (c *core) AddCheat(name string, codes []m64p.CheatCode) error {
	if len(codes) == 0 {
		return m64p.ErrInputInvalid
	}
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return m64p.Check(c.addCheat(cString(name), unsafe.Pointer(&codes[0]), int32(len(codes))))
}

func (c *core) section(name string) (uintptr, error) {
	var h uintptr
	if err := m64p.Check(c.openSection(cString(name), &h)); err != nil {
		return 0, fmt.Errorf("open config section %s: %w", name, err)
	}
	return h, nil
}

func (c *core) ConfigBool(section, name string) (bool, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	h, err := c.section(section)
	if err != nil {
		return false, err
	}
	return c.getParamBool(h, cString(name)) != 0, nil
}

func (c *core) SetConfigBool(section, name string, value bool) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	h, err := c.section(section)
	if err != nil {
		return err
	}
	var v int32
	if value {
		v = 1
	}
	return m64p.Check(c.setParameter(h, cString(name), int32(m64p.TypeBool), unsafe.Pointer(&v)))
}

func (c *core) Shutdown() error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return m64p.Check(c.shutdown())
}

func (c *core) Detach() error {
	unregisterSink(c.sink)
	return c.lib.close()
}
