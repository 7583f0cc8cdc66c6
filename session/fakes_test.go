package session

import (
	"errors"
	"sync"

	m64p "github.com/user-none/m64ui/api"
)

var errFake = errors.New("fake failure")

// fakeCore records every call made against it. Execute blocks until Stop.
type fakeCore struct {
	mu sync.Mutex

	state     m64p.EmuState
	attached  map[m64p.PluginType]bool
	attachLog []m64p.PluginType
	detachLog []m64p.PluginType
	config    map[string]bool
	cheats    []string
	keys      []int32
	slot      int
	saved     []string
	loaded    []string
	mute      int
	video     m64p.VideoMode
	resets    []bool
	header    m64p.ROMHeader
	romBytes  []byte

	failAttach m64p.PluginType
	openErr    error
	headerErr  error

	romOpen    bool
	romCloses  int
	shutdown   bool
	detached   bool
	stopCalls  int
	pauseCalls int
	resumes    int

	// stopDelay keeps the core running for this many polls after Stop.
	stopDelay int

	executing chan struct{}
	stopCh    chan struct{}
	stopOnce  sync.Once
}

func newFakeCore() *fakeCore {
	return &fakeCore{
		state:     m64p.EmuStopped,
		attached:  make(map[m64p.PluginType]bool),
		config:    map[string]bool{hleSection + "/" + hleParamKey: true},
		video:     m64p.VideoWindowed,
		header:    m64p.ROMHeader{CRC1: 0x12345678, CRC2: 0x9ABCDEF0, CountryCode: 0x45},
		executing: make(chan struct{}),
		stopCh:    make(chan struct{}),
	}
}

func (f *fakeCore) Handle() uintptr { return 1 }

func (f *fakeCore) OpenROM(rom []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.romBytes = append([]byte(nil), rom...)
	f.romOpen = true
	return nil
}

func (f *fakeCore) CloseROM() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.romCloses++
	f.romOpen = false
	return nil
}

func (f *fakeCore) ROMHeader() (m64p.ROMHeader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.header, f.headerErr
}

func (f *fakeCore) Execute() error {
	f.mu.Lock()
	f.state = m64p.EmuRunning
	f.mu.Unlock()
	close(f.executing)
	<-f.stopCh
	return nil
}

func (f *fakeCore) Stop() error {
	f.mu.Lock()
	f.stopCalls++
	f.mu.Unlock()
	f.stopOnce.Do(func() { close(f.stopCh) })
	return nil
}

func (f *fakeCore) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauseCalls++
	f.state = m64p.EmuPaused
	return nil
}

func (f *fakeCore) Resume() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumes++
	f.state = m64p.EmuRunning
	return nil
}

func (f *fakeCore) Reset(hard bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, hard)
	return nil
}

func (f *fakeCore) SaveState(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, path)
	return nil
}

func (f *fakeCore) LoadState(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = append(f.loaded, path)
	return nil
}

func (f *fakeCore) SetSaveSlot(slot int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slot = slot
	return nil
}

func (f *fakeCore) TakeScreenshot() error { return nil }

func (f *fakeCore) SendKey(down bool, key int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !down {
		key = -key
	}
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeCore) StateQuery(param m64p.CoreParam) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch param {
	case m64p.ParamEmuState:
		// Once stop is requested the core winds down over a few polls.
		select {
		case <-f.stopCh:
			if f.stopDelay > 0 {
				f.stopDelay--
			} else {
				f.state = m64p.EmuStopped
			}
		default:
		}
		return int(f.state), nil
	case m64p.ParamAudioMute:
		return f.mute, nil
	case m64p.ParamVideoMode:
		return int(f.video), nil
	}
	return 0, m64p.ErrInputInvalid
}

func (f *fakeCore) StateSet(param m64p.CoreParam, value int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch param {
	case m64p.ParamAudioMute:
		f.mute = value
	case m64p.ParamVideoMode:
		f.video = m64p.VideoMode(value)
	default:
		return m64p.ErrInputInvalid
	}
	return nil
}

func (f *fakeCore) AttachPlugin(t m64p.PluginType, p m64p.Plugin) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t == f.failAttach {
		return m64p.ErrPluginFail
	}
	f.attached[t] = true
	f.attachLog = append(f.attachLog, t)
	return nil
}

func (f *fakeCore) DetachPlugin(t m64p.PluginType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.attached, t)
	f.detachLog = append(f.detachLog, t)
	return nil
}

func (f *fakeCore) AddCheat(name string, codes []m64p.CheatCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cheats = append(f.cheats, name)
	return nil
}

func (f *fakeCore) ConfigBool(section, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.config[section+"/"+name]
	if !ok {
		return false, m64p.ErrInputNotFound
	}
	return v, nil
}

func (f *fakeCore) SetConfigBool(section, name string, value bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.config[section+"/"+name] = value
	return nil
}

func (f *fakeCore) Shutdown() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdown = true
	return nil
}

func (f *fakeCore) Detach() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detached = true
	return nil
}

func (f *fakeCore) hleFlag() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.config[hleSection+"/"+hleParamKey]
}

func (f *fakeCore) attachedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.attached)
}

// fakeAttacher hands out the same fake core and counts attaches.
type fakeAttacher struct {
	core    *fakeCore
	err     error
	attachs int
}

func (a *fakeAttacher) Attach() (m64p.Core, error) {
	if a.err != nil {
		return nil, a.err
	}
	a.attachs++
	return a.core, nil
}

type fakePlugin struct {
	typ    m64p.PluginType
	name   string
	mu     sync.Mutex
	closed bool
}

func (p *fakePlugin) Handle() uintptr       { return uintptr(p.typ) + 100 }
func (p *fakePlugin) Type() m64p.PluginType { return p.typ }
func (p *fakePlugin) Name() string          { return p.name }
func (p *fakePlugin) Version() int          { return 0x020000 }
func (p *fakePlugin) Close() error          { p.mu.Lock(); p.closed = true; p.mu.Unlock(); return nil }
func (p *fakePlugin) isClosed() bool        { p.mu.Lock(); defer p.mu.Unlock(); return p.closed }

// fakeLoader resolves paths to prepared plugins.
type fakeLoader struct {
	plugins map[string]*fakePlugin
	fail    string
	loads   []string
}

func (l *fakeLoader) Load(core m64p.Core, path string) (m64p.Plugin, error) {
	l.loads = append(l.loads, path)
	if path == l.fail {
		return nil, errFake
	}
	p, ok := l.plugins[path]
	if !ok {
		return nil, m64p.ErrFiles
	}
	return p, nil
}

var testPaths = PluginPaths{"gfx.so", "audio.so", "input.so", "rsp.so"}

func newFakeLoader(gfxName, rspName string) *fakeLoader {
	return &fakeLoader{plugins: map[string]*fakePlugin{
		"gfx.so":   {typ: m64p.PluginGfx, name: gfxName},
		"audio.so": {typ: m64p.PluginAudio, name: "SDL Audio"},
		"input.so": {typ: m64p.PluginInput, name: "SDL Input"},
		"rsp.so":   {typ: m64p.PluginRSP, name: rspName},
	}}
}

func (l *fakeLoader) allClosed() bool {
	for _, p := range l.plugins {
		if !p.isClosed() {
			return false
		}
	}
	return true
}

func (l *fakeLoader) closed(path string) bool {
	return l.plugins[path].isClosed()
}

func fakeROM(path string) ([]byte, string, error) {
	return []byte{0x80, 0x37, 0x12, 0x40, 0, 0, 0, 0}, "game.z64", nil
}
