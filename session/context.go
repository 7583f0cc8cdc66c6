// Package session owns the attached emulator core and runs one ROM at a time
// against it: resolve the image, hand it to the core, load and attach the
// four plugins, execute, then detach and unload everything again.
package session

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	m64p "github.com/user-none/m64ui/api"
	"github.com/user-none/m64ui/cheat"
	"github.com/user-none/m64ui/romloader"
)

// ErrBusy is returned by Start while a session is in flight or the core is
// not stopped.
var ErrBusy = errors.New("emulation already running")

// stopPollInterval is how often Stop re-reads the emulation state.
const stopPollInterval = 10 * time.Millisecond

// CoreAttacher loads and starts the core library.
type CoreAttacher interface {
	Attach() (m64p.Core, error)
}

// PluginLoader loads and starts one plugin library against a core.
type PluginLoader interface {
	Load(core m64p.Core, path string) (m64p.Plugin, error)
}

// MessageFunc receives the front-end's own diagnostics.
type MessageFunc func(level m64p.MsgLevel, msg string)

// Config wires a Context to its collaborators.
type Config struct {
	Core    CoreAttacher
	Plugins PluginLoader
	Logger  *log.Logger
	Verbose bool

	// LoadROM resolves a path to an image. Nil uses romloader.LoadN64.
	LoadROM func(path string) ([]byte, string, error)

	// OnMessage, when set, sees every GUI-context message after logging.
	OnMessage MessageFunc

	// OnStart is called from the worker once plugins are attached and the
	// header is known, just before execution begins.
	OnStart func(Info)
}

// Request describes one session.
type Request struct {
	ROMPath string
	Plugins PluginPaths

	// Cheats is the database to consult; nil skips cheat lookup.
	Cheats *cheat.Database
	// Selections returns the enabled cheats for a section key.
	Selections func(key string) []cheat.Selection
}

// Info describes the running session.
type Info struct {
	ROMPath  string
	ROMName  string
	Order    romloader.ByteOrder
	CRC32    uint32 // Of the big-endian image
	Header   m64p.ROMHeader
	CheatKey string
	Plugins  [NumRoles]string
}

// Context is the process-wide session owner. The zero value is not usable;
// create one with New.
type Context struct {
	cfg    Config
	logger *log.Logger

	// life guards the core's lifetime. Commands hold it shared for the
	// duration of a call; shutting the core down takes it exclusively.
	life sync.RWMutex

	mu      sync.Mutex
	core    m64p.Core
	running bool
	done    chan struct{}
	info    *Info

	// executing is set once the worker commits to Execute. A Stop before
	// that only sets stopRequested and the worker unwinds instead.
	executing     bool
	stopRequested bool
}

// New creates a Context. The core is not attached until first needed.
func New(cfg Config) *Context {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	if cfg.LoadROM == nil {
		cfg.LoadROM = romloader.LoadN64
	}
	return &Context{cfg: cfg, logger: logger}
}

func (c *Context) message(level m64p.MsgLevel, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	m64p.LogMessage(c.logger, "GUI", level, msg, c.cfg.Verbose)
	if c.cfg.OnMessage != nil && (level != m64p.MsgVerbose || c.cfg.Verbose) {
		c.cfg.OnMessage(level, msg)
	}
}

// attachedCore returns the core, attaching it on first use. Callers hold
// life.
func (c *Context) attachedCore() (m64p.Core, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.core != nil {
		return c.core, nil
	}
	if c.cfg.Core == nil {
		return nil, fmt.Errorf("%w: no core library configured", m64p.ErrNotInit)
	}
	core, err := c.cfg.Core.Attach()
	if err != nil {
		return nil, fmt.Errorf("attach core: %w", err)
	}
	c.core = core
	return core, nil
}

// currentCore returns the core without attaching it.
func (c *Context) currentCore() m64p.Core {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.core
}

// withCore runs fn against the core, attaching it lazily.
func (c *Context) withCore(fn func(m64p.Core) error) error {
	c.life.RLock()
	defer c.life.RUnlock()
	core, err := c.attachedCore()
	if err != nil {
		return err
	}
	return fn(core)
}

// Running reports whether a session is in flight.
func (c *Context) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Info returns the running session's description.
func (c *Context) Info() (Info, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.info == nil {
		return Info{}, false
	}
	return *c.info, true
}

// EmuState queries the core's emulation state, attaching the core if needed.
func (c *Context) EmuState() (m64p.EmuState, error) {
	var st m64p.EmuState
	err := c.withCore(func(core m64p.Core) error {
		var err error
		st, err = emuState(core)
		return err
	})
	return st, err
}

func emuState(core m64p.Core) (m64p.EmuState, error) {
	v, err := core.StateQuery(m64p.ParamEmuState)
	if err != nil {
		return 0, fmt.Errorf("query emulation state: %w", err)
	}
	return m64p.EmuState(v), nil
}

// Start runs req on a dedicated worker. It returns once the worker is
// launched; the channel receives the session's single result when the core
// has stopped and everything is unloaded.
func (c *Context) Start(req Request) (<-chan error, error) {
	if c.Running() {
		return nil, ErrBusy
	}

	c.life.RLock()
	core, err := c.attachedCore()
	var state m64p.EmuState
	if err == nil {
		state, err = emuState(core)
	}
	c.life.RUnlock()
	if err != nil {
		return nil, err
	}
	if state != m64p.EmuStopped {
		return nil, fmt.Errorf("%w: core is %s", ErrBusy, state)
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.running = true
	c.executing = false
	c.stopRequested = false
	done := make(chan struct{})
	c.done = done
	c.mu.Unlock()

	result := make(chan error, 1)
	go func() {
		// Video plugins bind their GL context to the calling thread.
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		err := c.run(core, req)

		c.mu.Lock()
		c.running = false
		c.executing = false
		c.info = nil
		c.mu.Unlock()
		close(done)
		result <- err
	}()
	return result, nil
}

// Stop asks the core to stop and blocks until it reports the stopped state.
// A session still loading is flagged and unwinds before executing. Stop
// returns at once when no core is attached or nothing is running.
func (c *Context) Stop() error {
	c.mu.Lock()
	loading := c.running && !c.executing
	if loading {
		c.stopRequested = true
	}
	executing := c.running && c.executing
	done := c.done
	c.mu.Unlock()
	if loading {
		return nil
	}

	c.life.RLock()
	defer c.life.RUnlock()

	core := c.currentCore()
	if core == nil {
		return nil
	}

	sent := false
	for {
		state, err := emuState(core)
		if err != nil {
			return err
		}
		if state != m64p.EmuStopped {
			if !sent {
				sent = true
				if err := core.Stop(); err != nil {
					c.message(m64p.MsgWarning, "stop command failed: %v", err)
				}
			}
		} else if sent || !executing || closed(done) {
			return nil
		}
		// A stopped core with a session committed to Execute has not
		// started running yet.
		time.Sleep(stopPollInterval)
	}
}

// beginExecute commits the worker to Execute unless a stop came first.
func (c *Context) beginExecute() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopRequested {
		return false
	}
	c.executing = true
	return true
}

func closed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// Wait blocks until the in-flight session, if any, has fully torn down.
func (c *Context) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Close stops any session, waits for it to unwind, then shuts the core down
// and unloads it.
func (c *Context) Close() error {
	stopErr := c.Stop()
	c.Wait()
	return errors.Join(stopErr, c.shutdownCore())
}

// shutdownCore calls CoreShutdown and unloads the library.
func (c *Context) shutdownCore() error {
	c.life.Lock()
	defer c.life.Unlock()

	c.mu.Lock()
	core := c.core
	c.core = nil
	c.mu.Unlock()
	if core == nil {
		return nil
	}
	return errors.Join(core.Shutdown(), core.Detach())
}
