// Package standalone is the desktop front-end: one ebitenui window with the
// File, Emulation and Settings menus, driving a session.Context. The video
// plugin opens its own window for the game picture.
package standalone

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/ebitenui/ebitenui"
	"github.com/hajimehoshi/ebiten/v2"
	m64p "github.com/user-none/m64ui/api"
	"github.com/user-none/m64ui/cheat"
	"github.com/user-none/m64ui/coreif"
	"github.com/user-none/m64ui/rdb"
	"github.com/user-none/m64ui/session"
	"github.com/user-none/m64ui/standalone/storage"
	"github.com/user-none/m64ui/standalone/style"
)

// AppName names the window and the data directory.
const AppName = "m64ui"

// Options carries command line overrides. They apply on top of config.json
// and the environment for this run only and are never saved.
type Options struct {
	ROMPath   string
	CoreLib   string
	PluginDir string
	Verbose   bool
}

// emulator is the part of session.Context the GUI drives.
type emulator interface {
	Start(req session.Request) (<-chan error, error)
	Stop() error
	Close() error
	Running() bool
	EmuState() (m64p.EmuState, error)

	TogglePause() error
	ToggleMute() (bool, error)
	ToggleFullscreen() error
	Reset(hard bool) error
	TakeScreenshot() error
	SaveState() error
	LoadState() error
	SaveStateTo(file string) error
	LoadStateFrom(file string) error
	SetSaveSlot(slot int) error
	SendKey(down bool, scancode, mod int) error
}

var _ emulator = (*session.Context)(nil)

// App is the main application implementing ebiten.Game
type App struct {
	ui           *ebitenui.UI
	opts         Options
	config       *storage.Config
	cheats       *cheat.Database
	gamedb       *rdb.DB
	emu          emulator
	notification *Notification
	keys         *KeyForwarder
	dialogs      chooser

	// newEmulator builds the session for the current config.
	newEmulator func(*App) emulator

	// events carries work posted from dialog and session goroutines to the
	// ebiten thread. async starts such goroutines.
	events chan func()
	async  func(func())

	// Session view, touched only on the ebiten thread
	running  bool
	stopping bool
	info     *session.Info
	muted    bool

	downloading    bool
	rebuildPending bool
	quitRequested  bool

	// Window tracking for persistence
	windowWidth        int
	windowHeight       int
	lastWindowedWidth  int
	lastWindowedHeight int
	windowX            int
	windowY            int
	currentDPIScale    float64
}

// Run opens the main window and blocks until it is closed.
func Run(opts Options) error {
	storage.Init(AppName)

	ebiten.SetWindowTitle(AppName)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(320, 240, -1, -1)
	ebiten.SetWindowClosingHandled(true)
	// The game window belongs to the video plugin, so this one is usually
	// unfocused while playing.
	ebiten.SetRunnableOnUnfocused(true)

	app, err := newApp(opts)
	if err != nil {
		return err
	}

	ebiten.SetWindowSize(app.config.Window.Width, app.config.Window.Height)
	if app.config.Window.X != nil && app.config.Window.Y != nil {
		ebiten.SetWindowPosition(*app.config.Window.X, *app.config.Window.Y)
	}

	app.rebuild()
	if opts.ROMPath != "" {
		app.LaunchROM(opts.ROMPath)
	}

	err = ebiten.RunGame(app)
	app.SaveAndClose()
	return err
}

// newApp loads config and cheats and prepares the session. No window calls
// are made so it can run before ebiten starts.
func newApp(opts Options) (*App, error) {
	a := &App{
		opts:            opts,
		notification:    NewNotification(),
		dialogs:         nativeChooser{},
		newEmulator:     newSessionEmulator,
		events:          make(chan func(), 64),
		async:           func(f func()) { go f() },
		currentDPIScale: 1.0,
	}

	if err := storage.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	if err := storage.CreateConfigIfMissing(); err != nil {
		log.Printf("Warning: failed to create config: %v", err)
	}

	a.config = a.loadConfig()
	style.ApplyThemeByName(a.config.Theme)
	style.ApplyFontSize(storage.ValidFontSize(a.config.FontSize))

	a.loadCheats()
	a.openGameDB()
	a.emu = a.newEmulator(a)
	a.keys = NewKeyForwarder(a.emu)
	return a, nil
}

// loadConfig reads config.json, falling back to defaults when it is
// unreadable and resetting fields that fail validation.
func (a *App) loadConfig() *storage.Config {
	config, err := storage.LoadConfig()
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		a.notification.ShowMessage(m64p.MsgError, "config.json could not be read, using defaults")
		return storage.DefaultConfig()
	}

	if errs := storage.ValidateConfig(config, style.ThemeNames()); len(errs) > 0 {
		for _, e := range errs {
			log.Printf("Invalid config value %s", e)
		}
		storage.CorrectConfig(config, style.ThemeNames())
		a.notification.ShowMessage(m64p.MsgWarning, "invalid settings were reset to defaults")
		if err := storage.SaveConfig(config); err != nil {
			log.Printf("Failed to save corrected config: %v", err)
		}
	}
	return config
}

// coreConfig returns the core settings in effect: config.json, then the
// environment, then the command line.
func (a *App) coreConfig() storage.CoreConfig {
	effective := *a.config
	if err := storage.ApplyEnv(&effective); err != nil {
		log.Printf("Warning: ignoring environment overrides: %v", err)
		effective.Core = a.config.Core
	}
	core := effective.Core
	if a.opts.CoreLib != "" {
		core.LibraryPath = a.opts.CoreLib
	}
	if a.opts.PluginDir != "" {
		core.PluginDir = a.opts.PluginDir
	}
	if a.opts.Verbose {
		core.Verbose = true
	}
	if core.LibraryPath == "" {
		core.LibraryPath = coreif.DefaultCoreLibrary()
	}
	return core
}

// loadCheats reads the cheat database from the core's data directory.
// A missing database only disables cheats.
func (a *App) loadCheats() {
	core := a.coreConfig()
	if core.DataDir == "" {
		a.cheats = nil
		return
	}
	db, err := cheat.LoadDatabase(filepath.Join(core.DataDir, cheat.DefaultFile))
	if err != nil {
		log.Printf("Cheats disabled: %v", err)
		a.cheats = nil
		return
	}
	if core.Verbose {
		log.Printf("Loaded %d cheat sections", db.SectionCount())
	}
	a.cheats = db
}

// newSessionEmulator wires a session.Context to the core library named by
// the current config.
func newSessionEmulator(a *App) emulator {
	core := a.coreConfig()
	logger := log.Default()
	return session.New(session.Config{
		Core: &coreif.Loader{
			LibPath:   core.LibraryPath,
			ConfigDir: core.ConfigDir,
			DataDir:   core.DataDir,
			Logger:    logger,
			Verbose:   core.Verbose,
			OnMessage: a.onCoreMessage,
		},
		Plugins: &coreif.PluginLoader{
			Logger:    logger,
			Verbose:   core.Verbose,
			OnMessage: a.onCoreMessage,
		},
		Logger:    logger,
		Verbose:   core.Verbose,
		OnMessage: a.notification.ShowMessage,
		OnStart: func(info session.Info) {
			a.post(func() { a.sessionStarted(info) })
		},
	})
}

// onCoreMessage surfaces core and plugin diagnostics. They are already
// logged by coreif.
func (a *App) onCoreMessage(context string, level m64p.MsgLevel, msg string) {
	a.notification.ShowMessage(level, context+": "+msg)
}

// post queues fn to run on the ebiten thread. Safe from any goroutine.
func (a *App) post(fn func()) {
	a.events <- fn
}

// drainEvents runs everything posted since the last frame.
func (a *App) drainEvents() {
	for {
		select {
		case fn := <-a.events:
			fn()
		default:
			return
		}
	}
}

// RequestRebuild rebuilds the menus on the next frame.
func (a *App) RequestRebuild() {
	a.rebuildPending = true
}

// rebuild recreates the widget tree from the current state.
func (a *App) rebuild() {
	a.rebuildPending = false
	a.ui = &ebitenui.UI{Container: a.buildMainScreen()}
}

// saveWindowState captures the current window geometry into config.
// Uses lastWindowed dimensions so fullscreen doesn't overwrite the
// pre-fullscreen size.
func (a *App) saveWindowState() {
	if a.lastWindowedWidth > 0 && a.lastWindowedHeight > 0 {
		s := a.currentDPIScale
		a.config.Window.Width = int(float64(a.lastWindowedWidth) / s)
		a.config.Window.Height = int(float64(a.lastWindowedHeight) / s)
	}
	x, y := a.windowX, a.windowY
	a.config.Window.X = &x
	a.config.Window.Y = &y
}

// saveConfig writes config.json, reporting failures on screen.
func (a *App) saveConfig() {
	if err := storage.SaveConfig(a.config); err != nil {
		log.Printf("Failed to save config: %v", err)
		a.notification.ShowMessage(m64p.MsgError, "failed to save settings")
	}
}

// Update implements ebiten.Game
func (a *App) Update() error {
	a.drainEvents()

	if ebiten.IsWindowBeingClosed() {
		a.Exit()
	}
	if a.quitRequested {
		return ebiten.Termination
	}

	if !ebiten.IsFullscreen() {
		a.windowX, a.windowY = ebiten.WindowPosition()
	}

	if a.running {
		a.keys.Update()
	}

	if a.rebuildPending || a.ui == nil {
		a.rebuild()
	}
	a.ui.Update()
	return nil
}

// Draw implements ebiten.Game
func (a *App) Draw(screen *ebiten.Image) {
	if a.ui != nil {
		a.ui.Draw(screen)
	}
	a.notification.Draw(screen)
}

// Layout implements ebiten.Game
func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	s := 1.0
	if m := ebiten.Monitor(); m != nil {
		s = m.DeviceScaleFactor()
	}
	if s != a.currentDPIScale {
		a.currentDPIScale = s
		style.SetDPIScale(s)
		a.rebuildPending = true
	}

	w := int(float64(outsideWidth) * s)
	h := int(float64(outsideHeight) * s)
	a.windowWidth = w
	a.windowHeight = h
	if !ebiten.IsFullscreen() {
		a.lastWindowedWidth = w
		a.lastWindowedHeight = h
	}
	return w, h
}

// Exit ends the main loop. Run stops any running ROM on the way out.
func (a *App) Exit() {
	a.quitRequested = true
}

// SaveAndClose persists config and shuts the core down. Closing the
// session stops emulation and waits for the core to report stopped.
func (a *App) SaveAndClose() {
	a.saveWindowState()
	a.saveConfig()
	if err := a.emu.Close(); err != nil {
		log.Printf("Core shutdown: %v", err)
	}
}
