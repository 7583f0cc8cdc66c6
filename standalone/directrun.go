package standalone

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	m64p "github.com/user-none/m64ui/api"
	"github.com/user-none/m64ui/cheat"
	"github.com/user-none/m64ui/session"
	"github.com/user-none/m64ui/standalone/storage"
)

// RunDirect plays opts.ROMPath without the menu window, using the saved
// plugin and cheat settings. It returns when the core stops, or stops the
// core on SIGINT/SIGTERM.
func RunDirect(opts Options) error {
	if opts.ROMPath == "" {
		return fmt.Errorf("%w: no ROM given", m64p.ErrInputInvalid)
	}
	storage.Init(AppName)

	a := &App{
		opts:         opts,
		notification: NewNotification(),
		events:       make(chan func(), 64),
	}
	config, err := storage.LoadConfig()
	if err != nil {
		log.Printf("Failed to load config, using defaults: %v", err)
		config = storage.DefaultConfig()
	}
	a.config = config
	a.loadCheats()

	// Messages are already logged; the notification only absorbs them.
	// sessionStarted restores the save slot through a.emu.
	emu := newSessionEmulator(a)
	a.emu = emu
	defer func() {
		if err := emu.Close(); err != nil {
			log.Printf("Core shutdown: %v", err)
		}
	}()

	core := a.coreConfig()
	cheats := config.CheatSnapshot()
	done, err := emu.Start(session.Request{
		ROMPath: opts.ROMPath,
		Plugins: pluginPaths(config.Plugins).Resolve(core.PluginDir),
		Cheats:  a.cheats,
		Selections: func(key string) []cheat.Selection {
			return cheats[key]
		},
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case fn := <-a.events:
			fn()
		case <-ctx.Done():
			log.Printf("Interrupted, stopping emulation")
			stop()
			if err := emu.Stop(); err != nil {
				return err
			}
			return <-done
		case err := <-done:
			return err
		}
	}
}
