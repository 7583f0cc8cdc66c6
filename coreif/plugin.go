package coreif

import (
	"errors"
	"fmt"
	"log"

	m64p "github.com/user-none/m64ui/api"
)

// PluginLoader loads plugin libraries for an attached core.
type PluginLoader struct {
	Logger    *log.Logger
	Verbose   bool
	OnMessage MessageFunc
}

type plugin struct {
	lib      *library
	sink     uintptr
	typ      m64p.PluginType
	name     string
	version  int
	shutdown func() int32
}

// Load opens the plugin at path, queries its version and starts it against
// core.
func (pl *PluginLoader) Load(core m64p.Core, path string) (m64p.Plugin, error) {
	lib, err := openLibrary(path)
	if err != nil {
		return nil, err
	}

	var (
		getVersion func(typ, version, apiVersion *int32, name *uintptr, caps *int32) int32
		startup    func(coreHandle, ctx, debugCB uintptr) int32
	)
	p := &plugin{lib: lib}
	err = lib.bindAll(map[string]any{
		"PluginGetVersion": &getVersion,
		"PluginStartup":    &startup,
		"PluginShutdown":   &p.shutdown,
	})
	if err != nil {
		lib.close()
		return nil, err
	}

	var typ, version, apiVersion, caps int32
	var namePtr uintptr
	if err := m64p.Check(getVersion(&typ, &version, &apiVersion, &namePtr, &caps)); err != nil {
		lib.close()
		return nil, fmt.Errorf("PluginGetVersion failed for %s: %w", path, err)
	}
	p.typ = m64p.PluginType(typ)
	p.version = int(version)
	p.name = goString(namePtr)

	p.sink = registerSink(&sink{
		name:      p.typ.String(),
		logger:    pl.Logger,
		verbose:   pl.Verbose,
		onMessage: pl.OnMessage,
	})
	debugCB, _ := trampolines()

	if err := m64p.Check(startup(core.Handle(), p.sink, debugCB)); err != nil {
		unregisterSink(p.sink)
		lib.close()
		return nil, fmt.Errorf("%s plugin startup failed: %w", p.name, err)
	}
	return p, nil
}

func (p *plugin) Handle() uintptr       { return p.lib.handle }
func (p *plugin) Type() m64p.PluginType { return p.typ }
func (p *plugin) Name() string          { return p.name }
func (p *plugin) Version() int          { return p.version }

func (p *plugin) Close() error {
	err := m64p.Check(p.shutdown())
	unregisterSink(p.sink)
	return errors.Join(err, p.lib.close())
}
