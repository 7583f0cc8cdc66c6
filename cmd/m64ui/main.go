package main

import (
	"flag"
	"log"
	"os"

	"github.com/user-none/m64ui/standalone"
)

type cliFlags struct {
	ROMPath   string
	CoreLib   string
	PluginDir string
	Verbose   bool

	// Run the ROM without the menu window
	Direct bool
}

func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.ROMPath, "rom", "", "ROM to launch at startup (.n64, .z64, .v64 or an archive)")
	flag.StringVar(&f.CoreLib, "core", "", "path to the mupen64plus core library")
	flag.StringVar(&f.PluginDir, "plugindir", "", "directory holding the mupen64plus plugins")
	flag.BoolVar(&f.Verbose, "verbose", false, "log verbose core and plugin messages")
	flag.BoolVar(&f.Direct, "direct", false, "play -rom without the menu window")
	flag.Parse()

	// A lone positional argument is the ROM, so file managers can open
	// ROMs with m64ui.
	if f.ROMPath == "" && flag.NArg() == 1 {
		f.ROMPath = flag.Arg(0)
	}
	return f
}

func main() {
	f := parseFlags()
	opts := standalone.Options{
		ROMPath:   f.ROMPath,
		CoreLib:   f.CoreLib,
		PluginDir: f.PluginDir,
		Verbose:   f.Verbose,
	}

	run := standalone.Run
	if f.Direct {
		run = standalone.RunDirect
	}
	if err := run(opts); err != nil {
		log.Printf("m64ui: %v", err)
		os.Exit(1)
	}
}
