package standalone

import (
	"errors"
	"runtime"
	"strings"

	"github.com/sqweek/dialog"
	"github.com/user-none/m64ui/coreif"
	"github.com/user-none/m64ui/session"
)

// errCancelled is returned by a chooser when the user dismisses it.
var errCancelled = dialog.ErrCancelled

// romExtensions are offered by the Open ROM dialog. Archives are opened
// with romloader and searched for the first image inside.
var romExtensions = []string{"n64", "z64", "v64", "zip", "7z", "rar", "gz", "tgz"}

// chooser opens the native dialogs the menu needs. Every method blocks
// until the user picks something or cancels.
type chooser interface {
	OpenROM(startDir string) (string, error)
	SaveStateFile(startDir string) (string, error)
	LoadStateFile(startDir string) (string, error)
	CoreLibrary(startDir string) (string, error)
	PluginDir(startDir string) (string, error)
	Plugin(role session.Role, startDir string) (string, error)
}

// nativeChooser implements chooser with sqweek/dialog.
type nativeChooser struct{}

func (nativeChooser) OpenROM(startDir string) (string, error) {
	return dialog.File().
		Title("Open ROM").
		Filter("ROM Files", romExtensions...).
		SetStartDir(startDir).
		Load()
}

func (nativeChooser) SaveStateFile(startDir string) (string, error) {
	return dialog.File().
		Title("Save State File").
		Filter("State Files", "state", "st0", "st1", "st2", "st3", "st4", "st5", "st6", "st7", "st8", "st9").
		SetStartDir(startDir).
		Save()
}

func (nativeChooser) LoadStateFile(startDir string) (string, error) {
	return dialog.File().
		Title("Open Save State").
		Filter("State Files", "state", "st0", "st1", "st2", "st3", "st4", "st5", "st6", "st7", "st8", "st9").
		Filter("All Files", "*").
		SetStartDir(startDir).
		Load()
}

func (nativeChooser) CoreLibrary(startDir string) (string, error) {
	return dialog.File().
		Title("Select Core Library").
		Filter("Shared Libraries", libraryFilter()...).
		SetStartDir(startDir).
		Load()
}

func (nativeChooser) PluginDir(startDir string) (string, error) {
	return dialog.Directory().
		Title("Select Plugin Directory").
		SetStartDir(startDir).
		Browse()
}

func (nativeChooser) Plugin(role session.Role, startDir string) (string, error) {
	return dialog.File().
		Title("Select "+role.String()+" Plugin").
		Filter("Shared Libraries", libraryFilter()...).
		SetStartDir(startDir).
		Load()
}

// libraryFilter lists the shared library extensions of the host. On Linux
// the core is usually installed with a version suffix (libmupen64plus.so.2).
func libraryFilter() []string {
	exts := []string{strings.TrimPrefix(coreif.LibraryExtension(), ".")}
	if runtime.GOOS != "windows" && runtime.GOOS != "darwin" {
		exts = append(exts, "2")
	}
	return exts
}

// isCancelled reports whether err means the user closed the dialog.
func isCancelled(err error) bool {
	return errors.Is(err, errCancelled)
}
