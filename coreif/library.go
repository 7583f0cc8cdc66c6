// Package coreif binds the mupen64plus core and plugin shared libraries
// through purego, so the front-end needs no cgo toolchain to talk to them.
package coreif

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	"github.com/ebitengine/purego"
)

// ErrSymbolMissing is returned when a library lacks a required export.
var ErrSymbolMissing = errors.New("required symbol not exported")

// library is an opened shared object and the symbols bound from it.
type library struct {
	path   string
	handle uintptr
}

func openLibrary(path string) (*library, error) {
	h, err := dlopen(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return &library{path: path, handle: h}, nil
}

// bind resolves name and makes fptr (a pointer to a func variable) call it.
func (l *library) bind(fptr any, name string) error {
	addr, err := dlsym(l.handle, name)
	if err != nil || addr == 0 {
		return fmt.Errorf("%w: %s in %s", ErrSymbolMissing, name, l.path)
	}
	purego.RegisterFunc(fptr, addr)
	return nil
}

// bindAll binds every entry of syms, stopping at the first missing one.
func (l *library) bindAll(syms map[string]any) error {
	for name, fptr := range syms {
		if err := l.bind(fptr, name); err != nil {
			return err
		}
	}
	return nil
}

func (l *library) close() error {
	if l.handle == 0 {
		return nil
	}
	err := dlclose(l.handle)
	l.handle = 0
	return err
}

// cString returns a NUL-terminated copy of s, or nil for an empty string so
// that the core sees NULL and falls back to its defaults.
func cString(s string) *byte {
	if s == "" {
		return nil
	}
	b := make([]byte, len(s)+1)
	copy(b, s)
	return &b[0]
}

// goString copies a NUL-terminated C string.
func goString(p uintptr) string {
	if p == 0 {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Add(unsafe.Pointer(p), n)) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(unsafe.Pointer(p)), n))
}

// LibraryExtension is the shared library suffix of the host platform.
func LibraryExtension() string {
	switch runtime.GOOS {
	case "windows":
		return ".dll"
	case "darwin":
		return ".dylib"
	default:
		return ".so"
	}
}

// DefaultCoreLibrary is the file name the core is installed under. It is
// handed to the dynamic loader as is, so the system search path applies.
func DefaultCoreLibrary() string {
	switch runtime.GOOS {
	case "windows":
		return "mupen64plus.dll"
	case "darwin":
		return "libmupen64plus.dylib"
	default:
		return "libmupen64plus.so.2"
	}
}
