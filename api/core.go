package m64p

// PluginType identifies the role a plugin library fills.
type PluginType int32

const (
	PluginNull PluginType = iota
	PluginRSP
	PluginGfx
	PluginAudio
	PluginInput
	PluginCore
)

// String returns the short role name used in log messages.
func (t PluginType) String() string {
	switch t {
	case PluginRSP:
		return "RSP"
	case PluginGfx:
		return "Video"
	case PluginAudio:
		return "Audio"
	case PluginInput:
		return "Input"
	case PluginCore:
		return "Core"
	default:
		return "Unknown"
	}
}

// CheatCode is one address/value pair handed to CoreAddCheat.
type CheatCode struct {
	Address uint32
	Value   int32
}

// Core is an attached emulator core library.
//
// Every method maps onto one exported core function or one CoreDoCommand
// command and returns the core's status as an Error.
type Core interface {
	// Handle returns the dynamic library handle passed to PluginStartup.
	Handle() uintptr

	// OpenROM hands an image to the core. The core copies it, so the
	// caller may drop the slice as soon as OpenROM returns.
	OpenROM(rom []byte) error
	CloseROM() error
	ROMHeader() (ROMHeader, error)

	// Execute runs the loaded ROM and blocks until emulation stops.
	Execute() error
	Stop() error
	Pause() error
	Resume() error
	Reset(hard bool) error

	// SaveState and LoadState use the current slot when path is empty.
	SaveState(path string) error
	LoadState(path string) error
	SetSaveSlot(slot int) error
	TakeScreenshot() error

	// SendKey forwards an SDL key event packed as (mod << 16) | scancode.
	SendKey(down bool, key int32) error

	StateQuery(param CoreParam) (int, error)
	StateSet(param CoreParam, value int) error

	AttachPlugin(t PluginType, p Plugin) error
	DetachPlugin(t PluginType) error

	AddCheat(name string, codes []CheatCode) error

	ConfigBool(section, name string) (bool, error)
	SetConfigBool(section, name string, value bool) error

	// Shutdown stops the core. Detach unloads the library; the Core must not
	// be used afterwards.
	Shutdown() error
	Detach() error
}

// Plugin is a loaded and started plugin library.
type Plugin interface {
	Handle() uintptr
	Type() PluginType
	Name() string
	Version() int
	// Close shuts the plugin down and unloads its library.
	Close() error
}
