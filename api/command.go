// Package m64p describes the mupen64plus front-end ABI: commands, core
// parameters, plugin types, message levels and the ROM header, plus the
// Core and Plugin interfaces the rest of the front-end programs against.
package m64p

// CoreAPIVersion is the front-end API version passed to CoreStartup.
const CoreAPIVersion = 0x020001

// Command identifies a CoreDoCommand operation.
type Command int32

const (
	CmdNop Command = iota
	CmdROMOpen
	CmdROMClose
	CmdROMGetHeader
	CmdROMGetSettings
	CmdExecute
	CmdStop
	CmdPause
	CmdResume
	CmdCoreStateQuery
	CmdStateLoad
	CmdStateSave
	CmdStateSetSlot
	CmdSendSDLKeyDown
	CmdSendSDLKeyUp
	CmdSetFrameCallback
	CmdTakeNextScreenshot
	CmdCoreStateSet
	CmdReadScreen
	CmdReset
	CmdAdvanceFrame
)

// CoreParam selects the runtime value read or written by
// CmdCoreStateQuery and CmdCoreStateSet.
type CoreParam int32

const (
	ParamEmuState CoreParam = iota + 1
	ParamVideoMode
	ParamSavestateSlot
	ParamSpeedFactor
	ParamSpeedLimiter
	ParamVideoSize
	ParamAudioVolume
	ParamAudioMute
	ParamInputGameshark
	ParamStateLoadComplete
	ParamStateSaveComplete
)

// EmuState is the value of ParamEmuState.
type EmuState int

const (
	EmuStopped EmuState = iota + 1
	EmuRunning
	EmuPaused
)

// String returns the display name of the state.
func (s EmuState) String() string {
	switch s {
	case EmuStopped:
		return "Stopped"
	case EmuRunning:
		return "Running"
	case EmuPaused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// VideoMode is the value of ParamVideoMode.
type VideoMode int

const (
	VideoNone VideoMode = iota + 1
	VideoWindowed
	VideoFullscreen
)

// StateFormat selects the save state file format for CmdStateSave.
type StateFormat int

const (
	StateFormatM64P StateFormat = iota + 1
	StateFormatPJ64Compressed
	StateFormatPJ64Uncompressed
)

// ParamType is the value type passed to ConfigSetParameter.
type ParamType int32

const (
	TypeInt ParamType = iota + 1
	TypeFloat
	TypeBool
	TypeString
)

// MaxSaveSlot is the highest save state slot the core accepts.
const MaxSaveSlot = 9
