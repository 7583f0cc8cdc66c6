package m64p

import "fmt"

// Error is a return code from the core or plugin ABI.
type Error int

// Return codes shared by every exported core and plugin function.
const (
	Success Error = iota
	ErrNotInit
	ErrAlreadyInit
	ErrIncompatible
	ErrInputAssert
	ErrInputInvalid
	ErrInputNotFound
	ErrNoMemory
	ErrFiles
	ErrInternal
	ErrInvalidState
	ErrPluginFail
	ErrSystemFail
	ErrUnsupported
	ErrWrongType
)

var errorText = map[Error]string{
	Success:          "SUCCESS: No error",
	ErrNotInit:       "NOT_INIT: A function was called before it's associated module was initialized",
	ErrAlreadyInit:   "ALREADY_INIT: Initialization function called twice",
	ErrIncompatible:  "INCOMPATIBLE: API versions between components are incompatible",
	ErrInputAssert:   "INPUT_ASSERT: Invalid function parameters, such as a NULL pointer",
	ErrInputInvalid:  "INPUT_INVALID: An input function parameter is logically invalid",
	ErrInputNotFound: "INPUT_NOT_FOUND: The input parameter(s) specified a particular item which was not found",
	ErrNoMemory:      "NO_MEMORY: Memory allocation failed",
	ErrFiles:         "FILES: Error opening, creating, reading, or writing to a file",
	ErrInternal:      "INTERNAL: logical inconsistency in program code",
	ErrInvalidState:  "INVALID_STATE: An operation was requested which is not allowed in the current state",
	ErrPluginFail:    "PLUGIN_FAIL: A plugin function returned a fatal error",
	ErrSystemFail:    "SYSTEM_FAIL: A system function call, such as an SDL or file operation, failed",
	ErrUnsupported:   "UNSUPPORTED: Function call is not supported",
	ErrWrongType:     "WRONG_TYPE: A given input type parameter cannot be used for desired operation",
}

// Error implements the error interface.
func (e Error) Error() string {
	if s, ok := errorText[e]; ok {
		return s
	}
	return fmt.Sprintf("unknown error code %d", int(e))
}

// Check converts a raw ABI return code into an error, or nil on success.
func Check(code int32) error {
	if Error(code) == Success {
		return nil
	}
	return Error(code)
}
