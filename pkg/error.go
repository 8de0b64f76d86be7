package pkg

import "errors"

// USB protocol errors surfaced by the transport layer.
var (
	// ErrStall indicates an endpoint stall condition.
	ErrStall = errors.New("endpoint stalled")

	// ErrTimeout indicates a transfer timeout.
	ErrTimeout = errors.New("transfer timeout")

	// ErrCancelled indicates a cancelled transfer.
	ErrCancelled = errors.New("transfer cancelled")

	// ErrNoDevice indicates the device is not present.
	ErrNoDevice = errors.New("device not present")

	// ErrInvalidParameter indicates an invalid parameter was provided.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrAlreadyRunning indicates the engine is already activated.
	ErrAlreadyRunning = errors.New("already running")

	// ErrNotRunning indicates the engine has not been activated.
	ErrNotRunning = errors.New("not running")
)

// Code enumerates the fixed engine error taxonomy from the init/activation
// path. Unlike the sentinel errors above (which describe a single transfer's
// outcome), a Code is returned to the caller of a public engine operation
// and carries a stable string via [Code.String], mirroring the fixed
// error-string table of the engine this package was modeled after.
type Code int

// Engine error codes, in the order they can occur during initialization.
const (
	CodeOK Code = iota
	CodeUSBInitFailed
	CodeDeviceNotFound
	CodeCantSetConfig
	CodeCantClaimInterface
	CodeCantSetAltSetting
	CodeCantClearEndpoint
	CodeCantPrepareTransfer
	CodeCantFindMatchingDevice
	CodeMissingReadSpace
	CodeMissingWriteSpace
	CodeMissingRead
	CodeMissingWrite
	CodeMissingGetTime
	CodeMissingP2OAudioBuf
	CodeMissingO2PAudioBuf
	CodeMissingP2OMIDIBuf
	CodeMissingO2PMIDIBuf
	CodeThreadCreateFailed
	CodeGeneric
)

// String returns the fixed diagnostic string for the error code. It is a
// total function: every Code value, including out-of-range ones, returns a
// non-empty string.
func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeUSBInitFailed:
		return "usb init failed"
	case CodeDeviceNotFound:
		return "can't open device"
	case CodeCantSetConfig:
		return "can't set usb config"
	case CodeCantClaimInterface:
		return "can't claim usb interface"
	case CodeCantSetAltSetting:
		return "can't set usb alt setting"
	case CodeCantClearEndpoint:
		return "can't clear endpoint"
	case CodeCantPrepareTransfer:
		return "can't prepare transfer"
	case CodeCantFindMatchingDevice:
		return "can't find a matching device"
	case CodeMissingReadSpace:
		return "'read_space' not set"
	case CodeMissingWriteSpace:
		return "'write_space' not set"
	case CodeMissingRead:
		return "'read' not set"
	case CodeMissingWrite:
		return "'write' not set"
	case CodeMissingGetTime:
		return "'get_time' not set"
	case CodeMissingP2OAudioBuf:
		return "'p2o_audio' buffer not set"
	case CodeMissingO2PAudioBuf:
		return "'o2p_audio' buffer not set"
	case CodeMissingP2OMIDIBuf:
		return "'p2o_midi' buffer not set"
	case CodeMissingO2PMIDIBuf:
		return "'o2p_midi' buffer not set"
	case CodeThreadCreateFailed:
		return "could not start thread"
	case CodeGeneric:
		return "generic error"
	default:
		return "unknown error"
	}
}

// Error implements the error interface, so a Code can be returned directly
// from operations that fail before an Engine exists to report status.
func (c Code) Error() string { return c.String() }
