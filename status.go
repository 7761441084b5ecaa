package coreaudio

import (
	"errors"
	"fmt"
)

// OSStatus is the signed 32-bit status code returned by every native call.
// Zero means success; the nonzero space is owned by the native frameworks.
type OSStatus int32

// Known AudioUnit status codes. These values correspond to the
// kAudioUnitErr_* and generic kAudio_*Error constants.
const (
	StatusOK                       OSStatus = 0
	StatusInvalidProperty          OSStatus = -10879
	StatusInvalidParameter         OSStatus = -10878
	StatusInvalidElement           OSStatus = -10877
	StatusNoConnection             OSStatus = -10876
	StatusFailedInitialization     OSStatus = -10875
	StatusTooManyFramesToProcess   OSStatus = -10874
	StatusInvalidFile              OSStatus = -10871
	StatusFormatNotSupported       OSStatus = -10868
	StatusUninitialized            OSStatus = -10867
	StatusInvalidScope             OSStatus = -10866
	StatusPropertyNotWritable      OSStatus = -10865
	StatusCannotDoInCurrentContext OSStatus = -10863
	StatusInvalidPropertyValue     OSStatus = -10851
	StatusPropertyNotInUse         OSStatus = -10850
	StatusInitialized              OSStatus = -10849
	StatusInvalidOfflineRender     OSStatus = -10848
	StatusUnauthorized             OSStatus = -10847

	StatusUnimplemented OSStatus = -4
	StatusParamError    OSStatus = -50
	StatusMemFull       OSStatus = -108
)

// statusNames provides human-readable categories for the known status codes.
var statusNames = map[OSStatus]string{
	StatusInvalidProperty:          "invalid property",
	StatusInvalidParameter:         "invalid parameter",
	StatusInvalidElement:           "invalid element",
	StatusNoConnection:             "no connection",
	StatusFailedInitialization:     "failed initialization",
	StatusTooManyFramesToProcess:   "too many frames to process",
	StatusInvalidFile:              "invalid file",
	StatusFormatNotSupported:       "format not supported",
	StatusUninitialized:            "uninitialized",
	StatusInvalidScope:             "invalid scope",
	StatusPropertyNotWritable:      "property not writable",
	StatusCannotDoInCurrentContext: "cannot do in current context",
	StatusInvalidPropertyValue:     "invalid property value",
	StatusPropertyNotInUse:         "property not in use",
	StatusInitialized:              "initialized",
	StatusInvalidOfflineRender:     "invalid offline render",
	StatusUnauthorized:             "unauthorized",
	StatusUnimplemented:            "unimplemented",
	StatusParamError:               "parameter error",
	StatusMemFull:                  "memory full",
}

// StatusError wraps a nonzero native status code.
type StatusError struct {
	Code OSStatus
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if name, ok := statusNames[e.Code]; ok {
		return fmt.Sprintf("audio unit error %d (%s)", e.Code, name)
	}

	return fmt.Sprintf("native audio error %d", e.Code)
}

// statusErr converts a native status code into an error. A zero code always
// maps to nil. This is the single failure channel for every native call.
func statusErr(code OSStatus) error {
	if code == StatusOK {
		return nil
	}

	return &StatusError{Code: code}
}

// toStatus maps an error produced by user or wrapper code back into the
// native status domain for return across the callback boundary.
func toStatus(err error) OSStatus {
	if err == nil {
		return StatusOK
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}

	return StatusUnimplemented
}

// SizeMismatchError reports a typed property access whose requested type size
// disagrees with the size reported by the native side. The access is rejected
// before any bytes are read or written.
type SizeMismatchError struct {
	Selector PropertySelector
	Expected uint32 // Size of the requested Go type.
	Actual   uint32 // Size reported by the native property.
}

// Error implements the error interface.
func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("property %d: size mismatch: requested type is %d bytes, native reports %d",
		e.Selector, e.Expected, e.Actual)
}

var (
	// ErrNotFound indicates that no audio component matched the description.
	ErrNotFound = errors.New("no matching audio component found")

	// ErrDisposed indicates an operation on a handle whose native resource
	// has already been released.
	ErrDisposed = errors.New("audio unit has been disposed")

	// ErrCallbackAlreadyInstalled is returned by InstallRenderCallback when a
	// render callback is already registered on the unit.
	ErrCallbackAlreadyInstalled = errors.New("render callback already installed")

	// ErrCallbackNotInstalled is returned when removing a callback that was
	// never installed.
	ErrCallbackNotInstalled = errors.New("no render callback installed")
)
