package coreaudio

import (
	"unsafe"
)

// instanceRef is the opaque pointer-sized identifier of a native audio unit
// instance. The wrapper never constructs one itself, only receives it from
// the engine and hands it back for disposal.
type instanceRef uintptr

// renderCallbackStruct mirrors the native AURenderCallbackStruct: the fixed
// trampoline function pointer and the opaque user-data pointer handed back
// on every render invocation.
type renderCallbackStruct struct {
	Proc   uintptr
	RefCon uintptr
}

// DeviceInfo describes one hardware audio device.
type DeviceInfo struct {
	ID             uint32
	Name           string
	SampleRate     float64
	InputChannels  uint32
	OutputChannels uint32
}

// audioEngine is the boundary to the native audio layer. The darwin
// implementation binds AudioToolbox; the simulated implementation backs
// non-darwin builds and the test suite. All methods are synchronous and
// return native status codes, which callers convert through statusErr.
type audioEngine interface {
	// findInstance locates and instantiates a component matching desc.
	// A zero instance with StatusOK means no component matched.
	findInstance(desc ComponentDescription) (instanceRef, OSStatus)

	initialize(inst instanceRef) OSStatus
	uninitialize(inst instanceRef) OSStatus
	dispose(inst instanceRef) OSStatus

	start(inst instanceRef) OSStatus
	stop(inst instanceRef) OSStatus

	propertyInfo(inst instanceRef, sel PropertySelector, scope Scope, elem Element) (size uint32, writable bool, status OSStatus)
	getProperty(inst instanceRef, sel PropertySelector, scope Scope, elem Element, data unsafe.Pointer, ioSize *uint32) OSStatus
	setProperty(inst instanceRef, sel PropertySelector, scope Scope, elem Element, data unsafe.Pointer, size uint32) OSStatus

	// renderProc returns the address of the fixed C-ABI trampoline that the
	// engine invokes on its real-time thread. The simulated engine returns a
	// marker value and dispatches in-process instead.
	renderProc() uintptr

	devices() ([]DeviceInfo, error)
	defaultDevice(input bool) (DeviceInfo, error)
}
