package coreaudio

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// RenderCallback is user code invoked by the audio engine for one buffer
// cycle. For output units it fills args.Data with samples to play; for input
// callbacks it consumes captured samples.
//
// It runs on the engine's real-time thread: it must not allocate, lock, or
// block, and it must not retain args.Data past its return. A nil return maps
// to a success status; a *StatusError propagates its code to the engine; any
// other error is reported as a generic failure status.
type RenderCallback func(args RenderArgs) error

// RenderArgs is the per-invocation render context. It is built on the stack
// from engine-owned memory and is valid only until the callback returns.
type RenderArgs struct {
	// Flags configure the render operation. The engine may read flags set by
	// the callback, e.g. ACTION_OUTPUT_IS_SILENCE.
	Flags *ActionFlags
	// TimeStamp carries the timing of this cycle.
	TimeStamp AudioTimeStamp
	// Bus is the bus (element) number the callback is rendering for.
	Bus uint32
	// NumFrames is the number of sample frames requested.
	NumFrames int
	// Data is the buffer list view for this cycle.
	Data BufferList
}

// callbackBox holds an installed callback behind a registry token. The
// native side only carries the token, never a Go pointer, so installed
// callbacks stay reachable for exactly as long as they are registered.
type callbackBox struct {
	fn RenderCallback
}

var (
	// callbackRegistry maps refCon tokens to installed callbacks. Lookups on
	// the render path go through sync.Map's lock-free read path; the control
	// thread is the only writer.
	callbackRegistry sync.Map // uintptr -> *callbackBox

	callbackToken atomic.Uintptr
)

// registerRenderCallback stores fn and mints the refCon token that the
// engine will hand back on every invocation.
func registerRenderCallback(fn RenderCallback) uintptr {
	token := callbackToken.Add(1)
	callbackRegistry.Store(token, &callbackBox{fn: fn})

	return token
}

// unregisterRenderCallback drops the callback behind token. The caller must
// have detached the token from the engine first; the engine serializes
// render invocations against the property write that detaches it.
func unregisterRenderCallback(token uintptr) {
	if token != 0 {
		callbackRegistry.Delete(token)
	}
}

// dispatchRender is the core of the render trampoline. It recovers the
// installed callback from the refCon token, rebuilds a safe render context
// from the raw arguments without heap allocation, runs the callback, and
// converts its outcome into a native status code. A panic in user code is
// caught here: unwinding must never cross the ABI boundary.
func dispatchRender(refCon uintptr, ioActionFlags *uint32, inTimeStamp *AudioTimeStamp,
	inBusNumber, inNumberFrames uint32, ioData *rawAudioBufferList) (status OSStatus) {

	defer func() {
		if recover() != nil {
			status = StatusUnimplemented
		}
	}()

	value, ok := callbackRegistry.Load(refCon)
	if !ok {
		return StatusInvalidParameter
	}
	box := value.(*callbackBox)

	args := RenderArgs{
		Flags:     (*ActionFlags)(unsafe.Pointer(ioActionFlags)),
		Bus:       inBusNumber,
		NumFrames: int(inNumberFrames),
		Data:      BufferList{raw: ioData},
	}
	if inTimeStamp != nil {
		args.TimeStamp = *inTimeStamp
	}

	return toStatus(box.fn(args))
}
