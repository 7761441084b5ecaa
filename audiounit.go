package coreaudio

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"
)

// AudioUnit owns one native audio unit instance across its full lifecycle:
// construct, initialize, start, stop, uninitialize, dispose. The handle is
// exclusive: it is never copied and its native resource is released exactly
// once, by Close. After Close every operation fails with ErrDisposed.
//
// Control-side methods are safe for concurrent use. The render callback runs
// independently on the engine's real-time thread and is never invoked after
// it has been removed or the unit has been closed.
type AudioUnit struct {
	mu  sync.Mutex
	eng audioEngine

	inst        instanceRef
	initialized bool
	started     bool
	disposed    bool

	renderToken uintptr
	inputToken  uintptr
}

// New locates and instantiates a native audio unit matching the description.
// It returns ErrNotFound if no registered component matches.
func New(desc ComponentDescription) (*AudioUnit, error) {
	return newUnit(defaultEngine(), desc)
}

// NewOutputUnit instantiates the default output unit, the usual choice for
// playing audio through the current output device.
func NewOutputUnit() (*AudioUnit, error) {
	return New(ComponentDescription{
		Type:         AU_TYPE_OUTPUT,
		SubType:      AU_SUBTYPE_DEFAULT_OUTPUT,
		Manufacturer: AU_MANUFACTURER_APPLE,
	})
}

// NewHALUnit instantiates the hardware abstraction layer I/O unit, which
// exposes both input and output elements of a hardware device.
func NewHALUnit() (*AudioUnit, error) {
	return New(ComponentDescription{
		Type:         AU_TYPE_OUTPUT,
		SubType:      AU_SUBTYPE_HAL_OUTPUT,
		Manufacturer: AU_MANUFACTURER_APPLE,
	})
}

func newUnit(eng audioEngine, desc ComponentDescription) (*AudioUnit, error) {
	inst, status := eng.findInstance(desc)
	if status != StatusOK {
		return nil, fmt.Errorf("failed to instantiate audio unit: %w", statusErr(status))
	}

	if inst == 0 {
		return nil, ErrNotFound
	}

	return &AudioUnit{eng: eng, inst: inst}, nil
}

// Initialize transitions the unit from its created state into the
// initialized state. It must be called before Start.
func (u *AudioUnit) Initialize() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.disposed {
		return ErrDisposed
	}

	if err := statusErr(u.eng.initialize(u.inst)); err != nil {
		return fmt.Errorf("failed to initialize audio unit: %w", err)
	}
	u.initialized = true

	return nil
}

// Uninitialize releases the unit's render resources. Properties may be
// reconfigured and the unit re-initialized afterwards.
func (u *AudioUnit) Uninitialize() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.disposed {
		return ErrDisposed
	}

	if err := statusErr(u.eng.uninitialize(u.inst)); err != nil {
		return fmt.Errorf("failed to uninitialize audio unit: %w", err)
	}
	u.initialized = false

	return nil
}

// Start begins the render loop. The engine will invoke the installed render
// callback on its real-time thread at the hardware cadence.
func (u *AudioUnit) Start() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.disposed {
		return ErrDisposed
	}

	if err := statusErr(u.eng.start(u.inst)); err != nil {
		return fmt.Errorf("failed to start audio unit: %w", err)
	}
	u.started = true

	return nil
}

// Stop halts the render loop. It takes effect before the next scheduled
// render invocation; an invocation already running completes. Stopping an
// already stopped unit is a no-op success.
func (u *AudioUnit) Stop() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.disposed {
		return ErrDisposed
	}

	if !u.started {
		return nil
	}

	if err := statusErr(u.eng.stop(u.inst)); err != nil {
		return fmt.Errorf("failed to stop audio unit: %w", err)
	}
	u.started = false

	return nil
}

// Close tears the unit down and releases the native instance. The order is
// fixed: stop, remove callbacks, uninitialize, dispose. A failure in one
// step is collected but never aborts the remaining steps; the native
// resource is always released. Closing an already closed unit returns nil.
func (u *AudioUnit) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.disposed {
		return nil
	}

	var errs []error

	if u.started {
		if status := u.eng.stop(u.inst); status != StatusOK {
			errs = append(errs, fmt.Errorf("stop during close: %w", statusErr(status)))
		}
		u.started = false
	}

	// The unit is stopped, so the engine will not call into either callback
	// again; detaching and unregistering them here is race-free.
	if u.renderToken != 0 {
		if err := u.detachCallbackLocked(AU_PROP_SET_RENDER_CALLBACK, SCOPE_INPUT, ELEMENT_OUTPUT, &u.renderToken); err != nil {
			errs = append(errs, fmt.Errorf("remove render callback during close: %w", err))
		}
	}
	if u.inputToken != 0 {
		if err := u.detachCallbackLocked(AU_OUTPUT_PROP_SET_INPUT_CALLBACK, SCOPE_GLOBAL, ELEMENT_OUTPUT, &u.inputToken); err != nil {
			errs = append(errs, fmt.Errorf("remove input callback during close: %w", err))
		}
	}

	if u.initialized {
		if status := u.eng.uninitialize(u.inst); status != StatusOK {
			errs = append(errs, fmt.Errorf("uninitialize during close: %w", statusErr(status)))
		}
		u.initialized = false
	}

	if status := u.eng.dispose(u.inst); status != StatusOK {
		errs = append(errs, fmt.Errorf("dispose: %w", statusErr(status)))
	}

	u.disposed = true
	u.inst = 0

	return errors.Join(errs...)
}

// SetRenderCallback installs fn as the unit's render callback, atomically
// replacing any previously installed one: at every instant exactly one of
// the two callbacks is the one the engine will invoke next.
func (u *AudioUnit) SetRenderCallback(fn RenderCallback) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.installCallbackLocked(AU_PROP_SET_RENDER_CALLBACK, SCOPE_INPUT, ELEMENT_OUTPUT, &u.renderToken, fn)
}

// InstallRenderCallback is the strict variant of SetRenderCallback: it fails
// with ErrCallbackAlreadyInstalled instead of replacing.
func (u *AudioUnit) InstallRenderCallback(fn RenderCallback) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.renderToken != 0 {
		return ErrCallbackAlreadyInstalled
	}

	return u.installCallbackLocked(AU_PROP_SET_RENDER_CALLBACK, SCOPE_INPUT, ELEMENT_OUTPUT, &u.renderToken, fn)
}

// RemoveRenderCallback detaches the installed render callback. When it
// returns, the engine will not invoke the callback again.
func (u *AudioUnit) RemoveRenderCallback() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.disposed {
		return ErrDisposed
	}

	if u.renderToken == 0 {
		return ErrCallbackNotInstalled
	}

	return u.detachCallbackLocked(AU_PROP_SET_RENDER_CALLBACK, SCOPE_INPUT, ELEMENT_OUTPUT, &u.renderToken)
}

// SetInputCallback installs fn as the unit's input (capture) callback,
// invoked by the engine when new input samples are available. Like
// SetRenderCallback it atomically replaces an existing callback.
func (u *AudioUnit) SetInputCallback(fn RenderCallback) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.installCallbackLocked(AU_OUTPUT_PROP_SET_INPUT_CALLBACK, SCOPE_GLOBAL, ELEMENT_OUTPUT, &u.inputToken, fn)
}

// RemoveInputCallback detaches the installed input callback.
func (u *AudioUnit) RemoveInputCallback() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.disposed {
		return ErrDisposed
	}

	if u.inputToken == 0 {
		return ErrCallbackNotInstalled
	}

	return u.detachCallbackLocked(AU_OUTPUT_PROP_SET_INPUT_CALLBACK, SCOPE_GLOBAL, ELEMENT_OUTPUT, &u.inputToken)
}

func (u *AudioUnit) installCallbackLocked(sel PropertySelector, scope Scope, elem Element, token *uintptr, fn RenderCallback) error {
	if u.disposed {
		return ErrDisposed
	}

	newToken := registerRenderCallback(fn)
	cbs := renderCallbackStruct{
		Proc:   u.eng.renderProc(),
		RefCon: newToken,
	}

	status := u.eng.setProperty(u.inst, sel, scope, elem, unsafe.Pointer(&cbs), uint32(unsafe.Sizeof(cbs)))
	if status != StatusOK {
		unregisterRenderCallback(newToken)

		return fmt.Errorf("failed to install callback: %w", statusErr(status))
	}

	// The engine serialized the property write against render invocations,
	// so the old token can no longer reach dispatch.
	unregisterRenderCallback(*token)
	*token = newToken

	return nil
}

func (u *AudioUnit) detachCallbackLocked(sel PropertySelector, scope Scope, elem Element, token *uintptr) error {
	var cbs renderCallbackStruct
	status := u.eng.setProperty(u.inst, sel, scope, elem, unsafe.Pointer(&cbs), uint32(unsafe.Sizeof(cbs)))

	// Unregister regardless: if the detach write failed the unit is already
	// stopped or broken, and leaking the callback would pin it forever.
	unregisterRenderCallback(*token)
	*token = 0

	if status != StatusOK {
		return fmt.Errorf("failed to detach callback: %w", statusErr(status))
	}

	return nil
}

// StreamFormat returns the unit's stream description for the given scope and
// element.
func (u *AudioUnit) StreamFormat(scope Scope, elem Element) (StreamDescription, error) {
	return GetProperty[StreamDescription](u, AU_PROP_STREAM_FORMAT, scope, elem)
}

// SetStreamFormat sets the unit's stream description for the given scope and
// element. The native layer rejects this once the unit is initialized or
// started; the mapped status is returned unmodified.
func (u *AudioUnit) SetStreamFormat(scope Scope, elem Element, desc StreamDescription) error {
	return SetProperty(u, AU_PROP_STREAM_FORMAT, scope, elem, desc)
}

// SampleRate returns the unit's output sample rate in Hz.
func (u *AudioUnit) SampleRate() (float64, error) {
	return GetProperty[float64](u, AU_PROP_SAMPLE_RATE, SCOPE_OUTPUT, ELEMENT_OUTPUT)
}

// SetSampleRate sets the unit's output sample rate in Hz.
func (u *AudioUnit) SetSampleRate(rate float64) error {
	return SetProperty(u, AU_PROP_SAMPLE_RATE, SCOPE_OUTPUT, ELEMENT_OUTPUT, rate)
}
