package coreaudio

import (
	"encoding/binary"
	"math"
	"runtime"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// simEngine is an in-process stand-in for the native audio layer. It backs
// non-darwin builds and the test suite: properties live in a table keyed by
// (selector, scope, element) with per-key size and writability, lifecycle
// ordering is enforced with native status codes, and render invocations are
// driven either by an internal clock goroutine or explicitly by tests.
type simEngine struct {
	mu       sync.Mutex
	units    map[instanceRef]*simUnit
	nextInst instanceRef
}

type simKey struct {
	sel   PropertySelector
	scope Scope
	elem  Element
}

type simProperty struct {
	data     []byte
	writable bool
}

type simUnit struct {
	desc        ComponentDescription
	props       map[simKey]*simProperty
	initialized bool
	started     bool

	renderRefCon uintptr
	inputRefCon  uintptr

	sampleTime float64

	stopCh chan struct{}
	wg     sync.WaitGroup

	// failNextStop makes the next stop report an error while still stopping,
	// to exercise teardown ordering under partial failure.
	failNextStop bool
}

func newSimEngine() *simEngine {
	return &simEngine{units: make(map[instanceRef]*simUnit)}
}

// simDefaultFrames is the render quantum used by the internal clock.
const simDefaultFrames = 512

var simSubTypes = map[ComponentSubType]bool{
	AU_SUBTYPE_GENERIC_OUTPUT:      true,
	AU_SUBTYPE_HAL_OUTPUT:          true,
	AU_SUBTYPE_DEFAULT_OUTPUT:      true,
	AU_SUBTYPE_SYSTEM_OUTPUT:       true,
	AU_SUBTYPE_VOICE_PROCESSING_IO: true,
}

func (e *simEngine) findInstance(desc ComponentDescription) (instanceRef, OSStatus) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if desc.Type != AU_TYPE_OUTPUT || !simSubTypes[desc.SubType] {
		return 0, StatusOK
	}
	if desc.Manufacturer != 0 && desc.Manufacturer != AU_MANUFACTURER_APPLE {
		return 0, StatusOK
	}

	e.nextInst++
	inst := e.nextInst
	e.units[inst] = newSimUnit(desc)

	return inst, StatusOK
}

func newSimUnit(desc ComponentDescription) *simUnit {
	u := &simUnit{
		desc:  desc,
		props: make(map[simKey]*simProperty),
	}

	format := NewStreamDescription(44100, 2, SAMPLE_FORMAT_F32, true)
	formatBytes := func() []byte {
		b := make([]byte, unsafe.Sizeof(format))
		copy(b, unsafe.Slice((*byte)(unsafe.Pointer(&format)), len(b)))

		return b
	}

	rate := make([]byte, 8)
	binary.LittleEndian.PutUint64(rate, math.Float64bits(44100))

	u32 := func(v uint32) []byte {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, v)

		return b
	}

	// The client-facing stream formats of an I/O unit: input scope of the
	// output element and output scope of the input element.
	u.props[simKey{AU_PROP_STREAM_FORMAT, SCOPE_INPUT, ELEMENT_OUTPUT}] = &simProperty{data: formatBytes(), writable: true}
	u.props[simKey{AU_PROP_STREAM_FORMAT, SCOPE_OUTPUT, ELEMENT_INPUT}] = &simProperty{data: formatBytes(), writable: true}

	u.props[simKey{AU_PROP_SAMPLE_RATE, SCOPE_OUTPUT, ELEMENT_OUTPUT}] = &simProperty{data: rate, writable: true}

	u.props[simKey{AU_PROP_MAX_FRAMES_PER_SLICE, SCOPE_GLOBAL, ELEMENT_OUTPUT}] = &simProperty{data: u32(simDefaultFrames), writable: true}
	u.props[simKey{AU_PROP_ELEMENT_COUNT, SCOPE_GLOBAL, ELEMENT_OUTPUT}] = &simProperty{data: u32(1), writable: false}
	u.props[simKey{AU_PROP_LAST_RENDER_ERROR, SCOPE_GLOBAL, ELEMENT_OUTPUT}] = &simProperty{data: u32(0), writable: false}
	u.props[simKey{AU_OUTPUT_PROP_IS_RUNNING, SCOPE_GLOBAL, ELEMENT_OUTPUT}] = &simProperty{data: u32(0), writable: false}
	u.props[simKey{AU_OUTPUT_PROP_CURRENT_DEVICE, SCOPE_GLOBAL, ELEMENT_OUTPUT}] = &simProperty{data: u32(simOutputDeviceID), writable: true}

	// EnableIO lives on the input scope of the input element and the output
	// scope of the output element, as on a HAL unit.
	u.props[simKey{AU_OUTPUT_PROP_ENABLE_IO, SCOPE_INPUT, ELEMENT_INPUT}] = &simProperty{data: u32(0), writable: true}
	u.props[simKey{AU_OUTPUT_PROP_ENABLE_IO, SCOPE_OUTPUT, ELEMENT_OUTPUT}] = &simProperty{data: u32(1), writable: true}

	return u
}

func (e *simEngine) unit(inst instanceRef) *simUnit {
	return e.units[inst]
}

func (e *simEngine) initialize(inst instanceRef) OSStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	u := e.unit(inst)
	if u == nil {
		return StatusParamError
	}

	u.initialized = true

	return StatusOK
}

func (e *simEngine) uninitialize(inst instanceRef) OSStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	u := e.unit(inst)
	if u == nil {
		return StatusParamError
	}

	if u.started {
		return StatusCannotDoInCurrentContext
	}

	u.initialized = false

	return StatusOK
}

func (e *simEngine) dispose(inst instanceRef) OSStatus {
	e.mu.Lock()
	u := e.unit(inst)
	if u == nil {
		e.mu.Unlock()

		return StatusParamError
	}

	stopCh := u.stopCh
	u.stopCh = nil
	u.started = false
	delete(e.units, inst)
	e.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		u.wg.Wait()
	}

	return StatusOK
}

func (e *simEngine) start(inst instanceRef) OSStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	u := e.unit(inst)
	if u == nil {
		return StatusParamError
	}

	if !u.initialized {
		return StatusUninitialized
	}

	if u.started {
		return StatusOK
	}

	u.started = true
	u.stopCh = make(chan struct{})
	binary.LittleEndian.PutUint32(u.props[simKey{AU_OUTPUT_PROP_IS_RUNNING, SCOPE_GLOBAL, ELEMENT_OUTPUT}].data, 1)

	u.wg.Add(1)
	go e.renderLoop(inst, u.stopCh, &u.wg)

	return StatusOK
}

func (e *simEngine) stop(inst instanceRef) OSStatus {
	e.mu.Lock()

	u := e.unit(inst)
	if u == nil {
		e.mu.Unlock()

		return StatusParamError
	}

	status := StatusOK
	if u.failNextStop {
		u.failNextStop = false
		status = StatusCannotDoInCurrentContext
	}

	stopCh := u.stopCh
	u.stopCh = nil
	u.started = false
	binary.LittleEndian.PutUint32(u.props[simKey{AU_OUTPUT_PROP_IS_RUNNING, SCOPE_GLOBAL, ELEMENT_OUTPUT}].data, 0)
	e.mu.Unlock()

	// Wait for the clock goroutine so that no render invocation is in
	// flight once stop returns.
	if stopCh != nil {
		close(stopCh)
		u.wg.Wait()
	}

	return status
}

// renderLoop drives render invocations at the cadence implied by the
// negotiated sample rate and render quantum, standing in for the hardware
// clock of the native engine.
func (e *simEngine) renderLoop(inst instanceRef, stopCh chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(simRenderPeriod(simDefaultFrames, 44100))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			e.fireRender(inst, simDefaultFrames)
		}
	}
}

func (e *simEngine) propertyInfo(inst instanceRef, sel PropertySelector, scope Scope, elem Element) (uint32, bool, OSStatus) {
	e.mu.Lock()
	defer e.mu.Unlock()

	u := e.unit(inst)
	if u == nil {
		return 0, false, StatusParamError
	}

	switch sel {
	case AU_PROP_SET_RENDER_CALLBACK, AU_OUTPUT_PROP_SET_INPUT_CALLBACK:
		return uint32(unsafe.Sizeof(renderCallbackStruct{})), true, StatusOK
	}

	prop, status := u.lookup(sel, scope, elem)
	if status != StatusOK {
		return 0, false, status
	}

	return uint32(len(prop.data)), prop.writable, StatusOK
}

func (e *simEngine) getProperty(inst instanceRef, sel PropertySelector, scope Scope, elem Element, data unsafe.Pointer, ioSize *uint32) OSStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	u := e.unit(inst)
	if u == nil {
		return StatusParamError
	}

	prop, status := u.lookup(sel, scope, elem)
	if status != StatusOK {
		return status
	}

	n := *ioSize
	if n > uint32(len(prop.data)) {
		n = uint32(len(prop.data))
	}
	copy(unsafe.Slice((*byte)(data), n), prop.data[:n])
	*ioSize = n

	return StatusOK
}

func (e *simEngine) setProperty(inst instanceRef, sel PropertySelector, scope Scope, elem Element, data unsafe.Pointer, size uint32) OSStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	u := e.unit(inst)
	if u == nil {
		return StatusParamError
	}

	// Callback installation is a property write like any other, but the
	// value is the trampoline registration rather than stored bytes.
	switch sel {
	case AU_PROP_SET_RENDER_CALLBACK:
		if scope != SCOPE_INPUT || elem != ELEMENT_OUTPUT {
			return StatusInvalidScope
		}

		return u.setCallback(&u.renderRefCon, data, size)
	case AU_OUTPUT_PROP_SET_INPUT_CALLBACK:
		if scope != SCOPE_GLOBAL {
			return StatusInvalidScope
		}

		return u.setCallback(&u.inputRefCon, data, size)
	}

	prop, status := u.lookup(sel, scope, elem)
	if status != StatusOK {
		return status
	}

	if !prop.writable {
		return StatusPropertyNotWritable
	}

	// Format and rate are locked in by initialization, as on the native unit.
	if (sel == AU_PROP_STREAM_FORMAT || sel == AU_PROP_SAMPLE_RATE) && u.initialized {
		return StatusInitialized
	}

	if size != uint32(len(prop.data)) {
		return StatusInvalidPropertyValue
	}

	copy(prop.data, unsafe.Slice((*byte)(data), size))

	return StatusOK
}

func (u *simUnit) setCallback(refCon *uintptr, data unsafe.Pointer, size uint32) OSStatus {
	if size != uint32(unsafe.Sizeof(renderCallbackStruct{})) {
		return StatusInvalidPropertyValue
	}

	cbs := (*renderCallbackStruct)(data)
	*refCon = cbs.RefCon

	return StatusOK
}

// lookup resolves a property key, distinguishing an unknown selector from a
// known selector addressed through the wrong scope or element.
func (u *simUnit) lookup(sel PropertySelector, scope Scope, elem Element) (*simProperty, OSStatus) {
	if prop, ok := u.props[simKey{sel, scope, elem}]; ok {
		return prop, StatusOK
	}

	for key := range u.props {
		if key.sel == sel {
			return nil, StatusInvalidScope
		}
	}

	return nil, StatusInvalidProperty
}

func (e *simEngine) renderProc() uintptr {
	// The simulated engine dispatches in-process; the marker is only stored
	// so that an installed callback struct is visibly non-zero.
	return simRenderProcMarker
}

const simRenderProcMarker uintptr = 1

// fireRender performs one render invocation against the installed render
// callback, building a native-layout buffer list from the negotiated client
// stream format. It returns the status reported across the trampoline and
// the rendered bytes of each buffer.
func (e *simEngine) fireRender(inst instanceRef, frames uint32) (OSStatus, [][]byte) {
	e.mu.Lock()
	defer e.mu.Unlock()

	u := e.unit(inst)
	if u == nil {
		return StatusParamError, nil
	}

	format := u.clientFormat()

	bytesPerSample := format.BitsPerChannel / 8
	if bytesPerSample == 0 {
		bytesPerSample = 4
	}

	var numBuffers, channelsPerBuffer, byteSize uint32
	if format.FormatFlags.IsNonInterleaved() {
		numBuffers = format.ChannelsPerFrame
		channelsPerBuffer = 1
		byteSize = frames * bytesPerSample
	} else {
		numBuffers = 1
		channelsPerBuffer = format.ChannelsPerFrame
		byteSize = frames * format.ChannelsPerFrame * bytesPerSample
	}
	if numBuffers == 0 {
		numBuffers = 1
	}

	list, payloads := newSimBufferList(numBuffers, channelsPerBuffer, byteSize)

	if u.renderRefCon == 0 {
		// No callback installed: the engine renders silence.
		return StatusOK, payloads
	}

	var flags uint32
	ts := AudioTimeStamp{
		SampleTime: u.sampleTime,
		HostTime:   simHostTime(),
		Flags:      TIMESTAMP_SAMPLE_TIME_VALID | TIMESTAMP_HOST_TIME_VALID,
	}
	u.sampleTime += float64(frames)

	status := dispatchRender(u.renderRefCon, &flags, &ts, 0, frames, list)
	runtime.KeepAlive(payloads)

	return status, payloads
}

// fireInput performs one input-callback invocation carrying captured data.
func (e *simEngine) fireInput(inst instanceRef, frames uint32, captured [][]byte) OSStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	u := e.unit(inst)
	if u == nil {
		return StatusParamError
	}

	if u.inputRefCon == 0 {
		return StatusOK
	}

	numBuffers := uint32(len(captured))
	if numBuffers == 0 {
		return StatusOK
	}

	list, payloads := newSimBufferList(numBuffers, 1, uint32(len(captured[0])))
	for i, src := range captured {
		copy(payloads[i], src)
	}

	var flags uint32
	ts := AudioTimeStamp{
		SampleTime: u.sampleTime,
		HostTime:   simHostTime(),
		Flags:      TIMESTAMP_SAMPLE_TIME_VALID | TIMESTAMP_HOST_TIME_VALID,
	}
	u.sampleTime += float64(frames)

	status := dispatchRender(u.inputRefCon, &flags, &ts, 1, frames, list)
	runtime.KeepAlive(payloads)

	return status
}

// clientFormat returns the stream format of the render callback's side of
// the unit, falling back to the canonical format when unset.
func (u *simUnit) clientFormat() StreamDescription {
	var format StreamDescription

	prop, ok := u.props[simKey{AU_PROP_STREAM_FORMAT, SCOPE_INPUT, ELEMENT_OUTPUT}]
	if !ok || len(prop.data) != int(unsafe.Sizeof(format)) {
		return NewStreamDescription(44100, 2, SAMPLE_FORMAT_F32, true)
	}

	copy(unsafe.Slice((*byte)(unsafe.Pointer(&format)), len(prop.data)), prop.data)

	return format
}

// newSimBufferList lays out an AudioBufferList exactly as the native engine
// would: the count followed by a contiguous descriptor array, each entry
// pointing at its own payload.
func newSimBufferList(numBuffers, channels, byteSize uint32) (*rawAudioBufferList, [][]byte) {
	headerSize := unsafe.Sizeof(rawAudioBufferList{})
	entrySize := unsafe.Sizeof(rawAudioBuffer{})
	blob := make([]byte, int(headerSize)+int(numBuffers-1)*int(entrySize))

	list := (*rawAudioBufferList)(unsafe.Pointer(&blob[0]))
	list.NumberBuffers = numBuffers

	payloads := make([][]byte, numBuffers)
	buffers := unsafe.Slice(&list.Buffers[0], numBuffers)
	for i := range buffers {
		payloads[i] = make([]byte, byteSize)
		buffers[i] = rawAudioBuffer{
			NumberChannels: channels,
			DataByteSize:   byteSize,
			Data:           unsafe.Pointer(&payloads[i][0]),
		}
	}

	return list, payloads
}

// simRenderPeriod returns the wall-clock duration of one render quantum at
// the given sample rate.
func simRenderPeriod(frames uint32, rate float64) time.Duration {
	return time.Duration(float64(frames) / rate * float64(time.Second))
}

// simHostTime returns a monotonic host timestamp, standing in for the mach
// absolute time the native engine reports. ClockGettime confines the
// simulated engine to unix-like platforms; Windows is out of scope.
func simHostTime() uint64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}

	return uint64(ts.Nano())
}

const (
	simOutputDeviceID = 41
	simInputDeviceID  = 42
)

func (e *simEngine) devices() ([]DeviceInfo, error) {
	return []DeviceInfo{
		{ID: simOutputDeviceID, Name: "Simulated Output", SampleRate: 44100, OutputChannels: 2},
		{ID: simInputDeviceID, Name: "Simulated Input", SampleRate: 44100, InputChannels: 2},
	}, nil
}

func (e *simEngine) defaultDevice(input bool) (DeviceInfo, error) {
	devs, _ := e.devices()
	if input {
		return devs[1], nil
	}

	return devs[0], nil
}
