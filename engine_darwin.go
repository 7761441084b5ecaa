//go:build darwin

package coreaudio

import (
	"unsafe"

	"github.com/ebitengine/purego"
)

// mustDlopen loads a system framework. The frameworks bound here ship with
// every macOS installation, so a failure is unrecoverable misconfiguration.
func mustDlopen(path string) uintptr {
	handle, err := purego.Dlopen(path, purego.RTLD_LAZY|purego.RTLD_GLOBAL)
	if err != nil {
		panic("coreaudio: " + err.Error())
	}

	return handle
}

func mustDlsym(handle uintptr, name string) uintptr {
	addr, err := purego.Dlsym(handle, name)
	if err != nil {
		panic("coreaudio: " + err.Error())
	}

	return addr
}

// The native frameworks are bound dynamically, no cgo involved.
var (
	audioToolbox   = mustDlopen("/System/Library/Frameworks/AudioToolbox.framework/AudioToolbox")
	coreAudioFW    = mustDlopen("/System/Library/Frameworks/CoreAudio.framework/CoreAudio")
	coreFoundation = mustDlopen("/System/Library/Frameworks/CoreFoundation.framework/CoreFoundation")

	atAudioComponentFindNext        = mustDlsym(audioToolbox, "AudioComponentFindNext")
	atAudioComponentInstanceNew     = mustDlsym(audioToolbox, "AudioComponentInstanceNew")
	atAudioComponentInstanceDispose = mustDlsym(audioToolbox, "AudioComponentInstanceDispose")
	atAudioUnitInitialize           = mustDlsym(audioToolbox, "AudioUnitInitialize")
	atAudioUnitUninitialize         = mustDlsym(audioToolbox, "AudioUnitUninitialize")
	atAudioUnitGetPropertyInfo      = mustDlsym(audioToolbox, "AudioUnitGetPropertyInfo")
	atAudioUnitGetProperty          = mustDlsym(audioToolbox, "AudioUnitGetProperty")
	atAudioUnitSetProperty          = mustDlsym(audioToolbox, "AudioUnitSetProperty")
	atAudioOutputUnitStart          = mustDlsym(audioToolbox, "AudioOutputUnitStart")
	atAudioOutputUnitStop           = mustDlsym(audioToolbox, "AudioOutputUnitStop")

	caAudioObjectGetPropertyDataSize = mustDlsym(coreAudioFW, "AudioObjectGetPropertyDataSize")
	caAudioObjectGetPropertyData     = mustDlsym(coreAudioFW, "AudioObjectGetPropertyData")

	cfStringGetCString = mustDlsym(coreFoundation, "CFStringGetCString")
	cfRelease          = mustDlsym(coreFoundation, "CFRelease")
)

// darwinRenderProc is the fixed C-ABI trampoline registered with the engine.
// It is created once; every installed callback shares it and is recovered
// through the refCon token.
var darwinRenderProc = purego.NewCallback(func(refCon uintptr, ioActionFlags *uint32, inTimeStamp *AudioTimeStamp,
	inBusNumber uint32, inNumberFrames uint32, ioData *rawAudioBufferList) OSStatus {

	return dispatchRender(refCon, ioActionFlags, inTimeStamp, inBusNumber, inNumberFrames, ioData)
})

// darwinEngine binds the AudioToolbox and CoreAudio host APIs.
type darwinEngine struct{}

var sharedDarwinEngine darwinEngine

func defaultEngine() audioEngine {
	return &sharedDarwinEngine
}

func (darwinEngine) findInstance(desc ComponentDescription) (instanceRef, OSStatus) {
	comp, _, _ := purego.SyscallN(atAudioComponentFindNext, 0, uintptr(unsafe.Pointer(&desc)))
	if comp == 0 {
		return 0, StatusOK
	}

	var inst instanceRef
	status, _, _ := purego.SyscallN(atAudioComponentInstanceNew, comp, uintptr(unsafe.Pointer(&inst)))

	return inst, OSStatus(status)
}

func (darwinEngine) initialize(inst instanceRef) OSStatus {
	status, _, _ := purego.SyscallN(atAudioUnitInitialize, uintptr(inst))

	return OSStatus(status)
}

func (darwinEngine) uninitialize(inst instanceRef) OSStatus {
	status, _, _ := purego.SyscallN(atAudioUnitUninitialize, uintptr(inst))

	return OSStatus(status)
}

func (darwinEngine) dispose(inst instanceRef) OSStatus {
	status, _, _ := purego.SyscallN(atAudioComponentInstanceDispose, uintptr(inst))

	return OSStatus(status)
}

func (darwinEngine) start(inst instanceRef) OSStatus {
	status, _, _ := purego.SyscallN(atAudioOutputUnitStart, uintptr(inst))

	return OSStatus(status)
}

func (darwinEngine) stop(inst instanceRef) OSStatus {
	status, _, _ := purego.SyscallN(atAudioOutputUnitStop, uintptr(inst))

	return OSStatus(status)
}

func (darwinEngine) propertyInfo(inst instanceRef, sel PropertySelector, scope Scope, elem Element) (uint32, bool, OSStatus) {
	var size uint32
	var writable uint8

	status, _, _ := purego.SyscallN(atAudioUnitGetPropertyInfo, uintptr(inst),
		uintptr(sel), uintptr(scope), uintptr(elem),
		uintptr(unsafe.Pointer(&size)), uintptr(unsafe.Pointer(&writable)))

	return size, writable != 0, OSStatus(status)
}

func (darwinEngine) getProperty(inst instanceRef, sel PropertySelector, scope Scope, elem Element, data unsafe.Pointer, ioSize *uint32) OSStatus {
	status, _, _ := purego.SyscallN(atAudioUnitGetProperty, uintptr(inst),
		uintptr(sel), uintptr(scope), uintptr(elem),
		uintptr(data), uintptr(unsafe.Pointer(ioSize)))

	return OSStatus(status)
}

func (darwinEngine) setProperty(inst instanceRef, sel PropertySelector, scope Scope, elem Element, data unsafe.Pointer, size uint32) OSStatus {
	status, _, _ := purego.SyscallN(atAudioUnitSetProperty, uintptr(inst),
		uintptr(sel), uintptr(scope), uintptr(elem),
		uintptr(data), uintptr(size))

	return OSStatus(status)
}

func (darwinEngine) renderProc() uintptr {
	return darwinRenderProc
}

// AudioObject selectors used for hardware enumeration. These values
// correspond to the kAudioHardwareProperty* and kAudioDeviceProperty*
// constants.
const (
	hwObjectSystem uint32 = 1

	hwPropDevices             uint32 = 0x64657623 // 'dev#'
	hwPropDefaultInputDevice  uint32 = 0x64496E20 // 'dIn '
	hwPropDefaultOutputDevice uint32 = 0x644F7574 // 'dOut'

	devPropName              uint32 = 0x6C6E616D // 'lnam'
	devPropNominalSampleRate uint32 = 0x6E737274 // 'nsrt'
	devPropStreamConfig      uint32 = 0x736C6179 // 'slay'

	objScopeGlobal uint32 = 0x676C6F62 // 'glob'
	objScopeInput  uint32 = 0x696E7074 // 'inpt'
	objScopeOutput uint32 = 0x6F757470 // 'outp'

	objElementMain uint32 = 0

	cfStringEncodingUTF8 uint32 = 0x08000100
)

// propertyAddress mirrors the native AudioObjectPropertyAddress struct.
type propertyAddress struct {
	Selector uint32
	Scope    uint32
	Element  uint32
}

func audioObjectPropertySize(object uint32, addr *propertyAddress) (uint32, OSStatus) {
	var size uint32
	status, _, _ := purego.SyscallN(caAudioObjectGetPropertyDataSize, uintptr(object),
		uintptr(unsafe.Pointer(addr)), 0, 0, uintptr(unsafe.Pointer(&size)))

	return size, OSStatus(status)
}

func audioObjectProperty(object uint32, addr *propertyAddress, data unsafe.Pointer, ioSize *uint32) OSStatus {
	status, _, _ := purego.SyscallN(caAudioObjectGetPropertyData, uintptr(object),
		uintptr(unsafe.Pointer(addr)), 0, 0, uintptr(unsafe.Pointer(ioSize)), uintptr(data))

	return OSStatus(status)
}

func (e darwinEngine) devices() ([]DeviceInfo, error) {
	addr := propertyAddress{Selector: hwPropDevices, Scope: objScopeGlobal, Element: objElementMain}

	size, status := audioObjectPropertySize(hwObjectSystem, &addr)
	if status != StatusOK {
		return nil, statusErr(status)
	}

	count := size / 4
	if count == 0 {
		return nil, nil
	}

	ids := make([]uint32, count)
	if status := audioObjectProperty(hwObjectSystem, &addr, unsafe.Pointer(&ids[0]), &size); status != StatusOK {
		return nil, statusErr(status)
	}

	devs := make([]DeviceInfo, 0, count)
	for _, id := range ids[:size/4] {
		devs = append(devs, e.deviceInfo(id))
	}

	return devs, nil
}

func (e darwinEngine) defaultDevice(input bool) (DeviceInfo, error) {
	sel := hwPropDefaultOutputDevice
	if input {
		sel = hwPropDefaultInputDevice
	}
	addr := propertyAddress{Selector: sel, Scope: objScopeGlobal, Element: objElementMain}

	var id uint32
	size := uint32(4)
	if status := audioObjectProperty(hwObjectSystem, &addr, unsafe.Pointer(&id), &size); status != StatusOK {
		return DeviceInfo{}, statusErr(status)
	}

	return e.deviceInfo(id), nil
}

func (e darwinEngine) deviceInfo(id uint32) DeviceInfo {
	dev := DeviceInfo{ID: id}

	addr := propertyAddress{Selector: devPropName, Scope: objScopeGlobal, Element: objElementMain}
	var cfName uintptr
	size := uint32(unsafe.Sizeof(cfName))
	if status := audioObjectProperty(id, &addr, unsafe.Pointer(&cfName), &size); status == StatusOK && cfName != 0 {
		dev.Name = goStringFromCFString(cfName)
		purego.SyscallN(cfRelease, cfName)
	}

	addr.Selector = devPropNominalSampleRate
	size = 8
	audioObjectProperty(id, &addr, unsafe.Pointer(&dev.SampleRate), &size)

	dev.InputChannels = deviceChannels(id, objScopeInput)
	dev.OutputChannels = deviceChannels(id, objScopeOutput)

	return dev
}

// deviceChannels sums the channel counts across a device's stream
// configuration buffers for the given scope.
func deviceChannels(id uint32, scope uint32) uint32 {
	addr := propertyAddress{Selector: devPropStreamConfig, Scope: scope, Element: objElementMain}

	size, status := audioObjectPropertySize(id, &addr)
	if status != StatusOK || size == 0 {
		return 0
	}

	blob := make([]byte, size)
	if status := audioObjectProperty(id, &addr, unsafe.Pointer(&blob[0]), &size); status != StatusOK {
		return 0
	}

	list := BufferList{raw: (*rawAudioBufferList)(unsafe.Pointer(&blob[0]))}
	var channels uint32
	for i := 0; i < list.Len(); i++ {
		channels += uint32(list.Buffer(i).Channels())
	}

	return channels
}

func goStringFromCFString(cf uintptr) string {
	buf := make([]byte, 256)
	ok, _, _ := purego.SyscallN(cfStringGetCString, cf,
		uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)), uintptr(cfStringEncodingUTF8))
	if ok == 0 {
		return ""
	}

	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}

	return string(buf)
}
