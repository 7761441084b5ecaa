// Package coreaudio provides a Go interface to the macOS AudioUnit host API,
// covering component lookup, typed property access, stream format negotiation
// and real-time render callbacks.
package coreaudio

// ComponentType identifies the broad category of an audio component.
// These values correspond to the kAudioUnitType_* constants.
type ComponentType uint32

const (
	AU_TYPE_OUTPUT           ComponentType = 0x61756F75 // 'auou'
	AU_TYPE_MUSIC_DEVICE     ComponentType = 0x61756D75 // 'aumu'
	AU_TYPE_MUSIC_EFFECT     ComponentType = 0x61756D66 // 'aumf'
	AU_TYPE_FORMAT_CONVERTER ComponentType = 0x61756663 // 'aufc'
	AU_TYPE_EFFECT           ComponentType = 0x61756678 // 'aufx'
	AU_TYPE_MIXER            ComponentType = 0x61756D78 // 'aumx'
	AU_TYPE_PANNER           ComponentType = 0x6175706E // 'aupn'
	AU_TYPE_GENERATOR        ComponentType = 0x6175676E // 'augn'
	AU_TYPE_OFFLINE_EFFECT   ComponentType = 0x61756F6C // 'auol'
)

// ComponentSubType selects a concrete component within a type.
// These values correspond to the kAudioUnitSubType_* constants.
type ComponentSubType uint32

const (
	AU_SUBTYPE_GENERIC_OUTPUT      ComponentSubType = 0x67656E72 // 'genr'
	AU_SUBTYPE_HAL_OUTPUT          ComponentSubType = 0x6168616C // 'ahal'
	AU_SUBTYPE_DEFAULT_OUTPUT      ComponentSubType = 0x64656620 // 'def '
	AU_SUBTYPE_SYSTEM_OUTPUT       ComponentSubType = 0x73797320 // 'sys '
	AU_SUBTYPE_VOICE_PROCESSING_IO ComponentSubType = 0x7670696F // 'vpio'
)

// AU_MANUFACTURER_APPLE is the manufacturer code of the built-in units.
const AU_MANUFACTURER_APPLE uint32 = 0x6170706C // 'appl'

// Scope is the addressing axis that qualifies a property or stream reference.
// These values correspond to the kAudioUnitScope_* constants.
type Scope uint32

const (
	SCOPE_GLOBAL     Scope = 0
	SCOPE_INPUT      Scope = 1
	SCOPE_OUTPUT     Scope = 2
	SCOPE_GROUP      Scope = 3
	SCOPE_PART       Scope = 4
	SCOPE_NOTE       Scope = 5
	SCOPE_LAYER      Scope = 6
	SCOPE_LAYER_ITEM Scope = 7
)

// Element is a bus index within a scope.
type Element uint32

const (
	// ELEMENT_OUTPUT is bus 0, the output element of an I/O unit.
	ELEMENT_OUTPUT Element = 0
	// ELEMENT_INPUT is bus 1, the input element of an I/O unit.
	ELEMENT_INPUT Element = 1
)

// PropertySelector identifies a property of an audio unit.
// These values correspond to the kAudioUnitProperty_* and
// kAudioOutputUnitProperty_* constants.
type PropertySelector uint32

const (
	AU_PROP_CLASS_INFO              PropertySelector = 0
	AU_PROP_MAKE_CONNECTION         PropertySelector = 1
	AU_PROP_SAMPLE_RATE             PropertySelector = 2
	AU_PROP_PARAMETER_LIST          PropertySelector = 3
	AU_PROP_PARAMETER_INFO          PropertySelector = 4
	AU_PROP_CPU_LOAD                PropertySelector = 6
	AU_PROP_STREAM_FORMAT           PropertySelector = 8
	AU_PROP_ELEMENT_COUNT           PropertySelector = 11
	AU_PROP_LATENCY                 PropertySelector = 12
	AU_PROP_SUPPORTED_NUM_CHANNELS  PropertySelector = 13
	AU_PROP_MAX_FRAMES_PER_SLICE    PropertySelector = 14
	AU_PROP_AUDIO_CHANNEL_LAYOUT    PropertySelector = 19
	AU_PROP_TAIL_TIME               PropertySelector = 20
	AU_PROP_BYPASS_EFFECT           PropertySelector = 21
	AU_PROP_LAST_RENDER_ERROR       PropertySelector = 22
	AU_PROP_SET_RENDER_CALLBACK     PropertySelector = 23
	AU_PROP_FACTORY_PRESETS         PropertySelector = 24
	AU_PROP_RENDER_QUALITY          PropertySelector = 26
	AU_PROP_IN_PLACE_PROCESSING     PropertySelector = 29
	AU_PROP_ELEMENT_NAME            PropertySelector = 30
	AU_PROP_PRESENT_PRESET          PropertySelector = 36
	AU_PROP_SHOULD_ALLOCATE_BUFFER  PropertySelector = 51

	AU_OUTPUT_PROP_CURRENT_DEVICE     PropertySelector = 2000
	AU_OUTPUT_PROP_IS_RUNNING         PropertySelector = 2001
	AU_OUTPUT_PROP_CHANNEL_MAP        PropertySelector = 2002
	AU_OUTPUT_PROP_ENABLE_IO          PropertySelector = 2003
	AU_OUTPUT_PROP_START_TIME         PropertySelector = 2004
	AU_OUTPUT_PROP_SET_INPUT_CALLBACK PropertySelector = 2005
	AU_OUTPUT_PROP_HAS_IO             PropertySelector = 2006
)

// FORMAT_LINEAR_PCM identifies uncompressed linear PCM audio data.
const FORMAT_LINEAR_PCM uint32 = 0x6C70636D // 'lpcm'

// FormatFlags qualify a linear PCM stream description.
// These values correspond to the kAudioFormatFlag* constants.
type FormatFlags uint32

const (
	FORMAT_FLAG_IS_FLOAT           FormatFlags = 1 << 0
	FORMAT_FLAG_IS_BIG_ENDIAN      FormatFlags = 1 << 1
	FORMAT_FLAG_IS_SIGNED_INTEGER  FormatFlags = 1 << 2
	FORMAT_FLAG_IS_PACKED          FormatFlags = 1 << 3
	FORMAT_FLAG_IS_ALIGNED_HIGH    FormatFlags = 1 << 4
	FORMAT_FLAG_IS_NON_INTERLEAVED FormatFlags = 1 << 5
	FORMAT_FLAG_IS_NON_MIXABLE     FormatFlags = 1 << 6
	FORMAT_FLAGS_ALL_CLEAR         FormatFlags = 1 << 31
)

// IsNonInterleaved reports whether the flags describe a stream carrying one
// buffer per channel instead of a single interleaved buffer.
func (f FormatFlags) IsNonInterleaved() bool {
	return f&FORMAT_FLAG_IS_NON_INTERLEAVED != 0
}

// ActionFlags configure a single render operation.
// These values correspond to the kAudioUnitRenderAction_* constants.
type ActionFlags uint32

const (
	ACTION_PRE_RENDER               ActionFlags = 1 << 2
	ACTION_POST_RENDER              ActionFlags = 1 << 3
	ACTION_OUTPUT_IS_SILENCE        ActionFlags = 1 << 4
	ACTION_OFFLINE_PREFLIGHT        ActionFlags = 1 << 5
	ACTION_OFFLINE_RENDER           ActionFlags = 1 << 6
	ACTION_OFFLINE_COMPLETE         ActionFlags = 1 << 7
	ACTION_POST_RENDER_ERROR        ActionFlags = 1 << 8
	ACTION_DO_NOT_CHECK_RENDER_ARGS ActionFlags = 1 << 9
)

// actionFlagNames provides human-readable names for the render action flags.
var actionFlagNames = map[ActionFlags]string{
	ACTION_PRE_RENDER:               "PRE_RENDER",
	ACTION_POST_RENDER:              "POST_RENDER",
	ACTION_OUTPUT_IS_SILENCE:        "OUTPUT_IS_SILENCE",
	ACTION_OFFLINE_PREFLIGHT:        "OFFLINE_PREFLIGHT",
	ACTION_OFFLINE_RENDER:           "OFFLINE_RENDER",
	ACTION_OFFLINE_COMPLETE:         "OFFLINE_COMPLETE",
	ACTION_POST_RENDER_ERROR:        "POST_RENDER_ERROR",
	ACTION_DO_NOT_CHECK_RENDER_ARGS: "DO_NOT_CHECK_RENDER_ARGS",
}

// String returns the names of all set flags joined by "|", or "NONE".
func (f ActionFlags) String() string {
	if f == 0 {
		return "NONE"
	}

	var s string
	for bit := ActionFlags(1); bit != 0; bit <<= 1 {
		if f&bit == 0 {
			continue
		}

		name, ok := actionFlagNames[bit]
		if !ok {
			name = "UNKNOWN"
		}

		if s != "" {
			s += "|"
		}
		s += name
	}

	return s
}

// Set turns the given flags on.
func (f *ActionFlags) Set(flags ActionFlags) {
	*f |= flags
}

// Clear turns the given flags off.
func (f *ActionFlags) Clear(flags ActionFlags) {
	*f &^= flags
}

// Contains reports whether all of the given flags are set.
func (f ActionFlags) Contains(flags ActionFlags) bool {
	return f&flags == flags
}
