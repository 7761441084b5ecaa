package coreaudio

// ComponentDescription identifies an audio component to instantiate.
// The field layout matches the native AudioComponentDescription struct.
type ComponentDescription struct {
	Type         ComponentType
	SubType      ComponentSubType
	Manufacturer uint32
	Flags        uint32
	FlagsMask    uint32
}

// StreamDescription describes the format of a linear audio stream.
// The field layout matches the native AudioStreamBasicDescription struct
// (40 bytes), so values can be passed through the property interface as-is.
type StreamDescription struct {
	SampleRate       float64
	FormatID         uint32
	FormatFlags      FormatFlags
	BytesPerPacket   uint32
	FramesPerPacket  uint32
	BytesPerFrame    uint32
	ChannelsPerFrame uint32
	BitsPerChannel   uint32
	Reserved         uint32
}

// SMPTETime carries SMPTE timecode information inside an AudioTimeStamp.
// The field layout matches the native SMPTETime struct.
type SMPTETime struct {
	Subframes       int16
	SubframeDivisor int16
	Counter         uint32
	Type            uint32
	Flags           uint32
	Hours           int16
	Minutes         int16
	Seconds         int16
	Frames          int16
}

// AudioTimeStamp flags indicating which fields are valid.
const (
	TIMESTAMP_SAMPLE_TIME_VALID uint32 = 1 << 0
	TIMESTAMP_HOST_TIME_VALID   uint32 = 1 << 1
	TIMESTAMP_RATE_SCALAR_VALID uint32 = 1 << 2
)

// AudioTimeStamp describes the timing of a render operation.
// The field layout matches the native AudioTimeStamp struct.
type AudioTimeStamp struct {
	SampleTime    float64
	HostTime      uint64
	RateScalar    float64
	WordClockTime uint64
	SMPTETime     SMPTETime
	Flags         uint32
	Reserved      uint32
}

// SampleFormat identifies the in-memory representation of a single sample.
type SampleFormat int32

const (
	SAMPLE_FORMAT_F32 SampleFormat = iota
	SAMPLE_FORMAT_I32
	SAMPLE_FORMAT_I16
	SAMPLE_FORMAT_I8
)

// sampleFormatNames provides human-readable names for sample formats.
var sampleFormatNames = map[SampleFormat]string{
	SAMPLE_FORMAT_F32: "F32",
	SAMPLE_FORMAT_I32: "I32",
	SAMPLE_FORMAT_I16: "I16",
	SAMPLE_FORMAT_I8:  "I8",
}

// String returns the name of the sample format.
func (f SampleFormat) String() string {
	if name, ok := sampleFormatNames[f]; ok {
		return name
	}

	return "UNKNOWN"
}

// BytesPerSample returns the size of one sample in bytes.
func (f SampleFormat) BytesPerSample() uint32 {
	switch f {
	case SAMPLE_FORMAT_F32, SAMPLE_FORMAT_I32:
		return 4
	case SAMPLE_FORMAT_I16:
		return 2
	case SAMPLE_FORMAT_I8:
		return 1
	default:
		return 0
	}
}

// flags returns the linear PCM format flags describing this sample format.
func (f SampleFormat) flags() FormatFlags {
	switch f {
	case SAMPLE_FORMAT_F32:
		return FORMAT_FLAG_IS_FLOAT | FORMAT_FLAG_IS_PACKED
	default:
		return FORMAT_FLAG_IS_SIGNED_INTEGER | FORMAT_FLAG_IS_PACKED
	}
}

// MatchesFlags reports whether this sample format is compatible with the
// given linear PCM format flags.
func (f SampleFormat) MatchesFlags(flags FormatFlags) bool {
	if f == SAMPLE_FORMAT_F32 {
		return flags&FORMAT_FLAG_IS_FLOAT != 0
	}

	return flags&FORMAT_FLAG_IS_FLOAT == 0 && flags&FORMAT_FLAG_IS_SIGNED_INTEGER != 0
}

// NewStreamDescription builds a canonical linear PCM stream description for
// the given rate, channel count and sample format.
func NewStreamDescription(sampleRate float64, channels uint32, format SampleFormat, interleaved bool) StreamDescription {
	bytesPerSample := format.BytesPerSample()

	desc := StreamDescription{
		SampleRate:       sampleRate,
		FormatID:         FORMAT_LINEAR_PCM,
		FormatFlags:      format.flags(),
		FramesPerPacket:  1,
		ChannelsPerFrame: channels,
		BitsPerChannel:   bytesPerSample * 8,
	}

	if interleaved {
		desc.BytesPerFrame = bytesPerSample * channels
	} else {
		// Non-interleaved streams carry one single-channel buffer per channel.
		desc.FormatFlags |= FORMAT_FLAG_IS_NON_INTERLEAVED
		desc.BytesPerFrame = bytesPerSample
	}
	desc.BytesPerPacket = desc.BytesPerFrame * desc.FramesPerPacket

	return desc
}
