package coreaudio

import (
	"unsafe"
)

// rawAudioBuffer mirrors the native AudioBuffer struct: one contiguous region
// of sample data for one or more channels.
type rawAudioBuffer struct {
	NumberChannels uint32
	DataByteSize   uint32
	Data           unsafe.Pointer
}

// rawAudioBufferList mirrors the native AudioBufferList struct: a buffer
// count followed by a variable-length array of buffers. Only the first array
// entry is declared; the native side allocates the full length.
type rawAudioBufferList struct {
	NumberBuffers uint32
	Buffers       [1]rawAudioBuffer
}

// BufferList is a view over a native audio buffer list for one render call.
//
// The underlying memory is owned by the audio engine and is only valid for
// the duration of a single callback invocation. A BufferList must never be
// retained or accessed after the callback returns.
type BufferList struct {
	raw *rawAudioBufferList
}

// Len returns the number of buffers in the list.
func (l BufferList) Len() int {
	if l.raw == nil {
		return 0
	}

	return int(l.raw.NumberBuffers)
}

// Buffer returns a view over the i-th buffer in the list.
// It panics if i is out of range, like a slice index.
func (l BufferList) Buffer(i int) Buffer {
	if i < 0 || i >= l.Len() {
		panic("coreaudio: buffer index out of range")
	}

	// The buffers form a contiguous array starting at the first declared entry.
	buffers := unsafe.Slice(&l.raw.Buffers[0], l.raw.NumberBuffers)

	return Buffer{raw: &buffers[i]}
}

// Raw returns the underlying native buffer list pointer for callers that
// need to hand it back to the engine themselves.
func (l BufferList) Raw() unsafe.Pointer {
	return unsafe.Pointer(l.raw)
}

// Buffer is a view over one native audio buffer. Slices returned from it
// alias engine-owned memory: writes are visible to the engine immediately,
// and the views expire with the enclosing callback invocation.
type Buffer struct {
	raw *rawAudioBuffer
}

// Channels returns the number of interleaved channels in the buffer.
func (b Buffer) Channels() int {
	return int(b.raw.NumberChannels)
}

// ByteSize returns the declared length of the buffer's data in bytes.
func (b Buffer) ByteSize() int {
	return int(b.raw.DataByteSize)
}

// Bytes returns the buffer's data as a byte slice, bounded strictly by the
// declared byte size.
func (b Buffer) Bytes() []byte {
	if b.raw.Data == nil || b.raw.DataByteSize == 0 {
		return nil
	}

	return unsafe.Slice((*byte)(b.raw.Data), b.raw.DataByteSize)
}

// Float32 reinterprets the buffer's data as 32-bit float samples. The slice
// length is derived from the declared byte size, never from the requested
// frame count, so a short buffer yields a short slice.
func (b Buffer) Float32() []float32 {
	if b.raw.Data == nil || b.raw.DataByteSize < 4 {
		return nil
	}

	return unsafe.Slice((*float32)(b.raw.Data), b.raw.DataByteSize/4)
}

// Int32 reinterprets the buffer's data as 32-bit integer samples.
func (b Buffer) Int32() []int32 {
	if b.raw.Data == nil || b.raw.DataByteSize < 4 {
		return nil
	}

	return unsafe.Slice((*int32)(b.raw.Data), b.raw.DataByteSize/4)
}

// Int16 reinterprets the buffer's data as 16-bit integer samples.
func (b Buffer) Int16() []int16 {
	if b.raw.Data == nil || b.raw.DataByteSize < 2 {
		return nil
	}

	return unsafe.Slice((*int16)(b.raw.Data), b.raw.DataByteSize/2)
}

// Silence zeroes the buffer's data.
func (b Buffer) Silence() {
	data := b.Bytes()
	for i := range data {
		data[i] = 0
	}
}
