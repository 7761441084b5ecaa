package coreaudio

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderScenarioStereoFloat(t *testing.T) {
	unit, eng := newTestUnit(t)

	// 2-channel 44.1kHz 32-bit float, interleaved.
	format := NewStreamDescription(44100, 2, SAMPLE_FORMAT_F32, true)
	require.NoError(t, unit.SetStreamFormat(SCOPE_INPUT, ELEMENT_OUTPUT, format))

	type seen struct {
		buffers  int
		channels int
		byteSize int
		frames   int
		bus      uint32
	}
	var got atomic.Pointer[seen]

	require.NoError(t, unit.SetRenderCallback(func(args RenderArgs) error {
		s := seen{
			buffers:  args.Data.Len(),
			frames:   args.NumFrames,
			bus:      args.Bus,
			channels: args.Data.Buffer(0).Channels(),
			byteSize: args.Data.Buffer(0).ByteSize(),
		}
		got.Store(&s)

		args.Data.Buffer(0).Silence()
		args.Flags.Set(ACTION_OUTPUT_IS_SILENCE)

		return nil
	}))

	require.NoError(t, unit.Initialize())
	require.NoError(t, unit.Start())

	status, payloads := eng.fireRender(unit.inst, 512)
	assert.Equal(t, StatusOK, status)

	s := got.Load()
	require.NotNil(t, s, "the callback must have been invoked")
	assert.Equal(t, 1, s.buffers, "an interleaved stereo stream uses a single buffer")
	assert.Equal(t, 2, s.channels)
	assert.Equal(t, 512*2*4, s.byteSize, "512 frames x 2 channels x 4 bytes")
	assert.Equal(t, 512, s.frames)
	assert.Equal(t, uint32(0), s.bus)

	require.Len(t, payloads, 1)
	for _, b := range payloads[0] {
		require.Zero(t, b, "the callback filled the buffer with silence")
	}

	require.NoError(t, unit.Stop())
}

func TestRenderNonInterleavedBuffers(t *testing.T) {
	unit, eng := newTestUnit(t)

	format := NewStreamDescription(48000, 2, SAMPLE_FORMAT_F32, false)
	require.NoError(t, unit.SetStreamFormat(SCOPE_INPUT, ELEMENT_OUTPUT, format))

	var buffers, channels atomic.Int32
	require.NoError(t, unit.SetRenderCallback(func(args RenderArgs) error {
		buffers.Store(int32(args.Data.Len()))
		channels.Store(int32(args.Data.Buffer(0).Channels()))

		return nil
	}))

	status, payloads := eng.fireRender(unit.inst, 256)
	assert.Equal(t, StatusOK, status)
	assert.Equal(t, int32(2), buffers.Load(), "one buffer per channel")
	assert.Equal(t, int32(1), channels.Load())
	require.Len(t, payloads, 2)
	assert.Len(t, payloads[0], 256*4)
}

func TestRenderCallbackErrorStatus(t *testing.T) {
	unit, eng := newTestUnit(t)

	require.NoError(t, unit.SetRenderCallback(func(args RenderArgs) error {
		return statusErr(StatusTooManyFramesToProcess)
	}))

	status, _ := eng.fireRender(unit.inst, 512)
	assert.Equal(t, StatusTooManyFramesToProcess, status,
		"a StatusError from the callback must propagate its exact code")
}

func TestRenderCallbackGenericError(t *testing.T) {
	unit, eng := newTestUnit(t)

	require.NoError(t, unit.SetRenderCallback(func(args RenderArgs) error {
		return errors.New("ran out of samples")
	}))

	status, _ := eng.fireRender(unit.inst, 512)
	assert.Equal(t, StatusUnimplemented, status)
}

func TestRenderCallbackPanicContained(t *testing.T) {
	unit, eng := newTestUnit(t)

	require.NoError(t, unit.SetRenderCallback(func(args RenderArgs) error {
		panic("boom")
	}))

	var status OSStatus
	assert.NotPanics(t, func() {
		status, _ = eng.fireRender(unit.inst, 512)
	}, "a panic must never unwind across the trampoline boundary")
	assert.NotEqual(t, StatusOK, status)
}

func TestRenderWithoutCallbackIsSilence(t *testing.T) {
	unit, eng := newTestUnit(t)

	status, payloads := eng.fireRender(unit.inst, 128)
	assert.Equal(t, StatusOK, status)
	require.NotEmpty(t, payloads)
	for _, b := range payloads[0] {
		require.Zero(t, b)
	}
}

func TestSetRenderCallbackReplacesAtomically(t *testing.T) {
	unit, eng := newTestUnit(t)

	var first, second atomic.Int32

	require.NoError(t, unit.SetRenderCallback(func(args RenderArgs) error {
		first.Add(1)

		return nil
	}))

	status, _ := eng.fireRender(unit.inst, 64)
	require.Equal(t, StatusOK, status)
	assert.Equal(t, int32(1), first.Load())

	require.NoError(t, unit.SetRenderCallback(func(args RenderArgs) error {
		second.Add(1)

		return nil
	}))

	status, _ = eng.fireRender(unit.inst, 64)
	require.Equal(t, StatusOK, status)
	assert.Equal(t, int32(1), first.Load(), "the replaced callback must not run again")
	assert.Equal(t, int32(1), second.Load(), "the replacement must be active")
}

func TestInstallRenderCallbackStrict(t *testing.T) {
	unit, _ := newTestUnit(t)

	require.NoError(t, unit.InstallRenderCallback(func(args RenderArgs) error { return nil }))

	err := unit.InstallRenderCallback(func(args RenderArgs) error { return nil })
	assert.ErrorIs(t, err, ErrCallbackAlreadyInstalled)
}

func TestRemoveRenderCallback(t *testing.T) {
	unit, eng := newTestUnit(t)

	var calls atomic.Int32
	require.NoError(t, unit.SetRenderCallback(func(args RenderArgs) error {
		calls.Add(1)

		return nil
	}))

	require.NoError(t, unit.RemoveRenderCallback())

	// Once removed, the engine renders silence and the callback stays cold.
	status, _ := eng.fireRender(unit.inst, 64)
	assert.Equal(t, StatusOK, status)
	assert.Zero(t, calls.Load())

	assert.ErrorIs(t, unit.RemoveRenderCallback(), ErrCallbackNotInstalled)
}

func TestInputCallback(t *testing.T) {
	unit, eng := newTestUnit(t)

	var frames atomic.Int32
	var firstByte atomic.Uint32
	require.NoError(t, unit.SetInputCallback(func(args RenderArgs) error {
		frames.Store(int32(args.NumFrames))
		firstByte.Store(uint32(args.Data.Buffer(0).Bytes()[0]))

		return nil
	}))

	captured := [][]byte{{7, 8, 9, 10}}
	status := eng.fireInput(unit.inst, 1, captured)
	assert.Equal(t, StatusOK, status)
	assert.Equal(t, int32(1), frames.Load())
	assert.Equal(t, uint32(7), firstByte.Load(), "captured bytes must reach the callback")

	require.NoError(t, unit.RemoveInputCallback())
	assert.ErrorIs(t, unit.RemoveInputCallback(), ErrCallbackNotInstalled)
}

func TestDispatchUnknownRefCon(t *testing.T) {
	raw, _ := newSimBufferList(1, 2, 64)

	var flags uint32
	status := dispatchRender(0xDEAD, &flags, &AudioTimeStamp{}, 0, 4, raw)
	assert.Equal(t, StatusInvalidParameter, status)
}
