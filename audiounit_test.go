package coreaudio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUnitNotFound(t *testing.T) {
	eng := newSimEngine()

	_, err := newUnit(eng, ComponentDescription{
		Type:    ComponentType(0x61756678), // 'aufx'
		SubType: AU_SUBTYPE_DEFAULT_OUTPUT,
	})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = newUnit(eng, ComponentDescription{
		Type:         AU_TYPE_OUTPUT,
		SubType:      AU_SUBTYPE_DEFAULT_OUTPUT,
		Manufacturer: 0x46414B45, // 'FAKE'
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStartRequiresInitialize(t *testing.T) {
	unit, _ := newTestUnit(t)

	err := unit.Start()
	require.Error(t, err)

	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StatusUninitialized, serr.Code)
}

func TestLifecycleRoundTrip(t *testing.T) {
	unit, _ := newTestUnit(t)

	require.NoError(t, unit.Initialize())
	require.NoError(t, unit.Start())
	require.NoError(t, unit.Stop())
	require.NoError(t, unit.Uninitialize())

	// A fresh format can be configured and the unit brought back up.
	format := NewStreamDescription(48000, 2, SAMPLE_FORMAT_F32, true)
	require.NoError(t, unit.SetStreamFormat(SCOPE_INPUT, ELEMENT_OUTPUT, format))
	require.NoError(t, unit.Initialize())
	require.NoError(t, unit.Start())
	require.NoError(t, unit.Stop())
}

func TestStopWhenStoppedIsNoOp(t *testing.T) {
	unit, _ := newTestUnit(t)

	assert.NoError(t, unit.Stop())

	require.NoError(t, unit.Initialize())
	require.NoError(t, unit.Start())
	require.NoError(t, unit.Stop())
	assert.NoError(t, unit.Stop())
}

func TestUninitializeWhileRunning(t *testing.T) {
	unit, _ := newTestUnit(t)

	require.NoError(t, unit.Initialize())
	require.NoError(t, unit.Start())

	err := unit.Uninitialize()
	require.Error(t, err)

	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StatusCannotDoInCurrentContext, serr.Code)

	require.NoError(t, unit.Stop())
	require.NoError(t, unit.Uninitialize())
}

func TestCloseIdempotent(t *testing.T) {
	unit, _ := newTestUnit(t)

	require.NoError(t, unit.Initialize())
	require.NoError(t, unit.Close())
	assert.NoError(t, unit.Close())
}

func TestCloseReleasesAfterStopFailure(t *testing.T) {
	unit, eng := newTestUnit(t)

	require.NoError(t, unit.SetRenderCallback(func(args RenderArgs) error { return nil }))
	require.NoError(t, unit.Initialize())
	require.NoError(t, unit.Start())

	eng.mu.Lock()
	eng.unit(unit.inst).failNextStop = true
	eng.mu.Unlock()

	// The stop failure is reported, but teardown runs to completion and the
	// native instance is released.
	err := unit.Close()
	require.Error(t, err)

	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StatusCannotDoInCurrentContext, serr.Code)

	eng.mu.Lock()
	remaining := len(eng.units)
	eng.mu.Unlock()
	assert.Zero(t, remaining, "the instance must be disposed despite the stop failure")

	assert.ErrorIs(t, unit.Start(), ErrDisposed)
}

func TestOperationsAfterClose(t *testing.T) {
	unit, _ := newTestUnit(t)
	require.NoError(t, unit.Close())

	assert.ErrorIs(t, unit.Initialize(), ErrDisposed)
	assert.ErrorIs(t, unit.Uninitialize(), ErrDisposed)
	assert.ErrorIs(t, unit.Start(), ErrDisposed)
	assert.ErrorIs(t, unit.Stop(), ErrDisposed)
	assert.ErrorIs(t, unit.SetRenderCallback(func(args RenderArgs) error { return nil }), ErrDisposed)
	assert.ErrorIs(t, unit.RemoveRenderCallback(), ErrDisposed)
	assert.ErrorIs(t, unit.SetInputCallback(func(args RenderArgs) error { return nil }), ErrDisposed)
}

func TestCloseDetachesCallbacks(t *testing.T) {
	unit, _ := newTestUnit(t)

	require.NoError(t, unit.SetRenderCallback(func(args RenderArgs) error { return nil }))
	require.NoError(t, unit.SetInputCallback(func(args RenderArgs) error { return nil }))

	renderToken := unit.renderToken
	inputToken := unit.inputToken

	require.NoError(t, unit.Close())

	_, ok := callbackRegistry.Load(renderToken)
	assert.False(t, ok, "the render callback must be unregistered on close")
	_, ok = callbackRegistry.Load(inputToken)
	assert.False(t, ok, "the input callback must be unregistered on close")
}

func TestSampleRateConvenience(t *testing.T) {
	unit, _ := newTestUnit(t)

	rate, err := unit.SampleRate()
	require.NoError(t, err)
	assert.Equal(t, 44100.0, rate)

	require.NoError(t, unit.SetSampleRate(96000))
	rate, err = unit.SampleRate()
	require.NoError(t, err)
	assert.Equal(t, 96000.0, rate)
}

func TestHALUnit(t *testing.T) {
	eng := newSimEngine()
	unit, err := newUnit(eng, ComponentDescription{
		Type:         AU_TYPE_OUTPUT,
		SubType:      AU_SUBTYPE_HAL_OUTPUT,
		Manufacturer: AU_MANUFACTURER_APPLE,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = unit.Close() })

	// A HAL unit exposes the capture-side format on the output scope of the
	// input element.
	format, err := unit.StreamFormat(SCOPE_OUTPUT, ELEMENT_INPUT)
	require.NoError(t, err)
	assert.Equal(t, FORMAT_LINEAR_PCM, format.FormatID)
}
