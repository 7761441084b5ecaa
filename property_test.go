package coreaudio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestUnit creates a default output unit backed by a fresh simulated
// engine.
func newTestUnit(t *testing.T) (*AudioUnit, *simEngine) {
	t.Helper()

	eng := newSimEngine()
	unit, err := newUnit(eng, ComponentDescription{
		Type:         AU_TYPE_OUTPUT,
		SubType:      AU_SUBTYPE_DEFAULT_OUTPUT,
		Manufacturer: AU_MANUFACTURER_APPLE,
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = unit.Close() })

	return unit, eng
}

func TestPropertyRoundTripScalar(t *testing.T) {
	unit, _ := newTestUnit(t)

	require.NoError(t, unit.SetSampleRate(48000))

	rate, err := unit.SampleRate()
	require.NoError(t, err)
	assert.Equal(t, float64(48000), rate)
}

func TestPropertyRoundTripStruct(t *testing.T) {
	unit, _ := newTestUnit(t)

	want := NewStreamDescription(96000, 4, SAMPLE_FORMAT_F32, false)
	require.NoError(t, unit.SetStreamFormat(SCOPE_INPUT, ELEMENT_OUTPUT, want))

	got, err := unit.StreamFormat(SCOPE_INPUT, ELEMENT_OUTPUT)
	require.NoError(t, err)
	assert.Equal(t, want, got, "a set/get round-trip must return the written value unchanged")
}

func TestPropertyInfo(t *testing.T) {
	unit, _ := newTestUnit(t)

	size, writable, err := unit.PropertyInfo(AU_PROP_STREAM_FORMAT, SCOPE_INPUT, ELEMENT_OUTPUT)
	require.NoError(t, err)
	assert.Equal(t, uint32(40), size, "an ASBD is 40 bytes")
	assert.True(t, writable)

	size, writable, err = unit.PropertyInfo(AU_PROP_ELEMENT_COUNT, SCOPE_GLOBAL, ELEMENT_OUTPUT)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), size)
	assert.False(t, writable)
}

func TestGetPropertySizeMismatch(t *testing.T) {
	unit, _ := newTestUnit(t)

	// The sample rate is a float64; requesting it as a uint32 must be
	// rejected before any bytes are read.
	_, err := GetProperty[uint32](unit, AU_PROP_SAMPLE_RATE, SCOPE_OUTPUT, ELEMENT_OUTPUT)
	require.Error(t, err)

	var sme *SizeMismatchError
	require.ErrorAs(t, err, &sme)
	assert.Equal(t, uint32(4), sme.Expected)
	assert.Equal(t, uint32(8), sme.Actual)
}

func TestSetPropertySizeMismatch(t *testing.T) {
	unit, _ := newTestUnit(t)

	err := SetProperty(unit, AU_PROP_SAMPLE_RATE, SCOPE_OUTPUT, ELEMENT_OUTPUT, uint32(48000))
	require.Error(t, err)

	var sme *SizeMismatchError
	require.ErrorAs(t, err, &sme)

	// The previous value must be intact.
	rate, err := unit.SampleRate()
	require.NoError(t, err)
	assert.Equal(t, float64(44100), rate, "a rejected write must not modify the property")
}

func TestGetPropertyWrongScope(t *testing.T) {
	unit, _ := newTestUnit(t)

	// The client stream format lives on the input scope of the output
	// element; addressing it through the global scope is invalid and must
	// surface a native status, never garbage data.
	_, err := GetProperty[StreamDescription](unit, AU_PROP_STREAM_FORMAT, SCOPE_GLOBAL, ELEMENT_OUTPUT)
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StatusInvalidScope, se.Code)
}

func TestGetPropertyUnknownSelector(t *testing.T) {
	unit, _ := newTestUnit(t)

	_, err := GetProperty[uint32](unit, PropertySelector(9999), SCOPE_GLOBAL, ELEMENT_OUTPUT)
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StatusInvalidProperty, se.Code)
}

func TestSetPropertyNotWritable(t *testing.T) {
	unit, _ := newTestUnit(t)

	err := SetProperty(unit, AU_PROP_ELEMENT_COUNT, SCOPE_GLOBAL, ELEMENT_OUTPUT, uint32(2))
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StatusPropertyNotWritable, se.Code)
}

func TestSetStreamFormatAfterInitialize(t *testing.T) {
	unit, _ := newTestUnit(t)

	require.NoError(t, unit.Initialize())

	err := unit.SetStreamFormat(SCOPE_INPUT, ELEMENT_OUTPUT, NewStreamDescription(48000, 2, SAMPLE_FORMAT_F32, true))
	require.Error(t, err, "the format is initialization-only")

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StatusInitialized, se.Code)
}

func TestPropertyAccessAfterClose(t *testing.T) {
	unit, _ := newTestUnit(t)
	require.NoError(t, unit.Close())

	_, err := unit.SampleRate()
	assert.ErrorIs(t, err, ErrDisposed)

	err = unit.SetSampleRate(48000)
	assert.ErrorIs(t, err, ErrDisposed)

	_, _, err = unit.PropertyInfo(AU_PROP_SAMPLE_RATE, SCOPE_OUTPUT, ELEMENT_OUTPUT)
	assert.ErrorIs(t, err, ErrDisposed)
}
