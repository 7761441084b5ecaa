package coreaudio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusErrSuccess(t *testing.T) {
	assert.NoError(t, statusErr(StatusOK), "a zero status must always map to success")
}

func TestStatusErrKnownCode(t *testing.T) {
	err := statusErr(StatusInvalidProperty)
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StatusInvalidProperty, se.Code)
	assert.Contains(t, err.Error(), "invalid property")
	assert.Contains(t, err.Error(), "-10879", "the numeric code must be preserved in the message")
}

func TestStatusErrUnknownCode(t *testing.T) {
	err := statusErr(OSStatus(-99999))
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, OSStatus(-99999), se.Code, "unknown codes must be preserved for diagnostics")
	assert.Contains(t, err.Error(), "-99999")
}

func TestToStatus(t *testing.T) {
	assert.Equal(t, StatusOK, toStatus(nil))
	assert.Equal(t, StatusFormatNotSupported, toStatus(&StatusError{Code: StatusFormatNotSupported}))
	assert.Equal(t, StatusFormatNotSupported, toStatus(statusErr(StatusFormatNotSupported)))

	// Arbitrary errors cross the boundary as a generic failure status.
	assert.Equal(t, StatusUnimplemented, toStatus(errors.New("callback exploded")))
}

func TestSizeMismatchError(t *testing.T) {
	err := &SizeMismatchError{Selector: AU_PROP_SAMPLE_RATE, Expected: 4, Actual: 8}
	assert.Contains(t, err.Error(), "size mismatch")
	assert.Contains(t, err.Error(), "4")
	assert.Contains(t, err.Error(), "8")
}
