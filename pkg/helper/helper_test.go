package helper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSerial(t *testing.T) {
	ok, _ := IsSerial("SIMULATOR_001")
	assert.True(t, ok)

	ok, why := IsSerial("bad sn")
	assert.False(t, ok)
	assert.Equal(t, " ", why)

	ok, _ = IsSerial("")
	assert.False(t, ok)
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("")
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	loc, err = LoadLocation("UTC")
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	_, err = LoadLocation("Mars/Olympus")
	assert.Error(t, err)
}
