package transport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckClientVersionAcceptsNewerVersion(t *testing.T) {
	ok, err := CheckClientVersion("1.2.0")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCheckClientVersionAcceptsExactMinimum(t *testing.T) {
	ok, err := CheckClientVersion("1.0.0")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCheckClientVersionRejectsOlderVersion(t *testing.T) {
	ok, err := CheckClientVersion("0.9.0")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCheckClientVersionRejectsMalformedVersion(t *testing.T) {
	_, err := CheckClientVersion("not-a-version")
	require.Error(t, err)
}
