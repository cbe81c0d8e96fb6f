package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigureLogging(t *testing.T) {
	require.NoError(t, ConfigureLogging("debug"))

	// Blank falls back to info.
	require.NoError(t, ConfigureLogging(" "))

	require.Error(t, ConfigureLogging("shouting"))
}
