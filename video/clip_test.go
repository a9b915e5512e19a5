package video

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestItFormatsTimeCorrectly(t *testing.T) {
	require.Equal(t, "00:00:00.000", formatTime(0))
	require.Equal(t, "00:00:01.500", formatTime(1.5))
	require.Equal(t, "00:01:12.345", formatTime(72.345))
	require.Equal(t, "01:00:00.000", formatTime(3600))
}
