package video

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilterGraph(t *testing.T) {
	tests := []struct {
		name     string
		target   AspectRatio
		w, h     int
		expected string
	}{
		{
			name:     "landscape to vertical",
			target:   AspectRatio9x16,
			w:        1920,
			h:        1080,
			expected: "scale=-1:1920,crop=1080:1920:(iw-1080)/2:0",
		},
		{
			name:     "landscape to square",
			target:   AspectRatio1x1,
			w:        1920,
			h:        1080,
			expected: "scale='if(gt(iw,ih),1080,-1)':'if(gt(ih,iw),-1,1080)',crop=1080:1080:(iw-1080)/2:(ih-1080)/2",
		},
		{
			name:     "vertical to landscape",
			target:   AspectRatio16x9,
			w:        1080,
			h:        1920,
			expected: "scale=1920:-1,crop=1920:1080:0:(ih-1080)/2",
		},
		{
			name:     "source already matches target",
			target:   AspectRatio16x9,
			w:        1920,
			h:        1080,
			expected: "",
		},
		{
			name:     "non-standard source matching after reduction",
			target:   AspectRatio1x1,
			w:        720,
			h:        720,
			expected: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, FilterGraph(tt.target, tt.w, tt.h))
		})
	}
}

func TestAspectRatioFileSuffix(t *testing.T) {
	require.Equal(t, "16_9", AspectRatio16x9.FileSuffix())
	require.Equal(t, "9_16", AspectRatio9x16.FileSuffix())
	require.Equal(t, "1_1", AspectRatio1x1.FileSuffix())
}

func TestAspectRatioIsValid(t *testing.T) {
	require.True(t, AspectRatio16x9.IsValid())
	require.False(t, AspectRatio("4:3").IsValid())
}

func TestReduceAspectRatio(t *testing.T) {
	require.Equal(t, "16:9", ReduceAspectRatio(1920, 1080))
	require.Equal(t, "9:16", ReduceAspectRatio(1080, 1920))
	require.Equal(t, "1:1", ReduceAspectRatio(720, 720))
	require.Equal(t, "", ReduceAspectRatio(0, 1080))
}
