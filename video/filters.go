package video

import "strings"

type AspectRatio string

const (
	AspectRatio16x9 AspectRatio = "16:9"
	AspectRatio9x16 AspectRatio = "9:16"
	AspectRatio1x1  AspectRatio = "1:1"
)

func (a AspectRatio) IsValid() bool {
	switch a {
	case AspectRatio16x9, AspectRatio9x16, AspectRatio1x1:
		return true
	default:
		return false
	}
}

// FileSuffix is the aspect ratio with ":" replaced so it can appear in a
// filename, e.g. edited_16_9.mp4.
func (a AspectRatio) FileSuffix() string {
	return strings.ReplaceAll(string(a), ":", "_")
}

// FilterGraph returns the scale+crop chain converting a source of the given
// dimensions to the target aspect ratio. Empty string means no conversion is
// needed.
func FilterGraph(target AspectRatio, srcWidth, srcHeight int) string {
	if ReduceAspectRatio(srcWidth, srcHeight) == string(target) {
		return ""
	}
	switch target {
	case AspectRatio9x16:
		// scale to height 1920, crop 1080x1920 centered horizontally
		return "scale=-1:1920,crop=1080:1920:(iw-1080)/2:0"
	case AspectRatio1x1:
		// scale so both dimensions >= 1080, crop 1080x1080 centered
		return "scale='if(gt(iw,ih),1080,-1)':'if(gt(ih,iw),-1,1080)',crop=1080:1080:(iw-1080)/2:(ih-1080)/2"
	case AspectRatio16x9:
		// scale to width 1920, crop 1920x1080 centered vertically
		return "scale=1920:-1,crop=1920:1080:0:(ih-1080)/2"
	}
	return ""
}
