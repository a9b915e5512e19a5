package video

import "fmt"

type MediaKind string

const (
	MediaKindVideo MediaKind = "video"
	MediaKindImage MediaKind = "image"
	MediaKindAudio MediaKind = "audio"
)

// MediaInfo holds the technical facts derived from probing one source file.
type MediaInfo struct {
	Duration    float64 `json:"duration"`
	FPS         float64 `json:"fps"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	VideoCodec  string  `json:"video_codec"`
	AudioCodec  string  `json:"audio_codec,omitempty"`
	Bitrate     int64   `json:"bitrate,omitempty"`
	HasAudio    bool    `json:"has_audio"`
	AspectRatio string  `json:"aspect_ratio"`
	SizeBytes   int64   `json:"size_bytes,omitempty"`
	Format      string  `json:"format,omitempty"`
}

// ReduceAspectRatio returns the GCD-reduced "W:H" form, e.g. 1920x1080 -> 16:9.
func ReduceAspectRatio(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	d := gcd(width, height)
	return fmt.Sprintf("%d:%d", width/d, height/d)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
