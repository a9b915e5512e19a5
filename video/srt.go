package video

import (
	"fmt"
	"os"
	"strings"
)

// SubtitleCue is one caption line on the output timeline.
type SubtitleCue struct {
	Start float64
	End   float64
	Text  string
}

// WriteSRT writes the cues as an SRT file for the subtitles burn-in filter.
func WriteSRT(cues []SubtitleCue, path string) error {
	var sb strings.Builder
	for i, cue := range cues {
		text := strings.TrimSpace(cue.Text)
		if text == "" {
			continue
		}
		sb.WriteString(fmt.Sprintf("%d\n", i+1))
		sb.WriteString(fmt.Sprintf("%s --> %s\n", formatSRTTime(cue.Start), formatSRTTime(cue.End)))
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}
	return os.WriteFile(path, []byte(sb.String()), 0644)
}

// formatSRTTime formats seconds as the SRT timestamp form HH:MM:SS,mmm
func formatSRTTime(seconds float64) string {
	millis := int64(seconds * 1000)
	h := millis / 3600000
	m := (millis % 3600000) / 60000
	s := (millis % 60000) / 1000
	ms := millis % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
