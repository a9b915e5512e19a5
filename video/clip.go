package video

import (
	"fmt"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// format time in secs to be compatible with ffmpeg's expected time syntax
func formatTime(timeSeconds float64) string {
	timeMillis := int64(timeSeconds * 1000)
	duration := time.Duration(timeMillis) * time.Millisecond
	formattedTime := time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(duration)
	return formattedTime.Format("15:04:05.000")
}

// ExtractSegment re-encodes the [start, end) window of the input into a
// standalone MP4 segment. Re-encoding (instead of stream copy) guarantees
// clean keyframes at the cut points so that concat produces no glitches.
//
//	"c:v": "libx264": H.264 video codec.
//	"preset": "medium", "crf": 23: quality/size tradeoff for short-form output.
//	"c:a": "aac": AAC audio.
//
// filterGraph, when non-empty, is the scale+crop chain converting to the
// target aspect ratio (see FilterGraph).
func ExtractSegment(inputFile, outputFile string, start, end float64, filterGraph string) error {
	kwargs := ffmpeg.KwArgs{
		"ss":     formatTime(start),
		"t":      formatTime(end - start),
		"c:v":    "libx264",
		"preset": "medium",
		"crf":    23,
		"c:a":    "aac",
	}
	if filterGraph != "" {
		kwargs["vf"] = filterGraph
	}
	err := ffmpeg.Input(inputFile).
		Output(outputFile, kwargs).
		OverWriteOutput().ErrorToStdOut().Run()
	if err != nil {
		return fmt.Errorf("failed to extract segment %.2f-%.2f from %s: %w", start, end, inputFile, err)
	}
	return nil
}
