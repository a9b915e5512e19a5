package video

import (
	"fmt"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// ExtractFrames decodes the input and writes one JPEG for every
// everyNFrames-th frame to outputPattern (printf style, e.g.
// "frames/%06d.jpg"). Output file i (1-based) holds source frame
// (i-1)*everyNFrames.
func ExtractFrames(inputFile, outputPattern string, everyNFrames int) error {
	if everyNFrames < 1 {
		everyNFrames = 1
	}
	err := ffmpeg.Input(inputFile).
		Output(outputPattern, ffmpeg.KwArgs{
			"vf":    fmt.Sprintf("select='not(mod(n\\,%d))'", everyNFrames),
			"vsync": "vfr",
			"q:v":   2,
		}).
		OverWriteOutput().ErrorToStdOut().Run()
	if err != nil {
		return fmt.Errorf("failed to extract frames from %s: %w", inputFile, err)
	}
	return nil
}

// ExtractAudio writes the input's audio track as mono 16 kHz PCM WAV, the
// form the transcription capability expects.
func ExtractAudio(inputFile, outputFile string) error {
	err := ffmpeg.Input(inputFile).
		Output(outputFile, ffmpeg.KwArgs{
			"vn":     "",
			"acodec": "pcm_s16le",
			"ar":     16000,
			"ac":     1,
		}).
		OverWriteOutput().ErrorToStdOut().Run()
	if err != nil {
		return fmt.Errorf("failed to extract audio from %s: %w", inputFile, err)
	}
	return nil
}
