package video

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	xerrors "github.com/reelforge/reelforge-api/errors"
	"gopkg.in/vansante/go-ffprobe.v2"
)

type Prober interface {
	ProbeFile(requestID, url string, ffProbeOptions ...string) (MediaInfo, error)
}

type Probe struct{}

func (p Probe) ProbeFile(requestID string, url string, ffProbeOptions ...string) (MediaInfo, error) {
	if len(ffProbeOptions) == 0 {
		ffProbeOptions = []string{"-loglevel", "error"}
	}
	var data *ffprobe.ProbeData
	operation := func() error {
		probeCtx, probeCancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer probeCancel()
		var err error
		data, err = ffprobe.ProbeURL(probeCtx, url, ffProbeOptions...)
		return err
	}

	backOff := backoff.NewExponentialBackOff()
	backOff.InitialInterval = 500 * time.Millisecond
	backOff.MaxInterval = 2 * time.Second
	backOff.MaxElapsedTime = 0 // don't impose a timeout as part of the retries
	err := backoff.Retry(operation, backoff.WithMaxRetries(backOff, 3))
	if err != nil {
		return MediaInfo{}, fmt.Errorf("error probing %s: %w", url, err)
	}
	return parseProbeOutput(data)
}

func parseProbeOutput(probeData *ffprobe.ProbeData) (MediaInfo, error) {
	videoStream := probeData.FirstVideoStream()
	if videoStream == nil {
		return MediaInfo{}, xerrors.Wrap(xerrors.KindInvalidInput, errors.New("invalid media: no video stream found"))
	}
	// We rely on this being present to get required information about the input video, so error out if it isn't
	if probeData.Format == nil {
		return MediaInfo{}, fmt.Errorf("error parsing input video: format information missing")
	}

	duration, err := strconv.ParseFloat(videoStream.Duration, 64)
	if err != nil {
		duration = probeData.Format.DurationSeconds
	}
	if duration <= 0 {
		return MediaInfo{}, xerrors.Wrap(xerrors.KindInvalidInput, errors.New("invalid media: duration is zero"))
	}

	fps, err := parseFps(videoStream.AvgFrameRate)
	if err != nil {
		return MediaInfo{}, fmt.Errorf("error parsing avg fps from probed data: %w", err)
	}
	// if fps is 0, try parsing the RFrameRate in the probed data
	if fps == 0 {
		fps, err = parseFps(videoStream.RFrameRate)
		if err != nil {
			return MediaInfo{}, fmt.Errorf("error parsing real fps from probed data: %w", err)
		}
	}

	bitRateValue := videoStream.BitRate
	if bitRateValue == "" {
		bitRateValue = probeData.Format.BitRate
	}
	var bitrate int64
	if bitRateValue != "" {
		bitrate, err = strconv.ParseInt(bitRateValue, 10, 64)
		if err != nil {
			return MediaInfo{}, fmt.Errorf("error parsing bitrate from probed data: %w", err)
		}
	}

	size, _ := strconv.ParseInt(probeData.Format.Size, 10, 64)

	mi := MediaInfo{
		Duration:    duration,
		FPS:         fps,
		Width:       videoStream.Width,
		Height:      videoStream.Height,
		VideoCodec:  videoStream.CodecName,
		Bitrate:     bitrate,
		AspectRatio: ReduceAspectRatio(videoStream.Width, videoStream.Height),
		SizeBytes:   size,
		Format:      probeData.Format.FormatName,
	}

	if audioStream := probeData.FirstAudioStream(); audioStream != nil {
		mi.HasAudio = true
		mi.AudioCodec = audioStream.CodecName
	}
	return mi, nil
}

func parseFps(framerate string) (float64, error) {
	if framerate == "" {
		return 0, nil
	}
	parts := strings.SplitN(framerate, "/", 2)
	if len(parts) < 2 {
		fps, err := strconv.ParseFloat(framerate, 64)
		if err != nil {
			return 0, fmt.Errorf("error parsing framerate: %w", err)
		}
		return fps, nil
	}
	num, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("error parsing framerate numerator: %w", err)
	}
	den, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("error parsing framerate denominator: %w", err)
	}

	if den == 0 {
		// 0/0 can be valid for a video track i.e. mjpeg
		if num == 0 {
			return 0, nil
		}
		return 0, errors.New("invalid framerate denominator 0")
	}

	return float64(num) / float64(den), nil
}
