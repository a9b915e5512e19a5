package config

import (
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/go-kit/log"
)

var Version string

// Clock supplies the time stamped onto outbound webhook payloads. Tests swap
// it for a fixed instant.
var Clock = func() time.Time { return time.Now() }

// Maximum number of edit pipeline jobs processed concurrently. Requests over
// this limit are rejected with 429.
var MaxInFlightJobs = 8

// Bound on concurrent vision calls while captioning the frames of one media.
var CaptionConcurrency = 5

// Seconds between sampled frames when a caller does not specify granularity.
var DefaultFrameGranularitySecs = 1.0

// Global variable, but easier than passing a logger around throughout the system
var Logger log.Logger = log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))

func init() {
	Logger = log.With(Logger, "ts", log.DefaultTimestampUTC)
}

const charset = "abcdefghijklmnopqrstuvwxyz0123456789"

func RandomTrailer(length int) string {
	res := make([]byte, length)
	for i := 0; i < length; i++ {
		res[i] = charset[rand.Intn(len(charset))]
	}
	return string(res)
}

// Persistent storage layout. Original inputs live under uploads/, rendered
// outputs under processed/, per-media caches and working files under temp/.

func UploadDir(storageRoot, mediaID string) string {
	return filepath.Join(storageRoot, "uploads", mediaID)
}

func ProcessedDir(storageRoot, id string) string {
	return filepath.Join(storageRoot, "processed", id)
}

func TempDir(storageRoot, mediaID string) string {
	return filepath.Join(storageRoot, "temp", mediaID)
}
