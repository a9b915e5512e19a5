package analysis

import (
	"encoding/json"
	"fmt"

	"github.com/reelforge/reelforge-api/clients"
	xerrors "github.com/reelforge/reelforge-api/errors"
	"github.com/reelforge/reelforge-api/log"
	"github.com/reelforge/reelforge-api/store"
)

const (
	SceneModeShotBased = "shot_based"
	SceneModeTimeBased = "time_based"

	defaultShotThreshold       = 20
	defaultFramesPerShot       = 5
	defaultTimePartitionLength = 10.0
)

// SceneStore is the slice of the scene repository the segmenter needs.
type SceneStore interface {
	Replace(mediaID string, scenes []store.SceneRecord) error
}

// SceneDetector is the slice of the scene extraction client the segmenter
// needs.
type SceneDetector interface {
	StartExtraction(requestID string, req clients.SceneExtractionRequest) (string, error)
	AwaitExtraction(requestID, extractionJobID string) ([]clients.ExtractedScene, error)
}

// SceneSegmenter produces scene boundaries either via the external
// shot-detection capability or by uniform time partition.
type SceneSegmenter struct {
	Detector SceneDetector
	Scenes   SceneStore
}

func NewSceneSegmenter(detector SceneDetector, scenes SceneStore) *SceneSegmenter {
	return &SceneSegmenter{Detector: detector, Scenes: scenes}
}

// Segment detects scenes for one media and replaces its persisted scene
// rows. Scene ends are normalized so each scene runs to the next scene's
// start, and the last to the media duration.
func (s *SceneSegmenter) Segment(requestID, mediaID, videoURL, mode string, duration float64) ([]store.SceneRecord, error) {
	var records []store.SceneRecord
	switch mode {
	case SceneModeTimeBased:
		records = timePartition(mediaID, duration, defaultTimePartitionLength)
	case SceneModeShotBased, "":
		detected, err := s.detectShots(requestID, videoURL)
		if err != nil {
			return nil, err
		}
		records = make([]store.SceneRecord, 0, len(detected))
		for i, d := range detected {
			rec := store.SceneRecord{
				MediaID:      mediaID,
				SceneIndex:   i,
				StartSeconds: d.Start,
				EndSeconds:   d.End,
				Caption:      d.Description,
			}
			if len(d.Metadata) > 0 {
				raw, err := json.Marshal(d.Metadata)
				if err == nil {
					rec.Metadata = raw
				}
			}
			records = append(records, rec)
		}
	default:
		return nil, xerrors.Wrap(xerrors.KindInvalidInput, fmt.Errorf("unknown scene mode %q", mode))
	}

	normalizeSceneEnds(records, duration)
	if err := s.Scenes.Replace(mediaID, records); err != nil {
		return nil, err
	}
	log.Log(requestID, "scene segmentation finished", "media_id", mediaID, "mode", mode, "scenes", len(records))
	return records, nil
}

func (s *SceneSegmenter) detectShots(requestID, videoURL string) ([]clients.ExtractedScene, error) {
	extractionJobID, err := s.Detector.StartExtraction(requestID, clients.SceneExtractionRequest{
		VideoURL:       videoURL,
		ExtractionType: SceneModeShotBased,
		ExtractionConfig: map[string]any{
			"threshold":           defaultShotThreshold,
			"num_frames_per_shot": defaultFramesPerShot,
		},
		Prompt: "Describe this shot in one sentence, focusing on action and subject.",
	})
	if err != nil {
		return nil, err
	}
	return s.Detector.AwaitExtraction(requestID, extractionJobID)
}

func timePartition(mediaID string, duration, interval float64) []store.SceneRecord {
	var records []store.SceneRecord
	for start := 0.0; start < duration; start += interval {
		end := start + interval
		if end > duration {
			end = duration
		}
		records = append(records, store.SceneRecord{
			MediaID:      mediaID,
			SceneIndex:   len(records),
			StartSeconds: start,
			EndSeconds:   end,
		})
	}
	return records
}

// normalizeSceneEnds pins each scene's end to the next scene's start so the
// records cover the media monotonically, and the final end to the duration.
func normalizeSceneEnds(records []store.SceneRecord, duration float64) {
	for i := range records {
		if i+1 < len(records) {
			records[i].EndSeconds = records[i+1].StartSeconds
		} else if duration > 0 {
			records[i].EndSeconds = duration
		}
	}
}
