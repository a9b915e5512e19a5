package analysis

import (
	"testing"

	"github.com/reelforge/reelforge-api/clients"
	"github.com/reelforge/reelforge-api/store"
	"github.com/stretchr/testify/require"
)

type fakeDetector struct {
	req    clients.SceneExtractionRequest
	scenes []clients.ExtractedScene
}

func (f *fakeDetector) StartExtraction(requestID string, req clients.SceneExtractionRequest) (string, error) {
	f.req = req
	return "ext-1", nil
}

func (f *fakeDetector) AwaitExtraction(requestID, extractionJobID string) ([]clients.ExtractedScene, error) {
	return f.scenes, nil
}

type fakeSceneStore struct {
	replaced map[string][]store.SceneRecord
}

func (f *fakeSceneStore) Replace(mediaID string, scenes []store.SceneRecord) error {
	if f.replaced == nil {
		f.replaced = map[string][]store.SceneRecord{}
	}
	f.replaced[mediaID] = scenes
	return nil
}

func TestSegmentShotBased(t *testing.T) {
	detector := &fakeDetector{scenes: []clients.ExtractedScene{
		{Start: 0, End: 11, Description: "intro"},
		{Start: 12, End: 30, Description: "interview"},
		{Start: 30, End: 58, Description: "outro"},
	}}
	sink := &fakeSceneStore{}
	seg := NewSceneSegmenter(detector, sink)

	records, err := seg.Segment("req1", "media-1", "http://example.com/v.mp4", SceneModeShotBased, 60)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// ends are normalized: each scene runs to the next start, last to duration
	require.Equal(t, 12.0, records[0].EndSeconds)
	require.Equal(t, 30.0, records[1].EndSeconds)
	require.Equal(t, 60.0, records[2].EndSeconds)
	require.Equal(t, "interview", records[1].Caption)
	require.Equal(t, records, sink.replaced["media-1"])

	require.Equal(t, "shot_based", detector.req.ExtractionType)
	require.Equal(t, 20, detector.req.ExtractionConfig["threshold"])
	require.Equal(t, 5, detector.req.ExtractionConfig["num_frames_per_shot"])
}

func TestSegmentTimeBased(t *testing.T) {
	sink := &fakeSceneStore{}
	seg := NewSceneSegmenter(nil, sink)

	records, err := seg.Segment("req1", "media-1", "", SceneModeTimeBased, 25)
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, 0.0, records[0].StartSeconds)
	require.Equal(t, 10.0, records[0].EndSeconds)
	require.Equal(t, 20.0, records[2].StartSeconds)
	require.Equal(t, 25.0, records[2].EndSeconds)
}

func TestSegmentUnknownMode(t *testing.T) {
	seg := NewSceneSegmenter(nil, &fakeSceneStore{})
	_, err := seg.Segment("req1", "media-1", "", "psychic", 10)
	require.ErrorContains(t, err, "unknown scene mode")
}
