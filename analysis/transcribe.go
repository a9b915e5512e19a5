package analysis

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/reelforge/reelforge-api/clients"
	"github.com/reelforge/reelforge-api/log"
	"github.com/reelforge/reelforge-api/store"
	"github.com/reelforge/reelforge-api/video"
)

// TranscriptStore is the slice of the transcript repository the transcriber
// needs.
type TranscriptStore interface {
	Upsert(t store.TranscriptRecord) error
}

// SpeechClient is the slice of the transcription client the transcriber
// needs.
type SpeechClient interface {
	Transcribe(requestID, audioPath, language string) (clients.TranscriptionResult, error)
}

// Transcriber extracts the media's audio track once (cached next to the
// media) and runs it through the transcription capability.
type Transcriber struct {
	Speech      SpeechClient
	Transcripts TranscriptStore
}

func NewTranscriber(speech SpeechClient, transcripts TranscriptStore) *Transcriber {
	return &Transcriber{Speech: speech, Transcripts: transcripts}
}

// Transcribe analyzes the media at localPath and persists the transcript.
// Media without an audio track or without spoken content is a benign outcome:
// the record is stored completed with zero segments.
func (t *Transcriber) Transcribe(requestID, mediaID, localPath, language string, hasAudio bool) (store.TranscriptRecord, error) {
	if language == "" {
		language = "en"
	}

	if !hasAudio {
		log.Log(requestID, "media has no audio track, skipping transcription", "media_id", mediaID)
		record := store.TranscriptRecord{
			MediaID:  mediaID,
			Language: language,
			Status:   "completed",
		}
		if err := t.Transcripts.Upsert(record); err != nil {
			return store.TranscriptRecord{}, err
		}
		return record, nil
	}

	audioPath := filepath.Join(filepath.Dir(localPath), "audio_16k.wav")
	if _, err := os.Stat(audioPath); err != nil {
		if err := video.ExtractAudio(localPath, audioPath); err != nil {
			return store.TranscriptRecord{}, err
		}
	} else {
		log.Log(requestID, "reusing cached audio extraction", "media_id", mediaID, "path", audioPath)
	}

	record := store.TranscriptRecord{
		MediaID:  mediaID,
		Language: language,
		Status:   "completed",
	}
	result, err := t.Speech.Transcribe(requestID, audioPath, language)
	if err != nil {
		if !isNoSpeechError(err) {
			return store.TranscriptRecord{}, err
		}
		log.Log(requestID, "media has no spoken content", "media_id", mediaID)
	} else {
		if result.Language != "" {
			record.Language = result.Language
		}
		record.FullText = result.Text
		record.Segments = result.Segments
	}
	record.SegmentCount = len(record.Segments)

	if err := t.Transcripts.Upsert(record); err != nil {
		return store.TranscriptRecord{}, err
	}
	log.Log(requestID, "transcription finished", "media_id", mediaID,
		"language", record.Language, "segments", record.SegmentCount)
	return record, nil
}

func isNoSpeechError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "no spoken")
}

// summaryFromTranscript derives a short media summary when none was
// provided: the first few transcript segments joined together.
func summaryFromTranscript(segments []clients.TranscriptSegment, maxLen int) string {
	var b strings.Builder
	for _, seg := range segments {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(strings.TrimSpace(seg.Text))
		if b.Len() >= maxLen {
			break
		}
	}
	s := b.String()
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}
