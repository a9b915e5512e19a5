package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/reelforge/reelforge-api/clients"
	xerrors "github.com/reelforge/reelforge-api/errors"
)

type TranscriptRecord struct {
	MediaID      string                      `json:"media_id"`
	Language     string                      `json:"language"`
	FullText     string                      `json:"full_text"`
	Segments     []clients.TranscriptSegment `json:"segments"`
	SegmentCount int                         `json:"segment_count"`
	Status       string                      `json:"status"`
}

type TranscriptRepo struct {
	db *sql.DB
}

func (r *TranscriptRepo) Upsert(t TranscriptRecord) error {
	segments, err := json.Marshal(t.Segments)
	if err != nil {
		return fmt.Errorf("error marshalling transcript segments: %w", err)
	}
	_, err = r.db.Exec(
		`INSERT INTO transcripts (media_id, language, full_text, segments, segment_count, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (media_id)
		 DO UPDATE SET language = $2, full_text = $3, segments = $4, segment_count = $5, status = $6`,
		t.MediaID, t.Language, t.FullText, segments, len(t.Segments), t.Status,
	)
	if err != nil {
		return fmt.Errorf("error upserting transcript for media %s: %w", t.MediaID, err)
	}
	return nil
}

func (r *TranscriptRepo) Get(mediaID string) (TranscriptRecord, error) {
	var t TranscriptRecord
	var segments []byte
	err := r.db.QueryRow(
		`SELECT media_id, language, full_text, segments, segment_count, status
		 FROM transcripts WHERE media_id = $1`, mediaID,
	).Scan(&t.MediaID, &t.Language, &t.FullText, &segments, &t.SegmentCount, &t.Status)
	if err == sql.ErrNoRows {
		return TranscriptRecord{}, xerrors.Wrap(xerrors.KindNotFound, fmt.Errorf("no transcript for media %s", mediaID))
	}
	if err != nil {
		return TranscriptRecord{}, fmt.Errorf("error fetching transcript for media %s: %w", mediaID, err)
	}
	if err := json.Unmarshal(segments, &t.Segments); err != nil {
		return TranscriptRecord{}, fmt.Errorf("error parsing transcript segments for media %s: %w", mediaID, err)
	}
	return t, nil
}
