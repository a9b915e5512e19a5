package store

import (
	"database/sql"
	"fmt"
)

type FrameRecord struct {
	MediaID          string  `json:"media_id"`
	FrameNumber      int     `json:"frame_number"`
	TimestampSeconds float64 `json:"timestamp_seconds"`
	Caption          string  `json:"caption"`
	Status           string  `json:"status"`
	Error            string  `json:"error,omitempty"`
}

type FrameRepo struct {
	db *sql.DB
}

// Exists reports whether a frame row is already persisted, which lets the
// sampler skip re-captioning on restart.
func (r *FrameRepo) Exists(mediaID string, frameNumber int) (bool, error) {
	var one int
	err := r.db.QueryRow(
		`SELECT 1 FROM frames WHERE media_id = $1 AND frame_number = $2`,
		mediaID, frameNumber,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error checking frame %s/%d: %w", mediaID, frameNumber, err)
	}
	return true, nil
}

func (r *FrameRepo) Upsert(f FrameRecord) error {
	_, err := r.db.Exec(
		`INSERT INTO frames (media_id, frame_number, timestamp_seconds, caption, status, error)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (media_id, frame_number)
		 DO UPDATE SET caption = $4, status = $5, error = $6`,
		f.MediaID, f.FrameNumber, f.TimestampSeconds, f.Caption, f.Status, f.Error,
	)
	if err != nil {
		return fmt.Errorf("error upserting frame %s/%d: %w", f.MediaID, f.FrameNumber, err)
	}
	return nil
}

func (r *FrameRepo) ListByMedia(mediaID string) ([]FrameRecord, error) {
	rows, err := r.db.Query(
		`SELECT media_id, frame_number, timestamp_seconds, caption, status, error
		 FROM frames WHERE media_id = $1 ORDER BY frame_number`, mediaID,
	)
	if err != nil {
		return nil, fmt.Errorf("error listing frames for media %s: %w", mediaID, err)
	}
	defer rows.Close()

	var frames []FrameRecord
	for rows.Next() {
		var f FrameRecord
		if err := rows.Scan(&f.MediaID, &f.FrameNumber, &f.TimestampSeconds, &f.Caption, &f.Status, &f.Error); err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	return frames, rows.Err()
}

func (r *FrameRepo) CountByMedia(mediaID string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT count(*) FROM frames WHERE media_id = $1`, mediaID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("error counting frames for media %s: %w", mediaID, err)
	}
	return n, nil
}
