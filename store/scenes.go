package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

type SceneRecord struct {
	MediaID      string          `json:"media_id"`
	SceneIndex   int             `json:"scene_index"`
	StartSeconds float64         `json:"start_seconds"`
	EndSeconds   float64         `json:"end_seconds"`
	Caption      string          `json:"caption"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
}

type SceneRepo struct {
	db *sql.DB
}

// Replace swaps out all scenes of a media in one transaction; scene
// segmentation always re-runs whole.
func (r *SceneRepo) Replace(mediaID string, scenes []SceneRecord) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("error starting scene replace for media %s: %w", mediaID, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM scenes WHERE media_id = $1`, mediaID); err != nil {
		return fmt.Errorf("error clearing scenes for media %s: %w", mediaID, err)
	}
	for _, s := range scenes {
		var metadata any
		if len(s.Metadata) > 0 {
			metadata = []byte(s.Metadata)
		}
		_, err := tx.Exec(
			`INSERT INTO scenes (media_id, scene_index, start_seconds, end_seconds, caption, metadata)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			mediaID, s.SceneIndex, s.StartSeconds, s.EndSeconds, s.Caption, metadata,
		)
		if err != nil {
			return fmt.Errorf("error inserting scene %s/%d: %w", mediaID, s.SceneIndex, err)
		}
	}
	return tx.Commit()
}

func (r *SceneRepo) ListByMedia(mediaID string) ([]SceneRecord, error) {
	rows, err := r.db.Query(
		`SELECT media_id, scene_index, start_seconds, end_seconds, caption, metadata
		 FROM scenes WHERE media_id = $1 ORDER BY scene_index`, mediaID,
	)
	if err != nil {
		return nil, fmt.Errorf("error listing scenes for media %s: %w", mediaID, err)
	}
	defer rows.Close()

	var scenes []SceneRecord
	for rows.Next() {
		var s SceneRecord
		var metadata sql.NullString
		if err := rows.Scan(&s.MediaID, &s.SceneIndex, &s.StartSeconds, &s.EndSeconds, &s.Caption, &metadata); err != nil {
			return nil, err
		}
		if metadata.Valid {
			s.Metadata = json.RawMessage(metadata.String)
		}
		scenes = append(scenes, s)
	}
	return scenes, rows.Err()
}
