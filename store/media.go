package store

import (
	"database/sql"
	"fmt"
	"time"

	xerrors "github.com/reelforge/reelforge-api/errors"
	"github.com/reelforge/reelforge-api/video"
)

type Media struct {
	ID              string    `json:"id"`
	URL             string    `json:"url"`
	LocalPath       string    `json:"local_path,omitempty"`
	Status          string    `json:"status"`
	DurationSeconds float64   `json:"duration_seconds"`
	FPS             float64   `json:"fps"`
	Width           int       `json:"width"`
	Height          int       `json:"height"`
	HasAudio        bool      `json:"has_audio"`
	Summary         string    `json:"summary,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type MediaRepo struct {
	db *sql.DB
}

func (r *MediaRepo) Insert(m Media) error {
	_, err := r.db.Exec(
		`INSERT INTO media (id, url, status) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO NOTHING`,
		m.ID, m.URL, m.Status,
	)
	if err != nil {
		return fmt.Errorf("error inserting media %s: %w", m.ID, err)
	}
	return nil
}

func (r *MediaRepo) Get(id string) (Media, error) {
	var m Media
	err := r.db.QueryRow(
		`SELECT id, url, local_path, status, duration_seconds, fps, width, height, has_audio, summary, created_at, updated_at
		 FROM media WHERE id = $1`, id,
	).Scan(&m.ID, &m.URL, &m.LocalPath, &m.Status, &m.DurationSeconds, &m.FPS,
		&m.Width, &m.Height, &m.HasAudio, &m.Summary, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return Media{}, xerrors.Wrap(xerrors.KindNotFound, fmt.Errorf("media %s not found", id))
	}
	if err != nil {
		return Media{}, fmt.Errorf("error fetching media %s: %w", id, err)
	}
	return m, nil
}

// RecordProbe stores the probed characteristics and the cached local path.
func (r *MediaRepo) RecordProbe(id, localPath string, info video.MediaInfo) error {
	_, err := r.db.Exec(
		`UPDATE media SET local_path = $2, duration_seconds = $3, fps = $4,
		        width = $5, height = $6, has_audio = $7, updated_at = now()
		 WHERE id = $1`,
		id, localPath, info.Duration, info.FPS, info.Width, info.Height, info.HasAudio,
	)
	if err != nil {
		return fmt.Errorf("error recording probe for media %s: %w", id, err)
	}
	return nil
}

func (r *MediaRepo) SetStatus(id, status string) error {
	_, err := r.db.Exec(`UPDATE media SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("error updating media %s status: %w", id, err)
	}
	return nil
}

func (r *MediaRepo) SetSummary(id, summary string) error {
	_, err := r.db.Exec(`UPDATE media SET summary = $2, updated_at = now() WHERE id = $1`, id, summary)
	if err != nil {
		return fmt.Errorf("error updating media %s summary: %w", id, err)
	}
	return nil
}
