// Package store holds the durable state: media descriptors, per-media
// analysis artifacts (frames, scenes, transcripts), generated edit plans,
// and job records. Everything goes through Postgres via database/sql.
package store

import (
	"context"
	"database/sql"
	"fmt"
)

type Store struct {
	DB          *sql.DB
	Media       *MediaRepo
	Frames      *FrameRepo
	Scenes      *SceneRepo
	Transcripts *TranscriptRepo
	Plans       *PlanRepo
	Jobs        *JobRepo
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		DB:          db,
		Media:       &MediaRepo{db: db},
		Frames:      &FrameRepo{db: db},
		Scenes:      &SceneRepo{db: db},
		Transcripts: &TranscriptRepo{db: db},
		Plans:       &PlanRepo{db: db},
		Jobs:        &JobRepo{db: db},
	}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS media (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		local_path TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
		fps DOUBLE PRECISION NOT NULL DEFAULT 0,
		width INT NOT NULL DEFAULT 0,
		height INT NOT NULL DEFAULT 0,
		has_audio BOOLEAN NOT NULL DEFAULT FALSE,
		summary TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS frames (
		media_id TEXT NOT NULL REFERENCES media(id),
		frame_number INT NOT NULL,
		timestamp_seconds DOUBLE PRECISION NOT NULL,
		caption TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		error TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (media_id, frame_number)
	)`,
	`CREATE TABLE IF NOT EXISTS scenes (
		media_id TEXT NOT NULL REFERENCES media(id),
		scene_index INT NOT NULL,
		start_seconds DOUBLE PRECISION NOT NULL,
		end_seconds DOUBLE PRECISION NOT NULL,
		caption TEXT NOT NULL DEFAULT '',
		metadata JSONB,
		PRIMARY KEY (media_id, scene_index)
	)`,
	`CREATE TABLE IF NOT EXISTS transcripts (
		media_id TEXT PRIMARY KEY REFERENCES media(id),
		language TEXT NOT NULL DEFAULT 'en',
		full_text TEXT NOT NULL DEFAULT '',
		segments JSONB NOT NULL DEFAULT '[]',
		segment_count INT NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'completed'
	)`,
	`CREATE TABLE IF NOT EXISTS plans (
		job_id TEXT PRIMARY KEY,
		plan JSONB NOT NULL,
		render_edl JSONB NOT NULL,
		warnings JSONB,
		compression JSONB,
		prompt_tokens INT NOT NULL DEFAULT 0,
		completion_tokens INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'queued',
		input JSONB,
		output JSONB,
		stage_log JSONB NOT NULL DEFAULT '[]',
		error TEXT NOT NULL DEFAULT '',
		retry_count INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ
	)`,
}

// EnsureSchema creates all tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("error applying schema: %w", err)
		}
	}
	return nil
}
