package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	xerrors "github.com/reelforge/reelforge-api/errors"
)

type PlanRecord struct {
	JobID            string          `json:"job_id"`
	Plan             json.RawMessage `json:"plan"`
	RenderEDL        json.RawMessage `json:"render_edl"`
	Warnings         json.RawMessage `json:"warnings,omitempty"`
	Compression      json.RawMessage `json:"compression,omitempty"`
	PromptTokens     int             `json:"prompt_tokens"`
	CompletionTokens int             `json:"completion_tokens"`
	CreatedAt        time.Time       `json:"created_at"`
}

type PlanRepo struct {
	db *sql.DB
}

func (r *PlanRepo) Insert(p PlanRecord) error {
	_, err := r.db.Exec(
		`INSERT INTO plans (job_id, plan, render_edl, warnings, compression, prompt_tokens, completion_tokens)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (job_id)
		 DO UPDATE SET plan = $2, render_edl = $3, warnings = $4, compression = $5, prompt_tokens = $6, completion_tokens = $7`,
		p.JobID, []byte(p.Plan), []byte(p.RenderEDL), nullableJSON(p.Warnings), nullableJSON(p.Compression),
		p.PromptTokens, p.CompletionTokens,
	)
	if err != nil {
		return fmt.Errorf("error storing plan for job %s: %w", p.JobID, err)
	}
	return nil
}

func (r *PlanRepo) Get(jobID string) (PlanRecord, error) {
	var p PlanRecord
	var plan, renderEDL []byte
	var warnings, compression sql.NullString
	err := r.db.QueryRow(
		`SELECT job_id, plan, render_edl, warnings, compression, prompt_tokens, completion_tokens, created_at
		 FROM plans WHERE job_id = $1`, jobID,
	).Scan(&p.JobID, &plan, &renderEDL, &warnings, &compression, &p.PromptTokens, &p.CompletionTokens, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return PlanRecord{}, xerrors.Wrap(xerrors.KindNotFound, fmt.Errorf("no plan for job %s", jobID))
	}
	if err != nil {
		return PlanRecord{}, fmt.Errorf("error fetching plan for job %s: %w", jobID, err)
	}
	p.Plan = json.RawMessage(plan)
	p.RenderEDL = json.RawMessage(renderEDL)
	if warnings.Valid {
		p.Warnings = json.RawMessage(warnings.String)
	}
	if compression.Valid {
		p.Compression = json.RawMessage(compression.String)
	}
	return p, nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
