package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	xerrors "github.com/reelforge/reelforge-api/errors"
)

const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

const (
	JobKindIngest   = "ingest"
	JobKindGenerate = "generate"
	JobKindApply    = "apply"
	JobKindPipeline = "pipeline"
)

// maxStoredErrorLength bounds the error column so a multi-megabyte ffmpeg
// stderr dump cannot end up in a job row.
const maxStoredErrorLength = 500

type StageEntry struct {
	Stage   string    `json:"stage"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}

type Job struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Status      string          `json:"status"`
	Input       json.RawMessage `json:"input,omitempty"`
	Output      json.RawMessage `json:"output,omitempty"`
	StageLog    []StageEntry    `json:"stage_log,omitempty"`
	Error       string          `json:"error,omitempty"`
	RetryCount  int             `json:"retry_count"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

type JobRepo struct {
	db *sql.DB
}

func (r *JobRepo) Insert(id, kind string, input json.RawMessage) error {
	_, err := r.db.Exec(
		`INSERT INTO jobs (id, kind, status, input) VALUES ($1, $2, $3, $4)`,
		id, kind, JobStatusQueued, nullableJSON(input),
	)
	if err != nil {
		return fmt.Errorf("error inserting job %s: %w", id, err)
	}
	return nil
}

func (r *JobRepo) Get(id string) (Job, error) {
	var j Job
	var input, output sql.NullString
	var stageLog []byte
	err := r.db.QueryRow(
		`SELECT id, kind, status, input, output, stage_log, error, retry_count, created_at, started_at, completed_at
		 FROM jobs WHERE id = $1`, id,
	).Scan(&j.ID, &j.Kind, &j.Status, &input, &output, &stageLog, &j.Error, &j.RetryCount,
		&j.CreatedAt, &j.StartedAt, &j.CompletedAt)
	if err == sql.ErrNoRows {
		return Job{}, xerrors.Wrap(xerrors.KindNotFound, fmt.Errorf("job %s not found", id))
	}
	if err != nil {
		return Job{}, fmt.Errorf("error fetching job %s: %w", id, err)
	}
	if input.Valid {
		j.Input = json.RawMessage(input.String)
	}
	if output.Valid {
		j.Output = json.RawMessage(output.String)
	}
	if len(stageLog) > 0 {
		if err := json.Unmarshal(stageLog, &j.StageLog); err != nil {
			return Job{}, fmt.Errorf("error parsing stage log for job %s: %w", id, err)
		}
	}
	return j, nil
}

// MarkProcessing moves a job from queued to processing. The transition is
// idempotent for retried jobs but refused for terminal ones, keeping the
// status progression monotone.
func (r *JobRepo) MarkProcessing(id string) error {
	res, err := r.db.Exec(
		`UPDATE jobs SET status = $2, started_at = COALESCE(started_at, now())
		 WHERE id = $1 AND status IN ($3, $2)`,
		id, JobStatusProcessing, JobStatusQueued,
	)
	if err != nil {
		return fmt.Errorf("error marking job %s processing: %w", id, err)
	}
	return requireTransition(res, id, JobStatusProcessing)
}

func (r *JobRepo) Complete(id string, output json.RawMessage) error {
	res, err := r.db.Exec(
		`UPDATE jobs SET status = $2, output = $3, completed_at = now()
		 WHERE id = $1 AND status = $4`,
		id, JobStatusCompleted, nullableJSON(output), JobStatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("error completing job %s: %w", id, err)
	}
	return requireTransition(res, id, JobStatusCompleted)
}

func (r *JobRepo) Fail(id, errMsg string) error {
	if len(errMsg) > maxStoredErrorLength {
		errMsg = errMsg[:maxStoredErrorLength]
	}
	res, err := r.db.Exec(
		`UPDATE jobs SET status = $2, error = $3, completed_at = now()
		 WHERE id = $1 AND status NOT IN ($4, $2)`,
		id, JobStatusFailed, errMsg, JobStatusCompleted,
	)
	if err != nil {
		return fmt.Errorf("error failing job %s: %w", id, err)
	}
	return requireTransition(res, id, JobStatusFailed)
}

func (r *JobRepo) IncrementRetry(id string) error {
	_, err := r.db.Exec(`UPDATE jobs SET retry_count = retry_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error incrementing retries for job %s: %w", id, err)
	}
	return nil
}

// AppendStage adds one entry to the job's processing log trail.
func (r *JobRepo) AppendStage(id string, entry StageEntry) error {
	raw, err := json.Marshal([]StageEntry{entry})
	if err != nil {
		return err
	}
	_, err = r.db.Exec(
		`UPDATE jobs SET stage_log = stage_log || $2::jsonb WHERE id = $1`,
		id, raw,
	)
	if err != nil {
		return fmt.Errorf("error appending stage log for job %s: %w", id, err)
	}
	return nil
}

func requireTransition(res sql.Result, id, target string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("job %s refused transition to %s", id, target)
	}
	return nil
}
