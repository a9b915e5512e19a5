package store

import (
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestMarkProcessingRefusedForTerminalJob(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE jobs SET status`).
		WithArgs("job-1", JobStatusProcessing, JobStatusQueued).
		WillReturnResult(sqlmock.NewResult(0, 0))

	s := NewStore(db)
	err = s.Jobs.MarkProcessing("job-1")
	require.ErrorContains(t, err, "refused transition to processing")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteOnlyFromProcessing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE jobs SET status`).
		WithArgs("job-1", JobStatusCompleted, []byte(`{"ok":true}`), JobStatusProcessing).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := NewStore(db)
	require.NoError(t, s.Jobs.Complete("job-1", []byte(`{"ok":true}`)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFailTruncatesLongErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	longError := strings.Repeat("x", 2000)
	mock.ExpectExec(`UPDATE jobs SET status`).
		WithArgs("job-1", JobStatusFailed, strings.Repeat("x", 500), JobStatusCompleted).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := NewStore(db)
	require.NoError(t, s.Jobs.Fail("job-1", longError))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFailDoesNotOverwriteCompleted(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE jobs SET status`).
		WithArgs("job-1", JobStatusFailed, "boom", JobStatusCompleted).
		WillReturnResult(sqlmock.NewResult(0, 0))

	s := NewStore(db)
	err = s.Jobs.Fail("job-1", "boom")
	require.ErrorContains(t, err, "refused transition to failed")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetJobParsesStageLog(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"id", "kind", "status", "input", "output", "stage_log", "error", "retry_count",
		"created_at", "started_at", "completed_at",
	}).AddRow("job-1", JobKindPipeline, JobStatusProcessing, `{"summary":"x"}`, nil,
		[]byte(`[{"stage":"generate_edit_plan","message":"started","at":"2026-08-24T10:00:00Z"}]`),
		"", 0, time.Now(), nil, nil)
	mock.ExpectQuery(`SELECT id, kind, status`).WithArgs("job-1").WillReturnRows(rows)

	s := NewStore(db)
	job, err := s.Jobs.Get("job-1")
	require.NoError(t, err)
	require.Len(t, job.StageLog, 1)
	require.Equal(t, "generate_edit_plan", job.StageLog[0].Stage)
	require.JSONEq(t, `{"summary":"x"}`, string(job.Input))
}
