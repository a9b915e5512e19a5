package store

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestFrameExists(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT 1 FROM frames`).
		WithArgs("media-1", 30).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(`SELECT 1 FROM frames`).
		WithArgs("media-1", 60).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	s := NewStore(db)
	exists, err := s.Frames.Exists("media-1", 30)
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = s.Frames.Exists("media-1", 60)
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFrameUpsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO frames`).
		WithArgs("media-1", 30, 1.0, "a dog runs", "completed", "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := NewStore(db)
	require.NoError(t, s.Frames.Upsert(FrameRecord{
		MediaID:          "media-1",
		FrameNumber:      30,
		TimestampSeconds: 1.0,
		Caption:          "a dog runs",
		Status:           "completed",
	}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListFramesOrdered(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"media_id", "frame_number", "timestamp_seconds", "caption", "status", "error"}).
		AddRow("media-1", 0, 0.0, "first", "completed", "").
		AddRow("media-1", 30, 1.0, "", "failed", "vision endpoint returned status 500")
	mock.ExpectQuery(`SELECT media_id, frame_number`).WithArgs("media-1").WillReturnRows(rows)

	s := NewStore(db)
	frames, err := s.Frames.ListByMedia("media-1")
	require.NoError(t, err)
	require.Len(t, frames, 2)
	require.Equal(t, "failed", frames[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
