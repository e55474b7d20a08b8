package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jellyjess/nail-salon/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var slotCols = []string{"id", "start_time", "end_time", "available"}

func TestSlotRepo_List(t *testing.T) {
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("available only", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM booking_slots WHERE available = TRUE ORDER BY start_time")).
			WillReturnRows(sqlmock.NewRows(slotCols).AddRow(1, start, start.Add(time.Hour), true))

		slots, err := NewSlotRepo(db).List(context.Background(), true)
		require.NoError(t, err)
		require.Len(t, slots, 1)
		assert.Equal(t, uint64(1), slots[0].ID)
		assert.True(t, slots[0].Available)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty result is an empty slice", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery("FROM booking_slots ORDER BY").WillReturnRows(sqlmock.NewRows(slotCols))

		slots, err := NewSlotRepo(db).List(context.Background(), false)
		require.NoError(t, err)
		assert.NotNil(t, slots)
		assert.Empty(t, slots)
	})
}

func TestSlotRepo_ListBetween(t *testing.T) {
	db, mock := newMock(t)
	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE start_time >= ? AND start_time < ?")).
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows(slotCols).AddRow(2, from.Add(9*time.Hour), from.Add(10*time.Hour), false))

	slots, err := NewSlotRepo(db).ListBetween(context.Background(), from, to, false)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.False(t, slots[0].Available)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepo_GetByID_NotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM booking_slots WHERE id").WithArgs(9).WillReturnRows(sqlmock.NewRows(slotCols))

	_, err := NewSlotRepo(db).GetByID(context.Background(), 9)
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestSlotRepo_BulkCreate(t *testing.T) {
	db, mock := newMock(t)
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	slots := []model.BookingSlot{
		{StartTime: start, EndTime: start.Add(time.Hour), Available: true},
		{StartTime: start.Add(time.Hour), EndTime: start.Add(2 * time.Hour), Available: true},
	}
	mock.ExpectExec(regexp.QuoteMeta("VALUES (?, ?, ?), (?, ?, ?)")).
		WillReturnResult(sqlmock.NewResult(40, 2))

	require.NoError(t, NewSlotRepo(db).BulkCreate(context.Background(), slots))
	assert.Equal(t, uint64(40), slots[0].ID)
	assert.Equal(t, uint64(41), slots[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepo_Delete(t *testing.T) {
	t.Run("available slot", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM booking_slots WHERE id = ? AND available = TRUE")).
			WithArgs(3).WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, NewSlotRepo(db).Delete(context.Background(), 3))
	})

	t.Run("booked slot conflicts", func(t *testing.T) {
		db, mock := newMock(t)
		now := time.Now().UTC()
		mock.ExpectExec("DELETE FROM booking_slots").WithArgs(3).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("FROM booking_slots WHERE id").WithArgs(3).
			WillReturnRows(sqlmock.NewRows(slotCols).AddRow(3, now, now.Add(time.Hour), false))

		assert.ErrorIs(t, NewSlotRepo(db).Delete(context.Background(), 3), ErrConflict)
	})

	t.Run("missing slot", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec("DELETE FROM booking_slots").WithArgs(3).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("FROM booking_slots WHERE id").WithArgs(3).WillReturnRows(sqlmock.NewRows(slotCols))

		assert.ErrorIs(t, NewSlotRepo(db).Delete(context.Background(), 3), ErrSlotNotFound)
	})
}

func TestSlotRepo_DeleteAvailableBetween(t *testing.T) {
	db, mock := newMock(t)
	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("AND available = TRUE FOR UPDATE")).WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4).AddRow(5))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM booking_slots WHERE id IN (?, ?)")).WithArgs(4, 5).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	ids, err := NewSlotRepo(db).DeleteAvailableBetween(context.Background(), from, to)
	require.NoError(t, err)
	assert.Equal(t, []uint64{4, 5}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepo_MarkUnavailableTx(t *testing.T) {
	update := regexp.QuoteMeta("UPDATE booking_slots SET available = FALSE WHERE id = ? AND available = TRUE")

	t.Run("claims a free slot", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(update).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 1))

		tx, err := db.Begin()
		require.NoError(t, err)
		assert.NoError(t, NewSlotRepo(db).MarkUnavailableTx(context.Background(), tx, 7))
	})

	t.Run("taken slot is unavailable", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(update).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 0))

		tx, err := db.Begin()
		require.NoError(t, err)
		assert.ErrorIs(t, NewSlotRepo(db).MarkUnavailableTx(context.Background(), tx, 7), ErrSlotUnavailable)
	})
}

func TestSlotRepo_Update(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now().UTC()
	avail := false
	mock.ExpectExec(regexp.QuoteMeta("UPDATE booking_slots SET available = ? WHERE id = ?")).
		WithArgs(false, 2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM booking_slots WHERE id").WithArgs(2).
		WillReturnRows(sqlmock.NewRows(slotCols).AddRow(2, now, now.Add(time.Hour), false))

	slot, err := NewSlotRepo(db).Update(context.Background(), 2, model.SlotPatch{Available: &avail})
	require.NoError(t, err)
	assert.False(t, slot.Available)
	assert.NoError(t, mock.ExpectationsWereMet())
}
