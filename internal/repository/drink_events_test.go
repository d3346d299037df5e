package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupMockDrinkEventsDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *DrinkEventsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewDrinkEventsRepository(db, "u1", zap.NewNop())
	return db, mock, repo
}

func TestEnsureSchema(t *testing.T) {
	db, mock, repo := setupMockDrinkEventsDB(t)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS drink_events`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_Success(t *testing.T) {
	db, mock, repo := setupMockDrinkEventsDB(t)
	defer db.Close()

	at := time.Date(2026, 10, 18, 10, 9, 0, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO drink_events`).
		WithArgs(sqlmock.AnyArg(), "u1", at, 10, 0.25).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ev, err := repo.Append(context.Background(), 0.25, at)
	require.NoError(t, err)
	_, err = uuid.Parse(ev.ID)
	assert.NoError(t, err)
	assert.Equal(t, "u1", ev.UserID)
	assert.Equal(t, 10, ev.Hour)
	assert.Equal(t, 0.25, ev.AmountLiters)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_DBError(t *testing.T) {
	db, mock, repo := setupMockDrinkEventsDB(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO drink_events`).WillReturnError(errors.New("connection reset"))

	ev, err := repo.Append(context.Background(), 0.2, time.Now())
	assert.Nil(t, ev)
	assert.ErrorContains(t, err, "failed to insert drink event")
}

func TestListRange(t *testing.T) {
	db, mock, repo := setupMockDrinkEventsDB(t)
	defer db.Close()

	from := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	id1, id2 := uuid.New().String(), uuid.New().String()
	rows := sqlmock.NewRows([]string{"id", "user_id", "drank_at", "hour", "amount_liters"}).
		AddRow(id1, "u1", from.Add(8*time.Hour), 8, 0.2).
		AddRow(id2, "u1", from.Add(13*time.Hour), 13, 0.3)

	mock.ExpectQuery(`SELECT id, user_id, drank_at, hour, amount_liters`).
		WithArgs("u1", from, to).
		WillReturnRows(rows)

	events, err := repo.ListRange(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, id1, events[0].ID)
	assert.Equal(t, 13, events[1].Hour)
	assert.Equal(t, 0.3, events[1].AmountLiters)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	db, mock, repo := setupMockDrinkEventsDB(t)
	defer db.Close()

	id := uuid.New().String()
	mock.ExpectExec(`DELETE FROM drink_events WHERE id = \$1 AND user_id = \$2`).
		WithArgs(id, "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM drink_events WHERE id = \$1 AND user_id = \$2`).
		WithArgs("missing", "u1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.Delete(context.Background(), id))
	assert.ErrorIs(t, repo.Delete(context.Background(), "missing"), ErrDrinkNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAll(t *testing.T) {
	db, mock, repo := setupMockDrinkEventsDB(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM drink_events WHERE user_id = \$1`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 7))

	assert.NoError(t, repo.DeleteAll(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
