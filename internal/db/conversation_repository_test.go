package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/santyhornia-creator/hibot-etl-script/internal/models"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepository(t *testing.T) (*ConversationRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewConversationRepository(mock), mock
}

func sampleRows() []models.Conversation {
	status := "closed"
	return []models.Conversation{
		{ID: "c1", Status: &status},
		{ID: "c2"},
	}
}

func TestBuildUpsertQuery(t *testing.T) {
	query := buildUpsertQuery()

	assert.True(t, strings.HasPrefix(query, "INSERT INTO conversations (id, "))
	assert.Contains(t, query, "ON CONFLICT (id) DO UPDATE SET")

	// Every non-key column appears exactly once in the conflict clause.
	for _, col := range models.ColumnNames() {
		if col == "id" {
			continue
		}
		clause := fmt.Sprintf("%s = EXCLUDED.%s", col, col)
		assert.Equal(t, 1, strings.Count(query, clause), "missing or duplicated update for %s", col)
	}

	// The key column is never updated.
	assert.NotContains(t, query, "id = EXCLUDED.id")

	// last_synced_at is reset on every write.
	assert.Contains(t, query, "last_synced_at = (CURRENT_TIMESTAMP AT TIME ZONE 'UTC')")

	// One placeholder per column.
	assert.Equal(t, len(models.ColumnNames()), strings.Count(query, "$"))
}

func TestValuesMatchColumnOrder(t *testing.T) {
	now := time.Now()
	status := "closed"
	row := models.Conversation{
		ID:      "c1",
		Created: &now,
		Status:  &status,
	}

	values := row.Values()
	cols := models.ColumnNames()
	require.Equal(t, len(cols), len(values))

	assert.Equal(t, "c1", values[0])

	for i, col := range cols {
		switch col {
		case "created":
			assert.Equal(t, &now, values[i])
		case "status":
			assert.Equal(t, &status, values[i])
		}
	}
}

func TestCreateTableCoversAllColumns(t *testing.T) {
	for _, col := range models.ColumnNames() {
		assert.Contains(t, createTableQuery, col)
	}
	assert.Contains(t, createTableQuery, "id VARCHAR(255) PRIMARY KEY")
	assert.Contains(t, createTableQuery, "last_synced_at TIMESTAMPTZ DEFAULT")
}

func TestMonthWindow(t *testing.T) {
	loc, err := time.LoadLocation("America/Argentina/Buenos_Aires")
	require.NoError(t, err)

	t.Run("start mid-month snaps to the 1st", func(t *testing.T) {
		from, to := MonthWindow(time.Date(2024, 9, 2, 0, 0, 0, 0, loc))
		assert.Equal(t, time.Date(2024, 9, 1, 0, 0, 0, 0, loc), from)
		assert.Equal(t, time.Date(2024, 10, 1, 0, 0, 0, 0, loc), to)
	})

	t.Run("december rolls into january", func(t *testing.T) {
		from, to := MonthWindow(time.Date(2024, 12, 15, 10, 0, 0, 0, loc))
		assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, loc), from)
		assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, loc), to)
	})
}

func TestEnsureSchema(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(createTableQuery).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, repo.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBatch(t *testing.T) {
	t.Run("commits the whole batch on success", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		rows := sampleRows()

		mock.ExpectBegin()
		batch := mock.ExpectBatch()
		batch.ExpectExec(buildUpsertQuery()).
			WithArgs(rows[0].Values()...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		batch.ExpectExec(buildUpsertQuery()).
			WithArgs(rows[1].Values()...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		require.NoError(t, repo.UpsertBatch(context.Background(), rows))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back the whole batch when one row is rejected", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		rows := sampleRows()

		mock.ExpectBegin()
		batch := mock.ExpectBatch()
		batch.ExpectExec(buildUpsertQuery()).
			WithArgs(rows[0].Values()...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		batch.ExpectExec(buildUpsertQuery()).
			WithArgs(rows[1].Values()...).
			WillReturnError(errors.New("value too long for type character varying(255)"))
		mock.ExpectRollback()

		err := repo.UpsertBatch(context.Background(), rows)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "c2")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty batch never touches the store", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		require.NoError(t, repo.UpsertBatch(context.Background(), nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReplaceMonth(t *testing.T) {
	loc, err := time.LoadLocation("America/Argentina/Buenos_Aires")
	require.NoError(t, err)
	monthStart := time.Date(2024, 5, 1, 0, 0, 0, 0, loc)
	from, to := MonthWindow(monthStart)

	t.Run("deletes the month then inserts in one transaction", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		rows := sampleRows()

		mock.ExpectBegin()
		mock.ExpectExec(deleteMonthQuery).
			WithArgs(from, to).
			WillReturnResult(pgxmock.NewResult("DELETE", 10))
		batch := mock.ExpectBatch()
		batch.ExpectExec(buildUpsertQuery()).
			WithArgs(rows[0].Values()...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		batch.ExpectExec(buildUpsertQuery()).
			WithArgs(rows[1].Values()...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		require.NoError(t, repo.ReplaceMonth(context.Background(), monthStart, rows))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when the delete fails", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectBegin()
		mock.ExpectExec(deleteMonthQuery).
			WithArgs(from, to).
			WillReturnError(errors.New("deadlock detected"))
		mock.ExpectRollback()

		err := repo.ReplaceMonth(context.Background(), monthStart, sampleRows())
		require.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when an insert fails after the delete", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		rows := sampleRows()

		mock.ExpectBegin()
		mock.ExpectExec(deleteMonthQuery).
			WithArgs(from, to).
			WillReturnResult(pgxmock.NewResult("DELETE", 10))
		batch := mock.ExpectBatch()
		batch.ExpectExec(buildUpsertQuery()).
			WithArgs(rows[0].Values()...).
			WillReturnError(errors.New("constraint violation"))
		// The second queued row is declared so the mock accepts the batch,
		// but it is never executed: the first failure aborts the batch.
		batch.ExpectExec(buildUpsertQuery()).
			WithArgs(rows[1].Values()...).
			Maybe()
		mock.ExpectRollback()

		err := repo.ReplaceMonth(context.Background(), monthStart, rows)
		require.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestNewDatabaseRequiresDSN(t *testing.T) {
	database, err := NewDatabase(context.Background(), "")
	assert.Error(t, err)
	assert.Nil(t, database)
}
