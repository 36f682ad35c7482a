package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/santyhornia-creator/hibot-etl-script/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const createTableQuery = `
CREATE TABLE IF NOT EXISTS conversations (
	id VARCHAR(255) PRIMARY KEY,
	typing VARCHAR(255),
	created TIMESTAMPTZ,
	closed TIMESTAMPTZ,
	delegated TIMESTAMPTZ,
	assigned TIMESTAMPTZ,
	attention_time TIMESTAMPTZ,
	duration_ms BIGINT,
	wait_time_ms BIGINT,
	answer_time_ms BIGINT,
	note TEXT,
	status VARCHAR(255),
	agent_name VARCHAR(255),
	channel_type VARCHAR(255),
	campaign_name VARCHAR(255),
	dynamic_field VARCHAR(255),
	external_reference VARCHAR(255),
	last_synced_at TIMESTAMPTZ DEFAULT (CURRENT_TIMESTAMP AT TIME ZONE 'UTC')
)`

const deleteMonthQuery = `DELETE FROM conversations WHERE created >= $1 AND created < $2`

// PgxConn is the slice of pgxpool.Pool the repository needs.
type PgxConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ConversationRepository persists normalized conversations.
type ConversationRepository struct {
	pool PgxConn
}

// NewConversationRepository creates a repository on top of the given pool.
func NewConversationRepository(pool PgxConn) *ConversationRepository {
	return &ConversationRepository{pool: pool}
}

// EnsureSchema creates the conversations table if it does not exist yet.
// Safe to call on every run.
func (r *ConversationRepository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return errors.New("repository is not connected")
	}
	if _, err := r.pool.Exec(ctx, createTableQuery); err != nil {
		return fmt.Errorf("failed to ensure conversations schema: %w", err)
	}
	return nil
}

// UpsertBatch writes all rows in one transaction, inserting new ids and
// overwriting every non-key column of existing ones. last_synced_at is
// reset on every write. The whole batch commits or none of it does.
func (r *ConversationRepository) UpsertBatch(ctx context.Context, rows []models.Conversation) error {
	if r == nil || r.pool == nil {
		return errors.New("repository is not connected")
	}
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := sendRows(ctx, tx, buildUpsertQuery(), rows); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit upsert batch: %w", err)
	}
	return nil
}

// ReplaceMonth deletes every row whose created timestamp falls inside the
// calendar month starting at monthStart, then inserts the fresh batch, all
// in one transaction. Used when the provider is the sole source of truth
// for the in-progress month.
func (r *ConversationRepository) ReplaceMonth(ctx context.Context, monthStart time.Time, rows []models.Conversation) error {
	if r == nil || r.pool == nil {
		return errors.New("repository is not connected")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	from, to := MonthWindow(monthStart)
	if _, err := tx.Exec(ctx, deleteMonthQuery, from, to); err != nil {
		return fmt.Errorf("failed to delete current month rows: %w", err)
	}

	// Rows created before the month window may survive the delete, so the
	// insert keeps the conflict clause rather than assuming a clean slate.
	if err := sendRows(ctx, tx, buildUpsertQuery(), rows); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit month replacement: %w", err)
	}
	return nil
}

func sendRows(ctx context.Context, tx pgx.Tx, query string, rows []models.Conversation) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range rows {
		batch.Queue(query, rows[i].Values()...)
	}

	results := tx.SendBatch(ctx, batch)
	for i := range rows {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("failed to persist conversation %s: %w", rows[i].ID, err)
		}
	}
	return results.Close()
}

// MonthWindow returns the [from, to) bounds of the calendar month that
// contains monthStart, in monthStart's location.
func MonthWindow(monthStart time.Time) (from, to time.Time) {
	loc := monthStart.Location()
	from = time.Date(monthStart.Year(), monthStart.Month(), 1, 0, 0, 0, 0, loc)
	return from, from.AddDate(0, 1, 0)
}

// buildUpsertQuery assembles the single-row upsert statement over the
// canonical column list.
func buildUpsertQuery() string {
	cols := models.ColumnNames()

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	var updates []string
	for _, col := range cols {
		if col == "id" {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}
	updates = append(updates, "last_synced_at = (CURRENT_TIMESTAMP AT TIME ZONE 'UTC')")

	return fmt.Sprintf(
		"INSERT INTO conversations (%s) VALUES (%s) ON CONFLICT (id) DO UPDATE SET %s",
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)
}
