package commit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/csvimport/internal/core"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLSTATE codes with a dedicated per-row message.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// ContextCheckInterval is how many rows are inserted between cancellation checks.
var ContextCheckInterval = 100

const schemaSQL = `
CREATE TABLE IF NOT EXISTS import_batches (
	id             UUID PRIMARY KEY,
	entity         TEXT NOT NULL,
	file_name      TEXT,
	actor          TEXT,
	source_ip      TEXT,
	user_agent     TEXT,
	context        JSONB,
	rows_submitted INTEGER NOT NULL DEFAULT 0,
	rows_inserted  INTEGER NOT NULL DEFAULT 0,
	rows_rejected  INTEGER NOT NULL DEFAULT 0,
	status         TEXT NOT NULL DEFAULT 'active',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	rolled_back_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS import_records (
	id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	batch_id   UUID NOT NULL REFERENCES import_batches(id),
	entity     TEXT NOT NULL,
	row_key    TEXT,
	data       JSONB NOT NULL,
	context    JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS import_records_entity_row_key
	ON import_records (entity, row_key) WHERE row_key IS NOT NULL;

CREATE INDEX IF NOT EXISTS import_records_batch_id ON import_records (batch_id);
`

// KeyFieldsFunc returns the field keys that identify a record of entity.
type KeyFieldsFunc func(entity string) []string

// RegistryKeyFields reads unique keys from the entity registry.
func RegistryKeyFields(entity string) []string {
	def, ok := core.Get(entity)
	if !ok {
		return nil
	}
	return def.Info.UniqueKey
}

// PostgresCommitter stores batches in import_records, one transaction per
// batch. Each row is inserted under its own savepoint so a rejected row
// does not abort the rest of the batch.
type PostgresCommitter struct {
	pool      *pgxpool.Pool
	keyFields KeyFieldsFunc
}

// NewPostgresCommitter creates a committer on pool. A nil keyFields uses
// RegistryKeyFields.
func NewPostgresCommitter(pool *pgxpool.Pool, keyFields KeyFieldsFunc) *PostgresCommitter {
	if keyFields == nil {
		keyFields = RegistryKeyFields
	}
	return &PostgresCommitter{pool: pool, keyFields: keyFields}
}

// EnsureSchema creates the import tables if they do not exist.
func (c *PostgresCommitter) EnsureSchema(ctx context.Context) error {
	if _, err := c.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure import schema: %w", err)
	}
	return nil
}

// Ping checks that the database is reachable.
func (c *PostgresCommitter) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// CommitBatch implements core.Committer.
func (c *PostgresCommitter) CommitBatch(ctx context.Context, req core.CommitRequest) (core.CommitResponse, error) {
	var resp core.CommitResponse

	batchID := core.ToPgUUID(req.BatchID)
	if !batchID.Valid {
		return resp, fmt.Errorf("invalid batch ID %q", req.BatchID)
	}
	keyFields := c.keyFields(req.Entity)
	meta := core.RequestMetaFromContext(ctx)

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return resp, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after commit

	_, err = tx.Exec(ctx, `
		INSERT INTO import_batches (id, entity, file_name, actor, source_ip, user_agent, context, rows_submitted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		batchID, req.Entity, core.ToPgText(req.FileName),
		core.ToPgText(meta.Actor), core.ToPgText(meta.IPAddress), core.ToPgText(meta.UserAgent),
		req.ContextParams, len(req.Rows),
	)
	if err != nil {
		return resp, fmt.Errorf("record batch: %w", err)
	}

	resp.Errors = []core.CommitRowError{}
	for i, row := range req.Rows {
		position := i + 1

		if i%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return core.CommitResponse{}, fmt.Errorf("cancelled at row %d: %w", position, err)
			}
		}

		savepoint := fmt.Sprintf("sp_%d", position)
		if _, err := tx.Exec(ctx, "SAVEPOINT "+savepoint); err != nil {
			return core.CommitResponse{}, fmt.Errorf("savepoint at row %d: %w", position, err)
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO import_records (batch_id, entity, row_key, data, context)
			VALUES ($1, $2, $3, $4, $5)`,
			batchID, req.Entity, rowKey(row, keyFields), row, req.ContextParams,
		)
		if err != nil {
			reason, perRow := rowErrorMessage(err)
			if !perRow {
				return core.CommitResponse{}, fmt.Errorf("insert row %d: %w", position, err)
			}
			if _, rbErr := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
				return core.CommitResponse{}, fmt.Errorf("rollback savepoint at row %d: %w", position, rbErr)
			}
			resp.Errors = append(resp.Errors, core.CommitRowError{Row: position, Error: reason})
			resp.Failed++
			continue
		}

		if _, err := tx.Exec(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
			return core.CommitResponse{}, fmt.Errorf("release savepoint at row %d: %w", position, err)
		}
		resp.Success++
	}

	_, err = tx.Exec(ctx,
		`UPDATE import_batches SET rows_inserted = $2, rows_rejected = $3 WHERE id = $1`,
		batchID, resp.Success, resp.Failed,
	)
	if err != nil {
		return core.CommitResponse{}, fmt.Errorf("update batch counts: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return core.CommitResponse{}, fmt.Errorf("commit transaction: %w", err)
	}

	slog.DebugContext(ctx, "postgres batch stored",
		"batch_id", req.BatchID,
		"entity", req.Entity,
		"inserted", resp.Success,
		"rejected", resp.Failed,
	)

	return resp, nil
}

// RollbackBatch deletes every record a batch inserted and marks the batch
// rolled back. Returns core.ErrBatchNotFound for unknown or already
// rolled-back batches.
func (c *PostgresCommitter) RollbackBatch(ctx context.Context, batchID string) (int64, error) {
	id := core.ToPgUUID(batchID)
	if !id.Valid {
		return 0, fmt.Errorf("%w: invalid batch ID %q", core.ErrBatchNotFound, batchID)
	}

	var deleted int64
	err := pgx.BeginFunc(ctx, c.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE import_batches SET status = 'rolled_back', rolled_back_at = now()
			WHERE id = $1 AND status = 'active'`, id)
		if err != nil {
			return fmt.Errorf("mark batch rolled back: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return core.ErrBatchNotFound
		}

		tag, err = tx.Exec(ctx, `DELETE FROM import_records WHERE batch_id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete batch records: %w", err)
		}
		deleted = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// rowErrorMessage turns an insert failure into a per-row reason. perRow is
// false for errors that are not about the row itself, such as a dropped
// connection; those abort the whole batch.
func rowErrorMessage(err error) (reason string, perRow bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}

	switch {
	case pgErr.Code == pgUniqueViolation:
		return "duplicate", true
	case pgErr.Code == pgForeignKeyViolation:
		return core.MapError(err).Message, true
	case strings.HasPrefix(pgErr.Code, "22"), strings.HasPrefix(pgErr.Code, "23"):
		// data exceptions and other integrity violations
		if core.IsUserFacing(err) {
			return core.MapError(err).Message, true
		}
		return pgErr.Message, true
	default:
		return "", false
	}
}

// rowKey joins the key field values. Rows missing any key value get a NULL
// key and are never treated as duplicates.
func rowKey(row map[string]string, fields []string) *string {
	if len(fields) == 0 {
		return nil
	}
	parts := make([]string, len(fields))
	for i, f := range fields {
		v := strings.TrimSpace(row[f])
		if v == "" {
			return nil
		}
		parts[i] = strings.ToLower(v)
	}
	key := strings.Join(parts, "\x1f")
	return &key
}

// ListBatches returns the most recent batches, newest first. An empty entity
// lists all entities.
func (c *PostgresCommitter) ListBatches(ctx context.Context, entity string, limit int) ([]core.BatchSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := c.pool.Query(ctx, `
		SELECT id, entity, file_name, actor, rows_inserted, rows_rejected, status, created_at, rolled_back_at
		FROM import_batches
		WHERE $1 = '' OR entity = $1
		ORDER BY created_at DESC
		LIMIT $2`, entity, limit)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	batches := []core.BatchSummary{}
	for rows.Next() {
		var (
			id         pgtype.UUID
			fileName   pgtype.Text
			actor      pgtype.Text
			rolledBack pgtype.Timestamptz
			b          core.BatchSummary
		)
		if err := rows.Scan(&id, &b.Entity, &fileName, &actor, &b.RowsInserted, &b.RowsRejected,
			&b.Status, &b.CreatedAt, &rolledBack); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		b.ID = core.PgUUIDToString(id)
		b.FileName = fileName.String
		b.Actor = actor.String
		if rolledBack.Valid {
			t := rolledBack.Time
			b.RolledBackAt = &t
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}
