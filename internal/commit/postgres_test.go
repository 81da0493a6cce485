package commit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/JonMunkholm/csvimport/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowErrorMessage(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantReason string
		wantPerRow bool
	}{
		{
			name:       "unique violation",
			err:        &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"},
			wantReason: "duplicate",
			wantPerRow: true,
		},
		{
			name:       "wrapped unique violation",
			err:        fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}),
			wantReason: "duplicate",
			wantPerRow: true,
		},
		{
			name:       "foreign key violation",
			err:        &pgconn.PgError{Code: "23503", Message: "insert violates foreign key constraint"},
			wantReason: "Referenced record does not exist",
			wantPerRow: true,
		},
		{
			name:       "data exception keeps postgres message",
			err:        &pgconn.PgError{Code: "22001", Message: "value too long for type character varying(10)"},
			wantReason: "value too long for type character varying(10)",
			wantPerRow: true,
		},
		{
			name:       "connection failure aborts batch",
			err:        errors.New("conn closed"),
			wantPerRow: false,
		},
		{
			name:       "serialization failure aborts batch",
			err:        &pgconn.PgError{Code: "40001"},
			wantPerRow: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, perRow := rowErrorMessage(tt.err)
			assert.Equal(t, tt.wantPerRow, perRow)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestRowKey(t *testing.T) {
	assert.Nil(t, rowKey(map[string]string{"a": "1"}, nil))
	assert.Nil(t, rowKey(map[string]string{"a": "1"}, []string{"a", "b"}))

	k := rowKey(map[string]string{"a": " X ", "b": "y"}, []string{"a", "b"})
	require.NotNil(t, k)
	assert.Equal(t, "x\x1fy", *k)
}

// TestPostgresCommitter_Integration runs against a real database when
// TEST_DATABASE_URL is set.
func TestPostgresCommitter_Integration(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	entity := "it_" + uuid.NewString()[:8]
	c := NewPostgresCommitter(pool, emailKey)
	require.NoError(t, c.EnsureSchema(ctx))

	batchID := uuid.NewString()
	resp, err := c.CommitBatch(ctx, core.CommitRequest{
		Entity:  entity,
		BatchID: batchID,
		Rows: []map[string]string{
			{"email": "a@x.com"},
			{"email": "b@x.com"},
			{"email": "A@x.com"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Success)
	assert.Equal(t, []core.CommitRowError{{Row: 3, Error: "duplicate"}}, resp.Errors)

	batches, err := c.ListBatches(ctx, entity, 10)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, batchID, batches[0].ID)
	assert.Equal(t, 2, batches[0].RowsInserted)

	n, err := c.RollbackBatch(ctx, batchID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = c.RollbackBatch(ctx, batchID)
	assert.ErrorIs(t, err, core.ErrBatchNotFound)
}
