package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyMigrations_Idempotent(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, ApplyMigrations(ctx, s.db))

	v, err := currentVersion(ctx, s.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v.String())

	var count int
	require.NoError(t, s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&count))
	assert.Equal(t, len(AllMigrations), count)
}

func TestRollbackMigration(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, RollbackMigration(ctx, s.db))

	v, err := currentVersion(ctx, s.db)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", v.String())

	_, err = s.db.ExecContext(ctx, "SELECT label FROM entries")
	assert.Error(t, err)

	// Re-applying brings the label column back
	require.NoError(t, ApplyMigrations(ctx, s.db))
	_, err = s.db.ExecContext(ctx, "SELECT label FROM entries")
	assert.NoError(t, err)
}

func TestRollbackMigration_Base(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, RollbackMigration(ctx, s.db))
	require.NoError(t, RollbackMigration(ctx, s.db))

	v, err := currentVersion(ctx, s.db)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0", v.String())

	assert.Error(t, RollbackMigration(ctx, s.db))
}
