package migration_test

import (
	"testing"

	"github.com/erp/stockcore/internal/infrastructure/migration"
	"github.com/erp/stockcore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMigrator_RoundTrip(t *testing.T) {
	pg := testutil.NewPostgresDB(t)
	sqlDB, err := pg.DB.DB()
	require.NoError(t, err)

	m, err := migration.New(sqlDB, zap.NewNop())
	require.NoError(t, err)

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.NotZero(t, version)
	assert.False(t, dirty)

	// already applied by the fixture
	require.NoError(t, m.Up())

	require.NoError(t, m.Down())
	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.False(t, pg.DB.Migrator().HasTable("stocks"))

	require.NoError(t, m.Steps(1))
	assert.True(t, pg.DB.Migrator().HasTable("stocks"))
	assert.True(t, pg.DB.Migrator().HasTable("outbox_events"))
}

func TestMigrator_PendingSuggestionIndexIsPartial(t *testing.T) {
	pg := testutil.NewPostgresDB(t)

	var def string
	require.NoError(t, pg.DB.Raw(
		`SELECT indexdef FROM pg_indexes WHERE indexname = 'idx_suggestion_pending_scope'`,
	).Scan(&def).Error)
	assert.Contains(t, def, "UNIQUE")
	assert.Contains(t, def, "WHERE")
}
