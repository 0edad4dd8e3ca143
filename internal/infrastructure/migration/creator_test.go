package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/erp/stockcore/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add lot expiry index", "add_lot_expiry_index"},
		{"Add-Serial-Warranty", "add_serial_warranty"},
		{"ADD_OUTBOX_TABLE", "add_outbox_table"},
		{"add__reorder__rules", "add_reorder_rules"},
		{"Add Counts 123", "add_counts_123"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

	mf, err := createMigrationAt(dir, "add lot expiry index", "Index lots by expiry date", now)
	require.NoError(t, err)

	assert.Equal(t, "20261016093000", mf.Version)
	assert.Equal(t, filepath.Join(dir, "20261016093000_add_lot_expiry_index.up.sql"), mf.UpPath)
	assert.Equal(t, filepath.Join(dir, "20261016093000_add_lot_expiry_index.down.sql"), mf.DownPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "add lot expiry index")
	assert.Contains(t, string(up), "Index lots by expiry date")
	assert.Contains(t, string(up), "tenant_id")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "Rollback")
}

func TestCreateMigration_RefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

	_, err := createMigrationAt(dir, "same", "", now)
	require.NoError(t, err)
	_, err = createMigrationAt(dir, "same", "", now)
	assert.Error(t, err)
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestCreateMigration_CreatesDirectory(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "nested", "migrations")

	_, err := CreateMigration(nested, "test", "test migration")
	require.NoError(t, err)

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"20261002000000_add_serials.up.sql":   {Data: []byte("--")},
		"20261002000000_add_serials.down.sql": {Data: []byte("--")},
		"20261001000000_init.up.sql":          {Data: []byte("--")},
		"20261001000000_init.down.sql":        {Data: []byte("--")},
		"README.md":                           {Data: []byte("docs")},
		"nested.up.sql/keep":                  {Data: []byte("")},
	}

	names, err := ListMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"20261001000000_init", "20261002000000_add_serials"}, names)
}

func TestListMigrations_NonexistentDirectory(t *testing.T) {
	names, err := ListMigrations(os.DirFS("/nonexistent/path/to/migrations"))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	names, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, names)

	for _, name := range names {
		_, err := migrations.FS.Open(name + downSuffix)
		assert.NoError(t, err, "missing down migration for %s", name)
		assert.False(t, strings.ContainsAny(name, " -"), name)
	}
}
