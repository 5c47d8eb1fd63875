// Package db tests for database migration management.
package db

import (
	"database/sql"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"m/V1__first.up.sql":    {Data: []byte(`CREATE TABLE a (id INTEGER);`)},
		"m/V1__first.down.sql":  {Data: []byte(`DROP TABLE a;`)},
		"m/V2__second.up.sql":   {Data: []byte(`CREATE TABLE b (id INTEGER);`)},
		"m/V2__second.down.sql": {Data: []byte(`DROP TABLE b;`)},
		"m/README.md":           {Data: []byte(`ignored`)},
		"m/Vx__broken.up.sql":   {Data: []byte(`ignored`)},
	}
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&n))
	return n == 1
}

func TestMigrator_UpAppliesInOrder(t *testing.T) {
	db := openMemory(t)
	m := NewMigrator(db, testMigrations(), "m")
	require.NoError(t, m.Initialize())

	require.NoError(t, m.Up())

	version, err := m.CurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 2, version)
	assert.True(t, tableExists(t, db, "a"))
	assert.True(t, tableExists(t, db, "b"))

	applied, err := m.GetAppliedMigrations()
	require.NoError(t, err)
	require.Len(t, applied, 2)
	assert.Equal(t, "first", applied[0].Description)
	assert.Len(t, applied[0].Checksum, 64)
}

func TestMigrator_UpIsIdempotent(t *testing.T) {
	db := openMemory(t)
	m := NewMigrator(db, testMigrations(), "m")
	require.NoError(t, m.Initialize())

	require.NoError(t, m.Up())
	require.NoError(t, m.Up())

	applied, err := m.GetAppliedMigrations()
	require.NoError(t, err)
	assert.Len(t, applied, 2)
}

func TestMigrator_Down(t *testing.T) {
	db := openMemory(t)
	m := NewMigrator(db, testMigrations(), "m")
	require.NoError(t, m.Initialize())
	require.NoError(t, m.Up())

	require.NoError(t, m.Down())

	version, err := m.CurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, version)
	assert.False(t, tableExists(t, db, "b"))
	assert.True(t, tableExists(t, db, "a"))
}

func TestMigrator_DownWithNothingApplied(t *testing.T) {
	db := openMemory(t)
	m := NewMigrator(db, testMigrations(), "m")
	require.NoError(t, m.Initialize())

	assert.Error(t, m.Down())
}

func TestMigrate_Embedded(t *testing.T) {
	db := openMemory(t)

	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))

	assert.True(t, tableExists(t, db, "cached_files"))
}
