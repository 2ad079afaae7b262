package jobrepo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapequation/infomap-go/pkg/config"
)

func TestNewGormDB_Sqlite(t *testing.T) {
	dir := t.TempDir()
	db, err := NewGormDB(&config.DatabaseConfig{
		Type:     "sqlite",
		Database: dir + "/jobrepo.db",
	})
	require.NoError(t, err)
	require.NotNil(t, db)
	require.NoError(t, db.AutoMigrate(&ClusterRun{}))
}

func TestNewGormDB_DefaultsToSqlite(t *testing.T) {
	dir := t.TempDir()
	db, err := NewGormDB(&config.DatabaseConfig{Database: dir + "/default.db"})
	require.NoError(t, err)
	require.NotNil(t, db)
}

func TestNewGormDB_UnsupportedType(t *testing.T) {
	_, err := NewGormDB(&config.DatabaseConfig{Type: "oracle"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")
}

func TestDialectorFor_Postgres(t *testing.T) {
	dialector, err := dialectorFor(&config.DatabaseConfig{
		Type: "postgres", Host: "localhost", Port: 5432, Database: "jobs", User: "u", Password: "p",
	})
	require.NoError(t, err)
	assert.Equal(t, "postgres", dialector.Name())
}

func TestDialectorFor_MySQL(t *testing.T) {
	dialector, err := dialectorFor(&config.DatabaseConfig{
		Type: "mysql", Host: "localhost", Port: 3306, Database: "jobs", User: "u", Password: "p",
	})
	require.NoError(t, err)
	assert.Equal(t, "mysql", dialector.Name())
}
