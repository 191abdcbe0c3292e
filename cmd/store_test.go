//go:build !integration

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crm-cli/internal/actor"
	"github.com/sells-group/crm-cli/internal/config"
	"github.com/sells-group/crm-cli/internal/store"
)

// useSQLite points cfg at a fresh SQLite file and returns an actor context.
func useSQLite(t *testing.T) context.Context {
	t.Helper()
	cfg = &config.Config{
		Store:  config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "crm.db")},
		Actor:  config.ActorConfig{UserID: "user-1"},
		Import: config.ImportConfig{ChunkSize: 50, Source: "Apollo", SourceLabel: "Apollo CSV"},
	}
	return actor.WithActor(context.Background(), "user-1")
}

func openTestStore(t *testing.T, ctx context.Context) store.Store {
	t.Helper()
	st, err := initStore(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	return st
}

func TestInitStore_SQLite(t *testing.T) {
	ctx := useSQLite(t)

	st := openTestStore(t, ctx)
	require.NoError(t, st.Ping(ctx))

	leads, err := st.ListLeads(ctx, store.LeadFilter{})
	require.NoError(t, err)
	assert.Empty(t, leads)
}

func TestInitStore_SQLiteDefaultDSN(t *testing.T) {
	tmpDir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(tmpDir))
	defer os.Chdir(origDir) //nolint:errcheck

	cfg = &config.Config{Store: config.StoreConfig{Driver: "sqlite"}}

	st, err := initStore(context.Background())
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	_, statErr := os.Stat(filepath.Join(tmpDir, defaultSQLitePath))
	assert.NoError(t, statErr)
}

func TestInitStore_UnsupportedDriver(t *testing.T) {
	cfg = &config.Config{Store: config.StoreConfig{Driver: "mysql"}}

	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver: mysql")
}

func TestInitStore_PostgresBadURL(t *testing.T) {
	cfg = &config.Config{Store: config.StoreConfig{Driver: "postgres", DatabaseURL: "://not a url"}}

	_, err := initStore(context.Background())
	assert.Error(t, err)
}
