package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emolens/internal/config"
	"emolens/internal/logger"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())
	return db
}

func TestConfigCRUD(t *testing.T) {
	db := openTestDB(t)

	value, err := db.GetConfig("missing")
	require.NoError(t, err)
	assert.Empty(t, value)

	require.NoError(t, db.SaveConfig("a", "1"))
	require.NoError(t, db.SaveConfig("a", "2"))
	require.NoError(t, db.SaveConfig("b", "x"))

	value, err = db.GetConfig("a")
	require.NoError(t, err)
	assert.Equal(t, "2", value)

	rec, err := db.GetConfigRecord("a")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "2", rec.Value)

	all, err := db.ListConfigs()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "2", "b": "x"}, all)

	require.NoError(t, db.DeleteConfig("a"))
	rec, err = db.GetConfigRecord("a")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, db.Migrate())
}

func TestLoopSettingsRoundTrip(t *testing.T) {
	db := openTestDB(t)
	base := config.DefaultLoopConfig()

	cfg, err := db.LoadLoopConfig(base)
	require.NoError(t, err)
	assert.Equal(t, base, cfg)

	require.NoError(t, db.SaveLoopSettings(LoopSettings{DeferDelayMs: 200, TickIntervalMs: 0, JPEGQuality: 70}))

	cfg, err = db.LoadLoopConfig(base)
	require.NoError(t, err)
	assert.Equal(t, 200*time.Millisecond, cfg.DeferDelay)
	assert.Equal(t, time.Duration(0), cfg.TickInterval)
	assert.Equal(t, 70, cfg.JPEGQuality)
	assert.Equal(t, base.InferenceSize, cfg.InferenceSize)
}

func TestLoadLoopConfigIgnoresBadValues(t *testing.T) {
	db := openTestDB(t)
	base := config.DefaultLoopConfig()

	require.NoError(t, db.SaveConfig(KeyTickInterval, "soon"))
	require.NoError(t, db.SaveConfig(KeyDeferDelay, "90"))
	cfg, err := db.LoadLoopConfig(base)
	require.NoError(t, err)
	assert.Equal(t, base.TickInterval, cfg.TickInterval)
	assert.Equal(t, 90*time.Millisecond, cfg.DeferDelay)

	require.NoError(t, db.SaveConfig(KeyJPEGQuality, "500"))
	cfg, err = db.LoadLoopConfig(base)
	require.NoError(t, err)
	assert.Equal(t, base, cfg)
}

func TestSettingsFromLoop(t *testing.T) {
	s := SettingsFromLoop(config.DefaultLoopConfig())
	assert.Equal(t, LoopSettings{DeferDelayMs: 120, TickIntervalMs: 60, JPEGQuality: 50}, s)
	assert.Equal(t, config.DefaultLoopConfig(), s.Apply(config.DefaultLoopConfig()))
}
