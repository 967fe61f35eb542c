package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "http://localhost:5000", cfg.Inference.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Inference.HealthInterval)
	assert.Equal(t, 640, cfg.Camera.Width)
	assert.Equal(t, 640, cfg.Camera.Height)
	assert.Equal(t, 120*time.Millisecond, cfg.Loop.DeferDelay)
	assert.Equal(t, 60*time.Millisecond, cfg.Loop.TickInterval)
	assert.Equal(t, 160, cfg.Loop.InferenceSize)
	assert.Equal(t, 50, cfg.Loop.JPEGQuality)
	assert.Equal(t, 480, cfg.Loop.FallbackSize)
	assert.False(t, cfg.Auth.Enabled)
}

func TestLoadFromEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "INFERENCE_BASE_URL=http://inference:5000/\nTICK_INTERVAL=90\nHEALTH_INTERVAL=2s\nCAMERA_DEVICE=rtsp://cam/stream\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	t.Cleanup(func() {
		for _, k := range []string{"INFERENCE_BASE_URL", "TICK_INTERVAL", "HEALTH_INTERVAL", "CAMERA_DEVICE"} {
			os.Unsetenv(k)
		}
	})

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "http://inference:5000", cfg.Inference.BaseURL)
	assert.Equal(t, 90*time.Millisecond, cfg.Loop.TickInterval)
	assert.Equal(t, 2*time.Second, cfg.Inference.HealthInterval)
	assert.Equal(t, "rtsp://cam/stream", cfg.Camera.Device)
}

func TestLoadMissingEnvFileIsIgnored(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Setenv("JPEG_QUALITY", "0")
	_, err := Load("")
	assert.Error(t, err)
}

func TestValidateRequiresPasswordWhenAuthEnabled(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "true")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_PASSWORD")

	t.Setenv("AUTH_PASSWORD", "secret")
	_, err = Load("")
	assert.NoError(t, err)
}

func TestLoopConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultLoopConfig().Validate())

	loop := DefaultLoopConfig()
	loop.JPEGQuality = 0
	assert.Error(t, loop.Validate())

	loop = DefaultLoopConfig()
	loop.DeferDelay = 0
	assert.Error(t, loop.Validate())
}
