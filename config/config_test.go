package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthware/aura/config"
)

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "aura", cfg.App.Name)
	assert.Equal(t, "mock", cfg.Embedder.Provider)
	assert.Equal(t, 64, cfg.Memory.ShortTermCapacity)
	assert.Equal(t, 4096, cfg.Memory.LongTermCapacity)
	assert.Equal(t, 0.65, cfg.Memory.PromoteThreshold)
	assert.Equal(t, 0.60, cfg.Router.ConfidenceThreshold)
	assert.Equal(t, 8472, cfg.Gateway.Port)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
memory:
  short_term_capacity: 8
gateway:
  port: 9000
storage:
  backend: badger
  path: /tmp/aura-test
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Memory.ShortTermCapacity)
	assert.Equal(t, 9000, cfg.Gateway.Port)
	assert.Equal(t, "badger", cfg.Storage.Backend)

	// Untouched sections keep their defaults.
	assert.Equal(t, 4096, cfg.Memory.LongTermCapacity)
	assert.Equal(t, "mock", cfg.Embedder.Provider)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gateway:\n  port: 9000\n"), 0o600))

	t.Setenv("AURA_GATEWAY_PORT", "9100")
	t.Setenv("AURA_LOG_LEVEL", "debug")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Gateway.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad log level", "log:\n  level: verbose\n"},
		{"port out of range", "gateway:\n  port: 70000\n"},
		{"negative capacity", "memory:\n  short_term_capacity: -1\n"},
		{"unknown embedder", "embedder:\n  provider: tensorflow\n"},
		{"onnx without model", "embedder:\n  provider: onnx\n"},
		{"badger without path", "storage:\n  backend: badger\n  path: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, err := config.Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoad_RejectsUnknownFileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("x = 1"), 0o600))

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
