package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrsuite/dtr-engine/config"
)

func TestLoad_NoPath_UsesDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.Addr())
	assert.Equal(t, "dtr.db", cfg.Database.Path)
	assert.Equal(t, 10, cfg.Server.ShutdownGraceSeconds)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:8080"}, cfg.Server.AllowedOrigins)
	assert.Zero(t, cfg.Engine.GraceMinutes)
}

func TestLoad_MissingFile_IsNotAnError(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_FileOverridesOnlyNamedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dtr.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = 9090
allowed_origins = ["https://portal.example.gov"]

[engine]
grace_minutes = 15
include_weekend_remark = true
`), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9090", cfg.Addr(), "host keeps its default")
	assert.Equal(t, []string{"https://portal.example.gov"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 15, cfg.Engine.GraceMinutes)
	assert.True(t, cfg.Engine.IncludeWeekendRemark)
	assert.Equal(t, "dtr.db", cfg.Database.Path)
}

func TestLoad_Unparsable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\nport="), 0o600))

	_, err := config.Load(path)
	assert.Error(t, err)
}
