package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
addr = "127.0.0.1:9000"

[store]
driver = "sqlite"
path = "/tmp/records.db"

[budget]
coverage_factor = 2.5
cmc_factor = 0.001

[balance]
port = "/dev/ttyUSB0"
timeout_ms = 500
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "./web", cfg.Server.WebRoot)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 9600, cfg.Balance.Baud)

	opts := cfg.CalcOptions()
	assert.Equal(t, 2.5, opts.Uncertainty.CoverageFactor)
	assert.Equal(t, "cmc", opts.Fallback.Strategy)
	assert.Equal(t, 0.001, opts.Fallback.Params["relativeFactor"])

	sc := cfg.SerialConfig()
	assert.Equal(t, "/dev/ttyUSB0", sc.Port)
	assert.Equal(t, 500*time.Millisecond, sc.Timeout)
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[store]\ndriver = \"postgres\"\n"), 0600))
	_, err := Load(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("[server\n"), 0600))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	cfg := Default()
	cfg.Log.Level = "debug"
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
