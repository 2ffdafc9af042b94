package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "anonymous", cfg.Owner)
	assert.Equal(t, "http://localhost:5000", cfg.Solver.Host)
	assert.Equal(t, "http://localhost:5001", cfg.History.Host)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Retrieval.Enabled)
	assert.Equal(t, 2, cfg.Retrieval.K)
	assert.False(t, cfg.Reporting.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "settings.yaml")
	content := `
owner: alice
solver:
  host: http://solver.internal:8080
logging:
  level: debug
retrieval:
  k: 4
`
	require.NoError(t, os.WriteFile(cfgFile, []byte(content), 0644))

	cfg, err := Load(cfgFile)
	require.NoError(t, err)

	assert.Equal(t, "alice", cfg.Owner)
	assert.Equal(t, "http://solver.internal:8080", cfg.Solver.Host)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 4, cfg.Retrieval.K)
	// Untouched keys keep their defaults.
	assert.Equal(t, "http://localhost:5001", cfg.History.Host)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	// An explicit --config path that does not exist yet is not an
	// error; defaults apply as if no file were given.
	cfg, err := Load(filepath.Join(t.TempDir(), "nope", "settings.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "anonymous", cfg.Owner)
	assert.Equal(t, "http://localhost:5000", cfg.Solver.Host)
}

func TestLoadMalformedFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfgFile := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("owner: [unterminated"), 0644))

	_, err := Load(cfgFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestGetBeforeLoad(t *testing.T) {
	mu.Lock()
	saved := global
	global = nil
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		global = saved
		mu.Unlock()
	})

	cfg := Get()
	require.NotNil(t, cfg)
	assert.Equal(t, "", cfg.Owner)
}

func TestBuildSettingsPath(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("config.path", "/tmp/optsolve-test")
	assert.Equal(t, filepath.Join("/tmp/optsolve-test", "optsolve.log"), BuildSettingsPath("optsolve.log"))
}
