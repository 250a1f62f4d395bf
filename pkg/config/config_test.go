package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Session.HistoryWindow)
	assert.Equal(t, "classroom", cfg.Session.StartLocation)
	assert.Equal(t, 2500*time.Millisecond, cfg.Transition.MinDwell())
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"session": {"history_window": 5}, "transition": {"min_dwell_ms": 100}}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Session.HistoryWindow)
	assert.Equal(t, 100, cfg.Transition.MinDwellMs)
	// Untouched sections keep defaults.
	assert.Equal(t, 18820, cfg.Gateway.Port)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"llm": {"model": "from-file"}}`), 0o600))
	t.Setenv("MISSIONGUIDE_LLM_MODEL", "from-env")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.LLM.Model)
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestResolveCatalogPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/etc/mg", "commands.yaml"),
		ResolveCatalogPath("/etc/mg/config.json", "commands.yaml"))
	assert.Equal(t, "/abs/commands.yaml",
		ResolveCatalogPath("/etc/mg/config.json", "/abs/commands.yaml"))
}
