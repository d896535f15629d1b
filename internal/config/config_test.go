package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileDefaults(t *testing.T) {
	home := t.TempDir()
	cfg, err := LoadFile(filepath.Join(home, "missing.toml"), home)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "chatmerge", "chatmerge.db"), cfg.DBPath)
	assert.Equal(t, 20, cfg.TopN)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.Sources)
	assert.False(t, cfg.SkipMalformed)
}

func TestLoadFileOverrides(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
sources = ["~/exports/2022", "/data/result.json"]
db_path = "~/cache/chat.db"
workers = 4
skip_malformed = true
top_n = 5
log_level = "debug"
metrics_file = "~/metrics/chatmerge.prom"
`), 0o644))

	cfg, err := LoadFile(path, home)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(home, "exports", "2022"), "/data/result.json"}, cfg.Sources)
	assert.Equal(t, filepath.Join(home, "cache", "chat.db"), cfg.DBPath)
	assert.Equal(t, 4, cfg.Workers)
	assert.True(t, cfg.SkipMalformed)
	assert.Equal(t, 5, cfg.TopN)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, filepath.Join(home, "metrics", "chatmerge.prom"), cfg.MetricsFile)
}

func TestLoadFileRejectsBadInput(t *testing.T) {
	home := t.TempDir()
	for name, body := range map[string]string{
		"syntax":   `sources = [`,
		"unknown":  `db = "~/chat.db"`,
		"negative": `workers = -1`,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(home, name+".toml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := LoadFile(path, home)
			assert.Error(t, err)
		})
	}
}

func TestPathFromEnv(t *testing.T) {
	t.Setenv(EnvPath, "/etc/chatmerge.toml")
	p, err := Path()
	require.NoError(t, err)
	assert.Equal(t, "/etc/chatmerge.toml", p)
}

func TestExpandHome(t *testing.T) {
	assert.Equal(t, "/home/u/x", expandHome("~/x", "/home/u"))
	assert.Equal(t, "~", expandHome("~", "/home/u"))
	assert.Equal(t, "/abs", expandHome("/abs", "/home/u"))
}
