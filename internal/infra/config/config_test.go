package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 300, cfg.Session.RoundDurationSec)
	assert.Equal(t, 8, cfg.Session.MaxRounds)
	assert.Equal(t, 1, cfg.Session.CountdownIntervalSec)
	assert.Equal(t, "stdout", cfg.Log.Output)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
session:
  round_duration_sec: 120
  max_rounds: 3
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 120, cfg.Session.RoundDurationSec)
	assert.Equal(t, 3, cfg.Session.MaxRounds)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Unspecified values still get their defaults.
	assert.Equal(t, 1, cfg.Session.CountdownIntervalSec)
	assert.Equal(t, "stdout", cfg.Log.Output)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
session:
  round_duration_sec: 120
`)

	t.Setenv("JAMBOX_ADDR", ":7070")
	t.Setenv("JAMBOX_ROUND_DURATION_SEC", "60")
	t.Setenv("JAMBOX_MAX_ROUNDS", "5")
	t.Setenv("JAMBOX_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, 60, cfg.Session.RoundDurationSec)
	assert.Equal(t, 5, cfg.Session.MaxRounds)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "negative round duration",
			content: `
session:
  round_duration_sec: -1
`,
		},
		{
			name: "negative max rounds",
			content: `
session:
  max_rounds: -1
`,
		},
		{
			name: "unknown log level",
			content: `
log:
  level: loud
`,
		},
		{
			name: "file output without file path",
			content: `
log:
  output: file
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}
