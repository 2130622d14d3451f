package marker

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ccmark.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
listen: ":9000"
db_path: data/vocab.db
rescan_delay: 75ms
sanitize: false
fetch:
  mode: browser
  browser:
    headful: true
    wait_stable: 500ms
    resource_blocking: [image, font]
vocabulary:
  labels: [risk]
  label_colors:
    risk: "#ffcccc"
`)
	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "data/vocab.db", cfg.DBPath)
	assert.Equal(t, 75*time.Millisecond, cfg.RescanDelay)
	assert.Equal(t, time.Second, cfg.RescanMaxWait)
	assert.Equal(t, 200*time.Millisecond, cfg.WatchDebounce)
	assert.False(t, cfg.SanitizeEnabled())
	assert.Equal(t, int64(4<<20), cfg.MaxBody)
	assert.Equal(t, "browser", cfg.Fetch.Mode)
	assert.Equal(t, 30*time.Second, cfg.Fetch.Timeout)
	assert.True(t, cfg.Fetch.Browser.Headful)
	assert.Equal(t, 500*time.Millisecond, cfg.Fetch.Browser.WaitStable)
	assert.Equal(t, []string{"image", "font"}, cfg.Fetch.Browser.ResourceBlocking)
	assert.Equal(t, []string{"risk"}, cfg.Vocabulary.Labels)
}

func TestLoadConfigFile_Defaults(t *testing.T) {
	cfg, err := LoadConfigFile(writeConfig(t, "{}\n"))
	require.NoError(t, err)
	assert.Equal(t, ":8086", cfg.Listen)
	assert.Equal(t, 50*time.Millisecond, cfg.RescanDelay)
	assert.True(t, cfg.SanitizeEnabled())
	assert.Equal(t, "auto", cfg.Fetch.Mode)
}

func TestLoadConfigFile_Invalid(t *testing.T) {
	_, err := LoadConfigFile(writeConfig(t, "fetch:\n  mode: carrier-pigeon\n"))
	assert.Error(t, err)

	_, err = LoadConfigFile(writeConfig(t, "vocabulary:\n  labels: [\"a:b\"]\n"))
	assert.Error(t, err)

	_, err = LoadConfigFile(writeConfig(t, "listen: [\n"))
	assert.Error(t, err)

	_, err = LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
