package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLevel(t *testing.T) {
	defer SetLevel("INFO")

	SetLevel("debug")
	assert.Equal(t, LevelDebug, GetLevel())

	SetLevel("WARN")
	assert.Equal(t, LevelWarn, GetLevel())

	// Unknown values leave the level untouched
	SetLevel("verbose")
	assert.Equal(t, LevelWarn, GetLevel())
}

func TestConfigure_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	defer func() {
		_ = Configure(Config{Level: "INFO", Format: "text", Output: "stdout"})
	}()

	require.NoError(t, Configure(Config{Level: "INFO", Format: "json", Output: path}))

	Debug("hidden %d", 1)
	Info("record %s written", "abc")
	require.NoError(t, Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "record abc written", entry["msg"])
}

func TestConfigure_BadOutputFallsBack(t *testing.T) {
	defer func() {
		_ = Configure(Config{Level: "INFO", Format: "text", Output: "stdout"})
	}()

	err := Configure(Config{Format: "text", Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
	assert.Error(t, err)

	// Still usable after the failed configure
	Info("still alive")
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}
