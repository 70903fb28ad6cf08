package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetFileOutput(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "main.log")

	closeLog, err := SetFileOutput(logPath, slog.LevelInfo)
	require.NoError(t, err)
	t.Cleanup(Init) // restore the stdout loggers for other tests

	Info("file output wired", "component", "test")
	require.NoError(t, closeLog())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "file output wired", entry["msg"])
	assert.Equal(t, "test", entry["component"])
}

func TestNewFileLogger(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "svc", "svc.log")

	logger, closeFunc, err := NewFileLogger(logPath, "inference", slog.LevelInfo)
	require.NoError(t, err)

	logger.Info("scoring request")
	require.NoError(t, closeFunc())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "inference", entry["service"])
	assert.Equal(t, "INFO", entry["level"])
}
