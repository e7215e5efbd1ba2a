package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogOutputDashboardDiscardsByDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.log")

	for _, level := range []string{"", "info", "warn", "error"} {
		w, closeLog, err := logOutput("dashboard", level, path, false)
		require.NoError(t, err)
		assert.Equal(t, io.Discard, w, level)
		require.NoError(t, closeLog())
	}
	assert.NoFileExists(t, path)
}

func TestLogOutputDashboardDebugWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.log")

	w, closeLog, err := logOutput("Dashboard", "debug", path, false)
	require.NoError(t, err)
	assert.NotEqual(t, os.Stderr, w)
	assert.NotEqual(t, os.Stdout, w)

	slog.New(slog.NewJSONHandler(w, nil)).Info("feed open")
	require.NoError(t, closeLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"feed open"`)
}

func TestLogOutputOtherModes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.log")

	w, _, err := logOutput("dashboard", "debug", path, true)
	require.NoError(t, err)
	assert.Equal(t, os.Stderr, w)

	w, _, err = logOutput("headless", "info", path, false)
	require.NoError(t, err)
	assert.Equal(t, os.Stdout, w)

	w, _, err = logOutput("backend", "debug", path, false)
	require.NoError(t, err)
	assert.Equal(t, os.Stdout, w)
	assert.NoFileExists(t, path)
}

func TestLogOutputBadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "console.log")
	_, _, err := logOutput("dashboard", "debug", path, false)
	assert.Error(t, err)
}
