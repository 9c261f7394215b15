package utils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoggerWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "server.log")
	l, err := NewLogger(path, "warn", false)
	require.NoError(t, err)

	l.Info().Msg("dropped")
	l.Warn().Str("list_id", "abc").Msg("kept")
	require.NoError(t, l.reopen())
	l.Error().Msg("after reopen")
	l.Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "warn", entry["level"])
	require.Equal(t, "abc", entry["list_id"])
	require.Equal(t, "kept", entry["message"])
}

func TestLoggerBadLevelFallsBackToInfo(t *testing.T) {
	l, err := NewLogger("", "loud", false)
	require.NoError(t, err)
	require.Equal(t, "info", l.GetLevel().String())
	l.Close()
	l.Close()
}

func TestRotateLogRunsInBackground(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	l, err := NewLogger(path, "info", false)
	require.NoError(t, err)
	defer l.Close()

	done := make(chan struct{})
	go func() {
		l.RotateLog(10 * time.Millisecond)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RotateLog did not return")
	}

	l.Info().Msg("before move")
	require.NoError(t, os.Rename(path, path+".1"))

	// The ticker reopens path, so a later line lands in a fresh file.
	require.Eventually(t, func() bool {
		l.Info().Msg("after move")
		data, err := os.ReadFile(path)
		return err == nil && strings.Contains(string(data), "after move")
	}, 2*time.Second, 20*time.Millisecond)

	old, err := os.ReadFile(path + ".1")
	require.NoError(t, err)
	require.Contains(t, string(old), "before move")
}
