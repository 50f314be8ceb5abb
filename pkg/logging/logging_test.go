package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	return lines
}

func initTestLogger(t *testing.T, level LogLevel) (string, string) {
	t.Helper()
	dir := t.TempDir()
	logPath := filepath.Join(dir, "tweaker.log")
	eventsPath := filepath.Join(dir, "events.jsonl")
	require.NoError(t, InitWithConfig(LoggerConfig{
		LogPath:    logPath,
		EventsPath: eventsPath,
		Level:      level,
		SessionID:  "session-1",
	}))
	t.Cleanup(CloseLogger)
	return logPath, eventsPath
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
		ok   bool
	}{
		{"error", LevelError, true},
		{"WARNING", LevelWarn, true},
		{"", LevelInfo, true},
		{" debug ", LevelDebug, true},
		{"verbose", LevelInfo, false},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.ok {
			require.NoError(t, err, tt.in)
		} else {
			require.Error(t, err, tt.in)
		}
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestLogWritesMainLineAndJSONMirror(t *testing.T) {
	logPath, eventsPath := initTestLogger(t, LevelInfo)

	Info("Starting: Disable Telemetry", "category", "essential")
	Debug("not written at info level")

	lines := readLines(t, logPath)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "INFO  Starting: Disable Telemetry category=essential")
	assert.True(t, strings.HasPrefix(lines[0], "["))

	events := readLines(t, eventsPath)
	require.Len(t, events, 1)
	var entry LogEntry
	require.NoError(t, json.Unmarshal([]byte(events[0]), &entry))
	assert.Equal(t, "INFO", entry.Level)
	assert.Equal(t, "session-1", entry.SessionID)
	assert.Equal(t, "essential", entry.Properties["category"])
	assert.Equal(t, "session-1", GetSessionID())
	assert.Equal(t, logPath, GetLogPath())
}

func TestLogAppendsAcrossSessions(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "tweaker.log")
	for i := 0; i < 2; i++ {
		require.NoError(t, InitWithConfig(LoggerConfig{LogPath: logPath, Level: LevelInfo}))
		Warn("run", "n", i)
		CloseLogger()
	}
	assert.Len(t, readLines(t, logPath), 2)
}

func TestLifecycleHelpers(t *testing.T) {
	logPath, eventsPath := initTestLogger(t, LevelDebug)

	LogTweakStart("essential", "Create Restore Point")
	LogTweakComplete("essential", "Create Restore Point", 1500*time.Millisecond)
	LogTweakFailed("essential", "Delete Temporary Files", "action", errors.New("access denied"), time.Second)
	LogRunComplete("essential", "run-1", 1, 1, 0, 3*time.Second)

	joined := strings.Join(readLines(t, logPath), "\n")
	assert.Contains(t, joined, "Starting: Create Restore Point")
	assert.Contains(t, joined, "Completed: Create Restore Point")
	assert.Contains(t, joined, "Failed: Delete Temporary Files - access denied")
	assert.Contains(t, joined, "Execution Complete: Applied 1 tweaks!")

	assert.Len(t, readLines(t, eventsPath), 4)
}

func TestConsoleEcho(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer
	require.NoError(t, InitWithConfig(LoggerConfig{
		LogPath:       filepath.Join(dir, "tweaker.log"),
		Level:         LevelInfo,
		EnableConsole: true,
		Console:       &console,
	}))
	t.Cleanup(CloseLogger)

	Error("boom")
	assert.Contains(t, console.String(), "ERROR boom")
}

func TestConsoleLoggerPrefixesTimestamp(t *testing.T) {
	var buf bytes.Buffer
	l := New(true)
	l.SetOutput(&buf)
	l.Success("Applied %d tweaks", 3)
	assert.Contains(t, buf.String(), "Applied 3 tweaks")
	assert.Contains(t, buf.String(), colorGreen)
}
