package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJsonLinesRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	log := NewJsonLinesLogRecorder(&buf).NewSession()

	require.NoError(t, log.Record(&SessionStart{Pid: 100, Pgid: 100, Reaper: "polling"}))
	require.NoError(t, log.Record(&Spawn{Pid: 101, Stage: 1, Command: "echo hello", Foreground: true}))
	require.NoError(t, log.Record(&Reap{Pid: 101, Result: "exited"}))

	var entries []*LogEntry
	require.NoError(t, ReadJSONLinesLog(&buf, func(le *LogEntry) {
		entries = append(entries, le)
	}))
	require.Len(t, entries, 3)

	for _, le := range entries {
		assert.Equal(t, entries[0].SessionID, le.SessionID, "session ID should be shared")
		assert.NotZero(t, le.TimestampMicros)
	}

	require.NotNil(t, entries[1].Spawn)
	assert.Equal(t, 101, entries[1].Spawn.Pid)
	assert.Equal(t, "echo hello", entries[1].Spawn.Command)
	require.NotNil(t, entries[2].Reap)
	assert.Equal(t, "exited", entries[2].Reap.Result)
}

func TestSessionLoggerNil(t *testing.T) {
	// Recording with no sink configured is a no-op, not a crash.
	var log *SessionLogger
	assert.NoError(t, log.Record(&SessionEnd{}))

	log = (&Logger{}).NewSession()
	assert.NoError(t, log.Record(&SessionEnd{}))
}

func TestSessionIDsDistinct(t *testing.T) {
	logger := NewJsonLinesLogRecorder(&bytes.Buffer{})
	a := logger.NewSession()
	b := logger.NewSession()
	assert.NotEqual(t, a.sessionID, b.sessionID)
}
