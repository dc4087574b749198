package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// LogEntry is one recorded shell event. Exactly one of the event fields is
// set per entry.
type LogEntry struct {
	// TimestampMicros is the time the entry was recorded in microseconds
	// since the UNIX epoch.
	TimestampMicros int64  `json:"timestamp_micros"`
	SessionID       string `json:"session_id,omitempty"`

	SessionStart    *SessionStart    `json:"session_start,omitempty"`
	SessionEnd      *SessionEnd      `json:"session_end,omitempty"`
	Pipeline        *Pipeline        `json:"pipeline,omitempty"`
	Spawn           *Spawn           `json:"spawn,omitempty"`
	Reap            *Reap            `json:"reap,omitempty"`
	TerminalWarning *TerminalWarning `json:"terminal_warning,omitempty"`
	Kill            *Kill            `json:"kill,omitempty"`
}

// Event is one of the event types a LogEntry can hold.
type Event interface {
	attach(le *LogEntry)
}

// SessionStart is recorded once when the interactive loop begins.
type SessionStart struct {
	Pid    int    `json:"pid"`
	Pgid   int    `json:"pgid"`
	Reaper string `json:"reaper"`
}

func (e *SessionStart) attach(le *LogEntry) { le.SessionStart = e }

// SessionEnd is recorded on orderly shutdown, after the kill sweep.
type SessionEnd struct{}

func (e *SessionEnd) attach(le *LogEntry) { le.SessionEnd = e }

// Pipeline is recorded once per submitted command line.
type Pipeline struct {
	Line       string `json:"line"`
	Stages     int    `json:"stages"`
	Background bool   `json:"background,omitempty"`
	// FailedStage is the 1-based index of the failed stage, 0 on success.
	FailedStage int `json:"failed_stage,omitempty"`
}

func (e *Pipeline) attach(le *LogEntry) { le.Pipeline = e }

// Spawn is recorded for every child process started.
type Spawn struct {
	Pid        int    `json:"pid"`
	Stage      int    `json:"stage"`
	Command    string `json:"command"`
	Foreground bool   `json:"foreground,omitempty"`
}

func (e *Spawn) attach(le *LogEntry) { le.Spawn = e }

// Reap is recorded for every observed child state change.
type Reap struct {
	Pid int `json:"pid"`
	// Result is one of "exited", "signaled" or "stopped".
	Result string `json:"result"`
}

func (e *Reap) attach(le *LogEntry) { le.Reap = e }

// TerminalWarning is recorded when a terminal-control request is refused.
type TerminalWarning struct {
	Op    string `json:"op"`
	Error string `json:"error"`
}

func (e *TerminalWarning) attach(le *LogEntry) { le.TerminalWarning = e }

// Kill is recorded per child targeted by the shutdown kill sweep.
type Kill struct {
	Pid   int    `json:"pid"`
	Error string `json:"error,omitempty"`
}

func (e *Kill) attach(le *LogEntry) { le.Kill = e }

// LogRecorder is a callback that stores entries in an external datastore.
type LogRecorder func(le *LogEntry) error

// Logger captures shell interaction events.
type Logger struct {
	Record LogRecorder
}

// NewJsonLinesLogRecorder creates a Logger that exports logs in newline
// delimited JSON object format.
func NewJsonLinesLogRecorder(w io.Writer) *Logger {
	return &Logger{
		Record: func(le *LogEntry) error {
			entry, err := json.Marshal(le)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(w, string(entry))
			return err
		},
	}
}

// NewSession creates a logger with an attached session ID.
func (l *Logger) NewSession() *SessionLogger {
	return &SessionLogger{logger: l, sessionID: uuid.NewString()}
}

// SessionLogger logs events with a shared session ID. A nil SessionLogger
// discards everything, so callers never need to guard recording.
type SessionLogger struct {
	logger    *Logger
	sessionID string
}

// Record stores a single event.
func (l *SessionLogger) Record(event Event) error {
	if l == nil || l.logger == nil || l.logger.Record == nil {
		return nil
	}

	le := &LogEntry{
		TimestampMicros: time.Now().UnixMicro(),
		SessionID:       l.sessionID,
	}
	event.attach(le)

	return l.logger.Record(le)
}

// ReadJSONLinesLog parses a newline delimited JSON log.
func ReadJSONLinesLog(r io.Reader, handler func(le *LogEntry)) error {
	decoder := json.NewDecoder(r)
	for decoder.More() {
		var logEntry LogEntry
		if err := decoder.Decode(&logEntry); err != nil {
			return err
		}

		handler(&logEntry)
	}
	return nil
}
