package logger

// Report holds per-session statistics about the logged events.
type Report struct {
	LogEntries     int                       `json:"log_entries"`
	InvalidEntries int                       `json:"invalid_log_entries,omitempty"`
	Sessions       map[string]*SessionReport `json:"sessions"`
}

// SessionReport summarizes one recorded shell session.
type SessionReport struct {
	Commands     []string `json:"commands"`
	FailedStages int      `json:"failed_stages"`
	Kills        int      `json:"kills"`
	Reaps        int      `json:"reaps"`
	Spawns       int      `json:"spawns"`
	Warnings     int      `json:"warnings"`
}

func (r *Report) session(id string) *SessionReport {
	if r.Sessions == nil {
		r.Sessions = make(map[string]*SessionReport)
	}
	report, ok := r.Sessions[id]
	if !ok {
		report = &SessionReport{}
		r.Sessions[id] = report
	}
	return report
}

// Update folds a single log entry into the report.
func (r *Report) Update(le *LogEntry) {
	r.LogEntries++

	if le.SessionID == "" {
		r.InvalidEntries++
		return
	}
	session := r.session(le.SessionID)

	switch {
	case le.SessionStart != nil, le.SessionEnd != nil:
		// Counted as log entries only.
	case le.Pipeline != nil:
		session.Commands = append(session.Commands, le.Pipeline.Line)
		if le.Pipeline.FailedStage != 0 {
			session.FailedStages++
		}
	case le.Spawn != nil:
		session.Spawns++
	case le.Reap != nil:
		session.Reaps++
	case le.TerminalWarning != nil:
		session.Warnings++
	case le.Kill != nil:
		session.Kills++
	default:
		r.InvalidEntries++
	}
}
