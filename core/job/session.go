// Package job is the job-control engine: it builds pipelines of child
// processes wired through pipes, hands the controlling terminal to
// foreground children, and reaps child state changes either as they happen
// or by polling.
package job

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Mode selects how child state changes are detected.
type Mode int

const (
	// ModeSignal sweeps for state changes whenever SIGCHLD arrives.
	ModeSignal Mode = iota
	// ModePolling sweeps once per prompt round.
	ModePolling
)

func (m Mode) String() string {
	switch m {
	case ModeSignal:
		return "signal-driven"
	case ModePolling:
		return "polling"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Session is the shell's immutable identity: its process and group ids, the
// stdio it was started with, and the reaping mode fixed at startup. Every
// component receives the Session explicitly; nothing consults ambient
// process-wide state.
type Session struct {
	Pid  int
	Pgid int

	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	// IsTerminal reports whether Stdin is a terminal; terminal-ownership
	// transfers are skipped when it is not.
	IsTerminal bool

	Mode Mode
}

// NewSession makes the calling process the leader of its own process group
// and captures its identity.
func NewSession(stdin, stdout, stderr *os.File, mode Mode) (*Session, error) {
	pid := os.Getpid()

	// EPERM means the process already leads its session, which is fine.
	if err := unix.Setpgid(0, 0); err != nil && err != unix.EPERM {
		return nil, fmt.Errorf("could not become a process group leader: %w", err)
	}
	pgid, err := unix.Getpgid(pid)
	if err != nil {
		return nil, fmt.Errorf("could not read own process group: %w", err)
	}

	return &Session{
		Pid:        pid,
		Pgid:       pgid,
		Stdin:      stdin,
		Stdout:     stdout,
		Stderr:     stderr,
		IsTerminal: term.IsTerminal(int(stdin.Fd())),
		Mode:       mode,
	}, nil
}
