package job

import (
	"fmt"
	"io"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"

	"github.com/josephlewis42/minsh/core/logger"
)

// TerminalController issues controlling-terminal ownership transfers. The
// kernel keeps the actual foreground-group state; the controller only knows
// the terminal file and the shell's own group, the default owner it always
// returns to. Every operation is best-effort: a refused transfer leaves a
// warning and the session keeps running.
type TerminalController struct {
	tty       *os.File
	shellPgid int
	isTTY     bool

	stderr io.Writer
	events *logger.SessionLogger
}

// NewTerminalController builds a controller over the session's terminal.
func NewTerminalController(session *Session, events *logger.SessionLogger) *TerminalController {
	return &TerminalController{
		tty:       session.Stdin,
		shellPgid: session.Pgid,
		isTTY:     session.IsTerminal,
		stderr:    session.Stderr,
		events:    events,
	}
}

// Grant attempts to make pgid the terminal's foreground process group.
// Without a terminal it is a no-op.
func (t *TerminalController) Grant(pgid int) {
	if !t.isTTY {
		return
	}

	// Writing the foreground group from a non-foreground process raises
	// SIGTTOU; ignore it for the duration of the transfer. os/signal
	// dispositions do not survive exec, so children still start clean.
	signal.Ignore(unix.SIGTTOU)
	defer signal.Reset(unix.SIGTTOU)

	if err := unix.IoctlSetPointerInt(int(t.tty.Fd()), unix.TIOCSPGRP, pgid); err != nil {
		t.warn("tcsetpgrp", err)
	}
}

// Reclaim returns the terminal to the shell's own group. It is called
// unconditionally after every synchronous wait, including when the waited
// child merely stopped, so the prompt is never left without the terminal.
func (t *TerminalController) Reclaim() {
	t.Grant(t.shellPgid)
}

// ResumeAndGrant hands the terminal to the target process's group and
// delivers a continue signal, ahead of a synchronous wait. Used by fg.
func (t *TerminalController) ResumeAndGrant(pid int) {
	pgid, err := unix.Getpgid(pid)
	if err != nil {
		t.warn("getpgid", err)
		pgid = pid
	}
	t.Grant(pgid)

	if err := unix.Kill(pid, unix.SIGCONT); err != nil {
		t.warn("kill", err)
	}
}

func (t *TerminalController) warn(op string, err error) {
	fmt.Fprintf(t.stderr, "minsh: %s: %v\n", op, err)
	t.events.Record(&logger.TerminalWarning{Op: op, Error: err.Error()})
}
