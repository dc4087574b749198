package job

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/josephlewis42/minsh/core/logger"
	"github.com/josephlewis42/minsh/core/procfs"
	"github.com/josephlewis42/minsh/core/shell"
)

// ErrNotChild reports that the target of fg is not a live child of the
// session.
var ErrNotChild = errors.New("no such child")

// Controller orchestrates pipeline execution over the Session, PipeSet,
// TerminalController and Reaper, and implements the fg and shutdown
// primitives on top of the process table.
type Controller struct {
	session *Session
	term    *TerminalController
	reaper  *Reaper
	procs   *procfs.Scanner

	stdout io.Writer
	stderr io.Writer
	events *logger.SessionLogger

	killGrace time.Duration

	// exit terminates the session on unrecoverable resource errors;
	// overridable for tests.
	exit func(code int)
}

// NewController wires a Controller over the session's collaborators.
func NewController(session *Session, term *TerminalController, reaper *Reaper, procs *procfs.Scanner, events *logger.SessionLogger, killGrace time.Duration) *Controller {
	return &Controller{
		session:   session,
		term:      term,
		reaper:    reaper,
		procs:     procs,
		stdout:    session.Stdout,
		stderr:    session.Stderr,
		events:    events,
		killGrace: killGrace,
		exit:      os.Exit,
	}
}

// Reaper returns the controller's reaper so the prompt loop can drive
// polling sweeps.
func (c *Controller) Reaper() *Reaper {
	return c.reaper
}

// Run executes a parsed pipeline: pre-allocates the pipes, spawns the
// stages strictly in order, and waits synchronously on the last stage of a
// non-background pipeline. It returns the 1-based index of the failed
// stage, or 0.
//
// Only the last stage is ever waited on; earlier stages surface through the
// asynchronous or polled sweep, and a launch failure in an earlier stage
// does not fail the pipeline.
func (c *Controller) Run(pl *shell.Pipeline) int {
	n := len(pl.Stages)

	pipes, err := NewPipeSet(n)
	if err != nil {
		c.fatalf("%v", err)
		return n
	}
	defer pipes.CloseAll()

	failed := 0
	for _, stage := range pl.Stages {
		i := stage.Index
		last := i == n
		foreground := !pl.Background

		var started time.Time
		if last && foreground {
			started = time.Now() // stopwatch for the waited stage
		}

		pid, err := c.startStage(stage, pipes.ReaderFor(i), pipes.WriterFor(i))

		// The child holds its own copies now (or never will); releasing the
		// write end here is what lets the next stage see end-of-input.
		pipes.CloseWriter(i)
		pipes.CloseReader(i)

		if err != nil {
			if !startFailure(err) {
				c.fatalf("could not start process: %v", err)
			}
			if last {
				failed = i
				break
			}
			// A failed launch of a non-final stage only warns.
			fmt.Fprintf(c.stderr, "minsh: %v\n", err)
			continue
		}

		if foreground {
			c.term.Grant(pid) // the stage leads its own group
		}
		if last && foreground {
			fmt.Fprintf(c.stdout, "[%d] Spawned in foreground\n", pid)
		} else {
			fmt.Fprintf(c.stdout, "[%d] Spawned in background\n", pid)
		}
		c.events.Record(&logger.Spawn{
			Pid:        pid,
			Stage:      i,
			Command:    stage.String(),
			Foreground: last && foreground,
		})

		if last && foreground {
			ws, ok := c.reaper.WaitChild(pid, started)
			c.term.Reclaim()
			if stageFailed(ws, ok) {
				failed = i
			}
		}
	}

	if failed != 0 {
		fmt.Fprintf(c.stderr, "minsh: stage %d: command '%s' failed\n", failed, pl.Stages[failed-1])
	}
	return failed
}

// ForegroundWait implements fg: it verifies pid is a live child of the
// session, resumes it with the terminal, and waits for it to exit or stop.
func (c *Controller) ForegroundWait(pid int) error {
	if !c.procs.IsChild(pid, c.session.Pid) {
		return ErrNotChild
	}

	c.term.ResumeAndGrant(pid)
	c.reaper.WaitChild(pid, time.Time{})
	c.term.Reclaim()
	return nil
}

// KillAll force-terminates every live child of the session, best-effort: it
// scans the process table for children, delivers SIGKILL to each, waits
// briefly for delivery, and reaps once more. It does not confirm each
// target died.
func (c *Controller) KillAll() {
	children, err := c.procs.Children(c.session.Pid)
	if err != nil {
		fmt.Fprintf(c.stderr, "minsh: could not scan process table: %v\n", err)
		return
	}

	for _, child := range children {
		kill := &logger.Kill{Pid: child.Pid}
		if err := unix.Kill(child.Pid, unix.SIGKILL); err != nil {
			fmt.Fprintf(c.stderr, "minsh: kill: %v\n", err)
			kill.Error = err.Error()
		}
		c.events.Record(kill)
	}

	time.Sleep(c.killGrace)

	// In signal mode the asynchronous sweeper observed the deaths during
	// the sleep; in polling mode sweep once more by hand.
	if c.session.Mode == ModePolling {
		c.reaper.Sweep()
	}
}

// fatalf handles unrecoverable resource errors: the session cannot continue
// and terminates with a failure status.
func (c *Controller) fatalf(format string, args ...interface{}) {
	fmt.Fprintf(c.stderr, "minsh: "+format+"\n", args...)
	c.exit(1)
}
