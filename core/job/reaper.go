package job

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/josephlewis42/minsh/core/logger"
)

// Reaper collects child state changes from the kernel and reports them.
// Sweep is the non-blocking all-children check used by both detection
// modes; WaitChild is the blocking single-child wait used for foreground
// execution and fg. Reports are serialized by a mutex because the
// signal-driven sweep runs concurrently with the main loop.
type Reaper struct {
	session *Session
	stdout  io.Writer
	events  *logger.SessionLogger

	mu   sync.Mutex
	sigs chan os.Signal
	done chan struct{}
}

// NewReaper builds a Reaper reporting to stdout.
func NewReaper(session *Session, stdout io.Writer, events *logger.SessionLogger) *Reaper {
	return &Reaper{
		session: session,
		stdout:  stdout,
		events:  events,
	}
}

// Start launches the asynchronous sweeper in signal-driven mode. In polling
// mode it does nothing; the main loop calls Sweep itself.
func (r *Reaper) Start() {
	if r.session.Mode != ModeSignal {
		return
	}

	r.sigs = make(chan os.Signal, 1)
	r.done = make(chan struct{})
	signal.Notify(r.sigs, unix.SIGCHLD)

	go func() {
		defer close(r.done)
		for range r.sigs {
			r.Sweep()
		}
	}()
}

// Stop tears the asynchronous sweeper down again. Only needed by tests.
func (r *Reaper) Stop() {
	if r.sigs == nil {
		return
	}
	signal.Stop(r.sigs)
	close(r.sigs)
	<-r.done
	r.sigs = nil
}

// Sweep performs a non-blocking status check across all of the session's
// children, reporting every pending exited, signaled or stopped transition.
// Sweeping when nothing is pending reports nothing, so a child is never
// reported twice.
func (r *Reaper) Sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-1, &ws, unix.WNOHANG|unix.WUNTRACED, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil || pid <= 0 {
			return
		}
		r.report(pid, ws)
	}
}

// WaitChild blocks until the one given child exits or stops, then reports
// its transition. When a nonzero start time is given, the child's
// wall-clock runtime is reported too. The status is only valid when ok is
// true; ok is false when the asynchronous sweep already reaped the child.
func (r *Reaper) WaitChild(pid int, started time.Time) (ws unix.WaitStatus, ok bool) {
	for {
		wpid, err := unix.Wait4(pid, &ws, unix.WUNTRACED, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil || wpid <= 0 {
			// Lost the race against the sweep, which already reported it.
			return ws, false
		}
		break
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.report(pid, ws)
	if !started.IsZero() {
		runtime := time.Since(started).Round(time.Millisecond)
		fmt.Fprintf(r.stdout, "Run time was %d ms\n", runtime.Milliseconds())
	}
	return ws, true
}

// report prints one child transition. Callers hold r.mu.
func (r *Reaper) report(pid int, ws unix.WaitStatus) {
	switch {
	case ws.Exited():
		fmt.Fprintf(r.stdout, "[%d] Terminated normally\n", pid)
		r.events.Record(&logger.Reap{Pid: pid, Result: "exited"})
	case ws.Signaled():
		fmt.Fprintf(r.stdout, "[%d] Terminated by a signal\n", pid)
		r.events.Record(&logger.Reap{Pid: pid, Result: "signaled"})
	case ws.Stopped():
		fmt.Fprintf(r.stdout, "[%d] Stopped\n", pid)
		r.events.Record(&logger.Reap{Pid: pid, Result: "stopped"})
	}
}

// stageFailed reports whether a reaped status marks its pipeline stage as
// failed: a normal exit with the conventional failure code. Signaled and
// stopped children are not failures.
func stageFailed(ws unix.WaitStatus, ok bool) bool {
	return ok && ws.Exited() && ws.ExitStatus() == 1
}
