// Package core ties the interactive prompt loop to the job-control engine.
package core

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/abiosoft/readline"
	"github.com/fatih/color"
	"golang.org/x/sys/unix"

	"github.com/josephlewis42/minsh/core/config"
	"github.com/josephlewis42/minsh/core/job"
	"github.com/josephlewis42/minsh/core/logger"
	"github.com/josephlewis42/minsh/core/procfs"
	"github.com/josephlewis42/minsh/core/shell"
)

// Shell is the interactive read-eval loop over one job-control session.
type Shell struct {
	session    *job.Session
	config     *config.Config
	controller *job.Controller
	readline   *readline.Instance
	events     *logger.SessionLogger

	stdout io.Writer
	stderr io.Writer
}

// NewShell wires a Shell and its job-control collaborators over the
// session.
func NewShell(cfg *config.Config, session *job.Session, events *logger.SessionLogger) (*Shell, error) {
	rlConfig := &readline.Config{
		Stdin:  readline.NewCancelableStdin(session.Stdin),
		Stdout: session.Stdout,
		Stderr: session.Stderr,
		FuncIsTerminal: func() bool {
			return session.IsTerminal
		},
	}
	if err := rlConfig.Init(); err != nil {
		return nil, err
	}

	rl, err := readline.NewEx(rlConfig)
	if err != nil {
		return nil, err
	}

	term := job.NewTerminalController(session, events)
	reaper := job.NewReaper(session, session.Stdout, events)
	controller := job.NewController(session, term, reaper, procfs.NewScanner(), events, cfg.KillGrace())

	return &Shell{
		session:    session,
		config:     cfg,
		controller: controller,
		readline:   rl,
		events:     events,
		stdout:     session.Stdout,
		stderr:     session.Stderr,
	}, nil
}

// Run drives the prompt loop until shutdown. End-of-input performs the same
// orderly shutdown as the exit built-in.
func (s *Shell) Run() error {
	color.New(color.Bold).Fprintf(s.stdout, "\n%s (%s)\n\n", s.config.Motd, s.session.Mode)
	s.events.Record(&logger.SessionStart{
		Pid:    s.session.Pid,
		Pgid:   s.session.Pgid,
		Reaper: s.config.Reaper,
	})

	s.controller.Reaper().Start()
	s.notifySignals()

	for {
		s.readline.SetPrompt(s.prompt())
		line, err := s.readline.Readline()

		switch {
		case err == io.EOF:
			s.Shutdown()

		case err == readline.ErrInterrupt:
			fmt.Fprintf(s.stdout, "\n[Ctrl+C]\n")
			s.Shutdown()

		case err != nil:
			return err

		case len(line) == 0:
			// No spawn, no output; straight to the next prompt.

		default:
			s.Execute(line)
		}

		time.Sleep(s.config.PollInterval())
		if s.session.Mode == job.ModePolling {
			s.controller.Reaper().Sweep()
		}
	}
}

// Execute runs one submitted command line and returns the 1-based index of
// the stage that failed, or 0. Built-ins may re-enter Execute with composed
// lines; each call carries its own pipeline state.
func (s *Shell) Execute(line string) int {
	pl, err := shell.Parse(line)
	if err != nil {
		failed := 1
		var perr *shell.ParseError
		if errors.As(err, &perr) {
			failed = perr.Stage
		}
		fmt.Fprintf(s.stderr, "minsh: %v\n", err)
		s.events.Record(&logger.Pipeline{Line: line, FailedStage: failed})
		return failed
	}

	// Built-ins match the raw argument vector, a trailing "&" included, so
	// "exit &" is a two-argument misuse rather than a background exit.
	if len(pl.Stages) == 1 {
		if failed, handled := s.builtin(pl.Stages[0]); handled {
			s.events.Record(&logger.Pipeline{Line: line, Stages: 1, FailedStage: failed})
			return failed
		}
	}

	if err := pl.StripBackground(); err != nil {
		fmt.Fprintf(s.stderr, "minsh: %v\n", err)
		s.events.Record(&logger.Pipeline{Line: line, Stages: 1, FailedStage: 1})
		return 1
	}

	failed := s.controller.Run(pl)
	s.events.Record(&logger.Pipeline{
		Line:        line,
		Stages:      len(pl.Stages),
		Background:  pl.Background,
		FailedStage: failed,
	})
	return failed
}

// Shutdown kills every live child of the session, records the end of the
// session and exits the process. It does not return.
func (s *Shell) Shutdown() {
	color.New(color.Bold).Fprintf(s.stdout, "\nminsh closing...\n\n")
	s.controller.KillAll()
	s.events.Record(&logger.SessionEnd{})
	s.readline.Close()
	os.Exit(0)
}

// prompt renders the working directory prompt.
func (s *Shell) prompt() string {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "?"
	}
	return cwd + "> "
}

// notifySignals handles signals delivered from outside the line reader:
// interrupt shuts the session down, terminal-stop stops the session itself.
func (s *Shell) notifySignals() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, unix.SIGINT, unix.SIGTSTP)

	go func() {
		for sig := range sigs {
			switch sig {
			case unix.SIGINT:
				fmt.Fprintf(s.stdout, "\n[Ctrl+C]\n")
				s.Shutdown()
			case unix.SIGTSTP:
				fmt.Fprintf(s.stdout, "\n[Ctrl+Z]\n")
				if err := unix.Kill(s.session.Pid, unix.SIGSTOP); err != nil {
					fmt.Fprintf(s.stderr, "minsh: kill: %v\n", err)
				}
			}
		}
	}()
}
