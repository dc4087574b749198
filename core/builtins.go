package core

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/josephlewis42/minsh/core/job"
	"github.com/josephlewis42/minsh/core/shell"
)

// builtin dispatches stage as a built-in command, reporting whether it
// matched one. Built-ins only exist for single-stage pipelines and match on
// exact argument counts; a wrong count fails the stage without spawning
// anything.
func (s *Shell) builtin(stage *shell.Stage) (failed int, handled bool) {
	switch stage.Argv[0] {
	case "cd":
		switch len(stage.Argv) {
		case 1:
			s.cd("~")
		case 2:
			s.cd(stage.Argv[1])
		default:
			return s.builtinMisuse(stage), true
		}
		return 0, true

	case "checkEnv":
		if len(stage.Argv) > 2 {
			return s.builtinMisuse(stage), true
		}
		s.checkEnv(stage.Argv)
		return 0, true

	case "exit":
		if len(stage.Argv) != 1 {
			return s.builtinMisuse(stage), true
		}
		s.Shutdown()
		return 0, true

	case "fg":
		if len(stage.Argv) != 2 {
			return s.builtinMisuse(stage), true
		}
		s.fg(stage.Argv[1])
		return 0, true
	}

	return 0, false
}

func (s *Shell) builtinMisuse(stage *shell.Stage) (failed int) {
	fmt.Fprintf(s.stderr, "minsh: stage 1: command '%s' failed\n", stage)
	return 1
}

// cd changes the working directory, resolving a leading tilde against
// $HOME. A bad path is reported, never fatal.
func (s *Shell) cd(path string) {
	if strings.HasPrefix(path, "~") {
		path = os.Getenv("HOME") + strings.TrimPrefix(path, "~")
	}
	if err := os.Chdir(path); err != nil {
		fmt.Fprintln(s.stderr, "cd: No such directory")
	}
}

// checkEnv pages a sorted, optionally filtered, environment listing by
// composing a pipeline and re-entering Execute. The pager comes from $PAGER
// or the configured default; if the default pager's stage fails, the
// fallback pager is tried once.
func (s *Shell) checkEnv(argv []string) {
	pager := os.Getenv("PAGER")
	if pager == "" {
		pager = s.config.Pager
	}

	line := envListingLine(argv, pager)
	pagerStage := strings.Count(line, "|") + 1

	fmt.Fprintf(s.stdout, "Actual command line: %s\n", line)
	if s.Execute(line) == pagerStage && pager == s.config.Pager {
		line = envListingLine(argv, s.config.PagerFallback)
		fmt.Fprintf(s.stdout, "Actual command line: %s\n", line)
		s.Execute(line)
	}
}

// envListingLine composes the environment-listing pipeline for checkEnv.
func envListingLine(argv []string, pager string) string {
	if len(argv) > 1 {
		return fmt.Sprintf("printenv | sort | grep %s | %s", argv[1], pager)
	}
	return fmt.Sprintf("printenv | sort | %s", pager)
}

// fg brings a live child of the session to the foreground and waits on it.
func (s *Shell) fg(arg string) {
	pid, err := strconv.Atoi(arg)
	if err != nil {
		fmt.Fprintln(s.stderr, "fg: No such child")
		return
	}
	if err := s.controller.ForegroundWait(pid); err != nil {
		if err == job.ErrNotChild {
			fmt.Fprintln(s.stderr, "fg: No such child")
			return
		}
		fmt.Fprintf(s.stderr, "fg: %v\n", err)
	}
}
