package job

import (
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"syscall"

	"github.com/josephlewis42/minsh/core/shell"
)

// startStage launches one pipeline stage as the leader of its own fresh
// process group, reading from stdin and writing to stdout where given and
// falling back to the session's stdio otherwise. The child starts with
// default signal dispositions: the shell only installs handlers through
// os/signal, and those do not survive exec.
//
// The returned process is not waited on here; the Reaper owns all status
// collection for the session's children.
func (c *Controller) startStage(stage *shell.Stage, stdin, stdout *os.File) (int, error) {
	cmd := exec.Command(stage.Argv[0], stage.Argv[1:]...)

	cmd.Stdin = c.session.Stdin
	if stdin != nil {
		cmd.Stdin = stdin
	}
	cmd.Stdout = c.session.Stdout
	if stdout != nil {
		cmd.Stdout = stdout
	}
	cmd.Stderr = c.session.Stderr

	// Every stage leads its own process group; stages of one pipeline are
	// deliberately not grouped together.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return 0, err
	}

	pid := cmd.Process.Pid
	cmd.Process.Release()
	return pid, nil
}

// startFailure distinguishes a per-stage launch failure (program missing or
// not executable) from resource exhaustion, which is fatal to the whole
// session.
func startFailure(err error) bool {
	return errors.Is(err, exec.ErrNotFound) ||
		errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, fs.ErrPermission)
}
