package job

import (
	"bytes"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/josephlewis42/minsh/core/procfs"
)

// syncBuffer makes report assertions safe against the signal-driven sweep.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// newTestSession builds a Session whose stdin is /dev/null so that terminal
// transfers stay no-ops regardless of how the test binary was started.
func newTestSession(t *testing.T, mode Mode) *Session {
	t.Helper()

	devNull, err := os.Open(os.DevNull)
	require.NoError(t, err)
	t.Cleanup(func() { devNull.Close() })

	session, err := NewSession(devNull, os.Stdout, os.Stderr, mode)
	require.NoError(t, err)
	return session
}

// spawnChild starts a real child process the way the engine does, without
// waiting on it.
func spawnChild(t *testing.T, argv ...string) int {
	t.Helper()

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	require.NoError(t, cmd.Start())

	pid := cmd.Process.Pid
	cmd.Process.Release()

	t.Cleanup(func() {
		// Reap it if the test didn't; errors mean it's already gone.
		syscall.Kill(pid, syscall.SIGKILL)
		var ws syscall.WaitStatus
		syscall.Wait4(pid, &ws, syscall.WNOHANG, nil)
	})
	return pid
}

func sigstop(pid int) error {
	return unix.Kill(pid, unix.SIGSTOP)
}

// assertRunningState waits for the process to leave the stopped state.
func assertRunningState(t *testing.T, pid int) {
	t.Helper()

	scanner := procfs.NewScanner()
	require.Eventually(t, func() bool {
		proc, err := scanner.Stat(pid)
		return err == nil && proc.State != "T"
	}, 5*time.Second, time.Millisecond)
}
