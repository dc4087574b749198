package procfs

import (
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeProc(t *testing.T, stats map[string]string) *Scanner {
	t.Helper()

	fs := afero.NewMemMapFs()
	for name, stat := range stats {
		require.NoError(t, fs.MkdirAll("/proc/"+name, 0555))
		require.NoError(t, afero.WriteFile(fs, "/proc/"+name+"/stat", []byte(stat), 0444))
	}
	// Non-process entries that a real /proc carries.
	require.NoError(t, fs.MkdirAll("/proc/self", 0555))
	require.NoError(t, afero.WriteFile(fs, "/proc/cpuinfo", nil, 0444))

	return NewScannerFs(fs, "/proc")
}

func TestScannerList(t *testing.T) {
	scanner := fakeProc(t, map[string]string{
		"1":   "1 (systemd) S 0 1 1 0 -1 4194560",
		"40":  "40 (minsh) S 1 40 40 0 -1 4194304",
		"41":  "41 (sleep) S 40 41 41 0 -1 4194304",
		"42":  "42 (a b) c) R 40 42 42 0 -1 4194304", // comm with space and paren
		"999": "999 (kthreadd) S 2 0 0 0 -1 69238880",
	})

	procs, err := scanner.List()
	require.NoError(t, err)
	assert.Len(t, procs, 5)

	proc, err := scanner.Stat(42)
	require.NoError(t, err)
	assert.Equal(t, Process{Pid: 42, Comm: "a b) c", State: "R", PPid: 40}, proc)
}

func TestScannerChildren(t *testing.T) {
	scanner := fakeProc(t, map[string]string{
		"1":  "1 (systemd) S 0 1 1 0 -1 4194560",
		"40": "40 (minsh) S 1 40 40 0 -1 4194304",
		"41": "41 (sleep) S 40 41 41 0 -1 4194304",
		"42": "42 (cat) T 40 42 42 0 -1 4194304",
		"50": "50 (other) S 1 50 50 0 -1 4194304",
	})

	children, err := scanner.Children(40)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, 41, children[0].Pid)
	assert.Equal(t, 42, children[1].Pid)

	assert.True(t, scanner.IsChild(41, 40))
	assert.False(t, scanner.IsChild(50, 40), "different parent")
	assert.False(t, scanner.IsChild(1234, 40), "no such process")
}

func TestScannerRealProc(t *testing.T) {
	// The live scanner can at least find the test binary itself.
	scanner := NewScanner()
	proc, err := scanner.Stat(os.Getpid())
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), proc.Pid)
	assert.Equal(t, os.Getppid(), proc.PPid)
}
