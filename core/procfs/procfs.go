// Package procfs discovers live processes by reading the /proc process
// table. It is the shell's only source of process-parentage information,
// used to find the session's children for shutdown and for fg.
package procfs

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// Process is one row of the OS process table.
type Process struct {
	Pid  int
	Comm string
	// State is the single-letter process state, e.g. "R", "S", "Z".
	State string
	PPid  int
}

// Scanner reads process records from a /proc style filesystem.
type Scanner struct {
	fs   afero.Fs
	root string
}

// NewScanner returns a Scanner over the host's real /proc.
func NewScanner() *Scanner {
	return NewScannerFs(afero.NewOsFs(), "/proc")
}

// NewScannerFs returns a Scanner over an arbitrary filesystem, used by tests
// to fake the process table.
func NewScannerFs(fs afero.Fs, root string) *Scanner {
	return &Scanner{fs: fs, root: root}
}

// Stat reads one process's record.
func (s *Scanner) Stat(pid int) (Process, error) {
	data, err := afero.ReadFile(s.fs, path.Join(s.root, strconv.Itoa(pid), "stat"))
	if err != nil {
		return Process{}, err
	}
	return parseStat(string(data))
}

// List returns every live process.
func (s *Scanner) List() ([]Process, error) {
	entries, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		return nil, err
	}

	var out []Process
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue // not a process entry
		}
		proc, err := s.Stat(pid)
		if err != nil {
			continue // exited while scanning
		}
		out = append(out, proc)
	}
	return out, nil
}

// Children returns every live process whose recorded parent is ppid.
func (s *Scanner) Children(ppid int) ([]Process, error) {
	procs, err := s.List()
	if err != nil {
		return nil, err
	}

	var out []Process
	for _, proc := range procs {
		if proc.PPid == ppid {
			out = append(out, proc)
		}
	}
	return out, nil
}

// IsChild reports whether pid is a live process whose recorded parent is
// ppid.
func (s *Scanner) IsChild(pid, ppid int) bool {
	proc, err := s.Stat(pid)
	return err == nil && proc.PPid == ppid
}

// parseStat pulls the leading fields out of a /proc/[pid]/stat line. The
// comm field is enclosed in parentheses and may itself contain spaces and
// parentheses, so fields are split only after its final ")".
func parseStat(data string) (Process, error) {
	open := strings.Index(data, "(")
	end := strings.LastIndex(data, ")")
	if open < 0 || end < open {
		return Process{}, fmt.Errorf("malformed stat record: %q", data)
	}

	proc := Process{Comm: data[open+1 : end]}

	var err error
	if proc.Pid, err = strconv.Atoi(strings.TrimSpace(data[:open])); err != nil {
		return Process{}, fmt.Errorf("malformed stat pid: %w", err)
	}

	rest := strings.Fields(data[end+1:])
	if len(rest) < 2 {
		return Process{}, fmt.Errorf("truncated stat record: %q", data)
	}
	proc.State = rest[0]
	if proc.PPid, err = strconv.Atoi(rest[1]); err != nil {
		return Process{}, fmt.Errorf("malformed stat ppid: %w", err)
	}

	return proc, nil
}
