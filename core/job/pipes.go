package job

import (
	"fmt"
	"os"
)

// PipeSet owns the N−1 pipes linking an N-stage pipeline. All pipes are
// created before the first stage is spawned, and every endpoint is closed
// exactly once: accessors hand endpoints out for wiring, the Close methods
// nil them as they close them, and a deferred CloseAll releases whatever an
// abort left behind.
type PipeSet struct {
	readers []*os.File
	writers []*os.File
}

// NewPipeSet allocates the stages−1 pipes for a pipeline of the given size.
func NewPipeSet(stages int) (*PipeSet, error) {
	ps := &PipeSet{}
	for i := 0; i < stages-1; i++ {
		r, w, err := os.Pipe()
		if err != nil {
			ps.CloseAll()
			return nil, fmt.Errorf("could not pipe: %w", err)
		}
		ps.readers = append(ps.readers, r)
		ps.writers = append(ps.writers, w)
	}
	return ps, nil
}

// Len returns the number of pipe links.
func (ps *PipeSet) Len() int {
	return len(ps.readers)
}

// ReaderFor returns the read end to attach as the 1-based stage's stdin,
// or nil for the first stage.
func (ps *PipeSet) ReaderFor(stage int) *os.File {
	if stage < 2 || stage > len(ps.readers)+1 {
		return nil
	}
	return ps.readers[stage-2]
}

// WriterFor returns the write end to attach as the 1-based stage's stdout,
// or nil for the last stage.
func (ps *PipeSet) WriterFor(stage int) *os.File {
	if stage < 1 || stage > len(ps.writers) {
		return nil
	}
	return ps.writers[stage-1]
}

// CloseReader closes the parent's copy of the stage's stdin endpoint.
// Closing an endpoint that was never allocated or is already closed is a
// no-op.
func (ps *PipeSet) CloseReader(stage int) {
	if f := ps.ReaderFor(stage); f != nil {
		f.Close()
		ps.readers[stage-2] = nil
	}
}

// CloseWriter closes the parent's copy of the stage's stdout endpoint.
// Closing it is what lets the downstream reader observe end-of-input once
// the writing child exits.
func (ps *PipeSet) CloseWriter(stage int) {
	if f := ps.WriterFor(stage); f != nil {
		f.Close()
		ps.writers[stage-1] = nil
	}
}

// CloseAll closes every endpoint still held by the parent.
func (ps *PipeSet) CloseAll() {
	for i, f := range ps.readers {
		if f != nil {
			f.Close()
			ps.readers[i] = nil
		}
	}
	for i, f := range ps.writers {
		if f != nil {
			f.Close()
			ps.writers[i] = nil
		}
	}
}
