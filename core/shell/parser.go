// Package shell turns submitted command lines into pipelines of stages.
package shell

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anmitsu/go-shlex"
)

const (
	// MaxStages is the largest number of stages one pipeline may hold.
	MaxStages = 63
	// MaxWords is the largest argument vector for one stage, program included.
	MaxWords = 63

	// BackgroundMarker, as the final word of a single-stage line, requests
	// background execution.
	BackgroundMarker = "&"
)

var (
	ErrEmptyStage     = errors.New("empty command")
	ErrTooManyStages  = fmt.Errorf("too many commands (max %d)", MaxStages)
	ErrTooManyWords   = fmt.Errorf("too many arguments (max %d)", MaxWords-1)
	ErrBareBackground = errors.New("no command before '&'")
)

// ParseError reports which 1-based stage of the submitted line was rejected.
type ParseError struct {
	Stage int
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("stage %d: %v", e.Stage, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Stage is one program invocation within a pipeline.
type Stage struct {
	// Argv holds the program name followed by its arguments.
	Argv []string
	// Index is the stage's 1-based position within the pipeline.
	Index int
}

// String reconstructs the command text for error reports.
func (s *Stage) String() string {
	return strings.Join(s.Argv, " ")
}

// Pipeline is an ordered sequence of stages submitted as one input line.
type Pipeline struct {
	Stages []*Stage
	// Background is only ever set on single-stage pipelines.
	Background bool
}

// Parse splits a command line on the literal pipe operator and tokenizes
// each stage. The whole line is validated before anything is spawned: any
// empty stage or oversized vector rejects the pipeline as a ParseError
// naming the offending stage.
func Parse(line string) (*Pipeline, error) {
	texts := strings.Split(line, "|")
	if len(texts) > MaxStages {
		return nil, &ParseError{Stage: MaxStages + 1, Err: ErrTooManyStages}
	}

	pl := &Pipeline{}
	for i, text := range texts {
		words, err := shlex.Split(text, true)
		if err != nil {
			return nil, &ParseError{Stage: i + 1, Err: err}
		}
		if len(words) == 0 {
			return nil, &ParseError{Stage: i + 1, Err: ErrEmptyStage}
		}
		if len(words) > MaxWords {
			return nil, &ParseError{Stage: i + 1, Err: ErrTooManyWords}
		}
		pl.Stages = append(pl.Stages, &Stage{Argv: words, Index: i + 1})
	}

	return pl, nil
}

// StripBackground applies the background-marker rule: a trailing "&" on a
// single-stage pipeline is removed and marks the pipeline background. It is
// a separate step from Parse because built-in dispatch matches the raw
// argument vector first, marker included. A multi-stage pipeline keeps a
// trailing "&" as an ordinary argument.
func (p *Pipeline) StripBackground() error {
	if len(p.Stages) != 1 {
		return nil
	}

	argv := p.Stages[0].Argv
	if argv[len(argv)-1] != BackgroundMarker {
		return nil
	}
	if len(argv) == 1 {
		return &ParseError{Stage: 1, Err: ErrBareBackground}
	}

	p.Stages[0].Argv = argv[:len(argv)-1]
	p.Background = true
	return nil
}
