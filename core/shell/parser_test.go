package shell

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ExampleStage_String() {
	stage := &Stage{Argv: []string{"grep", "hel"}, Index: 2}
	fmt.Println(stage)

	// Output: grep hel
}

func TestParse(t *testing.T) {
	cases := map[string]struct {
		line       string
		wantArgv   [][]string
		background bool
	}{
		"single command": {
			line:     "ls -l /tmp",
			wantArgv: [][]string{{"ls", "-l", "/tmp"}},
		},
		"two stage pipeline": {
			line:     "echo hello | grep hel",
			wantArgv: [][]string{{"echo", "hello"}, {"grep", "hel"}},
		},
		"quoting is respected": {
			line:     `echo "hello world"`,
			wantArgv: [][]string{{"echo", "hello world"}},
		},
		"background marker survives parsing": {
			// Stripping is a separate step so built-ins see the raw vector.
			line:     "sleep 5 &",
			wantArgv: [][]string{{"sleep", "5", "&"}},
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			pl, err := Parse(tc.line)
			require.NoError(t, err)
			require.Len(t, pl.Stages, len(tc.wantArgv))
			for i, stage := range pl.Stages {
				assert.Equal(t, tc.wantArgv[i], stage.Argv)
				assert.Equal(t, i+1, stage.Index)
			}
			assert.Equal(t, tc.background, pl.Background)
		})
	}
}

func TestParseErrors(t *testing.T) {
	cases := map[string]struct {
		line      string
		wantStage int
		wantErr   error
	}{
		"empty line": {
			line:      "",
			wantStage: 1,
			wantErr:   ErrEmptyStage,
		},
		"empty middle stage": {
			line:      "echo hello | | grep hel",
			wantStage: 2,
			wantErr:   ErrEmptyStage,
		},
		"trailing pipe": {
			line:      "echo hello |",
			wantStage: 2,
			wantErr:   ErrEmptyStage,
		},
		"too many stages": {
			line:      strings.Repeat("cat |", MaxStages) + " cat",
			wantStage: MaxStages + 1,
			wantErr:   ErrTooManyStages,
		},
		"too many arguments": {
			line:      "echo" + strings.Repeat(" x", MaxWords),
			wantStage: 1,
			wantErr:   ErrTooManyWords,
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			_, err := Parse(tc.line)
			require.Error(t, err)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tc.wantStage, perr.Stage)
			assert.True(t, errors.Is(err, tc.wantErr), "got %v, want %v", err, tc.wantErr)
		})
	}
}

func TestStripBackground(t *testing.T) {
	cases := map[string]struct {
		line       string
		wantArgv   [][]string
		background bool
		wantErr    error
	}{
		"trailing marker is stripped": {
			line:       "sleep 5 &",
			wantArgv:   [][]string{{"sleep", "5"}},
			background: true,
		},
		"no marker": {
			line:     "sleep 5",
			wantArgv: [][]string{{"sleep", "5"}},
		},
		"marker in a multi-stage pipeline is an ordinary argument": {
			line:     "echo hello | cat &",
			wantArgv: [][]string{{"echo", "hello"}, {"cat", "&"}},
		},
		"bare marker": {
			line:    "&",
			wantErr: ErrBareBackground,
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			pl, err := Parse(tc.line)
			require.NoError(t, err)

			err = pl.StripBackground()
			if tc.wantErr != nil {
				require.Error(t, err)

				var perr *ParseError
				require.True(t, errors.As(err, &perr))
				assert.Equal(t, 1, perr.Stage)
				assert.True(t, errors.Is(err, tc.wantErr))
				return
			}

			require.NoError(t, err)
			require.Len(t, pl.Stages, len(tc.wantArgv))
			for i, stage := range pl.Stages {
				assert.Equal(t, tc.wantArgv[i], stage.Argv)
			}
			assert.Equal(t, tc.background, pl.Background)
		})
	}
}

func TestParseStageLimit(t *testing.T) {
	// The largest allowed pipeline parses cleanly.
	line := strings.TrimSuffix(strings.Repeat("cat | ", MaxStages), "| ")
	pl, err := Parse(line)
	require.NoError(t, err)
	assert.Len(t, pl.Stages, MaxStages)
}
