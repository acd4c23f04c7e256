package media

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type toolCall struct {
	bin  string
	args []string
}

// fakeRunner records every tool invocation instead of spawning processes.
type fakeRunner struct {
	outputCalls []toolCall
	runCalls    []toolCall

	outputFn func(bin string, args []string) ([]byte, error)
	runFn    func(bin string, args []string, onTimemark func(string)) error
}

func (f *fakeRunner) Output(ctx context.Context, bin string, args []string) ([]byte, error) {
	f.outputCalls = append(f.outputCalls, toolCall{bin: bin, args: args})
	if f.outputFn != nil {
		return f.outputFn(bin, args)
	}
	return nil, nil
}

func (f *fakeRunner) Run(ctx context.Context, bin string, args []string, onTimemark func(string)) error {
	f.runCalls = append(f.runCalls, toolCall{bin: bin, args: args})
	if f.runFn != nil {
		return f.runFn(bin, args, onTimemark)
	}
	return nil
}

func TestExecRunnerStreamsTimemarks(t *testing.T) {
	var marks []string

	err := execRunner{}.Run(context.Background(), "sh", []string{"-c",
		"printf 'frame=12\\nout_time=00:00:01.000000\\nout_time=00:00:02.000000\\n'",
	}, func(mark string) { marks = append(marks, mark) })

	require.NoError(t, err)
	assert.Equal(t, []string{"00:00:01.000000", "00:00:02.000000"}, marks)
}

func TestExecRunnerSurvivesBrokenProgressStream(t *testing.T) {
	var marks []string

	// a line past the scanner's token limit stops the progress stream;
	// the run itself must still succeed with the marks seen so far
	err := execRunner{}.Run(context.Background(), "sh", []string{"-c",
		"printf 'out_time=00:00:01.000000\\n'; head -c 100000 /dev/zero | tr '\\0' 'a'",
	}, func(mark string) { marks = append(marks, mark) })

	require.NoError(t, err)
	assert.Equal(t, []string{"00:00:01.000000"}, marks)
}

func testToolchain(r runner) *Toolchain {
	return &Toolchain{
		FFmpeg:      "ffmpeg",
		FFprobe:     "ffprobe",
		MP4Fragment: "mp4fragment",
		Packager:    "packager",
		runner:      r,
	}
}
