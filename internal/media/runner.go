package media

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// runner executes external tools. Split out so tests can fake tool runs.
type runner interface {
	// Output runs bin with args and returns its stdout.
	Output(ctx context.Context, bin string, args []string) ([]byte, error)
	// Run executes bin with args, streaming key=value progress lines from
	// stdout into onTimemark (the out_time values of ffmpeg -progress).
	Run(ctx context.Context, bin string, args []string, onTimemark func(mark string)) error
}

type execRunner struct{}

func (execRunner) Output(ctx context.Context, bin string, args []string) ([]byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, toolError(bin, err, stderr.Bytes())
	}

	return stdout.Bytes(), nil
}

func (execRunner) Run(ctx context.Context, bin string, args []string, onTimemark func(string)) error {
	cmd := exec.CommandContext(ctx, bin, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%s: %w", bin, err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s: %w", bin, err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if onTimemark == nil {
			continue
		}
		// ffmpeg -progress emits out_time=HH:MM:SS.ffffff once per update
		if mark, ok := strings.CutPrefix(strings.TrimSpace(scanner.Text()), "out_time="); ok {
			onTimemark(mark)
		}
	}
	// the tool's exit status decides success; a broken progress stream
	// only loses updates, but must leave a trace
	if err := scanner.Err(); err != nil {
		slog.Warn("tool progress stream failed", "bin", bin, "error", err)
	}

	if err := cmd.Wait(); err != nil {
		return toolError(bin, err, stderr.Bytes())
	}

	return nil
}

// toolError folds the tail of stderr into the error so failure logs carry
// the raw tool output.
func toolError(bin string, err error, stderr []byte) error {
	const tail = 2048

	msg := strings.TrimSpace(string(stderr))
	if len(msg) > tail {
		msg = "..." + msg[len(msg)-tail:]
	}
	if msg == "" {
		return fmt.Errorf("%s: %w", bin, err)
	}
	return fmt.Errorf("%s: %w: %s", bin, err, msg)
}
