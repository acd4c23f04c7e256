package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

const (
	// previewIntervalSeconds is the seek-bar preview cadence: one frame
	// every 10 seconds, so frame N covers [startAt, startAt+9].
	previewIntervalSeconds = 10

	previewsIndexName = "previews.json"
)

// previewFrame is one row of the previews index consumed by the player's
// seek bar.
type previewFrame struct {
	Count   int    `json:"count"`
	StartAt int    `json:"startAt"`
	EndAt   int    `json:"endAt"`
	Data    string `json:"data"`
}

// Previews samples the source into small seek-bar frames and writes the
// previews.json index next to them. Returns the index path.
func (t *Toolchain) Previews(ctx context.Context, input, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	const group = "GENERATING_PREVIEWS"
	t.logf(ctx, group, "Initializing previews generation...")

	args := []string{
		"-y",
		"-v", "error",
		"-i", input,
		"-vf", fmt.Sprintf("fps=1/%d,scale=432:243", previewIntervalSeconds),
		"-q:v", "10",
		filepath.Join(dir, "%03d.jpg"),
	}
	if _, err := t.runner.Output(ctx, t.FFmpeg, args); err != nil {
		return "", fmt.Errorf("generate previews: %w", err)
	}

	index, err := writePreviewsIndex(dir)
	if err != nil {
		return "", err
	}

	t.logf(ctx, group, "Previews generated successfully")

	return index, nil
}

// writePreviewsIndex folds every numbered frame in dir into a single JSON
// document of inline data URIs.
func writePreviewsIndex(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var frames []previewFrame
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".jpg") {
			continue
		}

		number, err := strconv.Atoi(strings.TrimSuffix(name, ".jpg"))
		if err != nil {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return "", err
		}

		start := (number - 1) * previewIntervalSeconds
		frames = append(frames, previewFrame{
			Count:   number,
			StartAt: start,
			EndAt:   start + previewIntervalSeconds - 1,
			Data:    "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data),
		})
	}

	sort.Slice(frames, func(i, j int) bool { return frames[i].Count < frames[j].Count })

	doc, err := json.Marshal(frames)
	if err != nil {
		return "", err
	}

	index := filepath.Join(dir, previewsIndexName)
	if err := os.WriteFile(index, doc, 0o644); err != nil {
		return "", err
	}

	return index, nil
}
