package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// thumbnailSeekSeconds is far enough into the feature to skip titles and
// studio cards.
const thumbnailSeekSeconds = "99"

// Thumbnail grabs a single representative frame of the source. Returns
// the generated file name and its absolute path.
func (t *Toolchain) Thumbnail(ctx context.Context, input, dir string) (key, path string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}

	key = uuid.NewString() + ".jpg"
	path = filepath.Join(dir, key)

	const group = "GENERATING_THUMBNAILS"
	t.logf(ctx, group, "Initializing thumbnail generation...")

	args := []string{
		"-y",
		"-v", "error",
		"-ss", thumbnailSeekSeconds,
		"-i", input,
		"-vframes", "1",
		path,
	}
	if _, err := t.runner.Output(ctx, t.FFmpeg, args); err != nil {
		return "", "", fmt.Errorf("generate thumbnail: %w", err)
	}

	t.logf(ctx, group, "Thumbnail generated successfully")

	return key, path, nil
}
