package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const fragmentDurationMs = "4000"

// Fragment runs mp4fragment over every non-subtitle track so the packager
// receives movie-fragmented inputs. The raw extraction is removed once
// its fragmented rendition exists; subtitles pass through untouched.
func (t *Toolchain) Fragment(ctx context.Context, tracks []*ExtractedTrack, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	for _, track := range tracks {
		if track.Track.Type == TrackSubtitle {
			continue
		}

		fragmented := filepath.Join(dir, fragmentedName(track.Key))

		_, err := t.runner.Output(ctx, t.MP4Fragment, []string{
			"--fragment-duration", fragmentDurationMs,
			track.Path,
			fragmented,
		})
		if err != nil {
			return fmt.Errorf("fragment %s: %w", track.Key, err)
		}

		track.FragmentedPath = fragmented

		if err := os.Remove(track.Path); err != nil {
			slog.Warn("remove extracted track failed", "path", track.Path, "error", err)
		}
	}

	return nil
}

func fragmentedName(key string) string {
	ext := filepath.Ext(key)
	return strings.TrimSuffix(key, ext) + "_fragmented" + ext
}
