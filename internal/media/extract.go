package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mediaforge/transcoded/internal/event"
	"github.com/mediaforge/transcoded/internal/progress"
)

const ffmpegThreads = "16"

// ExtractTracks demuxes/transcodes every usable track of input into
// per-track files under outDir: videos kept in their codec (or copied for
// h264/hevc), audio re-encoded to AAC stereo, subrip subtitles exported
// with their language tag. Runs one ffmpeg per track type, reporting
// throttled progress per run.
func (t *Toolchain) ExtractTracks(ctx context.Context, input string, tracks []Track, outDir string) ([]*ExtractedTrack, error) {
	refDuration := referenceDuration(tracks)

	video, err := t.extractVideo(ctx, input, tracks, filepath.Join(outDir, "videos"), refDuration)
	if err != nil {
		return nil, err
	}

	audio, err := t.extractAudio(ctx, input, tracks, filepath.Join(outDir, "audios"), refDuration)
	if err != nil {
		return nil, err
	}

	subs, err := t.extractSubtitles(ctx, input, tracks, filepath.Join(outDir, "subtitles"), refDuration)
	if err != nil {
		return nil, err
	}

	extracted := make([]*ExtractedTrack, 0, len(video)+len(audio)+len(subs))
	extracted = append(extracted, video...)
	extracted = append(extracted, audio...)
	extracted = append(extracted, subs...)
	return extracted, nil
}

func (t *Toolchain) extractVideo(ctx context.Context, input string, tracks []Track, dir string, refDuration float64) ([]*ExtractedTrack, error) {
	args := ffmpegBaseArgs(input)

	var out []*ExtractedTrack
	for _, track := range tracks {
		if track.Type != TrackVideo {
			continue
		}

		id := uuid.NewString()
		key := fmt.Sprintf("%s_%d.mp4", id, track.BitRate/1000)
		path := filepath.Join(dir, key)

		args = append(args, "-map", mapSpecifier(track.Index), "-an")
		if isCopyCodec(track.Codec) {
			args = append(args, "-vcodec", "copy")
		}
		args = append(args, "-f", "mp4", path)

		out = append(out, &ExtractedTrack{
			ID:    id,
			Key:   key,
			Path:  path,
			Track: track,
			Meta:  streamMeta(track, track.Codec, track.BitRate),
		})
	}

	if len(out) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	const group = "EXTRACTING_VIDEO_TRACKS"
	t.logf(ctx, group, "Initializing video tracks extraction...")
	if err := t.runFFmpeg(ctx, args, group, "Extracting video tracks", refDuration); err != nil {
		return nil, err
	}

	return out, nil
}

func (t *Toolchain) extractAudio(ctx context.Context, input string, tracks []Track, dir string, refDuration float64) ([]*ExtractedTrack, error) {
	args := ffmpegBaseArgs(input)

	var out []*ExtractedTrack
	for _, track := range tracks {
		if track.Type != TrackAudio {
			continue
		}

		id := uuid.NewString()
		key := fmt.Sprintf("%s_%d.mp4", id, track.BitRate/1000)
		if track.Language != "" {
			key = fmt.Sprintf("%s_%s_%d.mp4", id, sanitizeLanguage(track.Language), track.BitRate/1000)
		}
		path := filepath.Join(dir, key)

		args = append(args,
			"-map", mapSpecifier(track.Index),
			"-vn",
			"-acodec", "aac",
			"-b:a", strconv.Itoa(track.BitRate),
		)
		if track.Channels > 2 {
			args = append(args, "-ac", "2")
		}
		args = append(args, "-f", "mp4", path)

		out = append(out, &ExtractedTrack{
			ID:    id,
			Key:   key,
			Path:  path,
			Track: track,
			Meta:  streamMeta(track, "aac", track.BitRate),
		})
	}

	if len(out) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	const group = "EXTRACTING_AUDIO_TRACKS"
	t.logf(ctx, group, "Initializing audio tracks extraction and transcode...")
	if err := t.runFFmpeg(ctx, args, group, "Extracting and transcoding audio tracks", refDuration); err != nil {
		return nil, err
	}

	return out, nil
}

func (t *Toolchain) extractSubtitles(ctx context.Context, input string, tracks []Track, dir string, refDuration float64) ([]*ExtractedTrack, error) {
	args := ffmpegBaseArgs(input)

	var out []*ExtractedTrack
	for _, track := range tracks {
		// only subrip converts cleanly; bitmap subtitles are dropped
		if track.Type != TrackSubtitle || track.Codec != "subrip" {
			continue
		}

		id := uuid.NewString()
		key := id + ".ttml"
		if track.Language != "" {
			key = fmt.Sprintf("%s_%s.ttml", id, sanitizeLanguage(track.Language))
		}
		path := filepath.Join(dir, key)

		args = append(args,
			"-map", mapSpecifier(track.Index),
			"-metadata:s:s:0", "language="+sanitizeLanguage(track.Language),
			"-f", "srt",
			path,
		)

		out = append(out, &ExtractedTrack{
			ID:    id,
			Key:   key,
			Path:  path,
			Track: track,
			Meta:  streamMeta(track, track.Codec, track.BitRate),
		})
	}

	if len(out) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	const group = "EXTRACTING_SUBTITLE_TRACKS"
	t.logf(ctx, group, "Initializing subtitle tracks extraction...")
	if err := t.runFFmpeg(ctx, args, group, "Extracting subtitle tracks", refDuration); err != nil {
		return nil, err
	}

	return out, nil
}

// runFFmpeg executes one ffmpeg invocation, folding its out_time progress
// stream into throttled, de-duplicated log events.
func (t *Toolchain) runFFmpeg(ctx context.Context, args []string, group, activity string, refDuration float64) error {
	tracker := progress.NewTracker(time.Second, func(percent float64, known bool) {
		if known {
			t.logf(ctx, group, "%s... (%.2f%% completed)", activity, percent)
		} else {
			t.logf(ctx, group, "%s...", activity)
		}
	})
	defer tracker.Finish()

	return t.runner.Run(ctx, t.FFmpeg, args, func(mark string) {
		tracker.Observe(progress.Sample{Timemark: mark}, refDuration)
	})
}

func ffmpegBaseArgs(input string) []string {
	return []string{
		"-y",
		"-v", "error",
		"-nostats",
		"-progress", "pipe:1",
		"-i", input,
		"-threads", ffmpegThreads,
	}
}

func mapSpecifier(index int) string {
	return "0:" + strconv.Itoa(index)
}

func isCopyCodec(codec string) bool {
	return codec == "h264" || codec == "hevc"
}

func streamMeta(track Track, codec string, bitRate int) event.StreamMeta {
	return event.StreamMeta{
		OriginalID: track.Index,
		Codec:      codec,
		Duration:   track.Duration,
		Language:   track.Language,
		Channels:   track.Channels,
		BitRate:    bitRate,
		BufSize:    track.BufSize,
	}
}
