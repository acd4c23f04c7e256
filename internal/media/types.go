// Package media drives the external probe/encode/package tools. Every
// invocation is a typed argument vector handed to the process runner;
// nothing is ever interpolated into a shell string.
package media

import (
	"context"
	"fmt"

	"github.com/mediaforge/transcoded/internal/event"
)

type TrackType string

const (
	TrackVideo    TrackType = "VIDEO"
	TrackAudio    TrackType = "AUDIO"
	TrackSubtitle TrackType = "SUBTITLE"
)

// Track is one stream of the probed source container.
type Track struct {
	Index    int
	Type     TrackType
	Codec    string
	Language string
	Forced   bool
	BitRate  int
	BufSize  string
	Channels int
	Duration float64
}

// ExtractedTrack is one produced output file plus the metadata row that
// ends up in the media descriptor.
type ExtractedTrack struct {
	ID             string
	Key            string
	Path           string
	FragmentedPath string
	Track          Track
	Meta           event.StreamMeta
}

// sourcePath is the file the next stage should consume: the fragmented
// rendition when one exists, the raw extraction otherwise.
func (t *ExtractedTrack) sourcePath() string {
	if t.FragmentedPath != "" {
		return t.FragmentedPath
	}
	return t.Path
}

// LogFunc receives human-readable tool progress grouped per operation.
type LogFunc func(ctx context.Context, group, content string)

// Toolchain binds the external tool binaries to one job's staging area.
type Toolchain struct {
	FFmpeg      string
	FFprobe     string
	MP4Fragment string
	Packager    string

	Log    LogFunc
	runner runner
}

// NewToolchain wires the binaries; log may be nil for silent operation.
func NewToolchain(ffmpeg, ffprobe, mp4fragment, packager string, log LogFunc) *Toolchain {
	return &Toolchain{
		FFmpeg:      ffmpeg,
		FFprobe:     ffprobe,
		MP4Fragment: mp4fragment,
		Packager:    packager,
		Log:         log,
		runner:      execRunner{},
	}
}

func (t *Toolchain) logf(ctx context.Context, group, format string, args ...any) {
	if t.Log != nil {
		t.Log(ctx, group, fmt.Sprintf(format, args...))
	}
}
