package media

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/mediaforge/transcoded/internal/progress"
)

const (
	defaultAudioBitRate = 128_000
	defaultVideoBitRate = 4_000_000
	defaultBufSize      = "8M"
)

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
}

// ffprobeStream mirrors the ffprobe JSON shape. Numeric fields arrive as
// strings and may hold the literal "N/A".
type ffprobeStream struct {
	Index     int               `json:"index"`
	CodecName string            `json:"codec_name"`
	CodecType string            `json:"codec_type"`
	Channels  int               `json:"channels"`
	Duration  string            `json:"duration"`
	BitRate   string            `json:"bit_rate"`
	Tags      map[string]string `json:"tags"`
}

// Probe lists the usable tracks of the container at path.
func (t *Toolchain) Probe(ctx context.Context, path string) ([]Track, error) {
	out, err := t.runner.Output(ctx, t.FFprobe, []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	})
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", path, err)
	}

	return ParseProbe(out)
}

// ParseProbe converts raw ffprobe JSON into tracks, applying the language
// and bit-rate normalization rules of the probe contract. Attached image
// streams (cover art) and codec-less streams are skipped.
func ParseProbe(data []byte) ([]Track, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse probe output: %w", err)
	}

	var tracks []Track
	for _, s := range probe.Streams {
		if strings.HasPrefix(s.Tags["mimetype"], "image/") {
			continue
		}
		if s.CodecName == "" {
			continue
		}

		var trackType TrackType
		switch s.CodecType {
		case "video":
			trackType = TrackVideo
		case "audio":
			trackType = TrackAudio
		case "subtitle":
			trackType = TrackSubtitle
		default:
			continue
		}

		channels := s.Channels
		if channels == 0 {
			channels = 2
		}

		language, forced := streamLanguage(s)
		bitRate := streamBitRate(s, trackType)

		track := Track{
			Index:    s.Index,
			Type:     trackType,
			Codec:    s.CodecName,
			Language: language,
			Forced:   forced,
			BitRate:  bitRate,
			Channels: channels,
			Duration: streamDuration(s),
		}
		if trackType == TrackVideo {
			track.BufSize = streamBufSize(s)
		}

		tracks = append(tracks, track)
	}

	return tracks, nil
}

// streamLanguage resolves the language tag, fixing up the Portuguese
// variants hidden in the title tag and folding "und" to English.
func streamLanguage(s ffprobeStream) (string, bool) {
	language := s.Tags["language"]
	if language == "" {
		language = s.Tags["lang"]
	}

	forced := false
	if language != "" {
		title := s.Tags["title"]
		if strings.Contains(title, "Forced") {
			forced = true
		}
		switch title {
		case "Portuguese (Brazilian)":
			language = "pt-br"
		case "Portuguese (European)":
			language = "pt"
		}
	}

	if language == "und" {
		language = "eng"
	}

	return language, forced
}

func streamDuration(s ffprobeStream) float64 {
	if s.Duration != "" && s.Duration != "N/A" {
		if v, err := strconv.ParseFloat(s.Duration, 64); err == nil {
			return v
		}
	}

	if mark := s.Tags["DURATION"]; mark != "" {
		return progress.ParseTimemark(mark)
	}

	return 0
}

func streamBitRate(s ffprobeStream, trackType TrackType) int {
	if v, err := strconv.Atoi(s.BitRate); err == nil && v > 0 {
		return v
	}

	if trackType == TrackAudio {
		return defaultAudioBitRate
	}

	if v, err := strconv.Atoi(s.Tags["BPS"]); err == nil && v > 0 {
		return v
	}

	return defaultVideoBitRate
}

func streamBufSize(s ffprobeStream) string {
	rate, err := strconv.Atoi(s.BitRate)
	if err != nil || rate <= 0 {
		rate, err = strconv.Atoi(s.Tags["BPS"])
		if err != nil || rate <= 0 {
			return defaultBufSize
		}
	}
	return strconv.Itoa(rate * 2)
}

// referenceDuration picks the duration progress percentages are computed
// against: the first audio track that knows how long it is, falling back
// to any track with a duration.
func referenceDuration(tracks []Track) float64 {
	for _, track := range tracks {
		if track.Type == TrackAudio && track.Duration > 0 {
			return track.Duration
		}
	}
	for _, track := range tracks {
		if track.Duration > 0 {
			return track.Duration
		}
	}
	return 0
}
