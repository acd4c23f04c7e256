package media

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// ManifestName is the DASH manifest file produced by the packager.
	ManifestName = "manifest.mpd"

	drmLabel = "cenc"
)

// sanitizeLanguage strips everything but letters, digits and hyphens from
// a language tag. Tags come from untrusted container metadata and end up
// inside comma-separated packager stream descriptors.
func sanitizeLanguage(lang string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return -1
	}, lang)
}

// streamDescriptor builds one packager in=,stream=,output= argument.
func streamDescriptor(track *ExtractedTrack, output string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "in=%s,stream=%s,output=%s", track.sourcePath(), packagerStreamType(track.Track.Type), output)
	if lang := sanitizeLanguage(track.Track.Language); lang != "" {
		fmt.Fprintf(&b, ",lang=%s", lang)
	}
	fmt.Fprintf(&b, ",drm_label=%s", drmLabel)

	return b.String()
}

func packagerStreamType(t TrackType) string {
	switch t {
	case TrackVideo:
		return "video"
	case TrackAudio:
		return "audio"
	case TrackSubtitle:
		return "text"
	default:
		return ""
	}
}

func trackOutputDir(manifestDir string, t TrackType) string {
	switch t {
	case TrackVideo:
		return filepath.Join(manifestDir, "videos")
	case TrackAudio:
		return filepath.Join(manifestDir, "audios")
	default:
		return filepath.Join(manifestDir, "subtitles")
	}
}

// GenerateManifest packages the extracted tracks into an encrypted DASH
// manifest under manifestDir and returns the raw encryption key material.
func (t *Toolchain) GenerateManifest(ctx context.Context, tracks []*ExtractedTrack, manifestDir string) (keyID, keyValue string, err error) {
	keyID, err = randomHexKey()
	if err != nil {
		return "", "", err
	}
	keyValue, err = randomHexKey()
	if err != nil {
		return "", "", err
	}

	var args []string
	for _, track := range tracks {
		dir := trackOutputDir(manifestDir, track.Track.Type)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", "", err
		}
		args = append(args, streamDescriptor(track, filepath.Join(dir, track.Key)))
	}

	args = append(args,
		"--clear_lead", "0",
		"--keys", fmt.Sprintf("label=%s:key_id=%s:key=%s", drmLabel, keyID, keyValue),
		"--enable_raw_key_encryption",
		"--mpd_output", filepath.Join(manifestDir, ManifestName),
	)

	const group = "GENERATING_MANIFEST"
	t.logf(ctx, group, "Generating manifest...")

	if _, err := t.runner.Output(ctx, t.Packager, args); err != nil {
		return "", "", fmt.Errorf("generate manifest: %w", err)
	}

	t.logf(ctx, group, "Manifest generated successfully")

	return keyID, keyValue, nil
}

func randomHexKey() (string, error) {
	var key [16]byte
	if _, err := rand.Read(key[:]); err != nil {
		return "", fmt.Errorf("generate encryption key: %w", err)
	}
	return hex.EncodeToString(key[:]), nil
}
