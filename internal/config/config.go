package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds everything a single transcode job needs before it can talk
// to the control plane. Storage credentials are not part of it - they
// arrive with the job spec fetched from ManifestURL.
type Config struct {
	// Control plane
	Token          string
	ManifestURL    string
	LoggerURL      string
	StatusURL      string
	MediaCenterURL string

	// Optional job identity, echoed back in reports when set.
	TranscodeID string
	ExternalID  string

	// Local staging area for downloaded input and produced tracks.
	WorkDir string

	// External tool binaries.
	FFmpegPath      string
	FFprobePath     string
	MP4FragmentPath string
	PackagerPath    string
}

func Load() (*Config, error) {
	// .env is optional, real deployments pass plain env vars
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("work_dir", os.TempDir())
	v.SetDefault("ffmpeg_path", "ffmpeg")
	v.SetDefault("ffprobe_path", "ffprobe")
	v.SetDefault("mp4fragment_path", "mp4fragment")
	v.SetDefault("packager_path", "packager")
	v.AutomaticEnv()

	cfg := &Config{
		Token:           v.GetString("token"),
		ManifestURL:     v.GetString("manifest_url"),
		LoggerURL:       v.GetString("logger_url"),
		StatusURL:       v.GetString("transcodes_api_url"),
		MediaCenterURL:  v.GetString("media_center_url"),
		TranscodeID:     v.GetString("transcode_id"),
		ExternalID:      v.GetString("external_id"),
		WorkDir:         v.GetString("work_dir"),
		FFmpegPath:      v.GetString("ffmpeg_path"),
		FFprobePath:     v.GetString("ffprobe_path"),
		MP4FragmentPath: v.GetString("mp4fragment_path"),
		PackagerPath:    v.GetString("packager_path"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("config: TOKEN is required")
	}
	if c.ManifestURL == "" {
		return fmt.Errorf("config: MANIFEST_URL is required")
	}
	if c.WorkDir == "" {
		return fmt.Errorf("config: WORK_DIR is required")
	}
	return nil
}
