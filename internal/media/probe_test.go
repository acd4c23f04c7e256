package media

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const probeFixture = `{
	"streams": [
		{
			"index": 0,
			"codec_name": "h264",
			"codec_type": "video",
			"duration": "7200.5",
			"bit_rate": "3000000"
		},
		{
			"index": 1,
			"codec_name": "aac",
			"codec_type": "audio",
			"channels": 6,
			"duration": "N/A",
			"bit_rate": "N/A",
			"tags": {"language": "und", "DURATION": "02:00:00.5"}
		},
		{
			"index": 2,
			"codec_name": "ac3",
			"codec_type": "audio",
			"channels": 2,
			"bit_rate": "192000",
			"tags": {"language": "por", "title": "Portuguese (Brazilian)"}
		},
		{
			"index": 3,
			"codec_name": "subrip",
			"codec_type": "subtitle",
			"tags": {"language": "eng", "title": "English (Forced)"}
		},
		{
			"index": 4,
			"codec_name": "mjpeg",
			"codec_type": "video",
			"tags": {"mimetype": "image/jpeg"}
		},
		{
			"index": 5,
			"codec_name": "",
			"codec_type": "data"
		}
	]
}`

func TestParseProbe(t *testing.T) {
	tracks, err := ParseProbe([]byte(probeFixture))
	require.NoError(t, err)
	require.Len(t, tracks, 4)

	video := tracks[0]
	assert.Equal(t, TrackVideo, video.Type)
	assert.Equal(t, "h264", video.Codec)
	assert.Equal(t, 3000000, video.BitRate)
	assert.Equal(t, "6000000", video.BufSize)
	assert.InDelta(t, 7200.5, video.Duration, 1e-9)

	audio := tracks[1]
	assert.Equal(t, TrackAudio, audio.Type)
	assert.Equal(t, "eng", audio.Language, "und folds to eng")
	assert.Equal(t, 6, audio.Channels)
	assert.Equal(t, 128000, audio.BitRate, "unparseable audio bit rate falls back")
	assert.InDelta(t, 7200.5, audio.Duration, 1e-9, "DURATION tag fallback")

	ptbr := tracks[2]
	assert.Equal(t, "pt-br", ptbr.Language)
	assert.Equal(t, 192000, ptbr.BitRate)

	sub := tracks[3]
	assert.Equal(t, TrackSubtitle, sub.Type)
	assert.True(t, sub.Forced)
	assert.Equal(t, "eng", sub.Language)
}

func TestParseProbeVideoBitRateFallbacks(t *testing.T) {
	t.Run("BPS tag", func(t *testing.T) {
		tracks, err := ParseProbe([]byte(`{"streams":[
			{"index":0,"codec_name":"hevc","codec_type":"video","bit_rate":"N/A","tags":{"BPS":"5000000"}}
		]}`))
		require.NoError(t, err)
		require.Len(t, tracks, 1)
		assert.Equal(t, 5000000, tracks[0].BitRate)
		assert.Equal(t, "10000000", tracks[0].BufSize)
	})

	t.Run("hard default", func(t *testing.T) {
		tracks, err := ParseProbe([]byte(`{"streams":[
			{"index":0,"codec_name":"hevc","codec_type":"video"}
		]}`))
		require.NoError(t, err)
		require.Len(t, tracks, 1)
		assert.Equal(t, 4000000, tracks[0].BitRate)
		assert.Equal(t, "8M", tracks[0].BufSize)
	})
}

func TestParseProbeDefaultChannels(t *testing.T) {
	tracks, err := ParseProbe([]byte(`{"streams":[
		{"index":0,"codec_name":"aac","codec_type":"audio"}
	]}`))
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, 2, tracks[0].Channels)
}

func TestParseProbeInvalidJSON(t *testing.T) {
	_, err := ParseProbe([]byte("not json"))
	assert.Error(t, err)
}

func TestProbeRunsFFprobe(t *testing.T) {
	r := &fakeRunner{
		outputFn: func(bin string, args []string) ([]byte, error) {
			return []byte(`{"streams":[]}`), nil
		},
	}

	tc := testToolchain(r)
	_, err := tc.Probe(context.Background(), "/tmp/in.mkv")
	require.NoError(t, err)

	require.Len(t, r.outputCalls, 1)
	assert.Equal(t, "ffprobe", r.outputCalls[0].bin)
	assert.Equal(t, []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		"/tmp/in.mkv",
	}, r.outputCalls[0].args)
}

func TestReferenceDuration(t *testing.T) {
	assert.Equal(t, 0.0, referenceDuration(nil))

	// audio wins even when a video track with a duration comes first
	assert.Equal(t, 118.5, referenceDuration([]Track{
		{Type: TrackVideo, Duration: 120},
		{Type: TrackAudio, Duration: 118.5},
		{Type: TrackAudio, Duration: 60},
	}))

	// no usable audio falls back to any track with a duration
	assert.Equal(t, 120.0, referenceDuration([]Track{
		{Type: TrackAudio, Duration: 0},
		{Type: TrackVideo, Duration: 120},
	}))
}
