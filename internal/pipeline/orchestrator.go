package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/google/uuid"

	"github.com/mediaforge/transcoded/internal/config"
	"github.com/mediaforge/transcoded/internal/event"
	"github.com/mediaforge/transcoded/internal/media"
	"github.com/mediaforge/transcoded/internal/storage"
)

// Transfer moves bytes between the staging area and object storage.
// Implemented by the S3-backed engine; faked in tests.
type Transfer interface {
	Download(ctx context.Context, bucket, key, dst string) error
	UploadFile(ctx context.Context, bucket, key, path string, public bool) error
	SyncDir(ctx context.Context, bucket, prefix, root string) (int, error)
}

// Toolchain is the external probe/encode/package surface the pipeline
// drives.
type Toolchain interface {
	Probe(ctx context.Context, input string) ([]media.Track, error)
	ExtractTracks(ctx context.Context, input string, tracks []media.Track, outDir string) ([]*media.ExtractedTrack, error)
	Thumbnail(ctx context.Context, input, dir string) (key, path string, err error)
	Previews(ctx context.Context, input, dir string) (string, error)
	Fragment(ctx context.Context, tracks []*media.ExtractedTrack, dir string) error
	GenerateManifest(ctx context.Context, tracks []*media.ExtractedTrack, manifestDir string) (keyID, keyValue string, err error)
}

// NewTransferFunc builds the transfer engine once the job spec (and its
// storage credentials) is known.
type NewTransferFunc func(ctx context.Context, spec *event.JobSpec) (Transfer, error)

// Orchestrator runs one job end to end: fetch spec, download, extract,
// fragment, package, upload, report.
type Orchestrator struct {
	cfg         *config.Config
	events      event.Emitter
	source      event.Source
	toolchain   Toolchain
	newTransfer NewTransferFunc
}

// New wires the production orchestrator: HTTP control plane, S3 transfer
// engine, exec-backed toolchain.
func New(cfg *config.Config) *Orchestrator {
	emitter := event.NewHTTP(event.HTTPConfig{
		Token:          cfg.Token,
		ManifestURL:    cfg.ManifestURL,
		LoggerURL:      cfg.LoggerURL,
		StatusURL:      cfg.StatusURL,
		MediaCenterURL: cfg.MediaCenterURL,
	})

	toolchain := media.NewToolchain(
		cfg.FFmpegPath, cfg.FFprobePath, cfg.MP4FragmentPath, cfg.PackagerPath,
		func(ctx context.Context, group, content string) {
			emitter.Log(ctx, event.LogEvent{Content: content, Group: group})
		},
	)

	return &Orchestrator{
		cfg:       cfg,
		events:    emitter,
		source:    emitter,
		toolchain: toolchain,
		newTransfer: func(ctx context.Context, spec *event.JobSpec) (Transfer, error) {
			client, err := storage.NewClient(ctx, storage.S3Config{
				Region:    spec.Region,
				Endpoint:  spec.Endpoint,
				AccessKey: spec.AccessKey,
				SecretKey: spec.SecretKey,
			})
			if err != nil {
				return nil, err
			}
			return &s3Transfer{client: client, events: emitter}, nil
		},
	}
}

type stageText struct {
	group string
	start string
	done  string
}

var stageTexts = map[Stage]stageText{
	StageFetchingMetadata:   {"METADATA", "Fetching job metadata...", "Fetched job metadata successfully"},
	StageDownloading:        {"DOWNLOADING", "Downloading source file...", "Source file downloaded successfully"},
	StageTranscoding:        {"TRANSCODE", "Start processing source file...", "Source file processed successfully"},
	StageFragmenting:        {"FRAGMENTING", "Fragmenting tracks...", "Tracks fragmented"},
	StageGeneratingManifest: {"MANIFEST", "Generating manifest...", "Manifest generated"},
	StageUploading:          {"UPLOAD", "Uploading...", "Uploaded"},
}

// Run executes the whole job. On any unrecovered error it emits one
// failure log carrying the stage and raw error, then the TRANSCODE_ERROR
// status, and returns the error for the process to exit non-zero.
func (o *Orchestrator) Run(ctx context.Context) error {
	job := NewJob(o.cfg.TranscodeID, o.cfg.ExternalID)

	o.events.UpdateJob(ctx, event.JobUpdate{
		IsRunning:    aws.Bool(true),
		JobStartedAt: job.StartedAt.Format(time.RFC3339),
	})

	err := o.run(ctx, job)

	running := aws.Bool(false)
	if err != nil {
		job.Fail()
		o.events.Log(ctx, event.LogEvent{
			Content: fmt.Sprintf("Error while processing: %v", err),
			Group:   "ERROR",
			Data:    map[string]string{"stage": job.Stage().String(), "error": err.Error()},
		})
		o.events.Status(ctx, event.StatusTranscodeError)
		o.events.UpdateJob(ctx, event.JobUpdate{
			IsRunning:  running,
			JobEndedAt: job.EndedAt.Format(time.RFC3339),
		})
		return err
	}

	o.events.UpdateJob(ctx, event.JobUpdate{
		IsRunning:  running,
		JobEndedAt: job.EndedAt.Format(time.RFC3339),
	})

	return nil
}

func (o *Orchestrator) run(ctx context.Context, job *Job) error {
	workDir, err := os.MkdirTemp(o.cfg.WorkDir, "transcoded-*")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			slog.Warn("staging cleanup failed", "dir", workDir, "error", err)
		}
	}()

	// FETCHING_METADATA
	var spec *event.JobSpec
	var transfer Transfer
	err = o.runStage(ctx, job, StageFetchingMetadata, func(ctx context.Context) error {
		var err error
		if spec, err = o.source.FetchJobSpec(ctx); err != nil {
			return err
		}
		transfer, err = o.newTransfer(ctx, spec)
		return err
	})
	if err != nil {
		return err
	}

	// DOWNLOADING
	inputPath := filepath.Join(workDir, uuid.NewString())
	err = o.runStage(ctx, job, StageDownloading, func(ctx context.Context) error {
		return transfer.Download(ctx, spec.Bucket, spec.ObjectKey, inputPath)
	})
	if err != nil {
		return err
	}

	// TRANSCODING_SPLITTING
	var extracted []*media.ExtractedTrack
	var thumbKey, thumbPath, previewsPath string
	err = o.runStage(ctx, job, StageTranscoding, func(ctx context.Context) error {
		tracks, err := o.toolchain.Probe(ctx, inputPath)
		if err != nil {
			return err
		}

		if extracted, err = o.toolchain.ExtractTracks(ctx, inputPath, tracks, workDir); err != nil {
			return err
		}

		if thumbKey, thumbPath, err = o.toolchain.Thumbnail(ctx, inputPath, filepath.Join(workDir, "thumbnails")); err != nil {
			return err
		}

		previewsPath, err = o.toolchain.Previews(ctx, inputPath, filepath.Join(workDir, "previews"))
		return err
	})
	if err != nil {
		return err
	}

	// FRAGMENTING
	err = o.runStage(ctx, job, StageFragmenting, func(ctx context.Context) error {
		if err := o.toolchain.Fragment(ctx, extracted, filepath.Join(workDir, "fragments")); err != nil {
			return err
		}
		// the source file is no longer needed, free the staging space
		if err := os.Remove(inputPath); err != nil {
			slog.Warn("remove source file failed", "path", inputPath, "error", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// GENERATING_MANIFEST
	manifestDir := filepath.Join(workDir, "manifest")
	var keyID, keyValue string
	err = o.runStage(ctx, job, StageGeneratingManifest, func(ctx context.Context) error {
		var err error
		keyID, keyValue, err = o.toolchain.GenerateManifest(ctx, extracted, manifestDir)
		return err
	})
	if err != nil {
		return err
	}

	// UPLOADING
	playlist := playlistKey(spec.Folder)
	thumbnailKey := playlist + "/thumbnails/" + thumbKey
	previewsKey := playlist + "/previews.json"
	err = o.runStage(ctx, job, StageUploading, func(ctx context.Context) error {
		if err := transfer.UploadFile(ctx, spec.Bucket, thumbnailKey, thumbPath, true); err != nil {
			return err
		}
		if err := transfer.UploadFile(ctx, spec.Bucket, previewsKey, previewsPath, true); err != nil {
			return err
		}

		count, err := transfer.SyncDir(ctx, spec.Bucket, playlist, manifestDir)
		if err != nil {
			return err
		}
		slog.Info("manifest published", "key", playlist, "files", count)
		return nil
	})
	if err != nil {
		return err
	}

	// COMPLETED
	if err := job.Advance(StageCompleted); err != nil {
		return err
	}

	streams := make([]event.StreamMeta, 0, len(extracted))
	for _, track := range extracted {
		streams = append(streams, track.Meta)
	}

	o.events.SendMedia(ctx, event.MediaDescriptor{
		Key:          playlist,
		ManifestKey:  playlist + "/" + media.ManifestName,
		Encryption:   event.Encryption{KeyID: keyID, KeyValue: keyValue},
		Origin:       "SHAKA-PACKAGER",
		Type:         "DASH",
		Streams:      streams,
		ThumbnailKey: thumbnailKey,
		PreviewsKey:  previewsKey,
	})

	o.events.Status(ctx, event.StatusCompleted)
	o.events.Log(ctx, event.LogEvent{
		Content: "Process completed successfully",
		Group:   "RESULT",
		StartAt: job.StartedAt.UnixMilli(),
		EndAt:   job.EndedAt.UnixMilli(),
	})

	return nil
}

// runStage advances the state machine, publishes the status before any
// stage work starts, and brackets the work with startAt/endAt logs so
// observers can compute stage durations from the log stream alone.
func (o *Orchestrator) runStage(ctx context.Context, job *Job, stage Stage, fn func(context.Context) error) error {
	if err := job.Advance(stage); err != nil {
		return err
	}

	text := stageTexts[stage]
	startAt := time.Now().UnixMilli()

	o.events.Status(ctx, stage.Status())
	o.events.Log(ctx, event.LogEvent{
		Content: text.start,
		Group:   text.group,
		StartAt: startAt,
	})

	if err := fn(ctx); err != nil {
		return &StageError{Stage: stage, Err: err}
	}

	o.events.Log(ctx, event.LogEvent{
		Content: text.done,
		Group:   text.group,
		StartAt: startAt,
		EndAt:   time.Now().UnixMilli(),
	})

	return nil
}

// playlistKey derives the destination prefix for this run's outputs.
func playlistKey(folder string) string {
	if folder == "" {
		folder = "media"
	}
	return folder + "/" + uuid.NewString()
}

// s3Transfer adapts the storage engine to the Transfer interface, routing
// its progress lines into grouped log events.
type s3Transfer struct {
	client *storage.Client
	events event.Emitter
}

func (t *s3Transfer) Download(ctx context.Context, bucket, key, dst string) error {
	downloader := t.client.Downloader(func(ctx context.Context, content string) {
		t.events.Log(ctx, event.LogEvent{Content: content, Group: "DOWNLOADING"})
	})
	return downloader.Download(ctx, bucket, key, dst)
}

func (t *s3Transfer) UploadFile(ctx context.Context, bucket, key, path string, public bool) error {
	return t.uploader().UploadFile(ctx, bucket, key, path, public)
}

func (t *s3Transfer) SyncDir(ctx context.Context, bucket, prefix, root string) (int, error) {
	return t.uploader().SyncDir(ctx, bucket, prefix, root)
}

func (t *s3Transfer) uploader() *storage.Uploader {
	return t.client.Uploader(func(ctx context.Context, content string) {
		t.events.Log(ctx, event.LogEvent{Content: content, Group: "UPLOAD"})
	})
}
