// Package pipeline sequences the stages of one transcode job and owns the
// job-level failure decision. Lower layers fail fast; only the
// orchestrator decides the job's fate.
package pipeline

import (
	"fmt"
	"time"

	"github.com/mediaforge/transcoded/internal/event"
)

// Stage is one phase of the forward-only job state machine.
type Stage int

const (
	StagePending Stage = iota
	StageFetchingMetadata
	StageDownloading
	StageTranscoding
	StageFragmenting
	StageGeneratingManifest
	StageUploading
	StageCompleted
)

var stageNames = map[Stage]string{
	StagePending:            "PENDING",
	StageFetchingMetadata:   "FETCHING_METADATA",
	StageDownloading:        "DOWNLOADING",
	StageTranscoding:        "TRANSCODING_SPLITTING",
	StageFragmenting:        "FRAGMENTING",
	StageGeneratingManifest: "GENERATING_MANIFEST",
	StageUploading:          "UPLOADING",
	StageCompleted:          "COMPLETED",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Status maps the stage onto the published status enum.
func (s Stage) Status() event.Status {
	return event.Status(s.String())
}

// Job is the mutable state of one pipeline run. The stage only ever moves
// forward, one step at a time; a failed job absorbs into TRANSCODE_ERROR
// and cannot advance again.
type Job struct {
	TranscodeID string
	ExternalID  string
	StartedAt   time.Time
	EndedAt     time.Time

	stage   Stage
	failed  bool
	history []Stage
}

func NewJob(transcodeID, externalID string) *Job {
	return &Job{
		TranscodeID: transcodeID,
		ExternalID:  externalID,
		StartedAt:   time.Now().UTC(),
		stage:       StagePending,
		history:     []Stage{StagePending},
	}
}

func (j *Job) Stage() Stage {
	return j.stage
}

func (j *Job) Failed() bool {
	return j.failed
}

// History returns every stage the job passed through, in order.
func (j *Job) History() []Stage {
	return j.history
}

// Advance moves the job to next. Skipping ahead, moving backwards,
// re-entering the current stage and advancing a failed job are all
// programming errors surfaced as errors rather than silent corruption.
func (j *Job) Advance(next Stage) error {
	if j.failed {
		return fmt.Errorf("job failed at %s, cannot advance to %s", j.stage, next)
	}
	if next != j.stage+1 {
		return fmt.Errorf("invalid stage transition %s -> %s", j.stage, next)
	}

	j.stage = next
	j.history = append(j.history, next)

	if next == StageCompleted {
		j.EndedAt = time.Now().UTC()
	}

	return nil
}

// Fail absorbs the job into its terminal error state.
func (j *Job) Fail() {
	if j.failed || j.stage == StageCompleted {
		return
	}
	j.failed = true
	j.EndedAt = time.Now().UTC()
}

// StageError wraps a stage failure with the stage it happened in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
