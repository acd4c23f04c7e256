package event

// Status is the coarse machine-consumable state of a transcode job,
// published once per stage transition.
type Status string

const (
	StatusPending            Status = "PENDING"
	StatusFetchingMetadata   Status = "FETCHING_METADATA"
	StatusDownloading        Status = "DOWNLOADING"
	StatusTranscoding        Status = "TRANSCODING_SPLITTING"
	StatusFragmenting        Status = "FRAGMENTING"
	StatusGeneratingManifest Status = "GENERATING_MANIFEST"
	StatusUploading          Status = "UPLOADING"
	StatusCompleted          Status = "COMPLETED"
	StatusTranscodeError     Status = "TRANSCODE_ERROR"
)

// LogEvent is a human-readable timestamped record. StartAt/EndAt bracket a
// stage so observers can compute durations from the log stream alone.
type LogEvent struct {
	Content  string `json:"content"`
	Group    string `json:"group,omitempty"`
	SubGroup string `json:"subGroup,omitempty"`
	StartAt  int64  `json:"startAt,omitempty"`
	EndAt    int64  `json:"endAt,omitempty"`
	Ts       int64  `json:"timestamp"`
	Data     any    `json:"data,omitempty"`
}

// JobUpdate mutates the job row on the control plane.
type JobUpdate struct {
	IsRunning    *bool  `json:"isRunning,omitempty"`
	JobStartedAt string `json:"jobStartedAt,omitempty"`
	JobEndedAt   string `json:"jobEndedAt,omitempty"`
}

// JobSpec is the job descriptor fetched at startup: where the input lives
// and the credentials to reach it.
type JobSpec struct {
	Folder    string `json:"FOLDER,omitempty"`
	ObjectKey string `json:"OBJECT_KEY"`
	Bucket    string `json:"BUCKET"`
	Region    string `json:"AWS_REGION"`
	Endpoint  string `json:"AWS_ENDPOINT"`
	AccessKey string `json:"AWS_ACCESS_KEY_ID"`
	SecretKey string `json:"AWS_SECRET_ACCESS_KEY"`
}

// StreamMeta describes one produced track in the final media descriptor.
type StreamMeta struct {
	OriginalID int     `json:"originalId"`
	Codec      string  `json:"codec"`
	Duration   float64 `json:"duration"`
	Language   string  `json:"language,omitempty"`
	Channels   int     `json:"channels,omitempty"`
	BitRate    int     `json:"bitRate"`
	BufSize    string  `json:"bufSize,omitempty"`
}

// Encryption carries the raw-key material the packager used.
type Encryption struct {
	KeyID    string `json:"keyId"`
	KeyValue string `json:"keyValue"`
}

// MediaDescriptor is posted to the media registrar after a successful run.
type MediaDescriptor struct {
	Key          string       `json:"key"`
	ManifestKey  string       `json:"manifestKey"`
	Encryption   Encryption   `json:"encryption"`
	Origin       string       `json:"origin"`
	Type         string       `json:"type"`
	Streams      []StreamMeta `json:"streams"`
	ThumbnailKey string       `json:"thumbnailKey,omitempty"`
	PreviewsKey  string       `json:"previewsKey,omitempty"`
}
