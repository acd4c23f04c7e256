// Package event publishes job status, logs and results to the control
// plane. Emission is fire-and-forget: a dead sink never fails a job.
package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"
	"github.com/imroc/req/v3"
)

// Emitter is the sink the pipeline reports through. Log and Status are
// best-effort; failures are logged locally and swallowed.
type Emitter interface {
	Log(ctx context.Context, e LogEvent)
	Status(ctx context.Context, s Status)
	UpdateJob(ctx context.Context, u JobUpdate)
	SendMedia(ctx context.Context, m MediaDescriptor)
}

// Source fetches the job descriptor for the configured token.
type Source interface {
	FetchJobSpec(ctx context.Context) (*JobSpec, error)
}

type HTTPConfig struct {
	Token          string
	ManifestURL    string
	LoggerURL      string
	StatusURL      string
	MediaCenterURL string
}

// HTTPEmitter implements Emitter and Source over plain HTTP callbacks.
type HTTPEmitter struct {
	client *req.Client
	cfg    HTTPConfig
}

func NewHTTP(cfg HTTPConfig) *HTTPEmitter {
	client := req.C().
		SetTimeout(30 * time.Second).
		SetUserAgent("transcoded").
		SetJsonMarshal(json.Marshal).
		SetJsonUnmarshal(json.Unmarshal)

	return &HTTPEmitter{
		client: client,
		cfg:    cfg,
	}
}

type envelope struct {
	Token string `json:"token"`
	Data  any    `json:"data"`
}

func (h *HTTPEmitter) Log(ctx context.Context, e LogEvent) {
	if e.Ts == 0 {
		e.Ts = time.Now().UnixMilli()
	}

	slog.Info("event log", "group", e.Group, "content", e.Content)

	if h.cfg.LoggerURL == "" {
		return
	}

	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(&envelope{Token: h.cfg.Token, Data: e}).
		Post(h.cfg.LoggerURL)
	if err != nil || resp.IsErrorState() {
		slog.Warn("event log delivery failed", "error", err, "status", respStatus(resp))
	}
}

func (h *HTTPEmitter) Status(ctx context.Context, s Status) {
	slog.Info("event status", "status", s)

	if h.cfg.StatusURL == "" {
		return
	}

	body := &envelope{Token: h.cfg.Token, Data: map[string]Status{"status": s}}
	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(body).
		Put(h.cfg.StatusURL)
	if err != nil || resp.IsErrorState() {
		slog.Warn("event status delivery failed", "status", s, "error", err, "httpStatus", respStatus(resp))
	}
}

func (h *HTTPEmitter) UpdateJob(ctx context.Context, u JobUpdate) {
	if h.cfg.StatusURL == "" {
		return
	}

	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(&envelope{Token: h.cfg.Token, Data: u}).
		Put(h.cfg.StatusURL)
	if err != nil || resp.IsErrorState() {
		slog.Warn("job update delivery failed", "error", err, "status", respStatus(resp))
	}
}

func (h *HTTPEmitter) SendMedia(ctx context.Context, m MediaDescriptor) {
	if h.cfg.MediaCenterURL == "" {
		slog.Warn("media registrar not configured, descriptor dropped", "key", m.Key)
		return
	}

	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(&envelope{Token: h.cfg.Token, Data: m}).
		Post(h.cfg.MediaCenterURL)
	if err != nil || resp.IsErrorState() {
		slog.Warn("media descriptor delivery failed", "key", m.Key, "error", err, "status", respStatus(resp))
	}
}

// FetchJobSpec gets the job descriptor. Unlike the emit methods this is
// load-bearing: the job cannot start without it.
func (h *HTTPEmitter) FetchJobSpec(ctx context.Context) (*JobSpec, error) {
	var spec JobSpec

	resp, err := h.client.R().
		SetContext(ctx).
		SetQueryParam("token", h.cfg.Token).
		SetSuccessResult(&spec).
		Get(h.cfg.ManifestURL)
	if err != nil {
		return nil, fmt.Errorf("fetch job spec: %w", err)
	}
	if resp.IsErrorState() {
		return nil, fmt.Errorf("fetch job spec: %s", resp.Status)
	}

	if spec.ObjectKey == "" {
		return nil, fmt.Errorf("fetch job spec: object key missing")
	}

	return &spec, nil
}

func respStatus(resp *req.Response) string {
	if resp == nil || resp.Response == nil {
		return ""
	}
	return resp.Status
}

var (
	_ Emitter = (*HTTPEmitter)(nil)
	_ Source  = (*HTTPEmitter)(nil)
)
