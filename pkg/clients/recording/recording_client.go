package recording_client

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sachin-pal89/Saarathi-Recorder/pkg/commons"
	storage_objects "github.com/sachin-pal89/Saarathi-Recorder/pkg/storages/object-storage"
)

// ClientConfig points the client at a recording API deployment.
type ClientConfig struct {
	BaseURL string
	UserId  string
	Timeout time.Duration
}

// FinalizeResult is the server response to a finalize call.
type FinalizeResult struct {
	FilePath    string `json:"file_path"`
	DurationSec int64  `json:"duration_sec"`
}

// RecordingServiceClient is the upward facing contract the capture pipeline
// consumes: create a recording, push segments, finalize. Each call returns
// success or failure only; there is no partial success shape.
type RecordingServiceClient interface {
	CreateRecording(ctx context.Context, customerId, purpose string, recordedOn time.Time, mime string) (string, error)
	UploadSegment(ctx context.Context, recordingId string, index int, data []byte, mime string) error
	FinalizeRecording(ctx context.Context, recordingId string) (*FinalizeResult, error)
}

type recordingServiceClient struct {
	cfg    ClientConfig
	logger commons.Logger
	rest   *resty.Client
}

func NewRecordingServiceClient(cfg ClientConfig, logger commons.Logger) RecordingServiceClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	rest := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("X-User-Id", cfg.UserId)

	return &recordingServiceClient{
		cfg:    cfg,
		logger: logger,
		rest:   rest,
	}
}

type createRecordingResponse struct {
	RecordingId string `json:"recording_id"`
}

func (client *recordingServiceClient) CreateRecording(ctx context.Context, customerId, purpose string, recordedOn time.Time, mime string) (string, error) {
	var out createRecordingResponse
	resp, err := client.rest.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"customer_id": customerId,
			"purpose":     purpose,
			"recorded_on": recordedOn.UTC().Format(time.RFC3339),
			"mime":        mime,
		}).
		SetResult(&out).
		Post("/api/recordings")
	if err != nil {
		return "", fmt.Errorf("create recording request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("create recording rejected: %s: %s", resp.Status(), resp.String())
	}

	client.logger.Debugf("created recording on server: id=%s", out.RecordingId)
	return out.RecordingId, nil
}

func (client *recordingServiceClient) UploadSegment(ctx context.Context, recordingId string, index int, data []byte, mime string) error {
	fileName := fmt.Sprintf("segment_%d.%s", index, storage_objects.ExtensionForMime(mime))
	resp, err := client.rest.R().
		SetContext(ctx).
		SetMultipartField("segment", fileName, mime, bytes.NewReader(data)).
		SetMultipartFormData(map[string]string{"index": strconv.Itoa(index)}).
		Post(fmt.Sprintf("/api/recordings/%s/segments", recordingId))
	if err != nil {
		return fmt.Errorf("segment %d upload request failed: %w", index, err)
	}
	if resp.IsError() {
		return fmt.Errorf("segment %d upload rejected: %s: %s", index, resp.Status(), resp.String())
	}
	return nil
}

func (client *recordingServiceClient) FinalizeRecording(ctx context.Context, recordingId string) (*FinalizeResult, error) {
	var out FinalizeResult
	resp, err := client.rest.R().
		SetContext(ctx).
		SetResult(&out).
		Post(fmt.Sprintf("/api/recordings/%s/finalize", recordingId))
	if err != nil {
		return nil, fmt.Errorf("finalize request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("finalize rejected: %s: %s", resp.Status(), resp.String())
	}

	client.logger.Infof("finalized recording on server: id=%s, duration=%ds", recordingId, out.DurationSec)
	return &out, nil
}
