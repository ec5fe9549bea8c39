package recording_api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	internal_service "github.com/sachin-pal89/Saarathi-Recorder/api/recording-api/internal/services"
	"github.com/sachin-pal89/Saarathi-Recorder/config"
	"github.com/sachin-pal89/Saarathi-Recorder/pkg/commons"
	storage_objects "github.com/sachin-pal89/Saarathi-Recorder/pkg/storages/object-storage"
)

// DefaultUserId stands in for the authenticated principal while the auth
// collaborator is stubbed out. Real deployments replace the identity
// middleware; nothing in this API depends on how the user id is minted.
const DefaultUserId = "00000000-0000-0000-0000-000000000001"

// RecordingApi exposes the segmented recording upload and finalize surface.
type RecordingApi struct {
	cfg              *config.AppConfig
	logger           commons.Logger
	recordingService internal_service.RecordingService
	storage          storage_objects.Storage
}

func NewRecordingApi(cfg *config.AppConfig, logger commons.Logger, recordingService internal_service.RecordingService, storage storage_objects.Storage) *RecordingApi {
	return &RecordingApi{
		cfg:              cfg,
		logger:           logger,
		recordingService: recordingService,
		storage:          storage,
	}
}

type createRecordingRequest struct {
	CustomerId string `json:"customer_id" binding:"required,uuid"`
	Purpose    string `json:"purpose" binding:"required"`
	RecordedOn string `json:"recorded_on" binding:"required"`
	Mime       string `json:"mime" binding:"required"`
}

func requestUserId(c *gin.Context) string {
	if userId := c.GetHeader("X-User-Id"); userId != "" {
		return userId
	}
	return DefaultUserId
}

// Create registers a new recording session.
// POST /api/recordings
func (api *RecordingApi) Create(c *gin.Context) {
	var request createRecordingRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	recordedOn, err := time.Parse(time.RFC3339, request.RecordedOn)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recorded_on must be an RFC3339 timestamp"})
		return
	}

	recording, err := api.recordingService.Create(c.Request.Context(), requestUserId(c), request.CustomerId, request.Purpose, recordedOn, request.Mime)
	if err != nil {
		api.logger.Errorf("create recording failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create recording"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"recording_id": recording.Id})
}

// UploadSegment stores one segment blob and registers its metadata.
// POST /api/recordings/:id/segments  (multipart: segment=<file>, index=<n>)
func (api *RecordingApi) UploadSegment(c *gin.Context) {
	recordingId := c.Param("id")

	index, err := strconv.Atoi(c.PostForm("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must be a non-negative integer"})
		return
	}

	fileHeader, err := c.FormFile("segment")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	if fileHeader.Size > api.cfg.MaxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Segment exceeds upload size limit"})
		return
	}

	recording, err := api.recordingService.Get(c.Request.Context(), recordingId, requestUserId(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recording not found"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unable to read uploaded file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unable to read uploaded file"})
		return
	}

	mime := fileHeader.Header.Get("Content-Type")
	if mime == "" {
		mime = recording.Mime
	}

	segment, err := api.recordingService.AddSegment(c.Request.Context(), recording, index, data, mime)
	if err != nil {
		api.logger.Errorf("segment upload failed: recording=%s, index=%d: %v", recordingId, index, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save segment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"segment_id": segment.Id,
		"file_path":  segment.FilePath,
	})
}

// Finalize stitches all uploaded segments into the final artifact.
// POST /api/recordings/:id/finalize
func (api *RecordingApi) Finalize(c *gin.Context) {
	recording, err := api.recordingService.Get(c.Request.Context(), c.Param("id"), requestUserId(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recording not found"})
		return
	}

	finalized, err := api.recordingService.Finalize(c.Request.Context(), recording)
	if err != nil {
		switch {
		case errors.Is(err, internal_service.ErrFinalizeInProgress), errors.Is(err, internal_service.ErrAlreadyFinalized):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, internal_service.ErrEmptySegments):
			c.JSON(http.StatusBadRequest, gin.H{"error": "No segments found for recording"})
		default:
			api.logger.Errorf("finalize failed: recording=%s: %v", recording.Id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to finalize recording"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"file_path":    *finalized.FilePath,
		"duration_sec": finalized.DurationSec,
	})
}

// List returns recordings matching the query filters, newest first. Final
// artifacts are exposed through temporary signed URLs.
// GET /api/recordings
func (api *RecordingApi) List(c *gin.Context) {
	criteria := internal_service.ListCriteria{
		UserId:     c.Query("user_id"),
		CustomerId: c.Query("customer_id"),
	}
	if criteria.UserId == "" {
		criteria.UserId = requestUserId(c)
	}
	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be an RFC3339 timestamp"})
			return
		}
		criteria.From = &t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be an RFC3339 timestamp"})
			return
		}
		criteria.To = &t
	}

	recordings, err := api.recordingService.List(c.Request.Context(), criteria)
	if err != nil {
		api.logger.Errorf("list recordings failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch recordings"})
		return
	}

	for _, recording := range recordings {
		api.signFilePath(recording.Id, &recording.FilePath)
	}

	c.JSON(http.StatusOK, gin.H{"recordings": recordings})
}

// Get returns one recording with a signed playback URL when finalized.
// GET /api/recordings/:id
func (api *RecordingApi) Get(c *gin.Context) {
	recording, err := api.recordingService.Get(c.Request.Context(), c.Param("id"), requestUserId(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recording not found"})
		return
	}

	api.signFilePath(recording.Id, &recording.FilePath)
	c.JSON(http.StatusOK, recording)
}

// signFilePath swaps a bucket path for a signed URL in place. Failures are
// logged and leave the raw path untouched; playback degrades, listing does
// not break.
func (api *RecordingApi) signFilePath(recordingId string, path **string) {
	if *path == nil {
		return
	}
	url, err := api.storage.SignedURL(**path, time.Duration(api.cfg.SignedUrlTTL)*time.Second)
	if err != nil {
		api.logger.Errorf("failed to sign url for recording %s: %v", recordingId, err)
		return
	}
	*path = &url
}
