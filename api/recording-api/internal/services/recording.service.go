package internal_service

import (
	"context"
	"errors"
	"fmt"
	"time"

	internal_entity "github.com/sachin-pal89/Saarathi-Recorder/api/recording-api/internal/entity"
	"github.com/sachin-pal89/Saarathi-Recorder/pkg/commons"
	"github.com/sachin-pal89/Saarathi-Recorder/pkg/connectors"
	storage_objects "github.com/sachin-pal89/Saarathi-Recorder/pkg/storages/object-storage"
)

var (
	// ErrRecordingNotFound is returned when a recording id does not resolve
	// for the requesting user.
	ErrRecordingNotFound = errors.New("recording not found")

	// ErrFinalizeInProgress is returned to the loser of the finalize claim:
	// another call is already stitching this recording.
	ErrFinalizeInProgress = errors.New("finalize already in progress")

	// ErrAlreadyFinalized is returned when finalize is re-invoked after a
	// successful stitch. The operation never runs twice.
	ErrAlreadyFinalized = errors.New("recording already finalized")
)

// ListCriteria filters the recording listing. Zero values are skipped.
type ListCriteria struct {
	UserId     string
	CustomerId string
	From       *time.Time
	To         *time.Time
}

// RecordingService owns recording and segment metadata plus the segment
// blobs backing them.
type RecordingService interface {
	// Create registers a new capture session. FilePath stays null and
	// DurationSec stays 0 until finalize.
	Create(ctx context.Context, userId, customerId, purpose string, recordedOn time.Time, mime string) (*internal_entity.Recording, error)

	// Get resolves a recording owned by userId.
	Get(ctx context.Context, recordingId, userId string) (*internal_entity.Recording, error)

	// List returns recordings matching the criteria, newest first.
	List(ctx context.Context, criteria ListCriteria) ([]*internal_entity.Recording, error)

	// AddSegment stores the segment blob at the conventional path and
	// registers its metadata.
	AddSegment(ctx context.Context, recording *internal_entity.Recording, index int, data []byte, mime string) (*internal_entity.Segment, error)

	// Segments returns all registered segments of a recording, ascending
	// by index.
	Segments(ctx context.Context, recordingId string) ([]*internal_entity.Segment, error)

	// Finalize claims the recording, stitches its segments and publishes
	// the final artifact. A failed stitch releases the claim so finalize
	// can be retried once the missing segments are present.
	Finalize(ctx context.Context, recording *internal_entity.Recording) (*internal_entity.Recording, error)
}

type recordingService struct {
	logger   commons.Logger
	postgres connectors.PostgresConnector
	storage  storage_objects.Storage
	stitcher StitcherService
}

// NewRecordingService wires the metadata store, the blob store and the
// stitcher together.
func NewRecordingService(logger commons.Logger, postgres connectors.PostgresConnector, storage storage_objects.Storage, stitcher StitcherService) RecordingService {
	return &recordingService{
		logger:   logger,
		postgres: postgres,
		storage:  storage,
		stitcher: stitcher,
	}
}

func (s *recordingService) Create(ctx context.Context, userId, customerId, purpose string, recordedOn time.Time, mime string) (*internal_entity.Recording, error) {
	recording := &internal_entity.Recording{
		UserId:     userId,
		CustomerId: customerId,
		Purpose:    purpose,
		RecordedOn: recordedOn,
		Mime:       mime,
		Status:     internal_entity.RecordingStatusCreated,
	}

	db := s.postgres.DB(ctx)
	if err := db.Create(recording).Error; err != nil {
		return nil, fmt.Errorf("failed to create recording for customer %s: %w", customerId, err)
	}

	s.logger.Infof("created recording: id=%s, user=%s, customer=%s, mime=%s",
		recording.Id, userId, customerId, mime)

	return recording, nil
}

func (s *recordingService) Get(ctx context.Context, recordingId, userId string) (*internal_entity.Recording, error) {
	db := s.postgres.DB(ctx)
	var recording internal_entity.Recording
	if err := db.Where("id = ? AND user_id = ?", recordingId, userId).First(&recording).Error; err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRecordingNotFound, recordingId)
	}
	return &recording, nil
}

func (s *recordingService) List(ctx context.Context, criteria ListCriteria) ([]*internal_entity.Recording, error) {
	db := s.postgres.DB(ctx).Model(&internal_entity.Recording{})

	if criteria.UserId != "" {
		db = db.Where("user_id = ?", criteria.UserId)
	}
	if criteria.CustomerId != "" {
		db = db.Where("customer_id = ?", criteria.CustomerId)
	}
	if criteria.From != nil {
		db = db.Where("recorded_on >= ?", *criteria.From)
	}
	if criteria.To != nil {
		db = db.Where("recorded_on <= ?", *criteria.To)
	}

	var recordings []*internal_entity.Recording
	if err := db.Order("recorded_on DESC").Find(&recordings).Error; err != nil {
		return nil, fmt.Errorf("failed to list recordings: %w", err)
	}
	return recordings, nil
}

func (s *recordingService) AddSegment(ctx context.Context, recording *internal_entity.Recording, index int, data []byte, mime string) (*internal_entity.Segment, error) {
	path := storage_objects.SegmentPath(recording.UserId, recording.CustomerId, recording.RecordedOn, recording.Id, index, mime)

	if err := s.storage.Put(ctx, path, data, mime); err != nil {
		return nil, fmt.Errorf("failed to store segment %d of recording %s: %w", index, recording.Id, err)
	}

	segment := &internal_entity.Segment{
		RecordingId: recording.Id,
		Index:       index,
		FilePath:    path,
		SizeBytes:   int64(len(data)),
		Mime:        mime,
	}

	db := s.postgres.DB(ctx)
	if err := db.Create(segment).Error; err != nil {
		return nil, fmt.Errorf("failed to register segment %d of recording %s: %w", index, recording.Id, err)
	}

	s.logger.Debugf("registered segment: recording=%s, index=%d, size=%d", recording.Id, index, segment.SizeBytes)
	return segment, nil
}

func (s *recordingService) Segments(ctx context.Context, recordingId string) ([]*internal_entity.Segment, error) {
	db := s.postgres.DB(ctx)
	var segments []*internal_entity.Segment
	if err := db.Where("recording_id = ?", recordingId).Order(`"index" ASC`).Find(&segments).Error; err != nil {
		return nil, fmt.Errorf("failed to list segments of recording %s: %w", recordingId, err)
	}
	return segments, nil
}

// Finalize runs the stitch under a database claim. The claim is an atomic
// UPDATE ... WHERE status = 'created'; only one concurrent finalize can win
// it, every other caller is told what state the recording is in.
func (s *recordingService) Finalize(ctx context.Context, recording *internal_entity.Recording) (*internal_entity.Recording, error) {
	db := s.postgres.DB(ctx)

	claim := db.Model(&internal_entity.Recording{}).
		Where("id = ? AND status = ?", recording.Id, internal_entity.RecordingStatusCreated).
		Updates(map[string]interface{}{
			"status":       internal_entity.RecordingStatusFinalizing,
			"updated_date": time.Now(),
		})
	if claim.Error != nil {
		return nil, fmt.Errorf("failed to claim recording %s for finalize: %w", recording.Id, claim.Error)
	}
	if claim.RowsAffected == 0 {
		current, err := s.Get(ctx, recording.Id, recording.UserId)
		if err != nil {
			return nil, err
		}
		if current.Status == internal_entity.RecordingStatusFinalized {
			return nil, ErrAlreadyFinalized
		}
		return nil, ErrFinalizeInProgress
	}

	stitched, err := s.stitchClaimed(ctx, recording)
	if err != nil {
		s.releaseClaim(ctx, recording.Id)
		return nil, err
	}
	return stitched, nil
}

func (s *recordingService) stitchClaimed(ctx context.Context, recording *internal_entity.Recording) (*internal_entity.Recording, error) {
	segments, err := s.Segments(ctx, recording.Id)
	if err != nil {
		return nil, err
	}

	finalPath := storage_objects.RecordingPath(recording.UserId, recording.CustomerId, recording.RecordedOn, recording.Id, recording.Mime)
	stitched, err := s.stitcher.Stitch(ctx, segments, finalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stitch recording %s: %w", recording.Id, err)
	}

	db := s.postgres.DB(ctx)
	update := db.Model(&internal_entity.Recording{}).
		Where("id = ?", recording.Id).
		Updates(map[string]interface{}{
			"file_path":    finalPath,
			"duration_sec": stitched.DurationSec,
			"mime":         FinalContentType,
			"status":       internal_entity.RecordingStatusFinalized,
			"updated_date": time.Now(),
		})
	if update.Error != nil {
		return nil, fmt.Errorf("failed to persist finalized recording %s: %w", recording.Id, update.Error)
	}

	recording.FilePath = &finalPath
	recording.DurationSec = stitched.DurationSec
	recording.Mime = FinalContentType
	recording.Status = internal_entity.RecordingStatusFinalized

	s.logger.Infof("finalized recording: id=%s, duration=%ds, size=%d",
		recording.Id, stitched.DurationSec, stitched.SizeBytes)

	return recording, nil
}

// releaseClaim puts a recording back into created after a failed stitch so
// finalize stays retriable. A failure here only leaves the claim dangling
// until the next manual retry, so it is logged and swallowed.
func (s *recordingService) releaseClaim(ctx context.Context, recordingId string) {
	db := s.postgres.DB(ctx)
	err := db.Model(&internal_entity.Recording{}).
		Where("id = ? AND status = ?", recordingId, internal_entity.RecordingStatusFinalizing).
		Updates(map[string]interface{}{
			"status":       internal_entity.RecordingStatusCreated,
			"updated_date": time.Now(),
		}).Error
	if err != nil {
		s.logger.Errorf("failed to release finalize claim on recording %s: %v", recordingId, err)
	}
}
