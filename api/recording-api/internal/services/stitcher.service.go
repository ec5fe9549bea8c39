package internal_service

import (
	"context"
	"errors"
	"fmt"
	"math"

	internal_entity "github.com/sachin-pal89/Saarathi-Recorder/api/recording-api/internal/entity"
	"github.com/sachin-pal89/Saarathi-Recorder/pkg/commons"
	storage_objects "github.com/sachin-pal89/Saarathi-Recorder/pkg/storages/object-storage"
)

// AssumedBitrateBps is the capture bitrate the duration estimate is based
// on. The final duration is Σ size_bytes / (bitrate/8), rounded to the
// nearest second. It is an estimate, not a decode derived truth: good
// enough for the playback UI, which only renders integer seconds.
const AssumedBitrateBps = 128 * 1024

// FinalContentType is stamped onto every stitched artifact. Segments of a
// session share one codec chosen at capture time, so raw byte concatenation
// stays container compatible and no re-encoding happens here.
const FinalContentType = "audio/webm;codecs=opus"

var (
	// ErrEmptySegments rejects a stitch over an empty segment list.
	ErrEmptySegments = errors.New("no segments to stitch")

	// ErrSegmentGap rejects a stitch when the indices are not a contiguous
	// run starting at 0. A gap means an upload is missing; stitching must
	// fail loudly rather than silently skip.
	ErrSegmentGap = errors.New("segment indices are not contiguous")
)

// StitchedFile describes the published final artifact.
type StitchedFile struct {
	DurationSec int64
	SizeBytes   int64
}

// StitcherService reassembles uploaded segments into one playable artifact.
type StitcherService interface {
	// Stitch downloads every segment in index order, concatenates the raw
	// bytes, and publishes the result at outputPath. The segments must be
	// sorted ascending by index and belong to a single recording. Any
	// download failure aborts the whole stitch; nothing partial is ever
	// published.
	Stitch(ctx context.Context, segments []*internal_entity.Segment, outputPath string) (*StitchedFile, error)
}

type stitcherService struct {
	logger  commons.Logger
	storage storage_objects.Storage
}

// NewStitcherService builds the byte concatenation stitcher.
func NewStitcherService(logger commons.Logger, storage storage_objects.Storage) StitcherService {
	return &stitcherService{
		logger:  logger,
		storage: storage,
	}
}

func (s *stitcherService) Stitch(ctx context.Context, segments []*internal_entity.Segment, outputPath string) (*StitchedFile, error) {
	if len(segments) == 0 {
		return nil, ErrEmptySegments
	}
	for i, segment := range segments {
		if segment.Index != i {
			return nil, fmt.Errorf("%w: expected index %d, found %d", ErrSegmentGap, i, segment.Index)
		}
	}

	combined := make([]byte, 0)
	totalDuration := 0.0

	for _, segment := range segments {
		data, err := s.storage.Get(ctx, segment.FilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to download segment %d: %w", segment.Index, err)
		}
		combined = append(combined, data...)
		totalDuration += float64(segment.SizeBytes) / float64(AssumedBitrateBps/8)
	}

	if err := s.storage.Put(ctx, outputPath, combined, FinalContentType); err != nil {
		return nil, fmt.Errorf("failed to publish stitched recording: %w", err)
	}

	stitched := &StitchedFile{
		DurationSec: int64(math.Round(totalDuration)),
		SizeBytes:   int64(len(combined)),
	}

	s.logger.Infof("stitched recording: path=%s, segments=%d, size=%d, duration=%ds",
		outputPath, len(segments), stitched.SizeBytes, stitched.DurationSec)

	return stitched, nil
}
