package internal_entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Segment is one bounded duration slice of a recording. Indices are zero
// based and unique per recording; once a capture completes normally they
// form a contiguous run 0..N-1 which the stitcher validates before it
// downloads anything.
type Segment struct {
	Id          string    `json:"id" gorm:"column:id;type:varchar(36);primaryKey;<-:create"`
	RecordingId string    `json:"recordingId" gorm:"column:recording_id;type:varchar(36);not null;uniqueIndex:ux_recording_segment_index,priority:1"`
	Index       int       `json:"index" gorm:"column:index;type:int;not null;uniqueIndex:ux_recording_segment_index,priority:2"`
	FilePath    string    `json:"filePath" gorm:"column:file_path;type:text;not null"`
	SizeBytes   int64     `json:"sizeBytes" gorm:"column:size_bytes;type:bigint;not null"`
	Mime        string    `json:"mime" gorm:"column:mime;type:varchar(100);not null"`
	CreatedDate time.Time `json:"createdDate" gorm:"column:created_date;type:timestamp;not null;default:NOW();<-:create"`
}

func (Segment) TableName() string {
	return "recording_segments"
}

func (s *Segment) BeforeCreate(tx *gorm.DB) (err error) {
	if s.Id == "" {
		s.Id = uuid.New().String()
	}
	if s.CreatedDate.IsZero() {
		s.CreatedDate = time.Now()
	}
	return nil
}
