package internal_entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Recording lifecycle status. The finalizing status doubles as the claim
// that keeps two concurrent finalize calls from both stitching.
const (
	RecordingStatusCreated    = "created"    // segments may still be uploaded
	RecordingStatusFinalizing = "finalizing" // a stitch is in flight
	RecordingStatusFinalized  = "finalized"  // final artifact published
)

// Recording identifies one capture session tied to a customer record.
//
// FilePath stays null until finalize completes; DurationSec stays 0 until
// the stitcher publishes the final artifact and its estimated duration.
type Recording struct {
	Id          string    `json:"id" gorm:"column:id;type:varchar(36);primaryKey;<-:create"`
	UserId      string    `json:"userId" gorm:"column:user_id;type:varchar(36);not null;index"`
	CustomerId  string    `json:"customerId" gorm:"column:customer_id;type:varchar(36);not null;index"`
	Purpose     string    `json:"purpose" gorm:"column:purpose;type:text;not null"`
	RecordedOn  time.Time `json:"recordedOn" gorm:"column:recorded_on;type:timestamp;not null"`
	DurationSec int64     `json:"durationSec" gorm:"column:duration_sec;type:bigint;not null;default:0"`
	Mime        string    `json:"mime" gorm:"column:mime;type:varchar(100);not null"`
	FilePath    *string   `json:"filePath" gorm:"column:file_path;type:text;default:null"`
	Status      string    `json:"status" gorm:"column:status;type:varchar(20);not null;default:created"`
	CreatedDate time.Time `json:"createdDate" gorm:"column:created_date;type:timestamp;not null;default:NOW();<-:create"`
	UpdatedDate time.Time `json:"updatedDate" gorm:"column:updated_date;type:timestamp;default:null"`
}

func (Recording) TableName() string {
	return "recordings"
}

func (r *Recording) BeforeCreate(tx *gorm.DB) (err error) {
	if r.Id == "" {
		r.Id = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = RecordingStatusCreated
	}
	if r.CreatedDate.IsZero() {
		r.CreatedDate = time.Now()
	}
	return nil
}

// Finalized reports whether the final artifact has been published.
func (r *Recording) Finalized() bool {
	return r.Status == RecordingStatusFinalized && r.FilePath != nil
}
