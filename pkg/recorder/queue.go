package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sachin-pal89/Saarathi-Recorder/pkg/commons"
)

// Queue item kinds. A tagged variant dispatched by switch, never by
// runtime type inspection.
const (
	KindSegment   = "segment"   // upload one segment blob
	KindRecording = "recording" // trigger the server side finalize
)

// DefaultMaxRetries is the retry ceiling: an item that has failed this many
// times is dropped permanently and the failure surfaced as a warning.
const DefaultMaxRetries = 3

// QueueItem is one pending upload task, durable across process restarts
// and offline periods.
type QueueItem struct {
	Id           string    `gorm:"column:id;type:varchar(36);primaryKey"`
	Kind         string    `gorm:"column:kind;type:varchar(20);not null"`
	RecordingId  string    `gorm:"column:recording_id;type:varchar(36);not null;index"`
	SegmentIndex int       `gorm:"column:segment_index;type:int;not null;default:0"`
	Payload      []byte    `gorm:"column:payload;type:blob"`
	Mime         string    `gorm:"column:mime;type:varchar(100);not null;default:''"`
	RetryCount   int       `gorm:"column:retry_count;type:int;not null;default:0"`
	MaxRetries   int       `gorm:"column:max_retries;type:int;not null;default:3"`
	EnqueuedAt   time.Time `gorm:"column:enqueued_at;type:timestamp;not null"`
}

func (QueueItem) TableName() string {
	return "upload_queue"
}

// QueueStore is the durable offline queue, an sqlite file on the device.
type QueueStore struct {
	logger commons.Logger
	db     *gorm.DB
}

// NewQueueStore opens (creating if needed) the queue database at path.
func NewQueueStore(path string, logger commons.Logger) (*QueueStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open queue store %s: %w", path, err)
	}
	if err := db.AutoMigrate(&QueueItem{}); err != nil {
		return nil, fmt.Errorf("failed to migrate queue store: %w", err)
	}
	return &QueueStore{logger: logger, db: db}, nil
}

// Enqueue persists a pending item. Id, timestamp and retry ceiling are
// filled in when absent.
func (s *QueueStore) Enqueue(ctx context.Context, item *QueueItem) error {
	if item.Id == "" {
		item.Id = uuid.New().String()
	}
	if item.EnqueuedAt.IsZero() {
		item.EnqueuedAt = time.Now()
	}
	if item.MaxRetries == 0 {
		item.MaxRetries = DefaultMaxRetries
	}
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("failed to enqueue %s item for recording %s: %w", item.Kind, item.RecordingId, err)
	}
	s.logger.Debugf("enqueued %s item: id=%s, recording=%s, index=%d", item.Kind, item.Id, item.RecordingId, item.SegmentIndex)
	return nil
}

// Items returns all pending items in enqueue (FIFO) order.
func (s *QueueStore) Items(ctx context.Context) ([]*QueueItem, error) {
	var items []*QueueItem
	if err := s.db.WithContext(ctx).Order("enqueued_at ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to read queue: %w", err)
	}
	return items, nil
}

// Remove deletes an item, either after success or after the retry ceiling.
func (s *QueueStore) Remove(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&QueueItem{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to remove queue item %s: %w", id, err)
	}
	return nil
}

// UpdateRetry persists an incremented retry counter.
func (s *QueueStore) UpdateRetry(ctx context.Context, id string, retryCount int) error {
	err := s.db.WithContext(ctx).Model(&QueueItem{}).
		Where("id = ?", id).
		Update("retry_count", retryCount).Error
	if err != nil {
		return fmt.Errorf("failed to update retry count of queue item %s: %w", id, err)
	}
	return nil
}

// Count reports the number of pending items.
func (s *QueueStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&QueueItem{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count queue items: %w", err)
	}
	return count, nil
}

// Close releases the underlying database handle.
func (s *QueueStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
