package recorder

import (
	"context"
	"fmt"
	"sync/atomic"

	recording_client "github.com/sachin-pal89/Saarathi-Recorder/pkg/clients/recording"
	"github.com/sachin-pal89/Saarathi-Recorder/pkg/commons"
)

// SyncManager drains the durable offline queue against the network. Failed
// items are retried on later drains until their retry ceiling, then dropped
// with a warning.
type SyncManager struct {
	logger   commons.Logger
	client   recording_client.RecordingServiceClient
	store    *QueueStore
	draining atomic.Bool
}

func NewSyncManager(logger commons.Logger, client recording_client.RecordingServiceClient, store *QueueStore) *SyncManager {
	return &SyncManager{
		logger: logger,
		client: client,
		store:  store,
	}
}

// Enqueue adds a pending upload task to the durable queue.
func (m *SyncManager) Enqueue(ctx context.Context, item *QueueItem) error {
	return m.store.Enqueue(ctx, item)
}

// DrainOnce walks the queue in FIFO order and attempts each item once. An
// in-flight flag guards re-entry: a drain that overlaps a running drain
// returns immediately without touching the queue, so per item retry
// accounting is never doubled.
func (m *SyncManager) DrainOnce(ctx context.Context) error {
	if !m.draining.CompareAndSwap(false, true) {
		return nil
	}
	defer m.draining.Store(false)

	items, err := m.store.Items(ctx)
	if err != nil {
		return err
	}

	for _, item := range items {
		if err := m.process(ctx, item); err != nil {
			m.recordFailure(ctx, item, err)
			continue
		}
		if err := m.store.Remove(ctx, item.Id); err != nil {
			m.logger.Errorf("failed to dequeue completed item %s: %v", item.Id, err)
		}
	}
	return nil
}

func (m *SyncManager) process(ctx context.Context, item *QueueItem) error {
	switch item.Kind {
	case KindSegment:
		return m.client.UploadSegment(ctx, item.RecordingId, item.SegmentIndex, item.Payload, item.Mime)
	case KindRecording:
		_, err := m.client.FinalizeRecording(ctx, item.RecordingId)
		return err
	default:
		return fmt.Errorf("unknown queue item kind %q", item.Kind)
	}
}

// recordFailure bumps the retry counter, dropping the item permanently once
// the ceiling is reached. The drop is the only sanctioned way an upload
// disappears, and it is always surfaced as a warning.
func (m *SyncManager) recordFailure(ctx context.Context, item *QueueItem, cause error) {
	retryCount := item.RetryCount + 1
	if retryCount >= item.MaxRetries {
		if err := m.store.Remove(ctx, item.Id); err != nil {
			m.logger.Errorf("failed to drop exhausted queue item %s: %v", item.Id, err)
			return
		}
		m.logger.Warnf("dropped %s item for recording %s after %d failed attempts: %v",
			item.Kind, item.RecordingId, item.MaxRetries, cause)
		return
	}

	if err := m.store.UpdateRetry(ctx, item.Id, retryCount); err != nil {
		m.logger.Errorf("failed to persist retry count of queue item %s: %v", item.Id, err)
		return
	}
	m.logger.Debugf("queued %s item for retry %d/%d: recording=%s: %v",
		item.Kind, retryCount, item.MaxRetries, item.RecordingId, cause)
}
