package recorder

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestEnqueueFillsDefaults(t *testing.T) {
	queue := newTestQueue(t)
	ctx := context.Background()

	item := &QueueItem{Kind: KindSegment, RecordingId: "rec-1", SegmentIndex: 0, Payload: []byte{0x01}, Mime: "audio/webm"}
	if err := queue.Enqueue(ctx, item); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	if item.Id == "" {
		t.Fatal("enqueue must assign an id")
	}
	if item.EnqueuedAt.IsZero() {
		t.Fatal("enqueue must stamp the enqueue time")
	}
	if item.MaxRetries != DefaultMaxRetries {
		t.Fatalf("expected default retry ceiling %d, got %d", DefaultMaxRetries, item.MaxRetries)
	}
}

func TestItemsReturnFifoOrder(t *testing.T) {
	queue := newTestQueue(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		item := &QueueItem{
			Kind:         KindSegment,
			RecordingId:  "rec-1",
			SegmentIndex: 2 - i, // insertion order deliberately disagrees with index
			EnqueuedAt:   base.Add(time.Duration(i) * time.Second),
		}
		if err := queue.Enqueue(ctx, item); err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}
	}

	items, err := queue.Items(ctx)
	if err != nil {
		t.Fatalf("items failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	for i, item := range items {
		if item.SegmentIndex != 2-i {
			t.Fatalf("queue order is not FIFO: position %d holds index %d", i, item.SegmentIndex)
		}
	}
}

func TestQueueSurvivesReopen(t *testing.T) {
	logger := newTestLogger(t)
	path := filepath.Join(t.TempDir(), "queue.db")
	ctx := context.Background()

	queue, err := NewQueueStore(path, logger)
	if err != nil {
		t.Fatalf("failed to open queue store: %v", err)
	}
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	if err := queue.Enqueue(ctx, &QueueItem{Kind: KindSegment, RecordingId: "rec-1", SegmentIndex: 4, Payload: payload, Mime: "audio/webm"}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if err := queue.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	reopened, err := NewQueueStore(path, logger)
	if err != nil {
		t.Fatalf("failed to reopen queue store: %v", err)
	}
	defer reopened.Close()

	items, err := reopened.Items(ctx)
	if err != nil {
		t.Fatalf("items failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item after reopen, got %d", len(items))
	}
	if items[0].SegmentIndex != 4 || !bytes.Equal(items[0].Payload, payload) {
		t.Fatalf("item did not survive reopen intact: %+v", items[0])
	}
}

func TestUpdateRetryPersists(t *testing.T) {
	queue := newTestQueue(t)
	ctx := context.Background()

	item := &QueueItem{Kind: KindRecording, RecordingId: "rec-1"}
	if err := queue.Enqueue(ctx, item); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if err := queue.UpdateRetry(ctx, item.Id, 2); err != nil {
		t.Fatalf("update retry failed: %v", err)
	}

	items, err := queue.Items(ctx)
	if err != nil {
		t.Fatalf("items failed: %v", err)
	}
	if items[0].RetryCount != 2 {
		t.Fatalf("expected retry count 2, got %d", items[0].RetryCount)
	}
}

func TestRemoveAndCount(t *testing.T) {
	queue := newTestQueue(t)
	ctx := context.Background()

	item := &QueueItem{Kind: KindSegment, RecordingId: "rec-1"}
	if err := queue.Enqueue(ctx, item); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	count, err := queue.Count(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}

	if err := queue.Remove(ctx, item.Id); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	count, err = queue.Count(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty queue, got %d", count)
	}
}
