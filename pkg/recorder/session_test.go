package recorder

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	recording_client "github.com/sachin-pal89/Saarathi-Recorder/pkg/clients/recording"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type uploadedSegment struct {
	recordingId string
	index       int
	size        int
}

// fakeRecordingClient records calls and fails on demand.
type fakeRecordingClient struct {
	mu            sync.Mutex
	createErr     error
	uploadErr     error
	finalizeErr   error
	uploads       []uploadedSegment
	finalizeCalls int
}

func (c *fakeRecordingClient) CreateRecording(ctx context.Context, customerId, purpose string, recordedOn time.Time, mime string) (string, error) {
	if c.createErr != nil {
		return "", c.createErr
	}
	return "rec-test-1", nil
}

func (c *fakeRecordingClient) UploadSegment(ctx context.Context, recordingId string, index int, data []byte, mime string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.uploadErr != nil {
		return c.uploadErr
	}
	c.uploads = append(c.uploads, uploadedSegment{recordingId: recordingId, index: index, size: len(data)})
	return nil
}

func (c *fakeRecordingClient) FinalizeRecording(ctx context.Context, recordingId string) (*recording_client.FinalizeResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finalizeCalls++
	if c.finalizeErr != nil {
		return nil, c.finalizeErr
	}
	return &recording_client.FinalizeResult{FilePath: "final/path.webm", DurationSec: 12}, nil
}

func (c *fakeRecordingClient) uploaded() []uploadedSegment {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]uploadedSegment, len(c.uploads))
	copy(out, c.uploads)
	return out
}

func newTestQueue(t *testing.T) *QueueStore {
	t.Helper()
	queue, err := NewQueueStore(filepath.Join(t.TempDir(), "queue.db"), newTestLogger(t))
	if err != nil {
		t.Fatalf("failed to open queue store: %v", err)
	}
	t.Cleanup(func() { queue.Close() })
	return queue
}

func newTestSession(t *testing.T, client *fakeRecordingClient, handle *fakeHandle) (*Session, *fakeClock, *QueueStore) {
	t.Helper()
	logger := newTestLogger(t)
	clock := newFakeClock()
	queue := newTestQueue(t)
	engine := NewCaptureEngine(logger, WithEngineClock(clock.Now))
	session := NewSession(logger, client, queue, &fakeDevice{handle: handle},
		WithSessionClock(clock.Now),
		WithEngine(engine),
	)
	return session, clock, queue
}

func waitFor(t *testing.T, what string, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func (s *Session) bufferedSegments() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.segments)
}

func startedSession(t *testing.T, client *fakeRecordingClient, handle *fakeHandle) (*Session, *fakeClock, *QueueStore) {
	t.Helper()
	session, clock, queue := newTestSession(t, client, handle)
	ctx := context.Background()
	if _, err := session.Create(ctx, "cust-1", "site visit", clock.Now()); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := session.Begin(ctx); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	return session, clock, queue
}

func TestBeginRequiresCreatedRecording(t *testing.T) {
	session, _, _ := newTestSession(t, &fakeRecordingClient{}, newFakeHandle("audio/webm;codecs=opus"))
	if err := session.Begin(context.Background()); !errors.Is(err, ErrNoRecording) {
		t.Fatalf("expected ErrNoRecording, got %v", err)
	}
}

func TestBeginStaysIdleWhenCaptureDenied(t *testing.T) {
	client := &fakeRecordingClient{}
	device := &fakeDevice{acquireErr: errors.New("permission denied")}
	logger := newTestLogger(t)
	session := NewSession(logger, client, newTestQueue(t), device)

	ctx := context.Background()
	if _, err := session.Create(ctx, "cust-1", "site visit", time.Now()); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := session.Begin(ctx); !errors.Is(err, ErrCaptureUnavailable) {
		t.Fatalf("expected ErrCaptureUnavailable, got %v", err)
	}
	if got := session.Status(); got != StatusIdle {
		t.Fatalf("denied capture must leave the session idle, got %s", got)
	}
}

func TestDurationExcludesPausedTime(t *testing.T) {
	handle := newFakeHandle("audio/webm;codecs=opus")
	session, clock, _ := startedSession(t, &fakeRecordingClient{}, handle)

	clock.Advance(5 * time.Second)
	session.Pause()
	if got := session.Status(); got != StatusPaused {
		t.Fatalf("expected paused, got %s", got)
	}

	clock.Advance(3 * time.Second)
	session.Resume()
	if got := session.Status(); got != StatusRecording {
		t.Fatalf("expected recording, got %s", got)
	}

	clock.Advance(7 * time.Second)
	if err := session.End(); err != nil {
		t.Fatalf("end failed: %v", err)
	}

	// 15 wall seconds minus the 3 paused ones.
	if got := session.Duration(); got != 12 {
		t.Fatalf("expected 12s duration, got %d", got)
	}
	if got := session.Status(); got != StatusCompleted {
		t.Fatalf("expected completed, got %s", got)
	}
}

func TestPauseResumeNoOpOutsideTheirStates(t *testing.T) {
	handle := newFakeHandle("audio/webm;codecs=opus")
	session, _, _ := newTestSession(t, &fakeRecordingClient{}, handle)

	session.Pause()
	if got := session.Status(); got != StatusIdle {
		t.Fatalf("pause while idle must be a no-op, got %s", got)
	}
	session.Resume()
	if got := session.Status(); got != StatusIdle {
		t.Fatalf("resume while idle must be a no-op, got %s", got)
	}
}

func TestPersistUploadsInIndexOrderAndFinalizes(t *testing.T) {
	client := &fakeRecordingClient{}
	handle := newFakeHandle("audio/webm;codecs=opus")
	session, _, queue := startedSession(t, client, handle)

	handle.chunks <- []byte{0x01}
	handle.chunks <- []byte{0x02}
	handle.chunks <- []byte{0x03}
	waitFor(t, "segments to buffer", func() bool { return session.bufferedSegments() == 3 })

	if err := session.End(); err != nil {
		t.Fatalf("end failed: %v", err)
	}
	if err := session.Persist(context.Background()); err != nil {
		t.Fatalf("persist failed: %v", err)
	}

	uploads := client.uploaded()
	if len(uploads) != 3 {
		t.Fatalf("expected 3 uploads, got %d", len(uploads))
	}
	for i, upload := range uploads {
		if upload.index != i {
			t.Fatalf("uploads out of order: position %d carries index %d", i, upload.index)
		}
	}
	if client.finalizeCalls != 1 {
		t.Fatalf("expected exactly one finalize, got %d", client.finalizeCalls)
	}

	// Mirrored queue copies must be gone once their upload landed.
	count, err := queue.Count(context.Background())
	if err != nil {
		t.Fatalf("queue count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty queue after persist, found %d items", count)
	}
}

func TestPersistTwiceIsRejected(t *testing.T) {
	client := &fakeRecordingClient{}
	handle := newFakeHandle("audio/webm;codecs=opus")
	session, _, _ := startedSession(t, client, handle)

	handle.chunks <- []byte{0x01}
	waitFor(t, "segment to buffer", func() bool { return session.bufferedSegments() == 1 })

	if err := session.End(); err != nil {
		t.Fatalf("end failed: %v", err)
	}
	if err := session.Persist(context.Background()); err != nil {
		t.Fatalf("persist failed: %v", err)
	}
	if err := session.Persist(context.Background()); !errors.Is(err, ErrAlreadyPersisted) {
		t.Fatalf("expected ErrAlreadyPersisted, got %v", err)
	}
	if client.finalizeCalls != 1 {
		t.Fatalf("repeat persist must not re-finalize, got %d calls", client.finalizeCalls)
	}
}

func TestPersistFinalizeFailureQueuesRetry(t *testing.T) {
	client := &fakeRecordingClient{finalizeErr: errors.New("gateway timeout")}
	handle := newFakeHandle("audio/webm;codecs=opus")
	session, _, queue := startedSession(t, client, handle)

	handle.chunks <- []byte{0x01}
	waitFor(t, "segment to buffer", func() bool { return session.bufferedSegments() == 1 })

	if err := session.End(); err != nil {
		t.Fatalf("end failed: %v", err)
	}
	if err := session.Persist(context.Background()); !errors.Is(err, ErrUploadFailure) {
		t.Fatalf("expected ErrUploadFailure, got %v", err)
	}
	if got := session.Status(); got != StatusError {
		t.Fatalf("expected error state, got %s", got)
	}

	items, err := queue.Items(context.Background())
	if err != nil {
		t.Fatalf("queue read failed: %v", err)
	}
	if len(items) != 1 || items[0].Kind != KindRecording {
		t.Fatalf("expected one queued finalize retry, got %+v", items)
	}
}

func TestDiscardRequiresConfirmationWhileLive(t *testing.T) {
	handle := newFakeHandle("audio/webm;codecs=opus")
	session, _, _ := startedSession(t, &fakeRecordingClient{}, handle)

	if err := session.Discard(false); !errors.Is(err, ErrDiscardNotConfirmed) {
		t.Fatalf("expected ErrDiscardNotConfirmed, got %v", err)
	}
	if got := session.Status(); got != StatusRecording {
		t.Fatalf("refused discard must not change state, got %s", got)
	}

	if err := session.Discard(true); err != nil {
		t.Fatalf("confirmed discard failed: %v", err)
	}
	if got := session.Status(); got != StatusIdle {
		t.Fatalf("expected idle after discard, got %s", got)
	}
	if session.RecordingId() != "" {
		t.Fatal("discard must forget the recording id")
	}
}
