package recorder

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	recording_client "github.com/sachin-pal89/Saarathi-Recorder/pkg/clients/recording"
	"github.com/sachin-pal89/Saarathi-Recorder/pkg/commons"
)

// Status is the recording session lifecycle state.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusRequesting Status = "requesting"
	StatusRecording  Status = "recording"
	StatusPaused     Status = "paused"
	StatusStopping   Status = "stopping"
	StatusUploading  Status = "uploading"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// tickInterval is how often the elapsed duration is recomputed while
// recording.
const tickInterval = time.Second

// Session is the recording session state machine. It buffers segments
// emitted by the capture engine, mirrors them into the durable queue, and
// owns duration accounting across pauses.
type Session struct {
	logger commons.Logger
	client recording_client.RecordingServiceClient
	queue  *QueueStore
	device Device
	engine *CaptureEngine
	clock  func() time.Time

	mu          sync.Mutex
	status      Status
	recordingId string
	startTime   time.Time
	pauseStart  time.Time
	pausedTotal time.Duration
	durationSec int64
	segments    []Segment
	mirrorIds   map[int]string // segment index -> queue item id
	persisted   bool
	lastErr     error
	tickStop    chan struct{}
}

type SessionOption func(*Session)

// WithSessionClock injects a clock, for tests.
func WithSessionClock(clock func() time.Time) SessionOption {
	return func(s *Session) {
		s.clock = clock
	}
}

// WithEngine overrides the capture engine, for tests or tuned rollover.
func WithEngine(engine *CaptureEngine) SessionOption {
	return func(s *Session) {
		s.engine = engine
	}
}

func NewSession(logger commons.Logger, client recording_client.RecordingServiceClient, queue *QueueStore, device Device, opts ...SessionOption) *Session {
	session := &Session{
		logger:    logger,
		client:    client,
		queue:     queue,
		device:    device,
		clock:     time.Now,
		status:    StatusIdle,
		mirrorIds: make(map[int]string),
	}
	for _, opt := range opts {
		opt(session)
	}
	if session.engine == nil {
		session.engine = NewCaptureEngine(logger, WithEngineClock(session.clock))
	}
	return session
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// RecordingId returns the server side recording id, empty before Create.
func (s *Session) RecordingId() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordingId
}

// Err returns the error that moved the session into StatusError, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Create registers the session with the metadata store collaborator and
// remembers the returned recording id. Only legal while idle.
func (s *Session) Create(ctx context.Context, customerId, purpose string, recordedOn time.Time) (string, error) {
	s.mu.Lock()
	if s.status != StatusIdle {
		status := s.status
		s.mu.Unlock()
		return "", fmt.Errorf("%w: create requires idle, session is %s", ErrInvalidTransition, status)
	}
	s.mu.Unlock()

	mime := PreferredMimeTypes[0]
	recordingId, err := s.client.CreateRecording(ctx, customerId, purpose, recordedOn, mime)
	if err != nil {
		return "", fmt.Errorf("failed to create recording session: %w", err)
	}

	s.mu.Lock()
	s.recordingId = recordingId
	s.mu.Unlock()

	s.logger.Infof("recording session created: id=%s, customer=%s", recordingId, customerId)
	return recordingId, nil
}

// Begin starts the capture. A capture-unavailable failure leaves the
// session idle; success moves it to recording and starts the duration tick.
func (s *Session) Begin(ctx context.Context) error {
	s.mu.Lock()
	if s.status != StatusIdle {
		status := s.status
		s.mu.Unlock()
		return fmt.Errorf("%w: begin requires idle, session is %s", ErrInvalidTransition, status)
	}
	if s.recordingId == "" {
		s.mu.Unlock()
		return ErrNoRecording
	}
	s.status = StatusRequesting
	s.mu.Unlock()

	if err := s.engine.Start(ctx, s.device, s.onSegment, s.onFault); err != nil {
		s.mu.Lock()
		s.status = StatusIdle
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.status = StatusRecording
	s.startTime = s.clock()
	s.pausedTotal = 0
	s.durationSec = 0
	s.tickStop = make(chan struct{})
	tickStop := s.tickStop
	s.mu.Unlock()

	go s.tickLoop(tickStop)
	return nil
}

// onSegment buffers an emitted segment and mirrors it into the durable
// queue. A mirror failure only degrades crash durability; the in-memory
// copy still uploads on Persist.
func (s *Session) onSegment(segment Segment) {
	item := &QueueItem{
		Kind:         KindSegment,
		RecordingId:  s.RecordingId(),
		SegmentIndex: segment.Index,
		Payload:      segment.Data,
		Mime:         segment.Mime,
	}
	if err := s.queue.Enqueue(context.Background(), item); err != nil {
		s.logger.Errorf("failed to mirror segment %d into offline queue: %v", segment.Index, err)
		item = nil
	}

	s.mu.Lock()
	s.segments = append(s.segments, segment)
	if item != nil {
		s.mirrorIds[segment.Index] = item.Id
	}
	s.mu.Unlock()
}

// onFault handles a mid-session capture error: the session moves to error,
// capture stops, already produced segments remain uploadable.
func (s *Session) onFault(err error) {
	s.mu.Lock()
	s.status = StatusError
	s.lastErr = err
	tickStop := s.tickStop
	s.tickStop = nil
	s.mu.Unlock()

	if tickStop != nil {
		close(tickStop)
	}
	s.logger.Errorf("capture fault, session moved to error: %v", err)
}

func (s *Session) tickLoop(stop chan struct{}) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			if s.status == StatusRecording {
				s.durationSec = s.elapsedLocked()
			}
			s.mu.Unlock()
		case <-stop:
			return
		}
	}
}

// elapsedLocked computes whole elapsed seconds excluding paused time.
// Callers hold s.mu.
func (s *Session) elapsedLocked() int64 {
	paused := s.pausedTotal
	if s.status == StatusPaused {
		paused += s.clock().Sub(s.pauseStart)
	}
	return int64((s.clock().Sub(s.startTime) - paused) / time.Second)
}

// Duration returns the elapsed recording duration in seconds, excluding
// paused intervals.
func (s *Session) Duration() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.status {
	case StatusRecording, StatusPaused:
		return s.elapsedLocked()
	default:
		return s.durationSec
	}
}

// Pause suspends capture. A no-op outside recording.
func (s *Session) Pause() {
	s.mu.Lock()
	if s.status != StatusRecording {
		s.mu.Unlock()
		return
	}
	s.status = StatusPaused
	s.pauseStart = s.clock()
	s.mu.Unlock()

	if err := s.engine.Pause(); err != nil {
		s.logger.Errorf("failed to pause capture: %v", err)
	}
}

// Resume continues capture. A no-op outside paused. Paused time only
// accumulates across completed pause/resume pairs.
func (s *Session) Resume() {
	s.mu.Lock()
	if s.status != StatusPaused {
		s.mu.Unlock()
		return
	}
	s.pausedTotal += s.clock().Sub(s.pauseStart)
	s.status = StatusRecording
	s.mu.Unlock()

	if err := s.engine.Resume(); err != nil {
		s.logger.Errorf("failed to resume capture: %v", err)
	}
}

// End stops capture and settles the final duration. No network involved;
// segments stay buffered (and mirrored) until Persist.
func (s *Session) End() error {
	s.mu.Lock()
	if s.status != StatusRecording && s.status != StatusPaused {
		status := s.status
		s.mu.Unlock()
		return fmt.Errorf("%w: end requires recording or paused, session is %s", ErrInvalidTransition, status)
	}
	if s.status == StatusPaused {
		s.pausedTotal += s.clock().Sub(s.pauseStart)
	}
	s.status = StatusStopping
	tickStop := s.tickStop
	s.tickStop = nil
	s.mu.Unlock()

	if tickStop != nil {
		close(tickStop)
	}
	s.engine.Stop()

	s.mu.Lock()
	s.durationSec = int64((s.clock().Sub(s.startTime) - s.pausedTotal) / time.Second)
	s.status = StatusCompleted
	segments := len(s.segments)
	duration := s.durationSec
	s.mu.Unlock()

	s.logger.Infof("capture completed: segments=%d, duration=%ds", segments, duration)
	return nil
}

// Persist uploads every buffered segment in ascending index order, then
// finalizes the recording. Safe to call at most once per completed session:
// a repeat after success is an explicit error, never a duplicate finalize.
func (s *Session) Persist(ctx context.Context) error {
	s.mu.Lock()
	if s.persisted {
		s.mu.Unlock()
		return ErrAlreadyPersisted
	}
	if s.status != StatusCompleted {
		status := s.status
		s.mu.Unlock()
		return fmt.Errorf("%w: persist requires completed, session is %s", ErrInvalidTransition, status)
	}
	s.status = StatusUploading
	recordingId := s.recordingId
	segments := make([]Segment, len(s.segments))
	copy(segments, s.segments)
	s.mu.Unlock()

	sort.Slice(segments, func(i, j int) bool { return segments[i].Index < segments[j].Index })

	for _, segment := range segments {
		if err := s.client.UploadSegment(ctx, recordingId, segment.Index, segment.Data, segment.Mime); err != nil {
			s.fail(fmt.Errorf("%w: segment %d: %v", ErrUploadFailure, segment.Index, err))
			return s.Err()
		}
		s.removeMirror(ctx, segment.Index)
	}

	if _, err := s.client.FinalizeRecording(ctx, recordingId); err != nil {
		// Leave finalize with the sync manager: the queued item retries it
		// once the network is back.
		if qErr := s.queue.Enqueue(ctx, &QueueItem{Kind: KindRecording, RecordingId: recordingId}); qErr != nil {
			s.logger.Errorf("failed to queue finalize retry for recording %s: %v", recordingId, qErr)
		}
		s.fail(fmt.Errorf("%w: finalize: %v", ErrUploadFailure, err))
		return s.Err()
	}

	s.mu.Lock()
	s.persisted = true
	s.status = StatusCompleted
	s.mu.Unlock()

	s.logger.Infof("recording persisted: id=%s, segments=%d", recordingId, len(segments))
	return nil
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	s.status = StatusError
	s.lastErr = err
	s.mu.Unlock()
	s.logger.Errorf("persist failed: %v", err)
}

// removeMirror drops the durable copy of an uploaded segment so the sync
// manager never re-uploads it.
func (s *Session) removeMirror(ctx context.Context, index int) {
	s.mu.Lock()
	id, ok := s.mirrorIds[index]
	if ok {
		delete(s.mirrorIds, index)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	if err := s.queue.Remove(ctx, id); err != nil {
		s.logger.Errorf("failed to drop mirrored segment %d from queue: %v", index, err)
	}
}

// Discard abandons the session. While a capture is live (recording or
// paused) the caller must pass confirm=true; this is the confirmation gate
// in front of throwing away un-uploaded audio.
func (s *Session) Discard(confirm bool) error {
	s.mu.Lock()
	active := s.status == StatusRecording || s.status == StatusPaused
	s.mu.Unlock()

	if active {
		if !confirm {
			return ErrDiscardNotConfirmed
		}
		if err := s.End(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.status = StatusIdle
	s.recordingId = ""
	s.segments = nil
	s.mirrorIds = make(map[int]string)
	s.persisted = false
	s.lastErr = nil
	s.durationSec = 0
	s.mu.Unlock()

	s.logger.Info("recording session discarded")
	return nil
}
