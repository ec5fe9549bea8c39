package recorder

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sachin-pal89/Saarathi-Recorder/pkg/commons"
)

// PreferredMimeTypes is the encoding negotiation order. The first encoding
// the handle supports is fixed for the whole session and stamped onto every
// segment.
var PreferredMimeTypes = []string{
	"audio/webm;codecs=opus",
	"audio/webm",
	"audio/mp4;codecs=aac",
	"audio/mp4",
}

const (
	// DefaultMaxSegmentDuration is the rolling ceiling on a single capture
	// unit. When reached mid-recording the engine opens a new unit on the
	// same handle before closing the old one, so there is no gap at the
	// boundary.
	DefaultMaxSegmentDuration = 15 * time.Minute
)

// Device abstracts the platform audio capture primitive.
type Device interface {
	// Acquire requests access to the input. Permission or hardware denial
	// surfaces here.
	Acquire(ctx context.Context) (Handle, error)
}

// Handle is an acquired input. One handle can open several capture units
// over the life of a session.
type Handle interface {
	SupportsMime(mime string) bool
	Open(mime string) (Stream, error)
	Close() error
}

// Stream is one capture unit. Read blocks for roughly the flush cadence
// (reference: one second) and returns the encoded audio produced since the
// previous call; while paused it returns empty chunks.
type Stream interface {
	Read(ctx context.Context) ([]byte, error)
	Pause() error
	Resume() error
	Close() error
}

// Segment is one emitted slice of the capture, ready for upload.
type Segment struct {
	Index     int
	Data      []byte
	Mime      string
	CreatedAt time.Time
}

// CaptureEngine drives a Device, slices its output into indexed segments
// and hands them to the emit callback. It owns the live capture handle
// exclusively between Start and Stop.
type CaptureEngine struct {
	logger     commons.Logger
	maxSegment time.Duration
	clock      func() time.Time

	mu        sync.Mutex
	handle    Handle
	stream    Stream
	mime      string
	nextIndex int
	unitStart time.Time
	running   bool
	stopping  bool

	emit  func(Segment)
	fault func(error)
	done  chan struct{}
}

type EngineOption func(*CaptureEngine)

// WithMaxSegmentDuration overrides the capture unit rollover ceiling.
func WithMaxSegmentDuration(d time.Duration) EngineOption {
	return func(e *CaptureEngine) {
		e.maxSegment = d
	}
}

// WithEngineClock injects a clock, for tests.
func WithEngineClock(clock func() time.Time) EngineOption {
	return func(e *CaptureEngine) {
		e.clock = clock
	}
}

func NewCaptureEngine(logger commons.Logger, opts ...EngineOption) *CaptureEngine {
	engine := &CaptureEngine{
		logger:     logger,
		maxSegment: DefaultMaxSegmentDuration,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Start acquires the device, negotiates an encoding and begins emitting
// segments. When acquisition fails the engine stays idle and the error is
// ErrCaptureUnavailable.
func (e *CaptureEngine) Start(ctx context.Context, device Device, emit func(Segment), fault func(error)) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("%w: capture already running", ErrInvalidTransition)
	}
	e.mu.Unlock()

	handle, err := device.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}

	mime, err := negotiateMime(handle)
	if err != nil {
		handle.Close()
		return err
	}

	stream, err := handle.Open(mime)
	if err != nil {
		handle.Close()
		return fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}

	e.mu.Lock()
	e.handle = handle
	e.stream = stream
	e.mime = mime
	e.nextIndex = 0
	e.unitStart = e.clock()
	e.running = true
	e.stopping = false
	e.emit = emit
	e.fault = fault
	e.done = make(chan struct{})
	e.mu.Unlock()

	e.logger.Infof("capture started: mime=%s, maxSegment=%s", mime, e.maxSegment)
	go e.loop(ctx)
	return nil
}

// negotiateMime picks the first supported encoding from PreferredMimeTypes.
func negotiateMime(handle Handle) (string, error) {
	for _, mime := range PreferredMimeTypes {
		if handle.SupportsMime(mime) {
			return mime, nil
		}
	}
	return "", fmt.Errorf("%w: no supported audio encoding", ErrCaptureUnavailable)
}

// Mime returns the encoding negotiated for this session.
func (e *CaptureEngine) Mime() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mime
}

func (e *CaptureEngine) loop(ctx context.Context) {
	defer close(e.done)
	for {
		e.mu.Lock()
		stream := e.stream
		stopping := e.stopping
		e.mu.Unlock()
		if stream == nil || stopping {
			return
		}

		chunk, err := stream.Read(ctx)
		if err != nil {
			e.mu.Lock()
			stopping := e.stopping
			e.running = false
			e.mu.Unlock()
			if stopping || err == io.EOF || ctx.Err() != nil {
				return
			}
			e.logger.Errorf("capture read failed: %v", err)
			e.fault(fmt.Errorf("%w: %v", ErrCaptureFault, err))
			return
		}

		if len(chunk) > 0 {
			e.emitChunk(chunk)
		}

		if err := e.maybeRotate(); err != nil {
			e.mu.Lock()
			e.running = false
			e.mu.Unlock()
			e.logger.Errorf("capture unit rollover failed: %v", err)
			e.fault(fmt.Errorf("%w: %v", ErrCaptureFault, err))
			return
		}
	}
}

func (e *CaptureEngine) emitChunk(chunk []byte) {
	data := make([]byte, len(chunk))
	copy(data, chunk)

	e.mu.Lock()
	segment := Segment{
		Index:     e.nextIndex,
		Data:      data,
		Mime:      e.mime,
		CreatedAt: e.clock(),
	}
	e.nextIndex++
	e.mu.Unlock()

	e.emit(segment)
}

// maybeRotate closes the current capture unit and opens the next one when
// the rolling ceiling is reached. The new unit is opened first so capture
// never gaps; sequence indices simply continue.
func (e *CaptureEngine) maybeRotate() error {
	e.mu.Lock()
	if !e.running || e.clock().Sub(e.unitStart) < e.maxSegment {
		e.mu.Unlock()
		return nil
	}
	handle := e.handle
	old := e.stream
	e.mu.Unlock()

	next, err := handle.Open(e.mime)
	if err != nil {
		return fmt.Errorf("failed to open next capture unit: %w", err)
	}
	old.Close()

	e.mu.Lock()
	e.stream = next
	e.unitStart = e.clock()
	e.mu.Unlock()

	e.logger.Debugf("capture unit rotated at index %d", e.nextIndex)
	return nil
}

// Pause suspends the current capture unit.
func (e *CaptureEngine) Pause() error {
	e.mu.Lock()
	stream := e.stream
	e.mu.Unlock()
	if stream == nil {
		return fmt.Errorf("%w: capture not running", ErrInvalidTransition)
	}
	return stream.Pause()
}

// Resume continues a paused capture unit.
func (e *CaptureEngine) Resume() error {
	e.mu.Lock()
	stream := e.stream
	e.mu.Unlock()
	if stream == nil {
		return fmt.Errorf("%w: capture not running", ErrInvalidTransition)
	}
	return stream.Resume()
}

// Stop finalizes the capture. Emitted segments stay with their owner; the
// handle is released.
func (e *CaptureEngine) Stop() {
	e.mu.Lock()
	if !e.running && e.stream == nil {
		e.mu.Unlock()
		return
	}
	e.stopping = true
	e.running = false
	stream := e.stream
	handle := e.handle
	e.stream = nil
	e.handle = nil
	done := e.done
	e.mu.Unlock()

	if stream != nil {
		stream.Close()
	}
	if done != nil {
		<-done
	}
	if handle != nil {
		handle.Close()
	}
	e.logger.Infof("capture stopped: segments=%d", e.nextIndex)
}
