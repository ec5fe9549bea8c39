package recorder

import "errors"

var (
	// ErrCaptureUnavailable means the capture device or permission could not
	// be acquired. Fatal to session start, never retried.
	ErrCaptureUnavailable = errors.New("capture device unavailable")

	// ErrCaptureFault is a mid-session device error. The session moves to
	// the error state; already produced segments stay valid and uploadable.
	ErrCaptureFault = errors.New("capture device fault")

	// ErrInvalidTransition rejects an operation that is not legal in the
	// session's current state.
	ErrInvalidTransition = errors.New("invalid session state transition")

	// ErrNoRecording means the session was never registered with the
	// server, so there is nothing to capture against.
	ErrNoRecording = errors.New("session has no recording id")

	// ErrAlreadyPersisted rejects a second persist after a successful one;
	// finalize must never run twice for one session.
	ErrAlreadyPersisted = errors.New("session already persisted")

	// ErrUploadFailure wraps a transient upload error. The failed work
	// stays in the durable queue for the sync manager to retry.
	ErrUploadFailure = errors.New("upload failed")

	// ErrDiscardNotConfirmed guards the confirmation gate: discarding a
	// live (recording or paused) session requires explicit confirmation.
	ErrDiscardNotConfirmed = errors.New("discard of active session not confirmed")
)
