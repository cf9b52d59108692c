package session

import (
	"context"
	"errors"

	"github.com/rbright/murmur/internal/audio"
	"github.com/rbright/murmur/internal/fsm"
)

// ErrPipelineUnavailable marks a collaborator that was never wired.
var ErrPipelineUnavailable = errors.New("audio pipeline is unavailable")

// ErrStopped is returned to callers once the event loop has exited.
var ErrStopped = errors.New("session orchestrator is not running")

// Permission answers whether the microphone may be used. A non-nil error
// means the answer could not be determined.
type Permission interface {
	Request(context.Context) (bool, error)
}

// Recording is one active capture. Done yields its outcome exactly once.
type Recording interface {
	Stop()
	Done() <-chan audio.Result
}

// Capture activates the input device.
type Capture interface {
	Start(context.Context) (Recording, error)
}

// CaptureFunc adapts a function to Capture.
type CaptureFunc func(context.Context) (Recording, error)

func (f CaptureFunc) Start(ctx context.Context) (Recording, error) {
	return f(ctx)
}

// Transcriber exchanges an artifact for text.
type Transcriber interface {
	Transcribe(ctx context.Context, artifact audio.Artifact, credential string) (string, error)
}

// Credentials is the read-only view of the credential store.
type Credentials interface {
	Lookup() (string, error)
}

// Status is the presentation-facing snapshot published on every transition.
// Message is set only for fsm.StateError.
type Status struct {
	State     fsm.State
	Message   string
	SessionID string
}

// Listener receives every state change, in order, on the control loop.
type Listener interface {
	StateChanged(context.Context, Status)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(context.Context, Status)

func (f ListenerFunc) StateChanged(ctx context.Context, status Status) {
	f(ctx, status)
}

type grantAll struct{}

func (grantAll) Request(context.Context) (bool, error) { return true, nil }

type unavailableCapture struct{}

func (unavailableCapture) Start(context.Context) (Recording, error) {
	return nil, ErrPipelineUnavailable
}

type unavailableTranscriber struct{}

func (unavailableTranscriber) Transcribe(context.Context, audio.Artifact, string) (string, error) {
	return "", ErrPipelineUnavailable
}

type noCredentials struct{}

func (noCredentials) Lookup() (string, error) { return "", nil }

type noopListener struct{}

func (noopListener) StateChanged(context.Context, Status) {}
