// Package session runs the push-to-talk state machine: one event loop owns
// the session state, and every asynchronous completion is posted back to it.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rbright/murmur/internal/audio"
	"github.com/rbright/murmur/internal/fsm"
)

const (
	// DefaultErrorDisplay is how long Error is shown before returning to Idle.
	DefaultErrorDisplay = 2 * time.Second
	shutdownGrace       = 2 * time.Second
)

// Options wires an Orchestrator. Nil collaborators get inert defaults.
type Options struct {
	Logger       *slog.Logger
	Permission   Permission
	Capture      Capture
	Transcriber  Transcriber
	Credentials  Credentials
	Committer    Committer
	Listener     Listener
	ErrorDisplay time.Duration
	// DumpDir, when set, receives a copy of every artifact before removal.
	DumpDir string
}

type eventKind int

const (
	evPressBegin eventKind = iota + 1
	evPressEnd
	evToggle
	evPermission
	evCaptureStarted
	evFinalized
	evTranscribed
	evCommitted
	evRecover
)

type event struct {
	kind       eventKind
	generation uint64
	reply      chan bool

	granted   bool
	recording Recording
	result    audio.Result
	text      string
	err       error
}

// activeSession is owned by the loop goroutine.
type activeSession struct {
	id          string
	generation  uint64
	createdAt   time.Time
	recording   Recording
	stopPending bool // release arrived before capture started
	finalized   bool
	artifact    *audio.Artifact
}

// Orchestrator binds capture and transcription into one session at a time.
type Orchestrator struct {
	logger       *slog.Logger
	permission   Permission
	capture      Capture
	transcriber  Transcriber
	credentials  Credentials
	committer    Committer
	listener     Listener
	errorDisplay time.Duration
	dumpDir      string

	events chan event
	done   chan struct{}

	mu     sync.RWMutex
	status Status

	// Loop-owned; never touched outside Run.
	state      fsm.State
	generation uint64
	current    *activeSession
	recovery   *time.Timer
}

// New builds an Orchestrator in the idle state. Call Run to start it.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		logger:       opts.Logger,
		permission:   opts.Permission,
		capture:      opts.Capture,
		transcriber:  opts.Transcriber,
		credentials:  opts.Credentials,
		committer:    opts.Committer,
		listener:     opts.Listener,
		errorDisplay: opts.ErrorDisplay,
		dumpDir:      opts.DumpDir,
		events:       make(chan event, 16),
		done:         make(chan struct{}),
		state:        fsm.StateIdle,
		status:       Status{State: fsm.StateIdle},
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.permission == nil {
		o.permission = grantAll{}
	}
	if o.capture == nil {
		o.capture = unavailableCapture{}
	}
	if o.transcriber == nil {
		o.transcriber = unavailableTranscriber{}
	}
	if o.credentials == nil {
		o.credentials = noCredentials{}
	}
	if o.committer == nil {
		o.committer = CommitFunc(func(context.Context, string) error { return nil })
	}
	if o.listener == nil {
		o.listener = noopListener{}
	}
	if o.errorDisplay <= 0 {
		o.errorDisplay = DefaultErrorDisplay
	}
	return o
}

// Status returns the most recently published state.
func (o *Orchestrator) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status
}

// PressBegin asks to start a session. It reports false when the press was
// ignored because a session is already in flight.
func (o *Orchestrator) PressBegin(ctx context.Context) (bool, error) {
	return o.request(ctx, evPressBegin)
}

// PressEnd asks to stop recording. It reports false unless a recording was active.
func (o *Orchestrator) PressEnd(ctx context.Context) (bool, error) {
	return o.request(ctx, evPressEnd)
}

// Toggle acts as PressBegin when idle and PressEnd while recording.
func (o *Orchestrator) Toggle(ctx context.Context) (bool, error) {
	return o.request(ctx, evToggle)
}

func (o *Orchestrator) request(ctx context.Context, kind eventKind) (bool, error) {
	reply := make(chan bool, 1)
	select {
	case o.events <- event{kind: kind, reply: reply}:
	case <-o.done:
		return false, ErrStopped
	case <-ctx.Done():
		return false, ctx.Err()
	}

	select {
	case accepted := <-reply:
		return accepted, nil
	case <-o.done:
		return false, ErrStopped
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// post delivers a completion to the loop; false means the loop has exited.
func (o *Orchestrator) post(ev event) bool {
	select {
	case o.events <- ev:
		return true
	case <-o.done:
		return false
	}
}

// Run processes events until ctx is cancelled. It must be called once.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer close(o.done)
	for {
		select {
		case <-ctx.Done():
			o.shutdown()
			return ctx.Err()
		case ev := <-o.events:
			o.dispatch(ctx, ev)
		}
	}
}

func (o *Orchestrator) dispatch(ctx context.Context, ev event) {
	switch ev.kind {
	case evPressBegin:
		ev.reply <- o.onPressBegin(ctx)
		return
	case evPressEnd:
		ev.reply <- o.onPressEnd(ctx)
		return
	case evToggle:
		if o.state == fsm.StateRecording || o.startPending() {
			ev.reply <- o.onPressEnd(ctx)
		} else {
			ev.reply <- o.onPressBegin(ctx)
		}
		return
	case evRecover:
		o.onRecover(ctx, ev)
		return
	}

	if o.current == nil || ev.generation != o.current.generation {
		o.discardStale(ev)
		return
	}

	switch ev.kind {
	case evPermission:
		o.onPermission(ctx, ev)
	case evCaptureStarted:
		o.onCaptureStarted(ctx, ev)
	case evFinalized:
		o.onFinalized(ctx, ev)
	case evTranscribed:
		o.onTranscribed(ctx, ev)
	case evCommitted:
		o.onCommitted(ctx, ev)
	}
}

func (o *Orchestrator) onPressBegin(ctx context.Context) bool {
	if o.state != fsm.StateIdle || o.current != nil {
		o.logger.Debug("press ignored", "state", string(o.state))
		return false
	}

	o.generation++
	sess := &activeSession{id: uuid.NewString(), generation: o.generation, createdAt: time.Now()}
	o.current = sess
	o.logger.Info("session started", "session_id", sess.id)

	go func() {
		granted, err := o.permission.Request(ctx)
		o.post(event{kind: evPermission, generation: sess.generation, granted: granted, err: err})
	}()
	return true
}

func (o *Orchestrator) onPermission(ctx context.Context, ev event) {
	if ev.err != nil {
		o.fail(ctx, audio.DeviceSetupFailed(ev.err))
		return
	}
	if !ev.granted {
		o.fail(ctx, audio.PermissionDenied())
		return
	}

	generation := ev.generation
	go func() {
		rec, err := o.capture.Start(ctx)
		if err == nil && ctx.Err() != nil {
			discardRecording(rec)
			return
		}
		if !o.post(event{kind: evCaptureStarted, generation: generation, recording: rec, err: err}) && err == nil {
			discardRecording(rec)
		}
	}()
}

func (o *Orchestrator) onCaptureStarted(ctx context.Context, ev event) {
	if ev.err == nil && ev.recording == nil {
		ev.err = errors.New("capture returned no recording")
	}
	if ev.err != nil {
		var captureErr *audio.CaptureError
		if !errors.As(ev.err, &captureErr) {
			ev.err = audio.DeviceSetupFailed(ev.err)
		}
		o.fail(ctx, ev.err)
		return
	}

	sess := o.current
	sess.recording = ev.recording
	o.transition(ctx, fsm.EventStart, "")
	if sess.stopPending {
		o.logger.Info("applying release received during start", "session_id", sess.id)
		o.stopRecording(ctx)
	}

	rec := ev.recording
	go func() {
		result, ok := <-rec.Done()
		if !ok {
			result = audio.Result{Err: &audio.CaptureError{
				Kind: audio.KindRecordingFailed,
				Err:  errors.New("capture ended without a result"),
			}}
		}
		if !o.post(event{kind: evFinalized, generation: sess.generation, result: result}) {
			_ = result.Artifact.Remove()
		}
	}()
}

func (o *Orchestrator) onPressEnd(ctx context.Context) bool {
	if o.startPending() {
		if o.current.stopPending {
			return false
		}
		o.current.stopPending = true
		return true
	}
	if o.state != fsm.StateRecording {
		o.logger.Debug("release ignored", "state", string(o.state))
		return false
	}
	o.stopRecording(ctx)
	return true
}

// startPending reports a session whose permission check or device start is
// still in flight.
func (o *Orchestrator) startPending() bool {
	return o.state == fsm.StateIdle && o.current != nil
}

func (o *Orchestrator) stopRecording(ctx context.Context) {
	o.current.recording.Stop()
	o.transition(ctx, fsm.EventStop, "")
}

func (o *Orchestrator) onFinalized(ctx context.Context, ev event) {
	sess := o.current
	sess.finalized = true
	result := ev.result

	if result.Err != nil {
		o.fail(ctx, result.Err)
		return
	}
	sess.artifact = &result.Artifact

	if o.state == fsm.StateRecording {
		o.logger.Info("capture stopped without release", "session_id", sess.id, "reason", string(result.Reason))
		o.transition(ctx, fsm.EventStop, "")
	}

	credential, err := o.credentials.Lookup()
	if err != nil {
		o.logger.Warn("credential lookup failed", "session_id", sess.id, "error", err.Error())
		credential = ""
	}

	artifact := result.Artifact
	o.logger.Info("transcription requested",
		"session_id", sess.id,
		"bytes", artifact.SizeBytes,
		"duration_ms", artifact.Duration.Milliseconds(),
	)
	go func() {
		text, err := o.transcriber.Transcribe(ctx, artifact, credential)
		o.post(event{kind: evTranscribed, generation: sess.generation, text: text, err: err})
	}()
}

func (o *Orchestrator) onTranscribed(ctx context.Context, ev event) {
	o.releaseArtifact()
	if ev.err != nil {
		o.fail(ctx, ev.err)
		return
	}

	sess := o.current
	text := ev.text + " "
	go func() {
		err := o.committer.Commit(ctx, text)
		o.post(event{kind: evCommitted, generation: sess.generation, text: text, err: err})
	}()
}

func (o *Orchestrator) onCommitted(ctx context.Context, ev event) {
	if ev.err != nil {
		o.fail(ctx, &InsertError{Err: ev.err})
		return
	}

	o.logger.Info("session complete",
		"session_id", o.current.id,
		"transcript_length", len(ev.text)-1,
		"duration_ms", time.Since(o.current.createdAt).Milliseconds(),
	)
	o.transition(ctx, fsm.EventTranscribed, "")
	o.current = nil
}

func (o *Orchestrator) onRecover(ctx context.Context, ev event) {
	if o.state != fsm.StateError || ev.generation != o.generation {
		return
	}
	o.recovery = nil
	o.transition(ctx, fsm.EventReset, "")
}

// fail moves the session to Error, reclaims its artifact, and arms recovery.
func (o *Orchestrator) fail(ctx context.Context, err error) {
	attrs := []any{"error", err.Error()}
	if cause := errors.Unwrap(err); cause != nil {
		attrs = append(attrs, "cause", cause.Error())
	}
	if o.current != nil {
		attrs = append(attrs, "session_id", o.current.id)
	}
	o.logger.Error("session failed", attrs...)

	o.releaseArtifact()
	o.transition(ctx, fsm.EventFail, err.Error())
	o.current = nil

	o.stopRecovery()
	generation := o.generation
	o.recovery = time.AfterFunc(o.errorDisplay, func() {
		o.post(event{kind: evRecover, generation: generation})
	})
}

func (o *Orchestrator) stopRecovery() {
	if o.recovery != nil {
		o.recovery.Stop()
		o.recovery = nil
	}
}

func (o *Orchestrator) transition(ctx context.Context, ev fsm.Event, message string) {
	from := o.state
	next, err := fsm.Transition(from, ev)
	if err != nil {
		o.logger.Error("state transition rejected", "error", err.Error())
		return
	}
	o.state = next

	status := Status{State: next, Message: message}
	if o.current != nil {
		status.SessionID = o.current.id
	}
	o.mu.Lock()
	o.status = status
	o.mu.Unlock()

	o.logger.Info("session state", "session_id", status.SessionID, "from", string(from), "to", string(next))
	o.listener.StateChanged(ctx, status)
}

// releaseArtifact deletes the current artifact, if any. Safe to repeat.
func (o *Orchestrator) releaseArtifact() {
	sess := o.current
	if sess == nil || sess.artifact == nil {
		return
	}
	if o.dumpDir != "" {
		if path, err := dumpArtifact(o.dumpDir, *sess.artifact); err != nil {
			o.logger.Warn("artifact dump failed", "session_id", sess.id, "error", err.Error())
		} else {
			o.logger.Debug("artifact dumped", "session_id", sess.id, "path", path)
		}
	}
	if err := sess.artifact.Remove(); err != nil {
		o.logger.Warn("artifact cleanup failed", "session_id", sess.id, "error", err.Error())
	}
	sess.artifact = nil
}

// discardStale reclaims resources carried by an event from an ended session.
func (o *Orchestrator) discardStale(ev event) {
	switch ev.kind {
	case evCaptureStarted:
		if ev.err == nil {
			discardRecording(ev.recording)
		}
	case evFinalized:
		_ = ev.result.Artifact.Remove()
	}
}

// shutdown stops any live capture and reclaims the artifact before Run returns.
func (o *Orchestrator) shutdown() {
	o.stopRecovery()
	sess := o.current
	if sess == nil {
		return
	}

	if sess.recording != nil && !sess.finalized {
		if o.state == fsm.StateRecording {
			sess.recording.Stop()
		}
		o.awaitFinalize(sess)
	}
	o.releaseArtifact()
	o.current = nil
	o.logger.Info("session abandoned on shutdown", "session_id", sess.id, "state", string(o.state))
}

func (o *Orchestrator) awaitFinalize(sess *activeSession) {
	deadline := time.NewTimer(shutdownGrace)
	defer deadline.Stop()
	for {
		select {
		case ev := <-o.events:
			if ev.reply != nil {
				ev.reply <- false
				continue
			}
			if ev.kind == evFinalized && ev.generation == sess.generation {
				if ev.result.Err == nil {
					sess.artifact = &ev.result.Artifact
				}
				return
			}
			o.discardStale(ev)
		case <-deadline.C:
			o.logger.Warn("capture did not finalize before shutdown", "session_id", sess.id)
			return
		}
	}
}

func discardRecording(rec Recording) {
	if rec == nil {
		return
	}
	rec.Stop()
	go func() {
		for result := range rec.Done() {
			_ = result.Artifact.Remove()
		}
	}()
}

func (s Status) String() string {
	if s.Message == "" {
		return string(s.State)
	}
	return fmt.Sprintf("%s: %s", s.State, s.Message)
}
