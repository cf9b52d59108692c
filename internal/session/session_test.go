package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/murmur/internal/audio"
	"github.com/rbright/murmur/internal/fsm"
	"github.com/rbright/murmur/internal/ipc"
	"github.com/rbright/murmur/internal/transcribe"
)

const waitFor = 2 * time.Second

type fakeRecording struct {
	stopped    chan struct{}
	stopOnce   sync.Once
	finishOnce sync.Once
	done       chan audio.Result
	// onStop is delivered when Stop is called; nil delivers an empty result.
	onStop *audio.Result
}

func newFakeRecording(onStop *audio.Result) *fakeRecording {
	return &fakeRecording{
		stopped: make(chan struct{}),
		done:    make(chan audio.Result, 1),
		onStop:  onStop,
	}
}

func (r *fakeRecording) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopped)
		result := audio.Result{Reason: audio.StopReleased}
		if r.onStop != nil {
			result = *r.onStop
		}
		r.finish(result)
	})
}

func (r *fakeRecording) Done() <-chan audio.Result { return r.done }

func (r *fakeRecording) finish(result audio.Result) {
	r.finishOnce.Do(func() {
		r.done <- result
		close(r.done)
	})
}

func (r *fakeRecording) wasStopped() bool {
	select {
	case <-r.stopped:
		return true
	default:
		return false
	}
}

type fakeCapture struct {
	starts atomic.Int32
	start  func() (Recording, error)
}

func (c *fakeCapture) Start(context.Context) (Recording, error) {
	c.starts.Add(1)
	return c.start()
}

type fakeTranscriber struct {
	mu          sync.Mutex
	credentials []string
	paths       []string
	gate        chan struct{}
	text        string
	err         error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, artifact audio.Artifact, credential string) (string, error) {
	f.mu.Lock()
	f.credentials = append(f.credentials, credential)
	f.paths = append(f.paths, artifact.Path)
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func (f *fakeTranscriber) calls() ([]string, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.credentials...), append([]string(nil), f.paths...)
}

type fakeCommitter struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (c *fakeCommitter) Commit(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, text)
	return c.err
}

func (c *fakeCommitter) committed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.texts...)
}

type recordingListener struct {
	mu       sync.Mutex
	statuses []Status
}

func (l *recordingListener) StateChanged(_ context.Context, status Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statuses = append(l.statuses, status)
}

func (l *recordingListener) states() []fsm.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]fsm.State, 0, len(l.statuses))
	for _, s := range l.statuses {
		out = append(out, s.State)
	}
	return out
}

type staticPermission struct {
	granted bool
	err     error
	gate    chan struct{}
}

func (p staticPermission) Request(ctx context.Context) (bool, error) {
	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return p.granted, p.err
}

type staticCredentials struct {
	key string
	err error
}

func (c staticCredentials) Lookup() (string, error) { return c.key, c.err }

type harness struct {
	o        *Orchestrator
	listener *recordingListener
	cancel   context.CancelFunc
	done     chan error
}

func start(t *testing.T, opts Options) *harness {
	t.Helper()

	listener := &recordingListener{}
	opts.Listener = listener
	o := New(opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	h := &harness{o: o, listener: listener, cancel: cancel, done: done}
	t.Cleanup(func() { h.stop(t) })
	return h
}

func (h *harness) stop(t *testing.T) error {
	t.Helper()
	h.cancel()
	select {
	case err, ok := <-h.done:
		if !ok {
			return nil
		}
		close(h.done)
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("orchestrator did not stop")
		return nil
	}
}

func (h *harness) waitForState(t *testing.T, state fsm.State) Status {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.o.Status().State == state
	}, waitFor, 5*time.Millisecond, "want state %s, have %s", state, h.o.Status())
	return h.o.Status()
}

func writeArtifact(t *testing.T) audio.Artifact {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "murmur-test.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF....WAVE"), 0o600))
	return audio.Artifact{Path: path, Name: "murmur-test.wav", SizeBytes: 12, Duration: time.Second, CreatedAt: time.Now()}
}

func releasedResult(artifact audio.Artifact) *audio.Result {
	return &audio.Result{Artifact: artifact, Reason: audio.StopReleased}
}

func captureOf(rec *fakeRecording) *fakeCapture {
	return &fakeCapture{start: func() (Recording, error) { return rec, nil }}
}

func requireRemoved(t *testing.T, path string) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return errors.Is(err, os.ErrNotExist)
	}, waitFor, 5*time.Millisecond, "artifact %s still on disk", path)
}

func TestPushToTalkInsertsTranscriptWithTrailingSpace(t *testing.T) {
	artifact := writeArtifact(t)
	rec := newFakeRecording(releasedResult(artifact))
	transcriber := &fakeTranscriber{text: "hello world"}
	committer := &fakeCommitter{}

	h := start(t, Options{
		Capture:     captureOf(rec),
		Transcriber: transcriber,
		Credentials: staticCredentials{key: "gsk_test"},
		Committer:   committer,
	})

	accepted, err := h.o.PressBegin(context.Background())
	require.NoError(t, err)
	require.True(t, accepted)
	recording := h.waitForState(t, fsm.StateRecording)
	require.NotEmpty(t, recording.SessionID)

	accepted, err = h.o.PressEnd(context.Background())
	require.NoError(t, err)
	require.True(t, accepted)
	require.True(t, rec.wasStopped())

	require.Eventually(t, func() bool { return len(committer.committed()) == 1 }, waitFor, 5*time.Millisecond)
	h.waitForState(t, fsm.StateIdle)

	require.Equal(t, []string{"hello world "}, committer.committed())
	credentials, paths := transcriber.calls()
	require.Equal(t, []string{"gsk_test"}, credentials)
	require.Equal(t, []string{artifact.Path}, paths)
	require.Equal(t, []fsm.State{fsm.StateRecording, fsm.StateProcessing, fsm.StateIdle}, h.listener.states())
	requireRemoved(t, artifact.Path)
}

func TestEmptyTranscriptStillCommitsSeparator(t *testing.T) {
	artifact := writeArtifact(t)
	committer := &fakeCommitter{}
	h := start(t, Options{
		Capture:     captureOf(newFakeRecording(releasedResult(artifact))),
		Transcriber: &fakeTranscriber{text: ""},
		Committer:   committer,
	})

	_, err := h.o.PressBegin(context.Background())
	require.NoError(t, err)
	h.waitForState(t, fsm.StateRecording)
	_, err = h.o.PressEnd(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(committer.committed()) == 1 }, waitFor, 5*time.Millisecond)
	require.Equal(t, []string{" "}, committer.committed())
}

func TestSecondPressIgnoredWhileStartPending(t *testing.T) {
	gate := make(chan struct{})
	capture := captureOf(newFakeRecording(nil))
	h := start(t, Options{
		Permission: staticPermission{granted: true, gate: gate},
		Capture:    capture,
	})

	accepted, err := h.o.PressBegin(context.Background())
	require.NoError(t, err)
	require.True(t, accepted)

	accepted, err = h.o.PressBegin(context.Background())
	require.NoError(t, err)
	require.False(t, accepted)

	close(gate)
	h.waitForState(t, fsm.StateRecording)
	require.EqualValues(t, 1, capture.starts.Load())
}

func TestReleaseDuringStartStopsOnceCaptureRuns(t *testing.T) {
	artifact := writeArtifact(t)
	gate := make(chan struct{})
	rec := newFakeRecording(releasedResult(artifact))
	committer := &fakeCommitter{}
	h := start(t, Options{
		Permission:  staticPermission{granted: true, gate: gate},
		Capture:     captureOf(rec),
		Transcriber: &fakeTranscriber{text: "quick tap"},
		Committer:   committer,
	})

	_, err := h.o.PressBegin(context.Background())
	require.NoError(t, err)

	accepted, err := h.o.PressEnd(context.Background())
	require.NoError(t, err)
	require.True(t, accepted)
	require.False(t, rec.wasStopped())

	// A repeated release is not latched twice.
	accepted, err = h.o.PressEnd(context.Background())
	require.NoError(t, err)
	require.False(t, accepted)

	close(gate)
	require.Eventually(t, func() bool { return len(committer.committed()) == 1 }, waitFor, 5*time.Millisecond)
	h.waitForState(t, fsm.StateIdle)

	require.True(t, rec.wasStopped())
	require.Equal(t, []string{"quick tap "}, committer.committed())
	require.Equal(t, []fsm.State{fsm.StateRecording, fsm.StateProcessing, fsm.StateIdle}, h.listener.states())
}

func TestToggleDuringStartLatchesStop(t *testing.T) {
	gate := make(chan struct{})
	rec := newFakeRecording(releasedResult(writeArtifact(t)))
	h := start(t, Options{
		Permission:  staticPermission{granted: true, gate: gate},
		Capture:     captureOf(rec),
		Transcriber: &fakeTranscriber{text: "x"},
	})

	for i := 0; i < 2; i++ {
		accepted, err := h.o.Toggle(context.Background())
		require.NoError(t, err)
		require.True(t, accepted)
	}

	close(gate)
	require.Eventually(t, rec.wasStopped, waitFor, 5*time.Millisecond)
	h.waitForState(t, fsm.StateIdle)
}

func TestIntentAnsweredWhileCommitInFlight(t *testing.T) {
	release := make(chan struct{})
	committed := make(chan string, 1)
	h := start(t, Options{
		Capture:     captureOf(newFakeRecording(releasedResult(writeArtifact(t)))),
		Transcriber: &fakeTranscriber{text: "slow paste"},
		Committer: CommitFunc(func(ctx context.Context, text string) error {
			committed <- text
			select {
			case <-release:
			case <-ctx.Done():
			}
			return nil
		}),
	})

	_, err := h.o.PressBegin(context.Background())
	require.NoError(t, err)
	h.waitForState(t, fsm.StateRecording)
	_, err = h.o.PressEnd(context.Background())
	require.NoError(t, err)

	select {
	case text := <-committed:
		require.Equal(t, "slow paste ", text)
	case <-time.After(waitFor):
		t.Fatal("commit never started")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	accepted, err := h.o.PressBegin(ctx)
	require.NoError(t, err)
	require.False(t, accepted)
	require.Equal(t, fsm.StateProcessing, h.o.Status().State)

	close(release)
	h.waitForState(t, fsm.StateIdle)
}

func TestSecondPressIgnoredWhileRecording(t *testing.T) {
	capture := captureOf(newFakeRecording(nil))
	h := start(t, Options{Capture: capture})

	_, err := h.o.PressBegin(context.Background())
	require.NoError(t, err)
	h.waitForState(t, fsm.StateRecording)

	accepted, err := h.o.PressBegin(context.Background())
	require.NoError(t, err)
	require.False(t, accepted)
	require.EqualValues(t, 1, capture.starts.Load())
}

func TestReleaseIgnoredWhenIdle(t *testing.T) {
	h := start(t, Options{})

	accepted, err := h.o.PressEnd(context.Background())
	require.NoError(t, err)
	require.False(t, accepted)
	require.Equal(t, fsm.StateIdle, h.o.Status().State)
	require.Empty(t, h.listener.states())
}

func TestToggleStartsThenStops(t *testing.T) {
	artifact := writeArtifact(t)
	rec := newFakeRecording(releasedResult(artifact))
	committer := &fakeCommitter{}
	h := start(t, Options{
		Capture:     captureOf(rec),
		Transcriber: &fakeTranscriber{text: "toggled"},
		Committer:   committer,
	})

	accepted, err := h.o.Toggle(context.Background())
	require.NoError(t, err)
	require.True(t, accepted)
	h.waitForState(t, fsm.StateRecording)

	accepted, err = h.o.Toggle(context.Background())
	require.NoError(t, err)
	require.True(t, accepted)

	require.Eventually(t, func() bool { return len(committer.committed()) == 1 }, waitFor, 5*time.Millisecond)
	require.Equal(t, "toggled ", committer.committed()[0])
}

func TestWatchdogFinalizeWithoutReleaseMovesToProcessing(t *testing.T) {
	artifact := writeArtifact(t)
	rec := newFakeRecording(nil)
	gate := make(chan struct{})
	transcriber := &fakeTranscriber{text: "sixty seconds", gate: gate}
	committer := &fakeCommitter{}

	h := start(t, Options{
		Capture:     captureOf(rec),
		Transcriber: transcriber,
		Committer:   committer,
	})

	_, err := h.o.PressBegin(context.Background())
	require.NoError(t, err)
	h.waitForState(t, fsm.StateRecording)

	rec.finish(audio.Result{Artifact: artifact, Reason: audio.StopMaxDuration})
	h.waitForState(t, fsm.StateProcessing)

	// The user lets go after the ceiling already ended the capture.
	accepted, err := h.o.PressEnd(context.Background())
	require.NoError(t, err)
	require.False(t, accepted)

	close(gate)
	h.waitForState(t, fsm.StateIdle)
	require.Equal(t, []string{"sixty seconds "}, committer.committed())
	require.Equal(t, []fsm.State{fsm.StateRecording, fsm.StateProcessing, fsm.StateIdle}, h.listener.states())
	requireRemoved(t, artifact.Path)
}

func TestPermissionDeniedShowsMessageAndRecovers(t *testing.T) {
	capture := captureOf(newFakeRecording(nil))
	h := start(t, Options{
		Permission:   staticPermission{granted: false},
		Capture:      capture,
		ErrorDisplay: 50 * time.Millisecond,
	})

	_, err := h.o.PressBegin(context.Background())
	require.NoError(t, err)

	status := h.waitForState(t, fsm.StateError)
	require.Equal(t, "Microphone permission denied", status.Message)
	require.EqualValues(t, 0, capture.starts.Load())

	h.waitForState(t, fsm.StateIdle)
	require.Empty(t, h.o.Status().Message)
	require.Equal(t, []fsm.State{fsm.StateError, fsm.StateIdle}, h.listener.states())
}

func TestPermissionProbeErrorReportsDeviceSetup(t *testing.T) {
	h := start(t, Options{
		Permission: staticPermission{err: errors.New("connection refused")},
	})

	_, err := h.o.PressBegin(context.Background())
	require.NoError(t, err)
	status := h.waitForState(t, fsm.StateError)
	require.Equal(t, "Failed to setup audio session", status.Message)
}

func TestCaptureStartFailureReportsDeviceSetup(t *testing.T) {
	h := start(t, Options{
		Capture: &fakeCapture{start: func() (Recording, error) {
			return nil, errors.New("no such source")
		}},
	})

	_, err := h.o.PressBegin(context.Background())
	require.NoError(t, err)
	status := h.waitForState(t, fsm.StateError)
	require.Equal(t, "Failed to setup audio session", status.Message)
}

func TestRecordingFailureFailsSession(t *testing.T) {
	rec := newFakeRecording(&audio.Result{
		Reason: audio.StopReleased,
		Err:    &audio.CaptureError{Kind: audio.KindRecordingFailed, Err: errors.New("disk full")},
	})
	transcriber := &fakeTranscriber{}
	h := start(t, Options{Capture: captureOf(rec), Transcriber: transcriber})

	_, err := h.o.PressBegin(context.Background())
	require.NoError(t, err)
	h.waitForState(t, fsm.StateRecording)
	_, err = h.o.PressEnd(context.Background())
	require.NoError(t, err)

	status := h.waitForState(t, fsm.StateError)
	require.Equal(t, "Failed to record audio", status.Message)
	credentials, _ := transcriber.calls()
	require.Empty(t, credentials)
}

func TestServerErrorMessageSurfacedAndArtifactRemoved(t *testing.T) {
	artifact := writeArtifact(t)
	committer := &fakeCommitter{}
	h := start(t, Options{
		Capture: captureOf(newFakeRecording(releasedResult(artifact))),
		Transcriber: &fakeTranscriber{err: &transcribe.Error{
			Kind:       transcribe.KindServer,
			StatusCode: 500,
			Message:    "overloaded",
		}},
		Committer:    committer,
		ErrorDisplay: time.Hour,
	})

	_, err := h.o.PressBegin(context.Background())
	require.NoError(t, err)
	h.waitForState(t, fsm.StateRecording)
	_, err = h.o.PressEnd(context.Background())
	require.NoError(t, err)

	status := h.waitForState(t, fsm.StateError)
	require.Equal(t, "Server error (500): overloaded", status.Message)
	require.Empty(t, committer.committed())
	requireRemoved(t, artifact.Path)

	// Error holds until the display window ends.
	accepted, err := h.o.PressBegin(context.Background())
	require.NoError(t, err)
	require.False(t, accepted)
}

func TestMissingCredentialFailsWithoutNetwork(t *testing.T) {
	artifact := writeArtifact(t)
	h := start(t, Options{
		Capture:     captureOf(newFakeRecording(releasedResult(artifact))),
		Transcriber: transcribe.NewClient(transcribe.Config{Endpoint: "http://127.0.0.1:1/v1/audio/transcriptions", Timeout: time.Second}, nil),
		Credentials: staticCredentials{},
	})

	_, err := h.o.PressBegin(context.Background())
	require.NoError(t, err)
	h.waitForState(t, fsm.StateRecording)
	_, err = h.o.PressEnd(context.Background())
	require.NoError(t, err)

	status := h.waitForState(t, fsm.StateError)
	require.Equal(t, "Invalid API key. Please check your settings.", status.Message)
}

func TestCredentialLookupErrorPassesEmptyCredential(t *testing.T) {
	artifact := writeArtifact(t)
	transcriber := &fakeTranscriber{text: "ok"}
	h := start(t, Options{
		Capture:     captureOf(newFakeRecording(releasedResult(artifact))),
		Transcriber: transcriber,
		Credentials: staticCredentials{key: "ignored", err: errors.New("permission denied")},
	})

	_, err := h.o.PressBegin(context.Background())
	require.NoError(t, err)
	h.waitForState(t, fsm.StateRecording)
	_, err = h.o.PressEnd(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		credentials, _ := transcriber.calls()
		return len(credentials) == 1
	}, waitFor, 5*time.Millisecond)
	credentials, _ := transcriber.calls()
	require.Equal(t, []string{""}, credentials)
}

func TestCommitFailureReportsInsertError(t *testing.T) {
	artifact := writeArtifact(t)
	h := start(t, Options{
		Capture:     captureOf(newFakeRecording(releasedResult(artifact))),
		Transcriber: &fakeTranscriber{text: "hello"},
		Committer:   &fakeCommitter{err: errors.New("wl-copy: not found")},
	})

	_, err := h.o.PressBegin(context.Background())
	require.NoError(t, err)
	h.waitForState(t, fsm.StateRecording)
	_, err = h.o.PressEnd(context.Background())
	require.NoError(t, err)

	status := h.waitForState(t, fsm.StateError)
	require.Equal(t, "Failed to insert text", status.Message)
	requireRemoved(t, artifact.Path)
}

func TestNewSessionAfterRecovery(t *testing.T) {
	var attempts atomic.Int32
	artifact := writeArtifact(t)
	capture := &fakeCapture{start: func() (Recording, error) {
		if attempts.Add(1) == 1 {
			return nil, errors.New("busy")
		}
		return newFakeRecording(releasedResult(artifact)), nil
	}}
	committer := &fakeCommitter{}
	h := start(t, Options{
		Capture:      capture,
		Transcriber:  &fakeTranscriber{text: "second try"},
		Committer:    committer,
		ErrorDisplay: 30 * time.Millisecond,
	})

	_, err := h.o.PressBegin(context.Background())
	require.NoError(t, err)
	h.waitForState(t, fsm.StateError)
	h.waitForState(t, fsm.StateIdle)

	accepted, err := h.o.PressBegin(context.Background())
	require.NoError(t, err)
	require.True(t, accepted)
	h.waitForState(t, fsm.StateRecording)
	_, err = h.o.PressEnd(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(committer.committed()) == 1 }, waitFor, 5*time.Millisecond)
	require.Equal(t, "second try ", committer.committed()[0])
}

func TestShutdownStopsRecordingAndRemovesArtifact(t *testing.T) {
	artifact := writeArtifact(t)
	rec := newFakeRecording(&audio.Result{Artifact: artifact, Reason: audio.StopShutdown})
	h := start(t, Options{Capture: captureOf(rec)})

	_, err := h.o.PressBegin(context.Background())
	require.NoError(t, err)
	h.waitForState(t, fsm.StateRecording)

	require.ErrorIs(t, h.stop(t), context.Canceled)
	require.True(t, rec.wasStopped())
	requireRemoved(t, artifact.Path)

	_, err = h.o.PressBegin(context.Background())
	require.ErrorIs(t, err, ErrStopped)
}

func TestShutdownDuringProcessingRemovesArtifact(t *testing.T) {
	artifact := writeArtifact(t)
	gate := make(chan struct{})
	h := start(t, Options{
		Capture:     captureOf(newFakeRecording(releasedResult(artifact))),
		Transcriber: &fakeTranscriber{gate: gate},
	})

	_, err := h.o.PressBegin(context.Background())
	require.NoError(t, err)
	h.waitForState(t, fsm.StateRecording)
	_, err = h.o.PressEnd(context.Background())
	require.NoError(t, err)
	h.waitForState(t, fsm.StateProcessing)
	require.FileExists(t, artifact.Path)

	require.ErrorIs(t, h.stop(t), context.Canceled)
	requireRemoved(t, artifact.Path)
}

func TestDumpDirKeepsCopyOfArtifact(t *testing.T) {
	artifact := writeArtifact(t)
	dumpDir := filepath.Join(t.TempDir(), "debug")
	committer := &fakeCommitter{}
	h := start(t, Options{
		Capture:     captureOf(newFakeRecording(releasedResult(artifact))),
		Transcriber: &fakeTranscriber{text: "kept"},
		Committer:   committer,
		DumpDir:     dumpDir,
	})

	_, err := h.o.PressBegin(context.Background())
	require.NoError(t, err)
	h.waitForState(t, fsm.StateRecording)
	_, err = h.o.PressEnd(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(committer.committed()) == 1 }, waitFor, 5*time.Millisecond)
	requireRemoved(t, artifact.Path)

	data, err := os.ReadFile(filepath.Join(dumpDir, artifact.Name))
	require.NoError(t, err)
	require.Equal(t, "RIFF....WAVE", string(data))
}

func TestHandleMapsIPCCommands(t *testing.T) {
	h := start(t, Options{
		Capture:      captureOf(newFakeRecording(nil)),
		ErrorDisplay: time.Hour,
	})
	ctx := context.Background()

	resp := h.o.Handle(ctx, ipc.Request{Command: ipc.CommandStatus})
	require.Equal(t, ipc.Response{OK: true, State: "idle"}, resp)

	resp = h.o.Handle(ctx, ipc.Request{Command: ipc.CommandRelease})
	require.False(t, resp.OK)
	require.Equal(t, "release ignored in state idle", resp.Error)

	resp = h.o.Handle(ctx, ipc.Request{Command: ipc.CommandPress})
	require.True(t, resp.OK)
	require.Equal(t, "press accepted", resp.Message)
	h.waitForState(t, fsm.StateRecording)

	resp = h.o.Handle(ctx, ipc.Request{Command: ipc.CommandStatus})
	require.Equal(t, "recording", resp.State)

	resp = h.o.Handle(ctx, ipc.Request{Command: "cancel"})
	require.False(t, resp.OK)
	require.Equal(t, "unknown command: cancel", resp.Error)
	require.Equal(t, "recording", resp.State)
}

func TestHandleStatusCarriesErrorMessage(t *testing.T) {
	h := start(t, Options{
		Permission:   staticPermission{granted: false},
		ErrorDisplay: time.Hour,
	})

	_, err := h.o.PressBegin(context.Background())
	require.NoError(t, err)
	h.waitForState(t, fsm.StateError)

	resp := h.o.Handle(context.Background(), ipc.Request{Command: ipc.CommandStatus})
	require.Equal(t, ipc.Response{OK: true, State: "error", Message: "Microphone permission denied"}, resp)

	resp = h.o.Handle(context.Background(), ipc.Request{Command: ipc.CommandToggle})
	require.False(t, resp.OK)
	require.Equal(t, "toggle ignored in state error: Microphone permission denied", resp.Error)
}

func TestStatusString(t *testing.T) {
	require.Equal(t, "idle", Status{State: fsm.StateIdle}.String())
	require.Equal(t, "error: boom", Status{State: fsm.StateError, Message: "boom"}.String())
}
