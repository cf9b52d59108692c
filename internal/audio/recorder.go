package audio

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultMaxDuration bounds one capture.
	DefaultMaxDuration = 60 * time.Second
	defaultTick        = time.Second
)

// StopReason records why a capture ended.
type StopReason string

const (
	StopReleased    StopReason = "released"
	StopMaxDuration StopReason = "max_duration"
	StopDeviceFault StopReason = "device_fault"
	StopShutdown    StopReason = "shutdown"
)

// Result is the single outcome of a capture: an artifact or a CaptureError.
type Result struct {
	Artifact Artifact
	Reason   StopReason
	Err      error
}

// Stream is an open device stream feeding PCM into the sink given to Source.Open.
type Stream interface {
	Start()
	Stop()
	Close()
	Error() error
}

// Source opens a record stream that writes s16le mono PCM into sink.
type Source interface {
	Open(ctx context.Context, sink io.Writer) (Stream, error)
}

// Options tune a Recorder. Zero values fall back to defaults.
type Options struct {
	TempDir     string
	MaxDuration time.Duration
	Tick        time.Duration
	Logger      *slog.Logger
}

// Recorder starts captures against one Source.
type Recorder struct {
	source Source
	opts   Options
}

// NewRecorder builds a Recorder for source.
func NewRecorder(source Source, opts Options) *Recorder {
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = DefaultMaxDuration
	}
	if opts.Tick <= 0 {
		opts.Tick = defaultTick
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Recorder{source: source, opts: opts}
}

// Start activates the device and begins buffering PCM. Failure to open the
// device is reported as a DeviceSetupFailed CaptureError.
func (r *Recorder) Start(ctx context.Context) (*Recording, error) {
	rec := &Recording{
		opts:     r.opts,
		maxBytes: PCMBytesFor(r.opts.MaxDuration),
		stopCh:   make(chan struct{}),
		done:     make(chan Result, 1),
	}

	stream, err := r.source.Open(ctx, writerFunc(rec.onPCM))
	if err != nil {
		return nil, DeviceSetupFailed(err)
	}
	rec.stream = stream
	rec.startedAt = time.Now()
	stream.Start()

	go rec.watch(ctx)
	return rec, nil
}

// Recording is one active capture. Its outcome is delivered once on Done.
type Recording struct {
	opts      Options
	stream    Stream
	startedAt time.Time
	maxBytes  int

	mu       sync.Mutex
	pcm      []byte
	stopped  bool

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan Result
}

// Stop ends the capture as a user release. Repeated calls are no-ops.
func (r *Recording) Stop() {
	r.stop(StopReleased, nil)
}

// Done yields the finalized Result exactly once, then closes.
func (r *Recording) Done() <-chan Result {
	return r.done
}

// StartedAt reports when the device stream began.
func (r *Recording) StartedAt() time.Time {
	return r.startedAt
}

// BytesCaptured reports how much PCM has been buffered so far.
func (r *Recording) BytesCaptured() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pcm)
}

func (r *Recording) stop(reason StopReason, fault error) {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.stopped = true
		r.mu.Unlock()
		close(r.stopCh)
		go r.finalize(reason, fault)
	})
}

// watch is the duration watchdog. It also surfaces stream faults.
func (r *Recording) watch(ctx context.Context) {
	ticker := time.NewTicker(r.opts.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			r.stop(StopShutdown, nil)
			return
		case now := <-ticker.C:
			if err := streamFault(r.stream); err != nil {
				r.stop(StopDeviceFault, err)
				return
			}
			if now.Sub(r.startedAt) >= r.opts.MaxDuration {
				r.opts.Logger.Info("capture reached max duration", "max_ms", r.opts.MaxDuration.Milliseconds())
				r.stop(StopMaxDuration, nil)
				return
			}
		}
	}
}

func (r *Recording) finalize(reason StopReason, fault error) {
	defer close(r.done)

	r.stream.Stop()
	if fault == nil {
		fault = streamFault(r.stream)
	}
	r.stream.Close()

	if fault != nil {
		r.done <- Result{Reason: reason, Err: recordingFailed(fault)}
		return
	}

	r.mu.Lock()
	pcm := r.pcm
	r.pcm = nil
	r.mu.Unlock()

	artifact, err := writeArtifact(r.opts.TempDir, pcm)
	if err != nil {
		r.done <- Result{Reason: reason, Err: recordingFailed(err)}
		return
	}
	r.opts.Logger.Debug("capture finalized",
		"reason", string(reason),
		"bytes", artifact.SizeBytes,
		"duration_ms", artifact.Duration.Milliseconds(),
	)
	r.done <- Result{Artifact: artifact, Reason: reason}
}

// onPCM buffers device frames. Frames after stop or beyond the duration
// ceiling are accepted and dropped so the stream never reports a write error.
func (r *Recording) onPCM(frame []byte) (int, error) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return len(frame), nil
	}
	room := r.maxBytes - len(r.pcm)
	if room > len(frame) {
		room = len(frame)
	}
	if room > 0 {
		r.pcm = append(r.pcm, frame[:room]...)
	}
	r.mu.Unlock()
	return len(frame), nil
}

func streamFault(stream Stream) error {
	err := stream.Error()
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
