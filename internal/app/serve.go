package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rbright/murmur/internal/audio"
	"github.com/rbright/murmur/internal/config"
	"github.com/rbright/murmur/internal/credential"
	"github.com/rbright/murmur/internal/indicator"
	"github.com/rbright/murmur/internal/ipc"
	"github.com/rbright/murmur/internal/output"
	"github.com/rbright/murmur/internal/session"
	"github.com/rbright/murmur/internal/transcribe"
)

// daemon is the long-lived process behind `murmur serve`.
type daemon struct {
	orchestrator *session.Orchestrator
	notifier     *indicator.Notifier
	logger       *slog.Logger
}

func (r Runner) commandServe(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintf(r.Stderr, "error: %v (socket %s)\n", err, socketPath)
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	d, err := buildDaemon(cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logger.Info("daemon started", "socket", socketPath, "provider", cfg.Transcription.Provider)
	if err := d.run(ctx, listener); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("daemon failed", "error", err.Error())
		return 1
	}
	logger.Info("daemon stopped")
	return 0
}

func buildDaemon(cfg config.Config, logger *slog.Logger) (*daemon, error) {
	tempDir, err := resolveTempDir(cfg.Audio.TempDir)
	if err != nil {
		return nil, err
	}
	if removed, err := audio.CleanupStale(tempDir); err != nil {
		logger.Warn("stale artifact cleanup failed", "dir", tempDir, "error", err.Error())
	} else if removed > 0 {
		logger.Info("removed stale artifacts", "dir", tempDir, "count", removed)
	}

	store, err := credential.Open(cfg.Credential.File)
	if err != nil {
		return nil, err
	}

	transcriber, err := transcribe.New(transcribe.Config{
		Provider: cfg.Transcription.Provider,
		Endpoint: cfg.Transcription.Endpoint,
		Model:    cfg.Transcription.Model,
		Language: cfg.Transcription.Language,
		Timeout:  time.Duration(cfg.Transcription.TimeoutMS) * time.Millisecond,
		HTTP2:    cfg.Transcription.HTTP2,
	}, logger)
	if err != nil {
		return nil, err
	}

	recorder := audio.NewRecorder(
		audio.PulseSource{Input: cfg.Audio.Input, Fallback: cfg.Audio.Fallback, Logger: logger},
		audio.Options{
			TempDir:     tempDir,
			MaxDuration: time.Duration(cfg.Audio.MaxDurationMS) * time.Millisecond,
			Logger:      logger,
		},
	)

	errorDisplay := time.Duration(cfg.Session.ErrorDisplayMS) * time.Millisecond

	d := &daemon{logger: logger}
	var listener session.Listener
	if cfg.Indicator.Enable || cfg.Indicator.SoundEnable {
		d.notifier = indicator.NewNotifier(cfg.Indicator, errorDisplay, logger)
		listener = d.notifier
	}

	d.orchestrator = session.New(session.Options{
		Logger:       logger,
		Permission:   audio.NewAccessGate(cfg.Audio.Microphone),
		Capture:      recorderCapture(recorder),
		Transcriber:  transcriber,
		Credentials:  store,
		Committer:    output.NewCommitter(cfg, logger),
		Listener:     listener,
		ErrorDisplay: errorDisplay,
		DumpDir:      debugDumpDir(cfg.Debug.EnableAudioDump),
	})
	return d, nil
}

// recorderCapture adapts the concrete recorder to the session's Capture.
func recorderCapture(recorder *audio.Recorder) session.Capture {
	return session.CaptureFunc(func(ctx context.Context) (session.Recording, error) {
		rec, err := recorder.Start(ctx)
		if err != nil {
			return nil, err
		}
		return rec, nil
	})
}

// run serves IPC and drives the orchestrator until ctx is cancelled or
// either side fails.
func (d *daemon) run(ctx context.Context, listener net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return d.orchestrator.Run(gctx)
	})
	g.Go(func() error {
		return ipc.Serve(gctx, listener, d.orchestrator)
	})
	if d.notifier != nil {
		g.Go(func() error {
			return d.notifier.Run(gctx)
		})
	}

	err := g.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return nil
	}
	return err
}
