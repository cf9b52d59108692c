// Package indicator presents session state through compositor notifications
// and short audio cues.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/murmur/internal/config"
	"github.com/rbright/murmur/internal/fsm"
	"github.com/rbright/murmur/internal/hypr"
	"github.com/rbright/murmur/internal/session"
)

const (
	colorRecording  = "rgb(89b4fa)"
	colorProcessing = "rgb(cba6f7)"
	colorError      = "rgb(f38ba8)"

	// Long enough to outlast any recording; the next transition replaces it.
	stickyTimeoutMS = 300000

	queueDepth = 16
)

// Notifier renders session status changes. StateChanged only enqueues, so
// the session loop never waits on hyprctl, busctl, or audio playback.
type Notifier struct {
	cfg          config.IndicatorConfig
	errorDisplay time.Duration
	logger       *slog.Logger
	messages     messages
	events       chan session.Status

	mu                    sync.Mutex
	desktopNotificationID uint32
	soundMu               sync.Mutex
	last                  fsm.State

	cue func(context.Context, cueKind) error
}

// NewNotifier creates a notifier. errorDisplay is how long error text stays up.
func NewNotifier(cfg config.IndicatorConfig, errorDisplay time.Duration, logger *slog.Logger) *Notifier {
	if errorDisplay <= 0 {
		errorDisplay = 2 * time.Second
	}
	return &Notifier{
		cfg:          cfg,
		errorDisplay: errorDisplay,
		logger:       logger,
		messages:     indicatorMessagesFromEnv(),
		events:       make(chan session.Status, queueDepth),
		last:         fsm.StateIdle,
		cue:          emitCue,
	}
}

// StateChanged implements session.Listener.
func (n *Notifier) StateChanged(_ context.Context, status session.Status) {
	select {
	case n.events <- status:
	default:
		n.log("indicator queue full; dropping update", nil, "state", string(status.State))
	}
}

// Run renders queued updates in order until ctx is done, then dismisses
// whatever is still showing.
func (n *Notifier) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			cleanupCtx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
			n.hide(cleanupCtx)
			cancel()
			return nil
		case status := <-n.events:
			n.apply(ctx, status)
		}
	}
}

func (n *Notifier) apply(ctx context.Context, status session.Status) {
	n.mu.Lock()
	prev := n.last
	n.last = status.State
	n.mu.Unlock()

	switch status.State {
	case fsm.StateRecording:
		n.playCue(cueStart)
		n.show(ctx, 1, stickyTimeoutMS, colorRecording, n.messages.recording)
	case fsm.StateProcessing:
		n.playCue(cueStop)
		n.show(ctx, 1, stickyTimeoutMS, colorProcessing, n.messages.processing)
	case fsm.StateError:
		n.playCue(cueError)
		text := strings.TrimSpace(status.Message)
		if text == "" {
			text = n.messages.errorText
		}
		n.show(ctx, 3, int(n.errorDisplay.Milliseconds()), colorError, text)
	case fsm.StateIdle:
		if prev == fsm.StateProcessing {
			n.playCue(cueComplete)
		}
		n.hide(ctx)
	}
}

func (n *Notifier) show(ctx context.Context, icon int, timeoutMS int, color string, text string) {
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		if n.desktopBackend() {
			return n.notifyDesktop(ctx, timeoutMS, text)
		}
		return hypr.Notify(ctx, icon, timeoutMS, color, text)
	})
}

func (n *Notifier) hide(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		if n.desktopBackend() {
			return n.dismissDesktop(ctx)
		}
		return hypr.DismissNotify(ctx)
	})
}

func (n *Notifier) desktopBackend() bool {
	return strings.EqualFold(strings.TrimSpace(n.cfg.Backend), "desktop")
}

// notifyDesktop sends a replaceable desktop notification and stores its ID.
func (n *Notifier) notifyDesktop(ctx context.Context, timeoutMS int, text string) error {
	n.mu.Lock()
	replaceID := n.desktopNotificationID
	n.mu.Unlock()

	appName := strings.TrimSpace(n.cfg.DesktopAppName)
	if appName == "" {
		appName = "murmur-indicator"
	}

	id, err := desktopNotify(ctx, appName, replaceID, text, timeoutMS)
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.desktopNotificationID = id
	n.mu.Unlock()
	return nil
}

func (n *Notifier) dismissDesktop(ctx context.Context) error {
	n.mu.Lock()
	id := n.desktopNotificationID
	n.desktopNotificationID = 0
	n.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}

// run executes an indicator operation with a bounded timeout.
func (n *Notifier) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.log("indicator dispatch failed", err)
	}
}

// playCue serializes cue playback off the render loop.
func (n *Notifier) playCue(kind cueKind) {
	if !n.cfg.SoundEnable {
		return
	}
	go func() {
		n.soundMu.Lock()
		defer n.soundMu.Unlock()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := n.cue(ctx, kind); err != nil {
			n.log("indicator audio cue failed", err)
		}
	}()
}

func (n *Notifier) log(message string, err error, args ...any) {
	if n.logger == nil {
		return
	}
	if err != nil {
		args = append(args, "error", err.Error())
	}
	n.logger.Debug(message, args...)
}
