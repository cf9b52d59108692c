package output

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rbright/murmur/internal/hypr"
)

const (
	focusAttempts = 5
	focusBackoff  = 10 * time.Millisecond
)

// pasteIntoFocused sends shortcut to whichever window has focus right now.
// Targeting by address keeps the keystroke away from a notification popup
// that may have grabbed focus in between.
func pasteIntoFocused(ctx context.Context, shortcut string) error {
	window, err := focusedWindow(ctx, focusAttempts, focusBackoff)
	if err != nil {
		return err
	}
	payload, err := shortcutFor(shortcut, window.Address)
	if err != nil {
		return err
	}
	return hypr.SendShortcut(ctx, payload)
}

func shortcutFor(shortcut, address string) (string, error) {
	shortcut, address = strings.TrimSpace(shortcut), strings.TrimSpace(address)
	switch {
	case shortcut == "":
		return "", errors.New("paste shortcut cannot be empty")
	case address == "":
		return "", errors.New("target window address is empty")
	}
	return shortcut + ",address:" + address, nil
}

// focusedWindow polls hyprctl until it reports a window or attempts run out.
func focusedWindow(ctx context.Context, attempts int, backoff time.Duration) (hypr.ActiveWindow, error) {
	attempts = max(attempts, 1)

	var err error
	for attempt := 1; ; attempt++ {
		var window hypr.ActiveWindow
		if window, err = hypr.QueryActiveWindow(ctx); err == nil {
			return window, nil
		}
		if attempt == attempts {
			break
		}

		wait := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			wait.Stop()
			return hypr.ActiveWindow{}, ctx.Err()
		case <-wait.C:
		}
	}
	return hypr.ActiveWindow{}, fmt.Errorf("resolve focused window: %w", err)
}
