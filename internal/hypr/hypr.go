// Package hypr wraps the hyprctl commands used for paste dispatch,
// notifications, and environment checks.
package hypr

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Binary is the hyprctl executable name resolved through PATH.
const Binary = "hyprctl"

// SessionActive reports whether the process runs inside a Hyprland session.
func SessionActive() bool {
	return strings.TrimSpace(os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")) != ""
}

func run(ctx context.Context, args ...string) error {
	_, err := output(ctx, args...)
	return err
}

func output(ctx context.Context, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, Binary, args...).CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return nil, fmt.Errorf("hyprctl %v failed: %w", args, err)
		}
		return nil, fmt.Errorf("hyprctl %v failed: %w (%s)", args, err, trimmed)
	}
	return out, nil
}
