package hypr

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ActiveWindow contains the fields needed for paste dispatch targeting.
type ActiveWindow struct {
	Address      string `json:"address"`
	Class        string `json:"class"`
	InitialClass string `json:"initialClass"`
}

// VersionInfo is the subset of `hyprctl -j version` reported by doctor.
type VersionInfo struct {
	Tag    string `json:"tag"`
	Commit string `json:"commit"`
}

// QueryActiveWindow fetches and validates the active-window contract from hyprctl.
func QueryActiveWindow(ctx context.Context) (ActiveWindow, error) {
	out, err := output(ctx, "-j", "activewindow")
	if err != nil {
		return ActiveWindow{}, err
	}

	var window ActiveWindow
	if err := json.Unmarshal(out, &window); err != nil {
		return ActiveWindow{}, fmt.Errorf("decode hyprctl activewindow json: %w", err)
	}
	window.Address = strings.TrimSpace(window.Address)
	window.Class = strings.TrimSpace(window.Class)
	window.InitialClass = strings.TrimSpace(window.InitialClass)
	if window.Address == "" {
		return ActiveWindow{}, fmt.Errorf("hyprctl activewindow returned empty address")
	}
	return window, nil
}

// QueryVersion asks the running compositor for its version.
func QueryVersion(ctx context.Context) (VersionInfo, error) {
	out, err := output(ctx, "-j", "version")
	if err != nil {
		return VersionInfo{}, err
	}

	var info VersionInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return VersionInfo{}, fmt.Errorf("decode hyprctl version json: %w", err)
	}
	info.Tag = strings.TrimSpace(info.Tag)
	info.Commit = strings.TrimSpace(info.Commit)
	return info, nil
}

// SendShortcut sends a literal hyprctl sendshortcut payload.
func SendShortcut(ctx context.Context, shortcut string) error {
	shortcut = strings.TrimSpace(shortcut)
	if shortcut == "" {
		return fmt.Errorf("sendshortcut requires a non-empty payload")
	}
	return run(ctx, "--quiet", "dispatch", "sendshortcut", shortcut)
}

// Notify shows a Hyprland notification. An empty color uses the accent blue.
func Notify(ctx context.Context, icon int, timeoutMS int, color string, text string) error {
	if strings.TrimSpace(color) == "" {
		color = "rgb(89b4fa)"
	}
	return run(
		ctx,
		"--quiet",
		"dispatch",
		"notify",
		strconv.Itoa(icon),
		strconv.Itoa(timeoutMS),
		color,
		text,
	)
}

// DismissNotify dismisses active Hyprland notifications.
func DismissNotify(ctx context.Context) error {
	return run(ctx, "--quiet", "dispatch", "dismissnotify")
}
