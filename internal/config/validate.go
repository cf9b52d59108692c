package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	provider := strings.ToLower(strings.TrimSpace(cfg.Transcription.Provider))
	if provider != "multipart" && provider != "openai" {
		return nil, fmt.Errorf("transcription.provider must be one of: multipart, openai")
	}
	endpoint, err := url.Parse(strings.TrimSpace(cfg.Transcription.Endpoint))
	if err != nil || endpoint.Host == "" || (endpoint.Scheme != "http" && endpoint.Scheme != "https") {
		return nil, fmt.Errorf("transcription.endpoint must be an absolute http(s) URL")
	}
	if endpoint.Scheme == "http" {
		warnings = append(warnings, Warning{Message: "transcription.endpoint uses plain http; the API key is sent unencrypted"})
	}
	if strings.TrimSpace(cfg.Transcription.Model) == "" {
		return nil, fmt.Errorf("transcription.model must not be empty")
	}
	if strings.TrimSpace(cfg.Transcription.Language) == "" {
		return nil, fmt.Errorf("transcription.language must not be empty")
	}
	if cfg.Transcription.TimeoutMS <= 0 {
		return nil, fmt.Errorf("transcription.timeout_ms must be > 0")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Audio.Microphone)) {
	case "auto", "allow", "deny":
	default:
		return nil, fmt.Errorf("audio.microphone must be one of: auto, allow, deny")
	}
	if cfg.Audio.MaxDurationMS <= 0 {
		return nil, fmt.Errorf("audio.max_duration_ms must be > 0")
	}
	if cfg.Audio.MaxDurationMS > 60000 {
		return nil, fmt.Errorf("audio.max_duration_ms must be <= 60000")
	}
	if cfg.Session.ErrorDisplayMS < 0 {
		return nil, fmt.Errorf("session.error_display_ms must be >= 0")
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Indicator.Backend))
	if backend == "" {
		return nil, fmt.Errorf("indicator.backend must not be empty")
	}
	if backend != "hypr" && backend != "desktop" {
		return nil, fmt.Errorf("indicator.backend must be one of: hypr, desktop")
	}
	if backend == "desktop" && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=desktop")
	}

	if cfg.Paste.Enable && cfg.PasteCmd.Raw != "" && len(cfg.PasteCmd.Argv) == 0 {
		return nil, fmt.Errorf("paste_cmd is configured but empty")
	}
	if cfg.Paste.Enable && len(cfg.PasteCmd.Argv) == 0 && strings.TrimSpace(cfg.Paste.Shortcut) == "" {
		return nil, fmt.Errorf("paste.shortcut must not be empty when paste.enable=true and paste_cmd is unset")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Debug.LogLevel)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return nil, fmt.Errorf("debug.log_level must be one of: debug, info, warn, error")
	}

	return warnings, nil
}
