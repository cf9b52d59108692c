// Package doctor runs readiness diagnostics for config, desktop tools, audio,
// credentials, and the transcription endpoint.
package doctor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"github.com/rbright/murmur/internal/audio"
	"github.com/rbright/murmur/internal/config"
	"github.com/rbright/murmur/internal/credential"
	"github.com/rbright/murmur/internal/hypr"
	"github.com/rbright/murmur/internal/transcribe"
)

const endpointTimeout = 5 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Credentials is the read side of the credential store.
type Credentials interface {
	Lookup() (string, error)
}

// Run executes every check for a loaded config.
func Run(ctx context.Context, cfg config.Loaded, creds Credentials) Report {
	checks := []Check{{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q", cfg.Path),
	}}
	if !cfg.Exists {
		checks[0].Message = fmt.Sprintf("using defaults (%q not found)", cfg.Path)
	}

	checks = append(checks, checkEnv("XDG_SESSION_TYPE", func(v string) bool {
		return strings.EqualFold(strings.TrimSpace(v), "wayland")
	}, "session type is wayland", "expected XDG_SESSION_TYPE=wayland"))
	checks = append(checks, checkHyprland(ctx))

	key, credCheck := checkCredential(creds)
	checks = append(checks, credCheck)

	checks = append(checks, checkClipboard(cfg.Config.Clipboard.Argv))

	if cfg.Config.Paste.Enable {
		if len(cfg.Config.PasteCmd.Argv) > 0 {
			checks = append(checks, checkCommand(cfg.Config.PasteCmd.Argv, "paste_cmd"))
		} else {
			checks = append(checks, checkBinary(hypr.Binary, "default paste path requires hyprctl"))
		}
	}

	checks = append(checks, checkAudioSelection(ctx, cfg.Config))
	checks = append(checks, checkEndpoint(ctx, cfg.Config.Transcription.Endpoint, key))

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

func checkHyprland(ctx context.Context) Check {
	if !hypr.SessionActive() {
		return Check{Name: "hyprland", Pass: false, Message: "HYPRLAND_INSTANCE_SIGNATURE is empty"}
	}
	queryCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	info, err := hypr.QueryVersion(queryCtx)
	if err != nil {
		return Check{Name: "hyprland", Pass: false, Message: err.Error()}
	}
	if info.Tag == "" {
		return Check{Name: "hyprland", Pass: true, Message: "Hyprland session detected"}
	}
	return Check{Name: "hyprland", Pass: true, Message: "Hyprland " + info.Tag}
}

func checkCredential(creds Credentials) (string, Check) {
	if creds == nil {
		return "", Check{Name: "credential", Pass: false, Message: "credential store unavailable"}
	}
	key, err := creds.Lookup()
	if err != nil {
		return "", Check{Name: "credential", Pass: false, Message: err.Error()}
	}
	if strings.TrimSpace(key) == "" {
		return "", Check{Name: "credential", Pass: false, Message: fmt.Sprintf("%s is not set; run `murmur credential`", credential.Key)}
	}
	return key, Check{Name: "credential", Pass: true, Message: fmt.Sprintf("%s is set", credential.Key)}
}

func checkClipboard(argv []string) Check {
	if len(argv) > 0 {
		return checkCommand(argv, "clipboard_cmd")
	}
	if clipboard.Unsupported {
		return Check{Name: "clipboard", Pass: false, Message: "clipboard_cmd is empty and no clipboard utility was found"}
	}
	return Check{Name: "clipboard", Pass: true, Message: "using the built-in clipboard writer"}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkEndpoint lists models at the API root to confirm reachability and
// that the credential is accepted.
func checkEndpoint(ctx context.Context, endpoint string, key string) Check {
	const name = "transcription.endpoint"

	base := transcribe.BaseURL(endpoint)
	if base == "" {
		return Check{Name: name, Pass: false, Message: "transcription.endpoint is empty"}
	}
	url := base + "/models"

	reqCtx, cancel := context.WithTimeout(ctx, endpointTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("build request: %v", err)}
	}
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("HTTP %d from %s (credential rejected)", resp.StatusCode, url)}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, url)}
	default:
		return Check{Name: name, Pass: true, Message: fmt.Sprintf("reachable at %s", url)}
	}
}
