// Package app dispatches parsed CLI commands: it runs the daemon for
// `serve` and relays push-to-talk intent to it for everything else.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rbright/murmur/internal/audio"
	"github.com/rbright/murmur/internal/cli"
	"github.com/rbright/murmur/internal/config"
	"github.com/rbright/murmur/internal/credential"
	"github.com/rbright/murmur/internal/doctor"
	"github.com/rbright/murmur/internal/ipc"
	"github.com/rbright/murmur/internal/logging"
	"github.com/rbright/murmur/internal/version"
)

const forwardTimeout = 500 * time.Millisecond

// Runner executes one CLI invocation.
type Runner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// Execute runs args with the given standard streams and returns the exit code.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	r := Runner{Stdin: stdin, Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

// Execute returns 0 on success, 1 on runtime failure, and 2 on usage errors.
func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("murmur"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("murmur"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logRuntime, err := logging.New(cfgLoaded.Config.Debug.LogLevel)
	if err != nil {
		fmt.Fprintf(r.Stderr, "warning: logging disabled: %v\n", err)
		logRuntime = logging.Discard()
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	// Forwarded commands run on every key event; keep them quiet.
	if !parsed.Command.Forwarded() {
		for _, w := range cfgLoaded.Warnings {
			msg := w.Message
			if w.Line > 0 {
				msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
			}
			fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
			logger.Warn("config warning", "line", w.Line, "message", w.Message)
		}
	}

	logger.Debug("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandServe:
		return r.commandServe(ctx, cfgLoaded.Config, logger)
	case cli.CommandPress, cli.CommandRelease, cli.CommandToggle:
		return r.forwardOrFail(ctx, string(parsed.Command))
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandDoctor:
		return r.commandDoctor(ctx, cfgLoaded)
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandCredential:
		return r.commandCredential(cfgLoaded.Config, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDoctor(ctx context.Context, cfgLoaded config.Loaded) int {
	store, err := credential.Open(cfgLoaded.Config.Credential.File)
	var creds doctor.Credentials
	if err == nil {
		creds = store
	}
	report := doctor.Run(ctx, cfgLoaded, creds)
	fmt.Fprintln(r.Stdout, report.String())
	if report.OK() {
		return 0
	}
	return 1
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			yesNo(device.Available),
			yesNo(device.Muted),
		)
	}

	return 0
}

func (r Runner) commandCredential(cfg config.Config, logger *slog.Logger) int {
	store, err := credential.Open(cfg.Credential.File)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	stdin := r.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	raw, err := io.ReadAll(io.LimitReader(stdin, 64<<10))
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: read credential: %v\n", err)
		return 1
	}
	value := strings.TrimSpace(string(raw))
	if value == "" {
		fmt.Fprintln(r.Stderr, "error: no credential on stdin")
		return 1
	}

	if err := store.Save(value); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("credential save failed", "path", store.Path, "error", err.Error())
		return 1
	}
	logger.Info("credential saved", "path", store.Path)

	fmt.Fprintf(r.Stdout, "saved %s to %s\n", credential.Key, store.Path)
	if strings.TrimSpace(os.Getenv(credential.Key)) != "" {
		fmt.Fprintf(r.Stderr, "warning: %s is set in the environment and takes precedence\n", credential.Key)
	}
	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.CommandStatus)
	if !handled {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.State == "" {
		resp.State = "idle"
	}
	if resp.Message != "" {
		fmt.Fprintf(r.Stdout, "%s: %s\n", resp.State, resp.Message)
		return 0
	}
	fmt.Fprintln(r.Stdout, resp.State)
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		fmt.Fprintln(r.Stderr, "error: murmur daemon is not running (start it with `murmur serve`)")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// tryForward sends command to the daemon. handled is false when no daemon
// is listening; a daemon-side refusal is returned as an error.
func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command}, forwardTimeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if ipc.IsDaemonAbsent(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}

func resolveTempDir(dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create audio temp dir: %w", err)
	}
	return dir, nil
}

func debugDumpDir(enabled bool) string {
	if !enabled {
		return ""
	}
	stateDir, err := logging.StateDir()
	if err != nil {
		return ""
	}
	return filepath.Join(stateDir, "debug")
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
