// Package output inserts finished dictation text at the cursor through the
// clipboard and an optional paste dispatch.
package output

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/atotto/clipboard"

	"github.com/rbright/murmur/internal/config"
)

// Committer writes text to the clipboard and optionally pastes it into the
// focused window.
type Committer struct {
	clipboardArgv []string
	paste         config.PasteConfig
	pasteArgv     []string
	logger        *slog.Logger

	writeBuiltin func(string) error
	pasteDefault func(context.Context, string) error
}

// NewCommitter constructs a committer from runtime config.
func NewCommitter(cfg config.Config, logger *slog.Logger) *Committer {
	return &Committer{
		clipboardArgv: cfg.Clipboard.Argv,
		paste:         cfg.Paste,
		pasteArgv:     cfg.PasteCmd.Argv,
		logger:        logger,
		writeBuiltin:  clipboard.WriteAll,
		pasteDefault:  pasteIntoFocused,
	}
}

// Commit sets the clipboard and dispatches paste when enabled. Only a
// clipboard failure is returned; a failed paste leaves the clipboard set.
func (c *Committer) Commit(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	if err := c.setClipboard(ctx, text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}

	if !c.paste.Enable {
		return nil
	}

	if len(c.pasteArgv) > 0 {
		pasteCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := runCommandWithInput(pasteCtx, c.pasteArgv, ""); err != nil {
			c.logPasteFailure(err)
		}
		return nil
	}

	pasteCtx, cancel := context.WithTimeout(ctx, 1200*time.Millisecond)
	defer cancel()
	if err := c.pasteDefault(pasteCtx, c.paste.Shortcut); err != nil {
		c.logPasteFailure(err)
	}
	return nil
}

func (c *Committer) setClipboard(ctx context.Context, text string) error {
	if len(c.clipboardArgv) == 0 {
		if clipboard.Unsupported {
			return fmt.Errorf("no clipboard utility available")
		}
		return c.writeBuiltin(text)
	}

	clipboardCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return runCommandWithInput(clipboardCtx, c.clipboardArgv, text)
}

// runCommandWithInput executes argv and optionally writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}

func (c *Committer) logPasteFailure(err error) {
	if c.logger == nil || err == nil {
		return
	}
	c.logger.Error("paste dispatch failed; clipboard remains set", "error", err.Error())
}
