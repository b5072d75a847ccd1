package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"time"

	"maskbrowser/backend/persist"
)

// EnvSessionFile names the variable carrying the session file path to the frontend.
const EnvSessionFile = "MASKBROWSER_SESSION"

// ExecUI runs an external frontend for the session. The SessionContext is
// written to a JSON file whose path is passed in EnvSessionFile; extra
// startup flags become the frontend's arguments.
type ExecUI struct {
	Path string
	// SessionFile returns where to write the context for session id.
	SessionFile func(id string) string
	Stdout      io.Writer
	Stderr      io.Writer
	Logger      *slog.Logger
	// GracePeriod is how long the frontend gets to exit after an interrupt.
	GracePeriod time.Duration
}

func (u ExecUI) Run(ctx context.Context, sc *SessionContext) error {
	if u.Path == "" {
		return errors.New("no frontend executable configured")
	}
	logger := u.Logger
	if logger == nil {
		logger = slog.Default()
	}

	file := u.SessionFile(sc.ID)
	if err := persist.SaveJSON(file, sc); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	defer func() {
		if err := persist.Remove(file); err != nil {
			logger.Warn("session file not removed", "path", file, "error", err)
		}
	}()

	cmd := exec.CommandContext(ctx, u.Path, sc.Settings.ExtraFlags...)
	cmd.Env = append(os.Environ(), EnvSessionFile+"="+file)
	cmd.Stdout = u.Stdout
	cmd.Stderr = u.Stderr
	if runtime.GOOS != "windows" {
		cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	}
	cmd.WaitDelay = u.GracePeriod
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = 5 * time.Second
	}

	logger.Info("starting frontend", "path", u.Path, "args", sc.Settings.ExtraFlags, "title", sc.Identity.Title)
	err := cmd.Run()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("frontend %s: %w", u.Path, err)
	}
	return nil
}

// NoticeRunner is the shipped contingency: it records the denial and tells
// the user, nothing else.
type NoticeRunner struct {
	Out    io.Writer
	Logger *slog.Logger
}

func (n NoticeRunner) Run(_ context.Context, sc SessionContext) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("authorization denied", "session", sc.ID, "user", sc.Username,
		"label", sc.Auth.AccountLabel, "tier", sc.Auth.AccountTier)
	out := n.Out
	if out == nil {
		out = os.Stderr
	}
	_, err := fmt.Fprintf(out, "Access denied for user %q. Contact your administrator.\n", sc.Username)
	return err
}
