package session

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"maskbrowser/backend/domain"
)

func TestCheckVersion(t *testing.T) {
	tests := []struct {
		server, local string
		want          error
	}{
		{"1.0.0a", "1.0.0a", nil},
		{"0.9.0", "1.0.0a", nil},
		{"1.0.0", "1.0.0a", domain.ErrIncompatible},
		{"2.0.0", "1.0.0a", domain.ErrIncompatible},
		{"1.0.0a", "1.0.0", nil},
		{"1.0.0b", "1.0.0a", domain.ErrIncompatible},
		{"v1.2", "1.2.0", nil},
		{"1.0.0rc1", "1.0.0b2", domain.ErrIncompatible},
		{"1.0.0a10", "1.0.0a9", domain.ErrIncompatible},
		{"1.0.0a9", "1.0.0a10", nil},
		{"1.0.0.post1", "1.0.0", domain.ErrIncompatible},
		{"1.0.0", "1.0.0.post1", nil},
		{"1.0.0.post2", "1.0.0.post10", nil},
		{"1.0.1.dev1", "1.0.0", domain.ErrIncompatible},
		{"1.0.1.dev1", "1.0.1a1", nil},
		{"1.0.1a1", "1.0.1.dev1", domain.ErrIncompatible},
		{"1.0.1", "1.0.1.dev1", domain.ErrIncompatible},
		{"1.0.0.post1", "1.0.0a", domain.ErrIncompatible},
		{"not a version", "1.0.0", domain.ErrInvalidVersion},
		{"1.0.0", "", domain.ErrInvalidVersion},
	}
	for _, tt := range tests {
		t.Run(tt.server+"_vs_"+tt.local, func(t *testing.T) {
			err := CheckVersion(tt.server, tt.local)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("CheckVersion() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("CheckVersion() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{errors.New("boom"), 1},
		{domain.ErrConfigIncomplete, 1},
		{errors.Join(errors.New("ui"), domain.ErrProxyRestoreFailed), 1},
		{domain.ErrIncompatible, 2},
		{domain.ErrDenied, 3},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestLocalUsernamePrefersEnvironment(t *testing.T) {
	t.Setenv("LOGNAME", "")
	t.Setenv("USER", "carol")
	if got := LocalUsername(); got != "carol" {
		t.Errorf("LocalUsername() = %q, want carol", got)
	}
}

func TestNoticeRunner(t *testing.T) {
	var out bytes.Buffer
	h := &recordingHandler{}
	n := NoticeRunner{Out: &out, Logger: slog.New(h)}
	sc := SessionContext{ID: "s1", Username: "bob", Auth: domain.AuthorizationResult{AccountLabel: "bob", AccountTier: "none"}}

	if err := n.Run(context.Background(), sc); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `"bob"`) {
		t.Errorf("notice = %q", out.String())
	}
	if len(h.records) != 1 {
		t.Errorf("log records = %d, want 1", len(h.records))
	}
}

func TestExecUIRequiresPath(t *testing.T) {
	if err := (ExecUI{}).Run(context.Background(), &SessionContext{}); err == nil {
		t.Fatal("expected error without a frontend path")
	}
}

func TestExecUIPassesSessionFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script frontend")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "frontend.sh")
	body := "#!/bin/sh\necho \"args=$*\"\ncat \"$" + EnvSessionFile + "\"\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
	sessionFile := filepath.Join(dir, "sessions", "s1.json")

	var stdout bytes.Buffer
	ui := ExecUI{
		Path:        script,
		SessionFile: func(string) string { return sessionFile },
		Stdout:      &stdout,
		Logger:      slog.New(&recordingHandler{}),
	}
	sc := &SessionContext{ID: "s1", Username: "alice"}
	sc.Settings.ExtraFlags = []string{"--no-sandbox"}
	sc.Identity.Title = "Microsoft Word"

	if err := ui.Run(context.Background(), sc); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	got := stdout.String()
	if !strings.Contains(got, "args=--no-sandbox") || !strings.Contains(got, `"title": "Microsoft Word"`) {
		t.Errorf("frontend output = %q", got)
	}
	if _, err := os.Stat(sessionFile); !os.IsNotExist(err) {
		t.Errorf("session file left behind: %v", err)
	}
}

func TestExecUIReportsExitStatus(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script frontend")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "frontend.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\nexit 7\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	ui := ExecUI{
		Path:        script,
		SessionFile: func(id string) string { return filepath.Join(dir, id+".json") },
		Logger:      slog.New(&recordingHandler{}),
	}
	if err := ui.Run(context.Background(), &SessionContext{ID: "s2"}); err == nil {
		t.Fatal("expected non-zero exit to surface")
	}
}
