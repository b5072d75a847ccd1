//go:build unix

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"maskbrowser/backend/domain"
	"maskbrowser/backend/service/sysproxy"
)

const envHangupDir = "MASKBROWSER_TEST_HANGUP_DIR"

// markerController records the restored state in a file.
type markerController struct{ path string }

func (markerController) Name() string { return "marker" }

func (markerController) Capture(context.Context) (domain.ProxyState, error) {
	return domain.ProxyState{Address: "corp:8080", Enabled: true, Native: map[string]string{}}, nil
}

func (markerController) Apply(context.Context, domain.ProxyState) error { return nil }

func (c markerController) Restore(_ context.Context, s domain.ProxyState) error {
	return os.WriteFile(c.path, []byte(s.Address), 0o600)
}

// hangupChild holds a proxy lease the way a session does and releases it
// once the shutdown context is cancelled.
func hangupChild(dir string) {
	ctx, cancel := shutdownContext(context.Background())
	defer cancel()

	lease, err := sysproxy.Acquire(ctx, markerController{path: filepath.Join(dir, "restored")}, sysproxy.LeaseOptions{
		SessionID: "hangup",
		Journal:   sysproxy.NewJournal(filepath.Join(dir, "journal.json")),
	})
	if err != nil {
		os.Exit(2)
	}
	_ = lease.Apply(ctx, domain.ProxyState{Address: "10.0.0.1:3128", Enabled: true})
	fmt.Println("ready")

	<-ctx.Done()
	if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
		os.Exit(3)
	}
	os.Exit(0)
}

func TestHangupRestoresProxy(t *testing.T) {
	if dir := os.Getenv(envHangupDir); dir != "" {
		hangupChild(dir)
		return
	}

	dir := t.TempDir()
	cmd := exec.Command(os.Args[0], "-test.run=^TestHangupRestoresProxy$")
	cmd.Env = append(os.Environ(), envHangupDir+"="+dir)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.Start(); err != nil {
		t.Fatal(err)
	}
	timer := time.AfterFunc(20*time.Second, func() { _ = cmd.Process.Kill() })
	defer timer.Stop()

	line, err := bufio.NewReader(stdout).ReadString('\n')
	if err != nil || strings.TrimSpace(line) != "ready" {
		_ = cmd.Process.Kill()
		t.Fatalf("child not ready: %q, %v", line, err)
	}
	if err := cmd.Process.Signal(syscall.SIGHUP); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Wait(); err != nil {
		t.Fatalf("child exit: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "restored"))
	if err != nil {
		t.Fatalf("proxy not restored: %v", err)
	}
	if string(got) != "corp:8080" {
		t.Errorf("restored address = %q, want corp:8080", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "journal.json")); !os.IsNotExist(err) {
		t.Errorf("journal left behind: %v", err)
	}
}
