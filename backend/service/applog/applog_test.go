package applog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRotateLogFile_RenamesNonEmptyFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte("hello"), 0o600); err != nil {
		t.Fatalf("write log: %v", err)
	}

	if err := RotateLogFile(path, Retain); err != nil {
		t.Fatalf("RotateLogFile: %v", err)
	}
	if _, err := os.Stat(path); err == nil {
		t.Fatalf("expected %s to be rotated away", path)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "maskbrowser-*.log"))
	if len(matches) != 1 {
		t.Fatalf("rotated files = %v, want 1", matches)
	}
}

func TestRotateLogFile_KeepsEmptyFileAndPrunes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	old := filepath.Join(dir, "maskbrowser-20000101-000000.log")
	if err := os.WriteFile(old, []byte("old"), 0o600); err != nil {
		t.Fatalf("write old rotated: %v", err)
	}
	oldTime := time.Now().Add(-2 * Retain)
	if err := os.Chtimes(old, oldTime, oldTime); err != nil {
		t.Fatalf("chtimes old rotated: %v", err)
	}
	keep := filepath.Join(dir, "maskbrowser-29990101-000000.log")
	if err := os.WriteFile(keep, []byte("keep"), 0o600); err != nil {
		t.Fatalf("write keep rotated: %v", err)
	}

	if err := RotateLogFile(path, Retain); err != nil {
		t.Fatalf("RotateLogFile: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("empty log file should stay in place: %v", err)
	}
	if _, err := os.Stat(old); err == nil {
		t.Errorf("expected old rotated log to be pruned")
	}
	if _, err := os.Stat(keep); err != nil {
		t.Errorf("expected recent rotated log to remain, err=%v", err)
	}
}

func TestSetupTeesToFileAndConsole(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var console bytes.Buffer
	logger, path, closeFn, err := Setup(Options{Dir: dir, Stderr: &console})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	logger.Info("session started", "mask", "msword")
	logger.Debug("gateway response", "len", 120)
	closeFn()

	if path != filepath.Join(dir, FileName) {
		t.Errorf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	file := string(data)
	if !strings.Contains(file, "session started") || !strings.Contains(file, "gateway response") {
		t.Errorf("log file missing records:\n%s", file)
	}
	if !strings.Contains(console.String(), "mask=msword") {
		t.Errorf("console missing info record: %q", console.String())
	}
	if strings.Contains(console.String(), "gateway response") {
		t.Errorf("console shows debug record without Debug: %q", console.String())
	}
}

func TestSetupDebugConsole(t *testing.T) {
	t.Parallel()

	var console bytes.Buffer
	logger, path, closeFn, err := Setup(Options{Debug: true, Stderr: &console})
	if err != nil || path != "" {
		t.Fatalf("Setup() = %q, %v", path, err)
	}
	defer closeFn()
	logger.Debug("proxy captured")
	if !strings.Contains(console.String(), "proxy captured") {
		t.Errorf("console = %q", console.String())
	}
}
