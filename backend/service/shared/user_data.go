package shared

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// EnvUserDataDir overrides the per-user data root (tests, portable installs).
	EnvUserDataDir = "MASKBROWSER_USER_DATA_DIR"

	appDirName = "MaskBrowser"
)

// UserDataRoot returns the per-user data root directory.
//
// Default (no EnvUserDataDir):
// - Linux: ~/.config/MaskBrowser
// - macOS: ~/Library/Application Support/MaskBrowser
// - Windows: %APPDATA%\MaskBrowser
func UserDataRoot() string {
	if configured := strings.TrimSpace(os.Getenv(EnvUserDataDir)); configured != "" {
		return absPath(configured)
	}

	base, err := os.UserConfigDir()
	if err == nil && strings.TrimSpace(base) != "" {
		return absPath(filepath.Join(base, appDirName))
	}

	home, err := os.UserHomeDir()
	if err == nil && strings.TrimSpace(home) != "" {
		return absPath(filepath.Join(home, ".maskbrowser"))
	}

	return absPath(filepath.Join(os.TempDir(), appDirName))
}

// LogDir holds maskbrowser.log and its rotated siblings.
func LogDir() string { return filepath.Join(UserDataRoot(), "logs") }

// ProxyJournalPath is the crash journal of the captured original proxy state.
func ProxyJournalPath() string { return filepath.Join(UserDataRoot(), "proxy-journal.json") }

// RestoreWarningPath is written when the original proxy state could not be restored.
func RestoreWarningPath() string { return filepath.Join(UserDataRoot(), "proxy-restore-failed.json") }

// SessionFilePath is the hand-off file passed to the frontend for session id.
func SessionFilePath(id string) string {
	return filepath.Join(UserDataRoot(), "sessions", id+".json")
}

// ExecutableDir is the directory of the running binary with symlinks resolved,
// or the working directory when it cannot be determined.
func ExecutableDir() string {
	exePath, err := os.Executable()
	if err == nil {
		if realPath, err := filepath.EvalSymlinks(exePath); err == nil {
			exePath = realPath
		}
		return filepath.Dir(exePath)
	}
	cwd, _ := os.Getwd()
	return cwd
}

func absPath(path string) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
