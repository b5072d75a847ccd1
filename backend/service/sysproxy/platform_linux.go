//go:build linux

package sysproxy

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// platformStore picks KDE when the session desktop is Plasma, GNOME when
// gsettings is available, and nothing otherwise.
func platformStore(logger *slog.Logger) store {
	run := newExecRunner()
	if isKDE(os.Getenv("XDG_CURRENT_DESKTOP")) {
		return &kdeStore{path: kioslavercPath(run.env), run: run}
	}
	if path, ok := findGSettings(); ok {
		return &gnomeStore{run: run, gsettings: path, logger: logger}
	}
	return nil
}

func isKDE(desktop string) bool {
	for _, d := range strings.Split(desktop, ":") {
		if strings.EqualFold(strings.TrimSpace(d), "KDE") {
			return true
		}
	}
	return false
}

func kioslavercPath(env map[string]string) string {
	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "kioslaverc")
	}
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "kioslaverc")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "kioslaverc")
}

func findGSettings() (string, bool) {
	for _, p := range []string{"gsettings", "/usr/bin/gsettings", "/bin/gsettings", "/usr/local/bin/gsettings"} {
		if p == "gsettings" {
			if commandExists(p) {
				return p, true
			}
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}
